package log

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls how run loggers render.
type Options struct {
	Verbose bool
	Output  io.Writer
}

func level(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

func NewHandler(name string, opts Options) slog.Handler {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Prefix:          name,
		Level:           level(opts.Verbose),
	})
}

func New(name string) *slog.Logger {
	return NewWithOptions(name, Options{})
}

func NewWithOptions(name string, opts Options) *slog.Logger {
	return slog.New(NewHandler(name, opts))
}

// Discard returns a logger that drops every record. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

// IntoContext adds a logger to a context. Use FromContext to
// pull the logger out.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or the default slog
// logger when there is none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// SubLogger derives a logger whose prefix is the parent's prefix with
// suffix appended, e.g. "skydump" -> "skydump/catalog".
func SubLogger(base *slog.Logger, suffix string) *slog.Logger {
	cl, ok := base.Handler().(*log.Logger)
	if !ok {
		return base.With("component", suffix)
	}

	prefix := suffix
	if p := cl.GetPrefix(); p != "" {
		prefix = p + "/" + suffix
	}
	return slog.New(cl.WithPrefix(prefix))
}
