package telemetry

import (
	"bytes"
	"context"
	"fmt"

	"github.com/skyportal/dump/blob"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "skydump"

// TraceFile is the bundle file spans are saved to in file mode.
const TraceFile = "trace.json"

type TraceMode string

const (
	TraceOff TraceMode = "off"
	// TraceToFile writes spans into the bundle.
	TraceToFile TraceMode = "file"
	// TraceOTLP exports spans over OTLP/HTTP, configured by the usual
	// OTEL_EXPORTER_OTLP_* variables.
	TraceOTLP TraceMode = "otlp"
)

func ParseTraceMode(s string) (TraceMode, error) {
	switch m := TraceMode(s); m {
	case "", TraceOff:
		return TraceOff, nil
	case TraceToFile, TraceOTLP:
		return m, nil
	}
	return "", fmt.Errorf("unknown tracing mode %q", s)
}

// Tracing owns the tracer provider of one run. A nil *Tracing hands out a
// no-op tracer.
type Tracing struct {
	tp   *trace.TracerProvider
	mode TraceMode
	buf  *bytes.Buffer
}

func NewTracing(ctx context.Context, mode TraceMode, version string) (*Tracing, error) {
	if mode == TraceOff || mode == "" {
		return nil, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)

	t := &Tracing{mode: mode}
	var opt trace.TracerProviderOption
	switch mode {
	case TraceToFile:
		t.buf = new(bytes.Buffer)
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(t.buf))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		opt = trace.WithSyncer(exporter)
	case TraceOTLP:
		exporter, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opt = trace.WithBatcher(exporter)
	default:
		return nil, fmt.Errorf("unknown tracing mode %q", mode)
	}

	t.tp = trace.NewTracerProvider(opt, trace.WithResource(res))
	otel.SetTracerProvider(t.tp)
	return t, nil
}

func (t *Tracing) Tracer() oteltrace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer(serviceName)
	}
	return t.tp.Tracer(serviceName)
}

// Finish flushes the provider and, in file mode, saves the spans to
// trace.json in store.
func (t *Tracing) Finish(ctx context.Context, store blob.Store) error {
	if t == nil {
		return nil
	}
	if err := t.tp.Shutdown(ctx); err != nil {
		return err
	}
	if t.mode != TraceToFile || store == nil {
		return nil
	}
	_, err := store.Put(ctx, TraceFile, t.buf, blob.PutOptions{ContentType: "application/json"})
	return err
}
