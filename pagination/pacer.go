package pagination

import (
	"context"
	"log/slog"
	"time"

	"github.com/skyportal/dump/telemetry"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer keeps a run under the catalog's rate limit with a fixed window:
// every Every ticks it pauses once and starts counting from zero again,
// however long the window took. Whitelisted callers never pause.
//
// One Pacer is shared by every paced request of a run. It is not safe for
// concurrent use.
type Pacer struct {
	Whitelisted bool
	Every       int
	Pause       time.Duration
	Sleep       SleepFunc

	Logger  *slog.Logger
	Metrics *telemetry.Telemetry

	count  int
	pauses int
}

func NewPacer(whitelisted bool, every int, pause time.Duration, metrics *telemetry.Telemetry, logger *slog.Logger) *Pacer {
	return &Pacer{
		Whitelisted: whitelisted,
		Every:       every,
		Pause:       pause,
		Sleep:       sleepContext,
		Logger:      logger,
		Metrics:     metrics,
	}
}

// Tick records one request and pauses when the window is full. A nil
// Pacer never pauses.
func (p *Pacer) Tick(ctx context.Context) error {
	if p == nil || p.Whitelisted || p.Every < 1 {
		return nil
	}
	p.count++
	if p.count < p.Every {
		return nil
	}
	p.count = 0
	p.pauses++
	p.Metrics.Pause()
	if p.Logger != nil {
		p.Logger.Debug("pausing for rate limit", "pause", p.Pause, "pauses", p.pauses)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, p.Pause)
}

// Pauses reports how many times the pacer has paused.
func (p *Pacer) Pauses() int {
	if p == nil {
		return 0
	}
	return p.pauses
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
