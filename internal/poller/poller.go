// Package poller drives the fetch-filter-diff cycle on a fixed interval.
// One Poller owns one Tracker; passes are strictly sequential, so the
// single-flight invariant holds by construction.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/traffic-hazard-watch/internal/domain"
	"github.com/couchcryptid/traffic-hazard-watch/internal/engine"
	"github.com/couchcryptid/traffic-hazard-watch/internal/feed"
	"github.com/couchcryptid/traffic-hazard-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the merged hazard collection for the selected
// categories. Implemented by feed.Client.
type Fetcher interface {
	Fetch(ctx context.Context, categories []string) (domain.FeatureCollection, error)
}

// PointSource resolves the reference points for the current pass. Moving
// tracked points re-resolve on every pass; a fixed configuration uses
// StaticPoints.
type PointSource interface {
	Points(ctx context.Context) ([]domain.ReferencePoint, error)
}

// StaticPoints is a PointSource for a fixed set of reference points.
type StaticPoints []domain.ReferencePoint

func (s StaticPoints) Points(_ context.Context) ([]domain.ReferencePoint, error) {
	return s, nil
}

// Params wires a Poller's collaborators and settings.
type Params struct {
	Fetcher    Fetcher
	Points     PointSource
	Tracker    *engine.Tracker
	Sink       engine.EventSink
	Categories []string
	Interval   time.Duration
	Clock      clockwork.Clock // nil means real time
}

// Poller runs the polling loop.
type Poller struct {
	fetcher    Fetcher
	points     PointSource
	tracker    *engine.Tracker
	sink       engine.EventSink
	categories []string
	interval   time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New creates a Poller from its parameters.
func New(p Params, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		fetcher:    p.Fetcher,
		points:     p.Points,
		tracker:    p.Tracker,
		sink:       p.Sink,
		categories: p.Categories,
		interval:   p.Interval,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once at least one pass has completed, or an
// error describing why the service is not yet ready.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no poll pass has completed yet")
	}
	return nil
}

// Run executes poll passes until the context is cancelled. An invalid API
// key is not retryable until credentials change, so it stops the loop and
// is returned to the caller; every other pass failure is logged and the
// loop waits for the next interval.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval, "categories", p.categories)
	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if err := p.RunOnce(ctx); err != nil {
			if errors.Is(err, feed.ErrInvalidAPIKey) {
				p.logger.Error("feed credentials rejected, stopping poller", "error", err)
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("poll pass failed", "error", err)
		}

		if !p.sleep(ctx) {
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce executes a single fetch-filter-diff pass. On an auth failure the
// tracked state is left untouched and no events are emitted.
func (p *Poller) RunOnce(ctx context.Context) error {
	start := p.clock.Now()
	p.metrics.Polls.Inc()

	fc, err := p.fetcher.Fetch(ctx, p.categories)
	degraded := false
	switch {
	case errors.Is(err, feed.ErrInvalidAPIKey):
		p.metrics.PollFailures.Inc()
		return err
	case errors.Is(err, feed.ErrForbidden):
		// Partial snapshot: the accessible categories were fetched and the
		// pass proceeds with what it has.
		degraded = true
		p.logger.Warn("pass degraded by forbidden categories", "error", err)
	case err != nil:
		p.metrics.PollFailures.Inc()
		return fmt.Errorf("fetch hazards: %w", err)
	}

	records := domain.ParseFeatureCollection(fc, p.logger)
	p.metrics.FeaturesFetched.Add(float64(len(records)))

	points, err := p.points.Points(ctx)
	if err != nil {
		p.metrics.PollFailures.Inc()
		return fmt.Errorf("resolve reference points: %w", err)
	}

	inScope := domain.FilterNearby(records, points, p.logger)
	p.metrics.HazardsInScope.Set(float64(len(inScope)))

	events := p.tracker.Diff(ctx, inScope, p.sink)

	p.metrics.PollDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("poll pass complete",
		"features", len(records),
		"in_scope", len(inScope),
		"tracked", p.tracker.Len(),
		"events", len(events),
		"degraded", degraded,
	)
	return nil
}

// sleep waits one poll interval, returning false if the context was
// cancelled first.
func (p *Poller) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(p.interval):
		return true
	}
}
