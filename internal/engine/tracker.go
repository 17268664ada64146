package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/traffic-hazard-watch/internal/domain"
	"github.com/couchcryptid/traffic-hazard-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Tracker owns the set of hazards currently considered nearby for one
// configured feed. It is not safe for concurrent use; the poll loop is the
// single writer.
//
// Known limitation: records without a feed id cannot be matched across
// polls. The differ skips them entirely, so they never enter the tracked
// set and never produce events. Synthesizing a stable id would require
// guessing which properties identify a hazard, which the feed does not
// define.
type Tracker struct {
	entries map[string]domain.ScopedHazard
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTracker creates an empty tracker. Pass a fake clock in tests to pin
// event timestamps.
func NewTracker(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		entries: make(map[string]domain.ScopedHazard),
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Len reports the current tracked set size.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// TrackedIDs returns the ids currently in the tracked set.
func (t *Tracker) TrackedIDs() []string {
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}

// Diff runs one atomic diff pass: it classifies every hazard in the new
// in-scope snapshot against the full previous tracked set, commits the new
// set as one unit, and then delivers the resulting events to the sink.
// After Diff returns, the tracked set equals exactly the ids of the
// snapshot. At most one event is emitted per hazard id per pass.
//
// Sink failures are logged and counted but do not roll back the committed
// state; the engine promises at-least-once delivery per cycle, not
// transactional delivery.
func (t *Tracker) Diff(ctx context.Context, inScope []domain.ScopedHazard, sink EventSink) []TransitionEvent {
	now := t.clock.Now().UTC()
	next := make(map[string]domain.ScopedHazard, len(inScope))
	var events []TransitionEvent

	for _, h := range inScope {
		if h.ID == "" {
			t.logger.Debug("hazard without id skipped by differ", "headline", h.Headline)
			continue
		}
		if _, dup := next[h.ID]; dup {
			// Merge dedup upstream should prevent this; first occurrence wins.
			continue
		}
		next[h.ID] = h

		prev, tracked := t.entries[h.ID]
		if !tracked {
			events = append(events, t.newEvent(EventAppeared, h, now, nil))
			continue
		}
		if changes := h.Details.Diff(prev.Details); len(changes) > 0 {
			events = append(events, t.newEvent(EventUpdated, h, now, changes))
		}
		// No significant changes: the stored record is still replaced so
		// position and minor-field drift are not lost, but nothing fires.
	}

	for id, prev := range t.entries {
		if _, still := next[id]; !still {
			events = append(events, t.newEvent(EventCleared, prev, now, nil))
		}
	}

	// Commit before delivery: no event observes a partially-updated set.
	t.entries = next
	t.metrics.TrackedHazards.Set(float64(len(next)))

	for _, ev := range events {
		t.metrics.EventsEmitted.WithLabelValues(string(ev.Kind)).Inc()
		if err := sink.Accept(ctx, ev); err != nil {
			t.metrics.SinkErrors.Inc()
			t.logger.Error("event sink rejected transition event",
				"kind", ev.Kind, "hazard_id", ev.HazardID, "error", err)
		}
	}

	return events
}

func (t *Tracker) newEvent(kind EventKind, h domain.ScopedHazard, now time.Time, changes []domain.FieldChange) TransitionEvent {
	name := h.Headline
	if name == "" {
		name = h.DisplayName()
	}
	return TransitionEvent{
		Kind:       kind,
		HazardID:   h.ID,
		Name:       name,
		Latitude:   h.Lat,
		Longitude:  h.Lon,
		Zone:       h.Zone,
		DistanceKm: h.DistanceKm,
		Attributes: h.Attributes,
		Changes:    changes,
		ObservedAt: now,
	}
}
