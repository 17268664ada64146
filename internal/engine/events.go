// Package engine maintains the tracked set of nearby hazards and turns
// successive in-scope snapshots into appeared/updated/cleared transition
// events.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/traffic-hazard-watch/internal/domain"
)

// EventKind classifies a hazard lifecycle transition.
type EventKind string

const (
	EventAppeared EventKind = "appeared"
	EventUpdated  EventKind = "updated"
	EventCleared  EventKind = "cleared"
)

// TransitionEvent is one lifecycle transition observed during a diff pass.
// Cleared events are built from the last-known record, since the feed no
// longer carries the data.
type TransitionEvent struct {
	Kind       EventKind            `json:"kind"`
	HazardID   string               `json:"hazard_id"`
	Name       string               `json:"name"`
	Latitude   float64              `json:"latitude"`
	Longitude  float64              `json:"longitude"`
	Zone       string               `json:"zone,omitempty"`
	DistanceKm float64              `json:"distance_km,omitempty"`
	Attributes map[string]any       `json:"attributes,omitempty"`
	Changes    []domain.FieldChange `json:"changes,omitempty"`
	ObservedAt time.Time            `json:"observed_at"`
}

// EventSink receives transition events. Delivery is at-least-once per poll
// cycle; sinks must tolerate redelivery after a crash between diff commit
// and delivery acknowledgement downstream.
type EventSink interface {
	Accept(ctx context.Context, event TransitionEvent) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ctx context.Context, event TransitionEvent) error

func (f SinkFunc) Accept(ctx context.Context, event TransitionEvent) error {
	return f(ctx, event)
}

// MultiSink fans events out to several sinks. The first error is returned
// after all sinks have been attempted.
func MultiSink(sinks ...EventSink) EventSink {
	return SinkFunc(func(ctx context.Context, event TransitionEvent) error {
		var first error
		for _, s := range sinks {
			if err := s.Accept(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// LogSink writes each event to the logger at info level. Used as the
// always-on local sink.
func LogSink(logger *slog.Logger) EventSink {
	return SinkFunc(func(_ context.Context, event TransitionEvent) error {
		logger.Info("hazard transition",
			"kind", event.Kind,
			"hazard_id", event.HazardID,
			"name", event.Name,
			"zone", event.Zone,
			"distance_km", event.DistanceKm,
			"changes", len(event.Changes),
		)
		return nil
	})
}
