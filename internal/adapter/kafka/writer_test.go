package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/traffic-hazard-watch/internal/engine"
)

func TestEventMessage(t *testing.T) {
	observed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	event := engine.TransitionEvent{
		Kind:       engine.EventUpdated,
		HazardID:   "746012",
		Name:       "Crash on M4",
		Latitude:   -33.88,
		Longitude:  151.2,
		Zone:       "home",
		DistanceKm: 1.5,
		ObservedAt: observed,
	}

	msg, err := eventMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("746012"), msg.Key)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "updated", headers["kind"])
	assert.Equal(t, "2025-03-14T09:00:00Z", headers["observed_at"])

	var decoded engine.TransitionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestEventMessage_ClearedOmitsOptionalFields(t *testing.T) {
	msg, err := eventMessage(engine.TransitionEvent{
		Kind:       engine.EventCleared,
		HazardID:   "1",
		Name:       "Roadwork on A3",
		ObservedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &raw))
	assert.NotContains(t, raw, "changes")
	assert.NotContains(t, raw, "attributes")
	assert.NotContains(t, raw, "zone")
}
