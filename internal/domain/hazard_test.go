package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFeature(t *testing.T, raw string) Feature {
	t.Helper()
	var f Feature
	require.NoError(t, json.Unmarshal([]byte(raw), &f))
	return f
}

func TestParseFeature_Full(t *testing.T) {
	f := mustFeature(t, `{
		"id": 746012,
		"geometry": {"type": "Point", "coordinates": [151.175, -33.879]},
		"properties": {
			"headline": "Accident on Parramatta Rd",
			"mainCategory": "accident",
			"adviceA": "Expect delays",
			"otherAdvice": "Use public transport",
			"roads": [{"roadName": "Parramatta Rd"}, {"roadName": "City Rd"}],
			"created": 1741942800000,
			"lastUpdated": 1741946400000,
			"start": 1741942800000,
			"end": 1741950000000,
			"durationMinutes": 120,
			"impact": "Lane closed",
			"isMajor": true,
			"ended": false,
			"weblinkUrl": "https://www.livetraffic.com/incident/746012"
		}
	}`)
	f.Category = "incident"

	rec, err := ParseFeature(f)
	require.NoError(t, err)

	assert.Equal(t, "746012", rec.ID)
	assert.Equal(t, "incident", rec.Category)
	assert.Equal(t, "accident", rec.MainCategory)
	assert.Equal(t, "Accident on Parramatta Rd", rec.Headline)
	assert.Equal(t, -33.879, rec.Lat)
	assert.Equal(t, 151.175, rec.Lon)
	assert.True(t, rec.HasPoint)

	want := Details{
		MainCategory:    "accident",
		AdviceA:         "Expect delays",
		OtherAdvice:     "Use public transport",
		Roads:           []string{"Parramatta Rd", "City Rd"},
		Start:           1741942800000,
		End:             1741950000000,
		DurationMinutes: 120,
		Impact:          "Lane closed",
		Ended:           false,
		IsMajor:         true,
	}
	if diff := cmp.Diff(want, rec.Details); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "Accidents", rec.DisplayName())
	assert.Equal(t, "https://www.livetraffic.com/incident/746012", rec.Attributes["web_link"])
	assert.Equal(t, "2025-03-14T09:00:00Z", rec.Attributes["created"])
	assert.Equal(t, []string{"Parramatta Rd", "City Rd"}, rec.Attributes["roads"])
	assert.Equal(t, true, rec.Attributes["is_major"])
	assert.Equal(t, false, rec.Attributes["ended"])
	assert.NotContains(t, rec.Attributes, "sub_category_a", "empty strings should be dropped")
}

func TestParseFeature_StringID(t *testing.T) {
	f := mustFeature(t, `{
		"id": "abc-123",
		"geometry": {"type": "Point", "coordinates": [151.0, -33.0]},
		"properties": {"mainCategory": "roadwork"}
	}`)

	rec, err := ParseFeature(f)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", rec.ID)
}

func TestParseFeature_PropertiesIDPreferred(t *testing.T) {
	f := mustFeature(t, `{
		"id": 1,
		"geometry": {"type": "Point", "coordinates": [151.0, -33.0]},
		"properties": {"id": 99, "mainCategory": "fire"}
	}`)

	rec, err := ParseFeature(f)
	require.NoError(t, err)
	assert.Equal(t, "99", rec.ID)
}

func TestParseFeature_MissingID(t *testing.T) {
	f := mustFeature(t, `{
		"geometry": {"type": "Point", "coordinates": [151.0, -33.0]},
		"properties": {"headline": "Unidentified hazard"}
	}`)

	rec, err := ParseFeature(f)
	require.NoError(t, err)
	assert.Empty(t, rec.ID)
}

func TestParseFeature_RejectsNonPointGeometry(t *testing.T) {
	f := mustFeature(t, `{
		"id": 5,
		"geometry": {"type": "LineString", "coordinates": []},
		"properties": {}
	}`)

	_, err := ParseFeature(f)
	assert.Error(t, err)
}

func TestParseFeature_RejectsShortCoordinates(t *testing.T) {
	f := mustFeature(t, `{
		"id": 6,
		"geometry": {"type": "Point", "coordinates": [151.0]},
		"properties": {}
	}`)

	_, err := ParseFeature(f)
	assert.Error(t, err)
}

func TestParseFeature_WebLinksObjectAndStringForms(t *testing.T) {
	obj := mustFeature(t, `{
		"id": 7,
		"geometry": {"type": "Point", "coordinates": [151.0, -33.0]},
		"properties": {"webLinks": [{"url": "https://example.com/a"}]}
	}`)
	rec, err := ParseFeature(obj)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", rec.Attributes["web_link"])

	str := mustFeature(t, `{
		"id": 8,
		"geometry": {"type": "Point", "coordinates": [151.0, -33.0]},
		"properties": {"webLinks": ["https://example.com/b"]}
	}`)
	rec, err = ParseFeature(str)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b", rec.Attributes["web_link"])
}

func TestParseFeatureCollection_SkipsMalformed(t *testing.T) {
	var fc FeatureCollection
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "FeatureCollection",
		"features": [
			{"id": 1, "geometry": {"type": "Point", "coordinates": [151.0, -33.0]}, "properties": {"mainCategory": "fire"}},
			{"id": 2, "geometry": {"type": "Polygon", "coordinates": []}, "properties": {}},
			{"id": 3, "geometry": {"type": "Point", "coordinates": []}, "properties": {}}
		]
	}`), &fc))

	records := ParseFeatureCollection(fc, discard())
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].ID)
}

func TestDetails_Diff(t *testing.T) {
	old := Details{
		MainCategory: "accident",
		AdviceA:      "Expect delays",
		Roads:        []string{"Parramatta Rd"},
		Start:        1741942800000,
		Impact:       "Lane closed",
	}

	updated := old
	updated.AdviceA = "Avoid the area"
	updated.Roads = []string{"Parramatta Rd", "City Rd"}
	updated.Ended = true

	changes := updated.Diff(old)
	require.Len(t, changes, 3)

	byField := map[string]FieldChange{}
	for _, c := range changes {
		byField[c.Field] = c
	}
	assert.Equal(t, "Expect delays", byField["advice_a"].Old)
	assert.Equal(t, "Avoid the area", byField["advice_a"].New)
	assert.Equal(t, []string{"Parramatta Rd", "City Rd"}, byField["roads"].New)
	assert.Equal(t, true, byField["ended"].New)
}

func TestDetails_Diff_NoChanges(t *testing.T) {
	d := Details{
		MainCategory: "roadwork",
		Roads:        []string{"Anzac Bridge"},
		Start:        1741942800000,
	}
	assert.Empty(t, d.Diff(d))
}

func TestDetails_Diff_TimesRenderedISO(t *testing.T) {
	old := Details{Start: 1741942800000}
	updated := Details{Start: 1741946400000}

	changes := updated.Diff(old)
	require.Len(t, changes, 1)
	assert.Equal(t, "start_time", changes[0].Field)
	assert.Equal(t, "2025-03-14T09:00:00Z", changes[0].Old)
	assert.Equal(t, "2025-03-14T10:00:00Z", changes[0].New)
}

func TestFlexibleID_Roundtrip(t *testing.T) {
	var id FlexibleID
	require.NoError(t, json.Unmarshal([]byte(`746012`), &id))
	assert.Equal(t, FlexibleID("746012"), id)

	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"746012"`, string(out))
}
