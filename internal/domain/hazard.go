package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// FeatureCollection is the merged GeoJSON-style payload assembled from one
// or more category fetches.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection returns an empty collection in the wire shape the
// feed uses, so "no data" and "nothing fetched" look identical to callers.
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// Feature is a single GeoJSON feature as delivered by the feed.
type Feature struct {
	ID         FlexibleID      `json:"id,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
	Geometry   Geometry        `json:"geometry"`

	// Category records which feed path the feature was fetched from.
	// Set by the feed client during merge, not part of the wire format.
	Category string `json:"-"`
}

// Geometry holds the feature's point location. Coordinates are [lon, lat].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// FlexibleID tolerates the feed's habit of emitting ids as either JSON
// numbers or strings. It always marshals back as a string.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("feature id is neither string nor number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

func (f FlexibleID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// HazardRecord is the parsed, immutable snapshot of one feed hazard.
type HazardRecord struct {
	ID           string
	Category     string
	MainCategory string
	Headline     string
	Lat          float64
	Lon          float64
	HasPoint     bool

	// Details is the significant-field subset used for update detection.
	Details Details

	// Attributes is the full display snapshot carried on transition events.
	Attributes map[string]any
}

// Details is the fixed set of properties whose change marks a hazard as
// significantly updated.
type Details struct {
	MainCategory    string
	AdviceA         string
	OtherAdvice     string
	Roads           []string
	Start           int64
	End             int64
	DurationMinutes int
	Impact          string
	Ended           bool
	IsMajor         bool
}

// FieldChange records one significant field that differed between polls.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// Diff compares d against a previous snapshot and returns the changed
// significant fields as old/new pairs. An empty result means the hazard
// only drifted in minor fields.
func (d Details) Diff(old Details) []FieldChange {
	var changes []FieldChange
	add := func(field string, oldVal, newVal any) {
		changes = append(changes, FieldChange{Field: field, Old: oldVal, New: newVal})
	}

	if d.MainCategory != old.MainCategory {
		add("main_category", old.MainCategory, d.MainCategory)
	}
	if d.AdviceA != old.AdviceA {
		add("advice_a", old.AdviceA, d.AdviceA)
	}
	if d.OtherAdvice != old.OtherAdvice {
		add("other_advice", old.OtherAdvice, d.OtherAdvice)
	}
	if !equalStrings(d.Roads, old.Roads) {
		add("roads", old.Roads, d.Roads)
	}
	if d.Start != old.Start {
		add("start_time", epochToISO(old.Start), epochToISO(d.Start))
	}
	if d.End != old.End {
		add("end_time", epochToISO(old.End), epochToISO(d.End))
	}
	if d.DurationMinutes != old.DurationMinutes {
		add("duration_minutes", old.DurationMinutes, d.DurationMinutes)
	}
	if d.Impact != old.Impact {
		add("impact", old.Impact, d.Impact)
	}
	if d.Ended != old.Ended {
		add("ended", old.Ended, d.Ended)
	}
	if d.IsMajor != old.IsMajor {
		add("is_major", old.IsMajor, d.IsMajor)
	}
	return changes
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// featureProperties is the typed view of the properties the feed documents.
type featureProperties struct {
	ID                FlexibleID `json:"id"`
	Headline          string     `json:"headline"`
	MainCategory      string     `json:"mainCategory"`
	SubCategoryA      string     `json:"subCategoryA"`
	SubCategoryB      string     `json:"subCategoryB"`
	AdviceA           string     `json:"adviceA"`
	AdviceB           string     `json:"adviceB"`
	OtherAdvice       string     `json:"otherAdvice"`
	Roads             []road     `json:"roads"`
	Created           int64      `json:"created"`
	LastUpdated       int64      `json:"lastUpdated"`
	Start             int64      `json:"start"`
	End               int64      `json:"end"`
	DurationMinutes   int        `json:"durationMinutes"`
	PeriodType        string     `json:"periodType"`
	LocationQualifier string     `json:"locationQualifier"`
	Impact            string     `json:"impact"`
	Ended             bool       `json:"ended"`
	IsMajor           bool       `json:"isMajor"`
	IsEvent           bool       `json:"isEvent"`
	WeblinkURL        string     `json:"weblinkUrl"`
	WebLinks          []webLink  `json:"webLinks"`
}

type road struct {
	RoadName string `json:"roadName"`
}

// webLink accepts both the object form {"url": "..."} and a bare string.
type webLink struct {
	URL string `json:"url"`
}

func (w *webLink) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &w.URL)
	}
	type alias webLink
	return json.Unmarshal(b, (*alias)(w))
}

// displayNames maps mainCategory values to user-facing names.
var displayNames = map[string]string{
	"accident":                 "Accidents",
	"breakdown":                "Breakdowns",
	"roadwork":                 "Roadworks",
	"fire":                     "Fires",
	"flooding":                 "Flooding",
	"heavy_vehicle":            "Heavy Vehicle Issues",
	"hazard":                   "General Hazards",
	"special_event":            "Special Events",
	"alpine":                   "Alpine Conditions",
	"diversion":                "Diversions",
	"changedtrafficconditions": "Changed Traffic Conditions",
	"incident":                 "Incidents",
	"majorevent":               "Major Events",
}

// DisplayName returns the user-facing name for the record's main category,
// falling back to the raw category value.
func (r HazardRecord) DisplayName() string {
	if name, ok := displayNames[r.MainCategory]; ok {
		return name
	}
	return r.MainCategory
}

// ParseFeature converts one feed feature into a HazardRecord. Features
// without Point geometry or a [lon, lat] pair are rejected; callers skip
// them rather than failing the snapshot.
func ParseFeature(f Feature) (HazardRecord, error) {
	if f.Geometry.Type != "Point" {
		return HazardRecord{}, fmt.Errorf("unsupported geometry type %q", f.Geometry.Type)
	}
	if len(f.Geometry.Coordinates) < 2 {
		return HazardRecord{}, fmt.Errorf("geometry has %d coordinates, want 2", len(f.Geometry.Coordinates))
	}

	var props featureProperties
	if len(f.Properties) > 0 {
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return HazardRecord{}, fmt.Errorf("decode properties: %w", err)
		}
	}

	// The feed duplicates the id inside properties on some categories;
	// prefer it over the feature-level id when present.
	id := string(props.ID)
	if id == "" {
		id = string(f.ID)
	}

	rec := HazardRecord{
		ID:           id,
		Category:     f.Category,
		MainCategory: props.MainCategory,
		Headline:     props.Headline,
		Lon:          f.Geometry.Coordinates[0],
		Lat:          f.Geometry.Coordinates[1],
		HasPoint:     true,
		Details: Details{
			MainCategory:    props.MainCategory,
			AdviceA:         props.AdviceA,
			OtherAdvice:     props.OtherAdvice,
			Roads:           roadNames(props.Roads),
			Start:           props.Start,
			End:             props.End,
			DurationMinutes: props.DurationMinutes,
			Impact:          props.Impact,
			Ended:           props.Ended,
			IsMajor:         props.IsMajor,
		},
	}
	rec.Attributes = buildAttributes(rec, props)
	return rec, nil
}

// ParseFeatureCollection converts a merged collection into hazard records,
// skipping malformed features with a debug log.
func ParseFeatureCollection(fc FeatureCollection, logger *slog.Logger) []HazardRecord {
	records := make([]HazardRecord, 0, len(fc.Features))
	for _, f := range fc.Features {
		rec, err := ParseFeature(f)
		if err != nil {
			logger.Debug("skipping malformed feature", "id", string(f.ID), "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func roadNames(roads []road) []string {
	var names []string
	for _, r := range roads {
		if r.RoadName != "" {
			names = append(names, r.RoadName)
		}
	}
	return names
}

// buildAttributes assembles the display snapshot carried on events. Empty
// values are dropped so consumers see only populated fields.
func buildAttributes(rec HazardRecord, props featureProperties) map[string]any {
	attrs := map[string]any{
		"hazard_id":          rec.ID,
		"headline":           props.Headline,
		"main_category":      props.MainCategory,
		"sub_category_a":     props.SubCategoryA,
		"sub_category_b":     props.SubCategoryB,
		"advice_a":           props.AdviceA,
		"advice_b":           props.AdviceB,
		"other_advice":       props.OtherAdvice,
		"created":            epochToISO(props.Created),
		"last_updated":       epochToISO(props.LastUpdated),
		"start_time":         epochToISO(props.Start),
		"end_time":           epochToISO(props.End),
		"period_type":        props.PeriodType,
		"location_qualifier": props.LocationQualifier,
		"impact":             props.Impact,
		"web_link":           firstWebLink(props),
		"hazard_type":        rec.DisplayName(),
	}
	if props.DurationMinutes != 0 {
		attrs["duration_minutes"] = props.DurationMinutes
	}
	if names := roadNames(props.Roads); len(names) > 0 {
		attrs["roads"] = names
	}
	// Booleans are always reported; false is meaningful for these flags.
	attrs["is_major"] = props.IsMajor
	attrs["ended"] = props.Ended
	attrs["is_event"] = props.IsEvent

	for k, v := range attrs {
		if s, ok := v.(string); ok && s == "" {
			delete(attrs, k)
		}
	}
	return attrs
}

// firstWebLink prefers weblinkUrl, then the first webLinks entry.
func firstWebLink(props featureProperties) string {
	if props.WeblinkURL != "" {
		return props.WeblinkURL
	}
	if len(props.WebLinks) > 0 {
		return props.WebLinks[0].URL
	}
	return ""
}

// epochToISO renders an epoch-milliseconds timestamp as RFC 3339 UTC.
// Non-positive values mean "not set" and render empty.
func epochToISO(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
