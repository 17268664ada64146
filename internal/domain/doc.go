// Package domain models Transport for NSW (TfNSW) live hazard feed data.
//
// # Data Source
//
// Hazard records come from the TfNSW Live Traffic Hazards API at
// https://api.transport.nsw.gov.au/v1/live/hazards. Each hazard category
// (incident, roadwork, fire, flood, majorevent, alpine) is exposed as a set
// of path variants:
//
//	/<category>/open   active hazards only (preferred)
//	/<category>/all    full history including ended hazards
//	/<category>        bare path, behaves like /all on some deployments
//
// Responses are GeoJSON-style FeatureCollections. Only Point geometry is
// meaningful here; features with any other geometry type or missing
// coordinates are dropped during parsing. Coordinates are [lon, lat].
//
// # Feed Conventions
//
// Feature ids are feed-assigned and arrive either as JSON numbers or
// strings; they are normalized to strings. A feature may carry its id in
// the properties object as well, in which case the properties value wins.
// Ids can be absent entirely, in which case the record can never be
// deduplicated or tracked across polls.
//
// Timestamps (created, lastUpdated, start, end) are epoch milliseconds.
// Values of zero or less mean "not set" and render as empty attributes.
//
// The "roads" property is a list of objects whose roadName field names an
// affected road. The "webLinks" property has been observed both as a list
// of {"url": ...} objects and as a list of bare URL strings; both shapes
// are accepted, and weblinkUrl takes precedence when present.
//
// # Significant Fields
//
// A fixed subset of properties drives update detection: mainCategory,
// adviceA, otherAdvice, road names, start, end, durationMinutes, impact,
// ended and isMajor. Changes to anything outside this set (position drift,
// display ordering, sub-categories) refresh stored state silently.
package domain
