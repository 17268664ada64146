package domain

import (
	"log/slog"
	"math"
)

// ScopedHazard is a hazard record that qualified as nearby, annotated with
// the zone that matched it and the distance to that zone's point.
type ScopedHazard struct {
	HazardRecord
	Zone       string
	DistanceKm float64
}

// FilterNearby returns the records within radius of at least one reference
// point. Points are evaluated in slice order, so callers place the home
// point first; the first matching point provides the zone metadata and no
// further points are checked for that record. The radius boundary is
// inclusive. Records without a valid point location are excluded with a
// debug log.
func FilterNearby(records []HazardRecord, points []ReferencePoint, logger *slog.Logger) []ScopedHazard {
	var inScope []ScopedHazard
	for _, rec := range records {
		if !rec.HasPoint {
			logger.Debug("hazard without point location excluded from proximity check",
				"hazard_id", rec.ID, "headline", rec.Headline)
			continue
		}
		for _, p := range points {
			if !p.Enabled() {
				continue
			}
			d := p.DistanceKm(rec)
			if d <= p.RadiusKm {
				inScope = append(inScope, ScopedHazard{
					HazardRecord: rec,
					Zone:         p.Name,
					DistanceKm:   round2(d),
				})
				break
			}
		}
	}
	return inScope
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
