package domain

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371

// ReferencePoint is a named proximity zone: a fixed home location or a
// moving tracked point. A radius of zero or less disables the point.
type ReferencePoint struct {
	Name     string
	Lat      float64
	Lon      float64
	RadiusKm float64
}

// Enabled reports whether the point participates in proximity checks.
func (p ReferencePoint) Enabled() bool {
	return p.RadiusKm > 0
}

// HaversineKm returns the great-circle distance in kilometers between two
// points given in decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceKm returns the distance from a hazard record to a reference
// point. Records without a point location are infinitely far away, so they
// can never qualify as nearby.
func (p ReferencePoint) DistanceKm(rec HazardRecord) float64 {
	if !rec.HasPoint {
		return math.Inf(1)
	}
	return HaversineKm(p.Lat, p.Lon, rec.Lat, rec.Lon)
}
