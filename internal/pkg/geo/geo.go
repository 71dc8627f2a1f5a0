// Package geo classifies check-in coordinates against an office reference point.
package geo

import "math"

const earthRadiusMeters = 6371000

// DefaultRemoteThresholdMeters is the distance beyond which a check-in counts as remote.
const DefaultRemoteThresholdMeters = 5000

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate pair is inside the WGS84 ranges.
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the great-circle (haversine) distance between a and b in meters.
func Distance(a, b Point) float64 {
	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180.0)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180.0)

	lat1Rad := a.Latitude * (math.Pi / 180.0)
	lat2Rad := b.Latitude * (math.Pi / 180.0)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Classifier decides whether a location is remote relative to Reference.
type Classifier struct {
	Reference       Point
	ThresholdMeters float64
}

func NewClassifier(reference Point, thresholdMeters float64) Classifier {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultRemoteThresholdMeters
	}
	return Classifier{Reference: reference, ThresholdMeters: thresholdMeters}
}

// IsRemote reports whether p lies strictly farther than the threshold.
func (c Classifier) IsRemote(p Point) bool {
	return Distance(p, c.Reference) > c.ThresholdMeters
}
