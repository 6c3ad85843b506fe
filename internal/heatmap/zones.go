package heatmap

import (
	"math"

	"github.com/banshee-data/court.report/internal/court"
)

// Zone names one of nine court regions, or ZoneOutOfBounds.
type Zone string

// Zones run front (near y = -length/2) to back and left (x = -width/2) to
// right.
const (
	ZoneFrontLeft   Zone = "front-left"
	ZoneFrontCenter Zone = "front-center"
	ZoneFrontRight  Zone = "front-right"
	ZoneMidLeft     Zone = "mid-left"
	ZoneMidCenter   Zone = "mid-center"
	ZoneMidRight    Zone = "mid-right"
	ZoneBackLeft    Zone = "back-left"
	ZoneBackCenter  Zone = "back-center"
	ZoneBackRight   Zone = "back-right"
	ZoneOutOfBounds Zone = "out-of-bounds"
)

// CourtZones lists the nine on-court zones in row-major order.
var CourtZones = [9]Zone{
	ZoneFrontLeft, ZoneFrontCenter, ZoneFrontRight,
	ZoneMidLeft, ZoneMidCenter, ZoneMidRight,
	ZoneBackLeft, ZoneBackCenter, ZoneBackRight,
}

// ClassifyNormalized maps a normalised court position to its zone. Each axis
// is split into thirds; anything outside [0,1]×[0,1] (or NaN) is out of
// bounds.
func ClassifyNormalized(nx, ny float64) Zone {
	if math.IsNaN(nx) || math.IsNaN(ny) || nx < 0 || nx > 1 || ny < 0 || ny > 1 {
		return ZoneOutOfBounds
	}
	return CourtZones[3*third(ny)+third(nx)]
}

func third(v float64) int {
	switch {
	case v < 1.0/3:
		return 0
	case v < 2.0/3:
		return 1
	default:
		return 2
	}
}

// Classify maps a world position to its zone on a court of the given size.
func Classify(d court.Dimensions, p court.Point3D) Zone {
	if !d.Valid() {
		return ZoneOutOfBounds
	}
	nx, ny := d.Normalize(p)
	return ClassifyNormalized(nx, ny)
}
