package court

import "math"

// Point2D is an image-space coordinate (pixels or normalised).
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3D is a world-space coordinate in metres; Z is height above the court.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector3D is a world-space vector (e.g. velocity in m/s).
type Vector3D = Point3D

// Dist returns the Euclidean distance between p and q.
func (p Point2D) Dist(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// IsFinite reports whether both coordinates are finite.
func (p Point2D) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Dist returns the Euclidean distance between p and q.
func (p Point3D) Dist(q Point3D) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// PlanarDist returns the distance between p and q ignoring height.
func (p Point3D) PlanarDist(q Point3D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// CalibrationPoint is one image/world correspondence on the court plane.
// World.Z is always 0. Weight is optional; zero means unweighted.
type CalibrationPoint struct {
	Image  Point2D `json:"image"`
	World  Point3D `json:"world"`
	Weight float64 `json:"weight,omitempty"`
}

// EffectiveWeight returns the weight used in fitting: 1 unless Weight is a
// positive finite number.
func (c CalibrationPoint) EffectiveWeight() float64 {
	if c.Weight > 0 && isFinite(c.Weight) {
		return c.Weight
	}
	return 1
}

// LineCorrespondence pairs an observed image segment with the court line it
// lies on. Each line contributes its two endpoints as point correspondences.
type LineCorrespondence struct {
	ImageStart Point2D `json:"imageStart"`
	ImageEnd   Point2D `json:"imageEnd"`
	WorldStart Point3D `json:"worldStart"`
	WorldEnd   Point3D `json:"worldEnd"`
	Weight     float64 `json:"weight,omitempty"`
}

// Endpoints expands the line into its two point correspondences.
func (l LineCorrespondence) Endpoints() [2]CalibrationPoint {
	return [2]CalibrationPoint{
		{Image: l.ImageStart, World: Point3D{X: l.WorldStart.X, Y: l.WorldStart.Y}, Weight: l.Weight},
		{Image: l.ImageEnd, World: Point3D{X: l.WorldEnd.X, Y: l.WorldEnd.Y}, Weight: l.Weight},
	}
}

// Dimensions describes the playable court rectangle in metres.
type Dimensions struct {
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// Valid reports whether both sides are positive and finite.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Length > 0 && isFinite(d.Width) && isFinite(d.Length)
}

// Normalize maps a world point to [0,1]×[0,1] court coordinates. Points off
// the court fall outside that range.
func (d Dimensions) Normalize(p Point3D) (nx, ny float64) {
	return (p.X + d.Width/2) / d.Width, (p.Y + d.Length/2) / d.Length
}

// Contains reports whether p lies on the court (boundary inclusive).
func (d Dimensions) Contains(p Point3D) bool {
	nx, ny := d.Normalize(p)
	return nx >= 0 && nx <= 1 && ny >= 0 && ny <= 1
}

// Corners returns the four court corners in world coordinates, ordered
// near-left, near-right, far-left, far-right.
func (d Dimensions) Corners() [4]Point3D {
	hw, hl := d.Width/2, d.Length/2
	return [4]Point3D{{X: -hw, Y: -hl}, {X: hw, Y: -hl}, {X: -hw, Y: hl}, {X: hw, Y: hl}}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool { return isFinite(v) }
