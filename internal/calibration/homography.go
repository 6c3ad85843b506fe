package calibration

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/linalg"
)

// MinPointCorrespondences is the smallest number of point pairs that
// determines a homography.
const MinPointCorrespondences = 4

var (
	// ErrInsufficientCorrespondences is returned when fewer than four point
	// pairs (or three lines) are available.
	ErrInsufficientCorrespondences = errors.New("calibration: insufficient correspondences")
	// ErrDegenerateHomography is returned when the solve or a derived
	// quantity would produce a near-zero divisor or non-finite values.
	ErrDegenerateHomography = errors.New("calibration: degenerate homography")
)

// Homography is an immutable 3x3 projective transform from the court plane
// (world metres) to the image plane, normalised so that element [2][2] is 1.
type Homography struct {
	m linalg.Mat3
}

// NewHomography validates and normalises m.
func NewHomography(m linalg.Mat3) (Homography, error) {
	if !m.IsFinite() {
		return Homography{}, fmt.Errorf("%w: non-finite element", ErrDegenerateHomography)
	}
	if math.Abs(m[2][2]) < linalg.Epsilon {
		return Homography{}, fmt.Errorf("%w: |h22| < %g", ErrDegenerateHomography, linalg.Epsilon)
	}
	m = m.Scale(1 / m[2][2])
	if !m.IsFinite() {
		return Homography{}, fmt.Errorf("%w: non-finite after normalisation", ErrDegenerateHomography)
	}
	if math.Abs(m.Det()) < linalg.Epsilon {
		return Homography{}, fmt.Errorf("%w: singular matrix", ErrDegenerateHomography)
	}
	return Homography{m: m}, nil
}

// Matrix returns a copy of the world-to-image matrix.
func (h Homography) Matrix() linalg.Mat3 { return h.m }

// IsZero reports whether h is the zero value (never estimated).
func (h Homography) IsZero() bool { return h.m == linalg.Mat3{} }

// Inverse returns the image-to-world matrix.
func (h Homography) Inverse() (linalg.Mat3, error) {
	inv, err := linalg.Invert3(h.m)
	if err != nil {
		return linalg.Mat3{}, fmt.Errorf("%w: %v", ErrDegenerateHomography, err)
	}
	return inv, nil
}

// Project maps a court-plane point to image coordinates. The height of p is
// ignored. ok is false when the homogeneous scale is within Epsilon of zero.
func (h Homography) Project(p court.Point3D) (court.Point2D, bool) {
	return applyMatrix(h.m, p.X, p.Y)
}

func applyMatrix(m linalg.Mat3, x, y float64) (court.Point2D, bool) {
	v := m.MulVec(linalg.Vec3{x, y, 1})
	if math.Abs(v[2]) < linalg.Epsilon {
		return court.Point2D{}, false
	}
	out := court.Point2D{X: v[0] / v[2], Y: v[1] / v[2]}
	if !out.IsFinite() {
		return court.Point2D{}, false
	}
	return out, true
}

// EstimateHomography fits the world-to-image homography to the given
// correspondences with the Direct Linear Transformation. Each correspondence
// contributes two rows of the 2N×9 design matrix, scaled by the square root of
// its weight, and the solution is the right singular vector for the smallest
// singular value. Both point sets are normalised (centroid at the origin, mean
// distance √2) before the solve and the result is denormalised afterwards.
func EstimateHomography(points []court.CalibrationPoint) (Homography, error) {
	if len(points) < MinPointCorrespondences {
		return Homography{}, fmt.Errorf("%w: got %d points, need %d",
			ErrInsufficientCorrespondences, len(points), MinPointCorrespondences)
	}

	world := make([]court.Point2D, len(points))
	image := make([]court.Point2D, len(points))
	for i, p := range points {
		if !p.Image.IsFinite() || !(court.Point2D{X: p.World.X, Y: p.World.Y}).IsFinite() {
			return Homography{}, fmt.Errorf("%w: point %d is not finite", ErrDegenerateHomography, i)
		}
		world[i] = court.Point2D{X: p.World.X, Y: p.World.Y}
		image[i] = p.Image
	}

	tw, ok := normalisingTransform(world)
	if !ok {
		return Homography{}, fmt.Errorf("%w: world points coincide", ErrDegenerateHomography)
	}
	ti, ok := normalisingTransform(image)
	if !ok {
		return Homography{}, fmt.Errorf("%w: image points coincide", ErrDegenerateHomography)
	}

	a := linalg.NewDesignMatrix(2 * len(points))
	for i, p := range points {
		wn := tw.MulVec(linalg.Vec3{world[i].X, world[i].Y, 1})
		in := ti.MulVec(linalg.Vec3{image[i].X, image[i].Y, 1})
		X, Y := wn[0], wn[1]
		u, v := in[0], in[1]
		s := math.Sqrt(p.EffectiveWeight())

		a.AddRow([9]float64{-X, -Y, -1, 0, 0, 0, u * X, u * Y, u}, s)
		a.AddRow([9]float64{0, 0, 0, -X, -Y, -1, v * X, v * Y, v}, s)
	}

	h, values, err := a.NullSpace()
	if err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateHomography, err)
	}
	// A second vanishing singular value means the null space is not
	// one-dimensional (e.g. three or more collinear points out of four).
	if len(values) >= 2 && values[0] > 0 && values[len(values)-2]/values[0] < linalg.Epsilon {
		return Homography{}, fmt.Errorf("%w: rank-deficient design matrix", ErrDegenerateHomography)
	}

	tiInv, err := linalg.Invert3(ti)
	if err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateHomography, err)
	}
	m := tiInv.Mul(linalg.Reshape3(h)).Mul(tw)

	hom, err := NewHomography(m)
	if err != nil {
		return Homography{}, err
	}
	Tracef("estimated homography from %d points, singular values %v", len(points), values)
	return hom, nil
}

// normalisingTransform returns the similarity that moves the centroid of pts
// to the origin and scales their mean distance from it to √2.
func normalisingTransform(pts []court.Point2D) (linalg.Mat3, bool) {
	var cx, cy float64
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	n := float64(len(pts))
	cx /= n
	cy /= n

	var meanDist float64
	for _, p := range pts {
		meanDist += math.Hypot(p.X-cx, p.Y-cy)
	}
	meanDist /= n
	if meanDist < linalg.Epsilon {
		return linalg.Mat3{}, false
	}
	s := math.Sqrt2 / meanDist
	return linalg.Mat3{
		{s, 0, -s * cx},
		{0, s, -s * cy},
		{0, 0, 1},
	}, true
}

// ExpandLines converts line correspondences into point correspondences by
// taking each line's endpoints.
func ExpandLines(lines []court.LineCorrespondence) []court.CalibrationPoint {
	out := make([]court.CalibrationPoint, 0, 2*len(lines))
	for _, l := range lines {
		ends := l.Endpoints()
		out = append(out, ends[0], ends[1])
	}
	return out
}

// PositionWeights derives heuristic per-point weights from where each
// correspondence sits in the image. Points near the frame edge, far from the
// camera (small image y) or near the centre gain weight according to the
// profile's perspective factors. The base weight is 1, and any weight already
// set on a point is multiplied in.
func PositionWeights(points []court.CalibrationPoint, imageWidth, imageHeight float64, f court.PerspectiveFactors) []float64 {
	weights := make([]float64, len(points))
	for i, p := range points {
		w := 1.0
		if imageWidth > 0 && imageHeight > 0 {
			nx := clamp01(p.Image.X / imageWidth)
			ny := clamp01(p.Image.Y / imageHeight)
			edge := 2 * math.Max(math.Abs(nx-0.5), math.Abs(ny-0.5))
			distance := 1 - ny
			center := 1 - edge
			w += f.EdgeWeight*edge + f.DistanceWeight*distance + f.CenterWeight*center
		}
		weights[i] = w * p.EffectiveWeight()
	}
	return weights
}

// ApplyWeights returns a copy of points with the given weights set.
func ApplyWeights(points []court.CalibrationPoint, weights []float64) []court.CalibrationPoint {
	out := make([]court.CalibrationPoint, len(points))
	copy(out, points)
	for i := range out {
		if i < len(weights) {
			out[i].Weight = weights[i]
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
