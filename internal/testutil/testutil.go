// Package testutil provides shared test utilities and fixtures.
//
// The fixtures describe a synthetic broadcast camera looking down a court so
// calibration, tracking and report tests agree on the same geometry.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/linalg"
)

// BroadcastCamera is a world-to-image homography for a 1920x1080 frame with
// a real projective component. The court centre lands at (960, 540).
var BroadcastCamera = linalg.Mat3{
	{200, 30, 960},
	{5, -80, 540},
	{0.001, 0.02, 1},
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertNear fails the test if got is not within tol of want.
func AssertNear(t *testing.T, what string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %g, want %g ± %g", what, got, want, tol)
	}
}

// AssertPointNear fails the test if the planar distance between got and want
// exceeds tol metres.
func AssertPointNear(t *testing.T, got, want court.Point3D, tol float64) {
	t.Helper()
	if d := got.PlanarDist(want); math.IsNaN(d) || d > tol {
		t.Errorf("point = (%.4f, %.4f), want (%.4f, %.4f) within %g", got.X, got.Y, want.X, want.Y, tol)
	}
}

// Project maps a court-plane point through the world-to-image matrix m.
func Project(m linalg.Mat3, p court.Point3D) court.Point2D {
	v := m.MulVec(linalg.Vec3{p.X, p.Y, 1})
	return court.Point2D{X: v[0] / v[2], Y: v[1] / v[2]}
}

// CourtCorrespondences returns exact correspondences for the four corners of
// dims plus the two ends of the centre line, imaged through m.
func CourtCorrespondences(m linalg.Mat3, dims court.Dimensions) []court.CalibrationPoint {
	corners := dims.Corners()
	world := append(corners[:],
		court.Point3D{X: 0, Y: -dims.Length / 4},
		court.Point3D{X: 0, Y: dims.Length / 4},
	)
	out := make([]court.CalibrationPoint, len(world))
	for i, w := range world {
		out[i] = court.CalibrationPoint{World: w, Image: Project(m, w)}
	}
	return out
}
