package calibration

import (
	"fmt"
	"math"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/linalg"
)

// Default clip planes reported with decomposed camera parameters.
const (
	DefaultNear = 0.1
	DefaultFar  = 1000.0
)

// Euler holds XYZ-order rotation angles in degrees.
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CameraParams is the approximate pinhole camera recovered from a homography.
// It assumes square pixels, a principal point at the image centre and a planar
// court; lens distortion is not modelled.
type CameraParams struct {
	Position    court.Point3D `json:"position"`
	Rotation    Euler         `json:"rotation"`
	FOV         float64       `json:"fov"`
	AspectRatio float64       `json:"aspectRatio"`
	Near        float64       `json:"near"`
	Far         float64       `json:"far"`
	FocalLength float64       `json:"focalLength"`
	// BasisNorms are the lengths of the first two homography columns. Their
	// disagreement measures how far the square-pixel assumption is violated.
	BasisNorms [2]float64 `json:"basisNorms"`
}

// Decompose factors h into approximate camera rotation, position and field of
// view for an image of the given size.
//
// The first two columns of the centred homography are treated as scaled
// rotation basis vectors. Their norms λ1, λ2 give a shared scale
// f = (λ1+λ2)/2; the third rotation column is r1×r2, which is only
// approximately orthogonal to the other two. The translation is h3/f and the
// camera position is Rᵀ·(−t).
func Decompose(h Homography, imageWidth, imageHeight float64) (*CameraParams, error) {
	if h.IsZero() {
		return nil, fmt.Errorf("%w: empty homography", ErrDegenerateHomography)
	}
	if !(imageWidth > 0) || !(imageHeight > 0) {
		return nil, fmt.Errorf("image dimensions must be positive, got %gx%g", imageWidth, imageHeight)
	}

	m := h.Matrix()
	if math.Abs(m[2][2]) < linalg.Epsilon {
		return nil, fmt.Errorf("%w: |h22| < %g", ErrDegenerateHomography, linalg.Epsilon)
	}
	m = m.Scale(1 / m[2][2])

	// Move the principal point to the origin.
	center := linalg.Mat3{
		{1, 0, -imageWidth / 2},
		{0, 1, -imageHeight / 2},
		{0, 0, 1},
	}
	m = center.Mul(m)

	h1, h2, h3 := m.Col(0), m.Col(1), m.Col(2)
	l1, l2 := h1.Norm(), h2.Norm()
	f := (l1 + l2) / 2
	if f < linalg.Epsilon || l1 < linalg.Epsilon || l2 < linalg.Epsilon {
		return nil, fmt.Errorf("%w: vanishing rotation basis", ErrDegenerateHomography)
	}

	r1 := h1.Scale(1 / l1)
	r2 := h2.Scale(1 / l2)
	t := h3.Scale(1 / f)
	// The homography's overall sign is arbitrary; keep the court in front of
	// the camera.
	if t[2] < 0 {
		r1, r2, t = r1.Scale(-1), r2.Scale(-1), t.Scale(-1)
	}
	r3 := r1.Normalize().Cross(r2.Normalize())

	var rot linalg.Mat3
	rot.SetCol(0, r1)
	rot.SetCol(1, r2)
	rot.SetCol(2, r3)

	pos := rot.Transpose().MulVec(t.Scale(-1))

	cam := &CameraParams{
		Position:    court.Point3D{X: pos[0], Y: pos[1], Z: pos[2]},
		Rotation:    eulerXYZ(rot),
		FOV:         2 * math.Atan(imageHeight/(2*f)) * 180 / math.Pi,
		AspectRatio: imageWidth / imageHeight,
		Near:        DefaultNear,
		Far:         DefaultFar,
		FocalLength: f,
		BasisNorms:  [2]float64{l1, l2},
	}
	Diagf("decomposed camera: position=(%.2f, %.2f, %.2f) fov=%.1f° f=%.1f",
		cam.Position.X, cam.Position.Y, cam.Position.Z, cam.FOV, f)
	return cam, nil
}

// eulerXYZ extracts intrinsic XYZ Euler angles (degrees) from a rotation
// matrix.
func eulerXYZ(r linalg.Mat3) Euler {
	const toDeg = 180 / math.Pi
	m13 := math.Max(-1, math.Min(1, r[0][2]))
	y := math.Asin(m13)
	var x, z float64
	if math.Abs(m13) < 0.9999999 {
		x = math.Atan2(-r[1][2], r[2][2])
		z = math.Atan2(-r[0][1], r[0][0])
	} else {
		x = math.Atan2(r[2][1], r[1][1])
	}
	return Euler{X: x * toDeg, Y: y * toDeg, Z: z * toDeg}
}
