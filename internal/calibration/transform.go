package calibration

import (
	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/linalg"
)

// Transformer maps single points between the image and the court plane.
// The zero value and a nil *Transformer are uncalibrated: every transform
// returns the zero point, ok=false and an ops warning.
type Transformer struct {
	toImage    linalg.Mat3
	toWorld    linalg.Mat3
	calibrated bool
}

// NewTransformer builds a transformer from a world-to-image homography.
func NewTransformer(h Homography) (*Transformer, error) {
	if h.IsZero() {
		return nil, ErrNotCalibrated
	}
	inv, err := h.Inverse()
	if err != nil {
		return nil, err
	}
	return &Transformer{toImage: h.Matrix(), toWorld: inv, calibrated: true}, nil
}

// newTransformerFromMatrices restores a transformer from persisted matrices.
func newTransformerFromMatrices(toImage, toWorld linalg.Mat3) *Transformer {
	return &Transformer{toImage: toImage, toWorld: toWorld, calibrated: true}
}

// IsCalibrated reports whether t can transform points.
func (t *Transformer) IsCalibrated() bool {
	return t != nil && t.calibrated
}

// ImageToWorld maps an image point onto the court plane and attaches z
// verbatim. The height is not derived from the geometry; callers supply it
// (for example an estimated landmark height).
func (t *Transformer) ImageToWorld(p court.Point2D, z float64) (court.Point3D, bool) {
	if !t.IsCalibrated() {
		Opsf("warning: imageToWorld called before calibration")
		return court.Point3D{}, false
	}
	w, ok := applyMatrix(t.toWorld, p.X, p.Y)
	if !ok {
		Opsf("warning: imageToWorld(%.2f, %.2f) is degenerate (|w| < 1e-10)", p.X, p.Y)
		return court.Point3D{}, false
	}
	return court.Point3D{X: w.X, Y: w.Y, Z: z}, true
}

// WorldToImage projects a world point onto the image. The height of p is
// ignored: the point is taken to lie on the court plane.
func (t *Transformer) WorldToImage(p court.Point3D) (court.Point2D, bool) {
	if !t.IsCalibrated() {
		Opsf("warning: worldToImage called before calibration")
		return court.Point2D{}, false
	}
	img, ok := applyMatrix(t.toImage, p.X, p.Y)
	if !ok {
		Opsf("warning: worldToImage(%.2f, %.2f) is degenerate (|w| < 1e-10)", p.X, p.Y)
		return court.Point2D{}, false
	}
	return img, true
}

// Matrices returns the world-to-image and image-to-world matrices.
func (t *Transformer) Matrices() (toImage, toWorld linalg.Mat3) {
	if t == nil {
		return linalg.Mat3{}, linalg.Mat3{}
	}
	return t.toImage, t.toWorld
}
