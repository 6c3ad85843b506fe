package calibration

import (
	"fmt"
	"math"

	"github.com/banshee-data/court.report/internal/court"
	"gonum.org/v1/gonum/stat"
)

// Confidence bounds for the piecewise-linear error mapping.
const (
	ConfidenceMax        = 1.0
	ConfidenceAcceptable = 0.5
	ConfidenceFloor      = 0.1
)

// Quality is a coarse label for a calibration's reprojection error.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// ValidationMetrics summarises how well a homography explains its
// correspondences.
type ValidationMetrics struct {
	// ReprojectionError is the weighted mean image-space distance (pixels)
	// between observed points and projected world points.
	ReprojectionError   float64   `json:"reprojectionError"`
	PointErrors         []float64 `json:"pointErrors,omitempty"`
	LineAlignmentScore  float64   `json:"lineAlignmentScore"`
	PerspectiveAccuracy float64   `json:"perspectiveAccuracy"`
	OverallConfidence   float64   `json:"overallConfidence"`
	Quality             Quality   `json:"quality"`
}

// ReprojectionError projects every world point through h and returns the
// weighted mean distance to the observed image points along with the
// per-point distances.
func ReprojectionError(h Homography, points []court.CalibrationPoint) (float64, []float64, error) {
	if len(points) == 0 {
		return 0, nil, fmt.Errorf("%w: no points to validate", ErrInsufficientCorrespondences)
	}
	errs := make([]float64, len(points))
	weights := make([]float64, len(points))
	for i, p := range points {
		proj, ok := h.Project(p.World)
		if !ok {
			return 0, nil, fmt.Errorf("%w: point %d projects to infinity", ErrDegenerateHomography, i)
		}
		errs[i] = proj.Dist(p.Image)
		weights[i] = p.EffectiveWeight()
		Tracef("point %d: observed=(%.2f, %.2f) projected=(%.2f, %.2f) error=%.3f",
			i, p.Image.X, p.Image.Y, proj.X, proj.Y, errs[i])
	}
	return stat.Mean(errs, weights), errs, nil
}

// Confidence maps a reprojection error onto [ConfidenceFloor, 1] using the
// profile's bands: 1 up to the excellent threshold, linear to 0.5 at the
// acceptable threshold, linear to the floor at the maximum, and the floor
// beyond. The mapping is non-increasing in err.
func Confidence(err float64, th court.ValidationThresholds) float64 {
	switch {
	case math.IsNaN(err) || math.IsInf(err, 0):
		return ConfidenceFloor
	case err <= th.ExcellentError:
		return ConfidenceMax
	case err <= th.AcceptableError:
		frac := (err - th.ExcellentError) / (th.AcceptableError - th.ExcellentError)
		return ConfidenceMax - frac*(ConfidenceMax-ConfidenceAcceptable)
	case err <= th.MaxError:
		frac := (err - th.AcceptableError) / (th.MaxError - th.AcceptableError)
		return ConfidenceAcceptable - frac*(ConfidenceAcceptable-ConfidenceFloor)
	default:
		return ConfidenceFloor
	}
}

// QualityFor labels err against the profile's bands.
func QualityFor(err float64, th court.ValidationThresholds) Quality {
	switch {
	case math.IsNaN(err) || math.IsInf(err, 0):
		return QualityPoor
	case err <= th.ExcellentError:
		return QualityExcellent
	case err <= th.AcceptableError:
		return QualityGood
	case err <= th.MaxError:
		return QualityFair
	default:
		return QualityPoor
	}
}

// LineAlignmentScore compares the direction of each observed image segment
// with the projection of its world segment. A score of 1 means every pair is
// parallel, 0 means perpendicular. Segments with zero length are skipped; with
// nothing to compare the score is 1.
func LineAlignmentScore(h Homography, lines []court.LineCorrespondence) float64 {
	var sum float64
	var n int
	for _, l := range lines {
		ps, ok1 := h.Project(l.WorldStart)
		pe, ok2 := h.Project(l.WorldEnd)
		if !ok1 || !ok2 {
			n++
			continue
		}
		ox, oy := l.ImageEnd.X-l.ImageStart.X, l.ImageEnd.Y-l.ImageStart.Y
		px, py := pe.X-ps.X, pe.Y-ps.Y
		on, pn := math.Hypot(ox, oy), math.Hypot(px, py)
		if on < 1e-9 || pn < 1e-9 {
			continue
		}
		sum += math.Abs(ox*px+oy*py) / (on * pn)
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

// PerspectiveAccuracy scores agreement between the two rotation basis norms
// of a decomposition: 1 when equal, falling towards 0 as they diverge.
func PerspectiveAccuracy(cam *CameraParams) float64 {
	if cam == nil {
		return 0
	}
	l1, l2 := cam.BasisNorms[0], cam.BasisNorms[1]
	hi := math.Max(l1, l2)
	if hi <= 0 {
		return 0
	}
	return 1 - math.Abs(l1-l2)/hi
}

// segmentsFromPoints pairs consecutive calibration points into segments so
// line alignment can be scored when no explicit lines were supplied.
func segmentsFromPoints(points []court.CalibrationPoint) []court.LineCorrespondence {
	if len(points) < 2 {
		return nil
	}
	out := make([]court.LineCorrespondence, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		out = append(out, court.LineCorrespondence{
			ImageStart: a.Image, ImageEnd: b.Image,
			WorldStart: a.World, WorldEnd: b.World,
		})
	}
	return out
}

// Validate computes the full metric set for h against the correspondences it
// was fitted to (or a held-out set). cam may be nil, in which case the
// perspective accuracy is 0.
func Validate(h Homography, points []court.CalibrationPoint, lines []court.LineCorrespondence,
	cam *CameraParams, profile court.SportProfile) (ValidationMetrics, error) {
	all := append(append([]court.CalibrationPoint(nil), points...), ExpandLines(lines)...)
	meanErr, perPoint, err := ReprojectionError(h, all)
	if err != nil {
		return ValidationMetrics{}, err
	}

	segments := lines
	if len(segments) == 0 {
		segments = segmentsFromPoints(points)
	}

	th := profile.ValidationThresholds
	return ValidationMetrics{
		ReprojectionError:   meanErr,
		PointErrors:         perPoint,
		LineAlignmentScore:  LineAlignmentScore(h, segments),
		PerspectiveAccuracy: PerspectiveAccuracy(cam),
		OverallConfidence:   Confidence(meanErr, th),
		Quality:             QualityFor(meanErr, th),
	}, nil
}

// IsTrustworthy reports whether metrics meet the profile's minimum confidence
// for driving coordinate transforms.
func IsTrustworthy(metrics ValidationMetrics, profile court.SportProfile) bool {
	return metrics.OverallConfidence >= profile.MinTrustConfidence
}
