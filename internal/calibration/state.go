package calibration

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/linalg"
)

// State is the persisted form of a calibration session. Its JSON encoding
// round-trips losslessly.
type State struct {
	IsCalibrated            bool                       `json:"isCalibrated"`
	CalibrationPoints       []court.CalibrationPoint   `json:"calibrationPoints"`
	Lines                   []court.LineCorrespondence `json:"lines,omitempty"`
	HomographyMatrix        *linalg.Mat3               `json:"homographyMatrix"`
	InverseHomographyMatrix *linalg.Mat3               `json:"inverseHomographyMatrix"`
	CourtDimensions         court.Dimensions           `json:"courtDimensions"`
	CalibrationError        float64                    `json:"calibrationError"`
	// LastCalibrationTime is Unix milliseconds; zero when never calibrated.
	LastCalibrationTime int64 `json:"lastCalibrationTime"`
}

// inverseTolerance bounds how far H·H⁻¹, normalised by its [2][2] element,
// may stray from the identity for a stored inverse to be accepted.
const inverseTolerance = 1e-6

// BlobStore is the key-value persistence the session state is written to.
type BlobStore interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// State captures the session for persistence.
func (s *Session) State() State {
	st := State{
		IsCalibrated:      s.result != nil,
		CalibrationPoints: s.Points(),
		Lines:             s.Lines(),
		CourtDimensions:   s.cfg.Profile.CourtDimensions,
	}
	if s.result != nil {
		toImage, toWorld := s.result.Transformer.Matrices()
		st.HomographyMatrix = &toImage
		st.InverseHomographyMatrix = &toWorld
		st.CalibrationError = s.result.Metrics.ReprojectionError
		st.LastCalibrationTime = s.result.CalibratedAt.UnixMilli()
	}
	if st.CalibrationPoints == nil {
		st.CalibrationPoints = []court.CalibrationPoint{}
	}
	return st
}

// RestoreSession rebuilds a session from persisted state. A calibrated state
// is re-validated from its stored matrices; any inconsistency is returned as
// an error and the caller should fall back to an uncalibrated session.
func RestoreSession(st State, cfg SessionConfig) (*Session, error) {
	if st.CourtDimensions.Valid() {
		cfg.Profile.CourtDimensions = st.CourtDimensions
	}
	s := NewSession(cfg)
	for _, p := range st.CalibrationPoints {
		p.World.Z = 0
		s.points = append(s.points, p)
	}
	s.lines = append(s.lines, st.Lines...)

	if !st.IsCalibrated {
		return s, nil
	}
	if st.HomographyMatrix == nil {
		return nil, fmt.Errorf("%w: calibrated state without homography", ErrDegenerateHomography)
	}
	h, err := NewHomography(*st.HomographyMatrix)
	if err != nil {
		return nil, fmt.Errorf("restore homography: %w", err)
	}
	var tr *Transformer
	if st.InverseHomographyMatrix != nil {
		if !st.InverseHomographyMatrix.IsFinite() {
			return nil, fmt.Errorf("%w: non-finite inverse homography", ErrDegenerateHomography)
		}
		if !isInversePair(h.Matrix(), *st.InverseHomographyMatrix) {
			return nil, fmt.Errorf("%w: stored inverse does not match homography", ErrDegenerateHomography)
		}
		tr = newTransformerFromMatrices(h.Matrix(), *st.InverseHomographyMatrix)
	}

	var res *Result
	if len(s.points) == 0 && len(s.lines) == 0 {
		// Nothing to re-project; trust the stored error.
		Diagf("restoring session %s without correspondences", s.id)
		res, err = s.newResult(h, tr)
		if err == nil {
			res.Metrics = storedMetrics(st.CalibrationError, res.Camera, s.cfg.Profile)
		}
	} else {
		res, err = s.buildResult(h, tr)
	}
	if err != nil {
		return nil, fmt.Errorf("restore calibration: %w", err)
	}
	if st.LastCalibrationTime != 0 {
		res.CalibratedAt = time.UnixMilli(st.LastCalibrationTime)
	}
	s.result = res
	return s, nil
}

// storedMetrics rebuilds the scalar metrics from a persisted reprojection
// error.
func storedMetrics(meanErr float64, cam *CameraParams, profile court.SportProfile) ValidationMetrics {
	th := profile.ValidationThresholds
	return ValidationMetrics{
		ReprojectionError:   meanErr,
		PerspectiveAccuracy: PerspectiveAccuracy(cam),
		OverallConfidence:   Confidence(meanErr, th),
		Quality:             QualityFor(meanErr, th),
	}
}

// isInversePair reports whether toWorld inverts toImage up to scale.
func isInversePair(toImage, toWorld linalg.Mat3) bool {
	p := toImage.Mul(toWorld)
	if math.Abs(p[2][2]) < linalg.Epsilon {
		return false
	}
	p = p.Scale(1 / p[2][2])
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(p[i][j]-want) > inverseTolerance {
				return false
			}
		}
	}
	return true
}

// SaveState writes st as JSON under key.
func SaveState(ctx context.Context, store BlobStore, key string, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal calibration state: %w", err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save calibration state %q: %w", key, err)
	}
	return nil
}

// LoadState reads the state stored under key.
func LoadState(ctx context.Context, store BlobStore, key string) (State, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return State{}, fmt.Errorf("load calibration state %q: %w", key, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse calibration state %q: %w", key, err)
	}
	return st, nil
}
