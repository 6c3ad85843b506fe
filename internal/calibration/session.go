package calibration

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/linalg"
	"github.com/banshee-data/court.report/internal/timeutil"
	"github.com/google/uuid"
)

// MinLineCorrespondences is the smallest number of lines that can calibrate
// a session without point correspondences.
const MinLineCorrespondences = 3

var (
	// ErrSessionFrozen is returned when a calibrated session is mutated.
	ErrSessionFrozen = errors.New("calibration: session is calibrated; reset before editing")
	// ErrNotCalibrated is returned when a result is requested before Calibrate.
	ErrNotCalibrated = errors.New("calibration: not calibrated")
	// ErrIndexOutOfRange is returned by the Remove methods.
	ErrIndexOutOfRange = errors.New("calibration: index out of range")
)

// Observer receives session lifecycle notifications. Callbacks run
// synchronously on the caller's goroutine.
type Observer interface {
	OnCalibrated(Snapshot)
	OnReset(sessionID string)
}

// Result is the frozen output of a successful calibration.
type Result struct {
	Homography   Homography
	Camera       *CameraParams
	Metrics      ValidationMetrics
	Transformer  *Transformer
	CalibratedAt time.Time
}

// Snapshot is a value copy of a session's state for observers and UIs.
type Snapshot struct {
	ID           string             `json:"id"`
	Sport        court.SportType    `json:"sport"`
	IsCalibrated bool               `json:"isCalibrated"`
	PointCount   int                `json:"pointCount"`
	LineCount    int                `json:"lineCount"`
	Homography   *linalg.Mat3       `json:"homography,omitempty"`
	Camera       *CameraParams      `json:"camera,omitempty"`
	Metrics      *ValidationMetrics `json:"metrics,omitempty"`
	Trustworthy  bool               `json:"trustworthy"`
	CalibratedAt time.Time          `json:"calibratedAt,omitempty"`
}

// SessionConfig configures a calibration session.
type SessionConfig struct {
	Profile     court.SportProfile
	ImageWidth  float64
	ImageHeight float64
	// UsePositionWeights enables heuristic weighted DLT using the profile's
	// perspective factors.
	UsePositionWeights bool
	Clock              timeutil.Clock
}

// Session collects correspondences for one camera view and produces a
// homography, camera parameters and validation metrics. It is frozen once
// Calibrate succeeds and discarded (or Reset) to start over.
type Session struct {
	id        string
	cfg       SessionConfig
	points    []court.CalibrationPoint
	lines     []court.LineCorrespondence
	result    *Result
	observers []Observer
}

// NewSession creates an empty session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Session{id: uuid.New().String(), cfg: cfg}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Profile returns the sport profile the session validates against.
func (s *Session) Profile() court.SportProfile { return s.cfg.Profile }

// Subscribe registers an observer.
func (s *Session) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// AddPoint appends a point correspondence. The world point is forced onto the
// court plane.
func (s *Session) AddPoint(p court.CalibrationPoint) error {
	if s.result != nil {
		return ErrSessionFrozen
	}
	p.World.Z = 0
	s.points = append(s.points, p)
	return nil
}

// RemovePoint deletes the i-th point correspondence.
func (s *Session) RemovePoint(i int) error {
	if s.result != nil {
		return ErrSessionFrozen
	}
	if i < 0 || i >= len(s.points) {
		return fmt.Errorf("%w: point %d of %d", ErrIndexOutOfRange, i, len(s.points))
	}
	s.points = append(s.points[:i], s.points[i+1:]...)
	return nil
}

// AddLine appends a line correspondence.
func (s *Session) AddLine(l court.LineCorrespondence) error {
	if s.result != nil {
		return ErrSessionFrozen
	}
	s.lines = append(s.lines, l)
	return nil
}

// RemoveLine deletes the i-th line correspondence.
func (s *Session) RemoveLine(i int) error {
	if s.result != nil {
		return ErrSessionFrozen
	}
	if i < 0 || i >= len(s.lines) {
		return fmt.Errorf("%w: line %d of %d", ErrIndexOutOfRange, i, len(s.lines))
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return nil
}

// Points returns a copy of the point correspondences.
func (s *Session) Points() []court.CalibrationPoint {
	return append([]court.CalibrationPoint(nil), s.points...)
}

// Lines returns a copy of the line correspondences.
func (s *Session) Lines() []court.LineCorrespondence {
	return append([]court.LineCorrespondence(nil), s.lines...)
}

// CanCalibrate reports whether enough correspondences are present. Each line
// contributes its two endpoints as point pairs.
func (s *Session) CanCalibrate() bool {
	return s.pointPairs() >= MinPointCorrespondences || len(s.lines) >= MinLineCorrespondences
}

func (s *Session) pointPairs() int {
	return len(s.points) + 2*len(s.lines)
}

// Calibrate fits the homography, decomposes it and validates it. On success
// the session is frozen and observers are notified. A failed attempt leaves
// the session editable.
func (s *Session) Calibrate() (*Result, error) {
	if s.result != nil {
		return s.result, nil
	}
	if !s.CanCalibrate() {
		return nil, fmt.Errorf("%w: have %d points and %d lines (%d pairs), need %d pairs or %d lines",
			ErrInsufficientCorrespondences, len(s.points), len(s.lines), s.pointPairs(),
			MinPointCorrespondences, MinLineCorrespondences)
	}

	all := append(s.Points(), ExpandLines(s.lines)...)
	if s.cfg.UsePositionWeights {
		weights := PositionWeights(all, s.cfg.ImageWidth, s.cfg.ImageHeight, s.cfg.Profile.PerspectiveFactors)
		all = ApplyWeights(all, weights)
	}

	h, err := EstimateHomography(all)
	if err != nil {
		Opsf("calibration %s failed: %v", s.id, err)
		return nil, err
	}
	res, err := s.buildResult(h, nil)
	if err != nil {
		Opsf("calibration %s failed: %v", s.id, err)
		return nil, err
	}
	s.result = res
	Diagf("calibration %s: error=%.3fpx confidence=%.2f quality=%s",
		s.id, res.Metrics.ReprojectionError, res.Metrics.OverallConfidence, res.Metrics.Quality)
	s.notifyCalibrated()
	return res, nil
}

// buildResult decomposes and validates h. When tr is nil a transformer is
// derived from h.
func (s *Session) buildResult(h Homography, tr *Transformer) (*Result, error) {
	res, err := s.newResult(h, tr)
	if err != nil {
		return nil, err
	}
	res.Metrics, err = Validate(h, s.points, s.lines, res.Camera, s.cfg.Profile)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// newResult decomposes h and attaches a transformer, leaving the metrics
// empty.
func (s *Session) newResult(h Homography, tr *Transformer) (*Result, error) {
	var err error
	if tr == nil {
		tr, err = NewTransformer(h)
		if err != nil {
			return nil, err
		}
	}
	var cam *CameraParams
	if s.cfg.ImageWidth > 0 && s.cfg.ImageHeight > 0 {
		cam, err = Decompose(h, s.cfg.ImageWidth, s.cfg.ImageHeight)
		if err != nil {
			return nil, err
		}
	}
	return &Result{
		Homography:   h,
		Camera:       cam,
		Transformer:  tr,
		CalibratedAt: s.cfg.Clock.Now(),
	}, nil
}

// Reset discards all correspondences and results.
func (s *Session) Reset() {
	s.points = nil
	s.lines = nil
	s.result = nil
	for _, o := range s.observers {
		o.OnReset(s.id)
	}
}

// IsCalibrated reports whether Calibrate has succeeded.
func (s *Session) IsCalibrated() bool { return s.result != nil }

// Result returns the calibration result or ErrNotCalibrated.
func (s *Session) Result() (*Result, error) {
	if s.result == nil {
		return nil, ErrNotCalibrated
	}
	return s.result, nil
}

// Transformer returns the session's transformer. Before calibration it
// returns an uncalibrated transformer whose transforms warn and return zero.
func (s *Session) Transformer() *Transformer {
	if s.result == nil {
		return &Transformer{}
	}
	return s.result.Transformer
}

// IsTrustworthy reports whether the calibration meets the profile's minimum
// confidence.
func (s *Session) IsTrustworthy() bool {
	return s.result != nil && IsTrustworthy(s.result.Metrics, s.cfg.Profile)
}

// Snapshot returns a value copy of the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		Sport:        s.cfg.Profile.Type,
		IsCalibrated: s.result != nil,
		PointCount:   len(s.points),
		LineCount:    len(s.lines),
	}
	if s.result != nil {
		m := s.result.Homography.Matrix()
		metrics := s.result.Metrics
		metrics.PointErrors = append([]float64(nil), metrics.PointErrors...)
		snap.Homography = &m
		snap.Metrics = &metrics
		if s.result.Camera != nil {
			cam := *s.result.Camera
			snap.Camera = &cam
		}
		snap.Trustworthy = s.IsTrustworthy()
		snap.CalibratedAt = s.result.CalibratedAt
	}
	return snap
}

func (s *Session) notifyCalibrated() {
	if len(s.observers) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, o := range s.observers {
		o.OnCalibrated(snap)
	}
}
