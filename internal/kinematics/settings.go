package kinematics

import (
	"math"

	"github.com/banshee-data/court.report/internal/calibration"
	"github.com/banshee-data/court.report/internal/units"
)

// Defaults for CalibrationSettings.
const (
	DefaultPlayerHeightCm  = 175.0
	DefaultCourtLengthM    = 13.4
	DefaultSmoothingWindow = 5
	DefaultDisplayUnits    = units.KPH
)

// MinScaleFactor bounds the metres-per-normalised-unit factor from below.
const MinScaleFactor = 0.1

const (
	// defaultBodyExtent is the normalised height a standing player is
	// assumed to occupy when it cannot be measured.
	defaultBodyExtent  = 0.5
	minBodyExtent      = 0.05
	maxSmoothingWindow = 120
)

// CalibrationSettings controls how normalised landmark positions are scaled
// to metres. Setters reject invalid input and keep the previous value.
type CalibrationSettings struct {
	playerHeightCm       float64
	courtLengthM         float64
	pixelsPerMeter       float64
	frameWidthPx         float64
	useHeightCalibration bool
	useCourtCalibration  bool
	calibrationAccuracy  float64
	smoothingWindow      int
	displayUnits         string
}

// DefaultCalibrationSettings returns height-only calibration for a 175 cm
// player on a badminton-length court.
func DefaultCalibrationSettings() CalibrationSettings {
	return CalibrationSettings{
		playerHeightCm:       DefaultPlayerHeightCm,
		courtLengthM:         DefaultCourtLengthM,
		useHeightCalibration: true,
		smoothingWindow:      DefaultSmoothingWindow,
		displayUnits:         DefaultDisplayUnits,
	}
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

// SetPlayerHeight sets the assumed player height in centimetres.
func (s *CalibrationSettings) SetPlayerHeight(cm float64) bool {
	if !positive(cm) {
		Opsf("rejected player height %v", cm)
		return false
	}
	s.playerHeightCm = cm
	return true
}

// SetCourtLength sets the court span in metres used by court calibration.
func (s *CalibrationSettings) SetCourtLength(m float64) bool {
	if !positive(m) {
		Opsf("rejected court length %v", m)
		return false
	}
	s.courtLengthM = m
	return true
}

// SetPixelScale sets the measured pixels-per-metre and the frame width it
// applies to. Both must be positive.
func (s *CalibrationSettings) SetPixelScale(pixelsPerMeter, frameWidthPx float64) bool {
	if !positive(pixelsPerMeter) || !positive(frameWidthPx) {
		Opsf("rejected pixel scale %v px/m over %v px", pixelsPerMeter, frameWidthPx)
		return false
	}
	s.pixelsPerMeter = pixelsPerMeter
	s.frameWidthPx = frameWidthPx
	return true
}

// SetModes selects which calibration sources contribute to the scale factor.
func (s *CalibrationSettings) SetModes(useHeight, useCourt bool) {
	s.useHeightCalibration = useHeight
	s.useCourtCalibration = useCourt
}

// SetCalibrationAccuracy records the accuracy percentage in [0, 100].
func (s *CalibrationSettings) SetCalibrationAccuracy(pct float64) bool {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		Opsf("rejected calibration accuracy %v", pct)
		return false
	}
	s.calibrationAccuracy = pct
	return true
}

// ApplyValidation records a court calibration's confidence as the accuracy
// percentage.
func (s *CalibrationSettings) ApplyValidation(m calibration.ValidationMetrics) bool {
	return s.SetCalibrationAccuracy(m.OverallConfidence * 100)
}

// SetSmoothingWindow sets the number of samples averaged into AverageSpeed.
func (s *CalibrationSettings) SetSmoothingWindow(n int) bool {
	if n < 1 || n > maxSmoothingWindow {
		Opsf("rejected smoothing window %d", n)
		return false
	}
	s.smoothingWindow = n
	return true
}

// SetDisplayUnits sets the unit CurrentSpeed is reported in.
func (s *CalibrationSettings) SetDisplayUnits(u string) bool {
	if !units.IsValid(u) {
		Opsf("rejected display units %q (valid: %s)", u, units.GetValidUnitsString())
		return false
	}
	s.displayUnits = u
	return true
}

// Getters.
func (s CalibrationSettings) PlayerHeightCm() float64      { return s.playerHeightCm }
func (s CalibrationSettings) CourtLengthM() float64        { return s.courtLengthM }
func (s CalibrationSettings) PixelsPerMeter() float64      { return s.pixelsPerMeter }
func (s CalibrationSettings) FrameWidthPx() float64        { return s.frameWidthPx }
func (s CalibrationSettings) UseHeightCalibration() bool   { return s.useHeightCalibration }
func (s CalibrationSettings) UseCourtCalibration() bool    { return s.useCourtCalibration }
func (s CalibrationSettings) CalibrationAccuracy() float64 { return s.calibrationAccuracy }
func (s CalibrationSettings) SmoothingWindow() int         { return s.smoothingWindow }
func (s CalibrationSettings) DisplayUnits() string         { return s.displayUnits }

// heightScale is metres per normalised unit from the player's height and the
// normalised vertical extent of their body in the frame.
func (s CalibrationSettings) heightScale(bodyExtent float64) float64 {
	if !(bodyExtent >= minBodyExtent) {
		bodyExtent = defaultBodyExtent
	}
	return (s.playerHeightCm / 100) / bodyExtent
}

// courtScale is metres per normalised unit across the frame: the frame width
// in metres when a pixel scale is known, else the court span.
func (s CalibrationSettings) courtScale() float64 {
	if s.pixelsPerMeter > 0 && s.frameWidthPx > 0 {
		return s.frameWidthPx / s.pixelsPerMeter
	}
	return s.courtLengthM
}

// ScaleFactor returns metres per normalised unit. Height calibration alone
// uses the player's height, court calibration alone (or neither) uses the
// court span, and both average the two. The result is at least
// MinScaleFactor. bodyExtent is the player's normalised vertical extent; pass
// 0 when unknown.
func (s CalibrationSettings) ScaleFactor(bodyExtent float64) float64 {
	var f float64
	switch {
	case s.useHeightCalibration && s.useCourtCalibration:
		f = (s.heightScale(bodyExtent) + s.courtScale()) / 2
	case s.useHeightCalibration:
		f = s.heightScale(bodyExtent)
	default:
		f = s.courtScale()
	}
	if !(f >= MinScaleFactor) {
		return MinScaleFactor
	}
	return f
}
