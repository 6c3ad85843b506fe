package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/heatmap"
	"github.com/banshee-data/court.report/internal/kinematics"
	"github.com/banshee-data/court.report/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/court.defaults.json"

// Speed calibration modes.
const (
	ModeHeight = "height"
	ModeCourt  = "court"
	ModeBoth   = "both"
)

// TuningConfig is the root of the tuning file. Every field is optional;
// the Get* methods supply defaults for anything omitted, so partial files
// are safe.
type TuningConfig struct {
	Sport   SportTuning   `json:"sport"`
	Heatmap HeatmapTuning `json:"heatmap"`
	Speed   SpeedTuning   `json:"speed"`
}

// SportTuning overrides fields of a built-in sport profile.
type SportTuning struct {
	Type               *string  `json:"type,omitempty"`
	CourtWidth         *float64 `json:"court_width,omitempty"`
	CourtLength        *float64 `json:"court_length,omitempty"`
	ExcellentError     *float64 `json:"excellent_error,omitempty"`
	AcceptableError    *float64 `json:"acceptable_error,omitempty"`
	MaxError           *float64 `json:"max_error,omitempty"`
	MinTrustConfidence *float64 `json:"min_trust_confidence,omitempty"`
	EdgeWeight         *float64 `json:"edge_weight,omitempty"`
	DistanceWeight     *float64 `json:"distance_weight,omitempty"`
	CenterWeight       *float64 `json:"center_weight,omitempty"`
	PositionWeights    *bool    `json:"position_weights,omitempty"`
}

// HeatmapTuning configures position aggregation.
type HeatmapTuning struct {
	GridResolution   *float64 `json:"grid_resolution,omitempty"`
	SmoothingRadius  *float64 `json:"smoothing_radius,omitempty"`
	MinConfidence    *float64 `json:"min_confidence,omitempty"`
	SampleIntervalMs *int64   `json:"sample_interval_ms,omitempty"`
	MaxHistorySize   *int     `json:"max_history_size,omitempty"`
	DecayFactor      *float64 `json:"decay_factor,omitempty"`
	RegenerateEvery  *int     `json:"regenerate_every,omitempty"`
}

// SpeedTuning configures the speed estimator's scaling.
type SpeedTuning struct {
	PlayerHeightCm  *float64 `json:"player_height_cm,omitempty"`
	CourtLengthM    *float64 `json:"court_length_m,omitempty"`
	PixelsPerMeter  *float64 `json:"pixels_per_meter,omitempty"`
	FrameWidthPx    *float64 `json:"frame_width_px,omitempty"`
	CalibrationMode *string  `json:"calibration_mode,omitempty"` // height | court | both
	SmoothingWindow *int     `json:"smoothing_window,omitempty"`
	DisplayUnits    *string  `json:"display_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a fully populated config for the given sport
// with every value at its default.
func DefaultTuningConfig(sport court.SportType) *TuningConfig {
	p := court.Profile(sport)
	h := heatmap.DefaultSettings()
	return &TuningConfig{
		Sport: SportTuning{
			Type:               ptrString(string(p.Type)),
			CourtWidth:         ptrFloat64(p.CourtDimensions.Width),
			CourtLength:        ptrFloat64(p.CourtDimensions.Length),
			ExcellentError:     ptrFloat64(p.ValidationThresholds.ExcellentError),
			AcceptableError:    ptrFloat64(p.ValidationThresholds.AcceptableError),
			MaxError:           ptrFloat64(p.ValidationThresholds.MaxError),
			MinTrustConfidence: ptrFloat64(p.MinTrustConfidence),
			EdgeWeight:         ptrFloat64(p.PerspectiveFactors.EdgeWeight),
			DistanceWeight:     ptrFloat64(p.PerspectiveFactors.DistanceWeight),
			CenterWeight:       ptrFloat64(p.PerspectiveFactors.CenterWeight),
			PositionWeights:    ptrBool(false),
		},
		Heatmap: HeatmapTuning{
			GridResolution:   ptrFloat64(h.GridResolution),
			SmoothingRadius:  ptrFloat64(h.SmoothingRadius),
			MinConfidence:    ptrFloat64(h.MinConfidence),
			SampleIntervalMs: ptrInt64(h.SampleInterval),
			MaxHistorySize:   ptrInt(h.MaxHistorySize),
			DecayFactor:      ptrFloat64(h.DecayFactor),
			RegenerateEvery:  ptrInt(heatmap.DefaultRegenerateEvery),
		},
		Speed: SpeedTuning{
			PlayerHeightCm:  ptrFloat64(kinematics.DefaultPlayerHeightCm),
			CourtLengthM:    ptrFloat64(p.CourtDimensions.Length),
			PixelsPerMeter:  ptrFloat64(0),
			FrameWidthPx:    ptrFloat64(0),
			CalibrationMode: ptrString(ModeHeight),
			SmoothingWindow: ptrInt(kinematics.DefaultSmoothingWindow),
			DisplayUnits:    ptrString(kinematics.DefaultDisplayUnits),
		},
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Sport.Type != nil && !court.KnownSport(court.SportType(*c.Sport.Type)) {
		return fmt.Errorf("unknown sport type %q", *c.Sport.Type)
	}
	if err := c.SportProfile().Validate(); err != nil {
		return fmt.Errorf("sport: %w", err)
	}
	for name, v := range map[string]*float64{
		"edge_weight":     c.Sport.EdgeWeight,
		"distance_weight": c.Sport.DistanceWeight,
		"center_weight":   c.Sport.CenterWeight,
	} {
		if v != nil && (!finite(*v) || *v < 0) {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	h := c.Heatmap
	if h.GridResolution != nil && (!finite(*h.GridResolution) || *h.GridResolution <= 0) {
		return fmt.Errorf("grid_resolution must be positive, got %f", *h.GridResolution)
	}
	if h.SmoothingRadius != nil && (!finite(*h.SmoothingRadius) || *h.SmoothingRadius < 0) {
		return fmt.Errorf("smoothing_radius must be non-negative, got %f", *h.SmoothingRadius)
	}
	if h.MinConfidence != nil && (!finite(*h.MinConfidence) || *h.MinConfidence < 0 || *h.MinConfidence > 1) {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *h.MinConfidence)
	}
	if h.SampleIntervalMs != nil && *h.SampleIntervalMs < 0 {
		return fmt.Errorf("sample_interval_ms must be non-negative, got %d", *h.SampleIntervalMs)
	}
	if h.MaxHistorySize != nil && *h.MaxHistorySize < 1 {
		return fmt.Errorf("max_history_size must be at least 1, got %d", *h.MaxHistorySize)
	}
	if h.DecayFactor != nil && (!finite(*h.DecayFactor) || *h.DecayFactor <= 0 || *h.DecayFactor > 1) {
		return fmt.Errorf("decay_factor must be in (0, 1], got %f", *h.DecayFactor)
	}
	if h.RegenerateEvery != nil && *h.RegenerateEvery < 1 {
		return fmt.Errorf("regenerate_every must be at least 1, got %d", *h.RegenerateEvery)
	}

	s := c.Speed
	if s.PlayerHeightCm != nil && (!finite(*s.PlayerHeightCm) || *s.PlayerHeightCm <= 0) {
		return fmt.Errorf("player_height_cm must be positive, got %f", *s.PlayerHeightCm)
	}
	if s.CourtLengthM != nil && (!finite(*s.CourtLengthM) || *s.CourtLengthM <= 0) {
		return fmt.Errorf("court_length_m must be positive, got %f", *s.CourtLengthM)
	}
	if s.PixelsPerMeter != nil && (!finite(*s.PixelsPerMeter) || *s.PixelsPerMeter < 0) {
		return fmt.Errorf("pixels_per_meter must be non-negative, got %f", *s.PixelsPerMeter)
	}
	if s.FrameWidthPx != nil && (!finite(*s.FrameWidthPx) || *s.FrameWidthPx < 0) {
		return fmt.Errorf("frame_width_px must be non-negative, got %f", *s.FrameWidthPx)
	}
	if s.CalibrationMode != nil {
		switch *s.CalibrationMode {
		case ModeHeight, ModeCourt, ModeBoth:
		default:
			return fmt.Errorf("calibration_mode must be one of height, court, both; got %q", *s.CalibrationMode)
		}
	}
	if s.SmoothingWindow != nil && *s.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be at least 1, got %d", *s.SmoothingWindow)
	}
	if s.DisplayUnits != nil && !units.IsValid(*s.DisplayUnits) {
		return fmt.Errorf("display_units must be one of %s, got %q", units.GetValidUnitsString(), *s.DisplayUnits)
	}

	return nil
}

// GetSportType returns the sport type or badminton.
func (c *TuningConfig) GetSportType() court.SportType {
	if c.Sport.Type == nil {
		return court.SportBadminton
	}
	return court.SportType(*c.Sport.Type)
}

// GetPositionWeights reports whether weighted DLT is enabled (default off).
func (c *TuningConfig) GetPositionWeights() bool {
	if c.Sport.PositionWeights == nil {
		return false
	}
	return *c.Sport.PositionWeights
}

// GetRegenerateEvery returns the heatmap regeneration throttle.
func (c *TuningConfig) GetRegenerateEvery() int {
	if c.Heatmap.RegenerateEvery == nil {
		return heatmap.DefaultRegenerateEvery
	}
	return *c.Heatmap.RegenerateEvery
}

// GetCalibrationMode returns the speed calibration mode (default height).
func (c *TuningConfig) GetCalibrationMode() string {
	if c.Speed.CalibrationMode == nil {
		return ModeHeight
	}
	return *c.Speed.CalibrationMode
}

func override(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
