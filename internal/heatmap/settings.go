package heatmap

import "math"

// Default settings.
const (
	DefaultGridResolution  = 2.0 // cells per metre
	DefaultSmoothingRadius = 0.5 // metres
	DefaultMinConfidence   = 0.5
	DefaultSampleInterval  = 100 // milliseconds
	DefaultMaxHistorySize  = 10000
	DefaultDecayFactor     = 1.0
	DefaultRegenerateEvery = 50
)

// Accepted ranges.
const (
	maxGridResolution  = 20.0
	maxSmoothingRadius = 5.0
	maxSampleInterval  = 60_000
	maxHistorySize     = 1_000_000
)

// Settings configures sampling and grid generation.
type Settings struct {
	// GridResolution is cells per metre along both court axes.
	GridResolution float64 `json:"gridResolution"`
	// SmoothingRadius is the Gaussian blur radius in metres; 0 disables it.
	SmoothingRadius float64 `json:"smoothingRadius"`
	MinConfidence   float64 `json:"minConfidence"`
	// SampleInterval is the minimum gap in milliseconds between recorded
	// history samples.
	SampleInterval int64 `json:"sampleInterval"`
	MaxHistorySize int   `json:"maxHistorySize"`
	// DecayFactor in (0,1] down-weights samples per second of age; 1 keeps
	// every sample at full weight.
	DecayFactor float64 `json:"decayFactor"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	return Settings{
		GridResolution:  DefaultGridResolution,
		SmoothingRadius: DefaultSmoothingRadius,
		MinConfidence:   DefaultMinConfidence,
		SampleInterval:  DefaultSampleInterval,
		MaxHistorySize:  DefaultMaxHistorySize,
		DecayFactor:     DefaultDecayFactor,
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func validGridResolution(v float64) bool  { return finite(v) && v > 0 && v <= maxGridResolution }
func validSmoothingRadius(v float64) bool { return finite(v) && v >= 0 && v <= maxSmoothingRadius }
func validMinConfidence(v float64) bool   { return finite(v) && v >= 0 && v <= 1 }
func validSampleInterval(v int64) bool    { return v >= 0 && v <= maxSampleInterval }
func validMaxHistorySize(v int) bool      { return v >= 1 && v <= maxHistorySize }
func validDecayFactor(v float64) bool     { return finite(v) && v > 0 && v <= 1 }

// Sanitized returns s with every invalid field replaced by its default.
func (s Settings) Sanitized() Settings {
	d := DefaultSettings()
	if !validGridResolution(s.GridResolution) {
		s.GridResolution = d.GridResolution
	}
	if !validSmoothingRadius(s.SmoothingRadius) {
		s.SmoothingRadius = d.SmoothingRadius
	}
	if !validMinConfidence(s.MinConfidence) {
		s.MinConfidence = d.MinConfidence
	}
	if !validSampleInterval(s.SampleInterval) {
		s.SampleInterval = d.SampleInterval
	}
	if !validMaxHistorySize(s.MaxHistorySize) {
		s.MaxHistorySize = d.MaxHistorySize
	}
	if !validDecayFactor(s.DecayFactor) {
		s.DecayFactor = d.DecayFactor
	}
	return s
}

// KernelRadius is the blur radius in grid cells.
func (s Settings) KernelRadius() int {
	return int(math.Round(s.SmoothingRadius * s.GridResolution))
}
