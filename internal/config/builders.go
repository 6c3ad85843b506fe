package config

import (
	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/heatmap"
	"github.com/banshee-data/court.report/internal/kinematics"
)

// SportProfile returns the built-in profile for the configured sport with
// any tuned fields applied.
func (c *TuningConfig) SportProfile() court.SportProfile {
	p := court.Profile(c.GetSportType())
	s := c.Sport
	override(&p.CourtDimensions.Width, s.CourtWidth)
	override(&p.CourtDimensions.Length, s.CourtLength)
	override(&p.ValidationThresholds.ExcellentError, s.ExcellentError)
	override(&p.ValidationThresholds.AcceptableError, s.AcceptableError)
	override(&p.ValidationThresholds.MaxError, s.MaxError)
	override(&p.MinTrustConfidence, s.MinTrustConfidence)
	override(&p.PerspectiveFactors.EdgeWeight, s.EdgeWeight)
	override(&p.PerspectiveFactors.DistanceWeight, s.DistanceWeight)
	override(&p.PerspectiveFactors.CenterWeight, s.CenterWeight)
	return p
}

// HeatmapSettings returns aggregator settings. Out-of-range values fall back
// to defaults.
func (c *TuningConfig) HeatmapSettings() heatmap.Settings {
	s := heatmap.DefaultSettings()
	h := c.Heatmap
	override(&s.GridResolution, h.GridResolution)
	override(&s.SmoothingRadius, h.SmoothingRadius)
	override(&s.MinConfidence, h.MinConfidence)
	override(&s.DecayFactor, h.DecayFactor)
	if h.SampleIntervalMs != nil {
		s.SampleInterval = *h.SampleIntervalMs
	}
	if h.MaxHistorySize != nil {
		s.MaxHistorySize = *h.MaxHistorySize
	}
	return s.Sanitized()
}

// HeatmapConfig returns a full aggregator config for the configured court.
func (c *TuningConfig) HeatmapConfig() heatmap.Config {
	return heatmap.Config{
		Settings:        c.HeatmapSettings(),
		Court:           c.SportProfile().CourtDimensions,
		RegenerateEvery: c.GetRegenerateEvery(),
	}
}

// SpeedSettings returns speed estimator settings. The court span defaults to
// the configured court length. Values rejected by the setters keep their
// defaults.
func (c *TuningConfig) SpeedSettings() kinematics.CalibrationSettings {
	k := kinematics.DefaultCalibrationSettings()
	s := c.Speed
	k.SetCourtLength(c.SportProfile().CourtDimensions.Length)
	if s.PlayerHeightCm != nil {
		k.SetPlayerHeight(*s.PlayerHeightCm)
	}
	if s.CourtLengthM != nil {
		k.SetCourtLength(*s.CourtLengthM)
	}
	if s.PixelsPerMeter != nil && s.FrameWidthPx != nil && *s.PixelsPerMeter > 0 && *s.FrameWidthPx > 0 {
		k.SetPixelScale(*s.PixelsPerMeter, *s.FrameWidthPx)
	}
	if s.SmoothingWindow != nil {
		k.SetSmoothingWindow(*s.SmoothingWindow)
	}
	if s.DisplayUnits != nil {
		k.SetDisplayUnits(*s.DisplayUnits)
	}
	switch c.GetCalibrationMode() {
	case ModeCourt:
		k.SetModes(false, true)
	case ModeBoth:
		k.SetModes(true, true)
	default:
		k.SetModes(true, false)
	}
	return k
}
