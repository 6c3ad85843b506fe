package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/heatmap"
	"github.com/banshee-data/court.report/internal/units"
	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig(court.SportBadminton)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if got := cfg.SportProfile(); got != court.Profile(court.SportBadminton) {
		t.Errorf("SportProfile() = %+v, want built-in badminton", got)
	}
	if got := cfg.HeatmapSettings(); got != heatmap.DefaultSettings() {
		t.Errorf("HeatmapSettings() = %+v, want defaults", got)
	}
	if cfg.GetRegenerateEvery() != heatmap.DefaultRegenerateEvery {
		t.Errorf("GetRegenerateEvery() = %d", cfg.GetRegenerateEvery())
	}
	if cfg.GetCalibrationMode() != ModeHeight {
		t.Errorf("GetCalibrationMode() = %q", cfg.GetCalibrationMode())
	}
}

func TestDefaultsFileMatchesCode(t *testing.T) {
	got := MustLoadDefaultConfig()
	want := DefaultTuningConfig(court.SportBadminton)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s differs from DefaultTuningConfig (-want +got):\n%s", DefaultConfigPath, diff)
	}
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty config does not validate: %v", err)
	}
	if cfg.GetSportType() != court.SportBadminton {
		t.Errorf("GetSportType() = %q, want badminton", cfg.GetSportType())
	}
	if cfg.GetPositionWeights() {
		t.Error("GetPositionWeights() = true, want false")
	}
	s := cfg.SpeedSettings()
	if !s.UseHeightCalibration() || s.UseCourtCalibration() {
		t.Errorf("default speed modes = (%v, %v), want height only", s.UseHeightCalibration(), s.UseCourtCalibration())
	}
	if s.CourtLengthM() != 13.4 {
		t.Errorf("CourtLengthM() = %f, want 13.4", s.CourtLengthM())
	}
}

func TestLoadTuningConfig_Partial(t *testing.T) {
	path := writeConfig(t, "tennis.json", `{
  "sport": {"type": "tennis", "max_error": 30, "position_weights": true},
  "heatmap": {"grid_resolution": 4, "decay_factor": 0.8, "regenerate_every": 25},
  "speed": {"calibration_mode": "both", "pixels_per_meter": 80, "frame_width_px": 1920, "display_units": "mph"}
}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	p := cfg.SportProfile()
	if p.Type != court.SportTennis {
		t.Errorf("Type = %q, want tennis", p.Type)
	}
	if p.ValidationThresholds.MaxError != 30 {
		t.Errorf("MaxError = %f, want 30", p.ValidationThresholds.MaxError)
	}
	if p.ValidationThresholds.ExcellentError != 3 {
		t.Errorf("ExcellentError = %f, want tennis default 3", p.ValidationThresholds.ExcellentError)
	}
	if !cfg.GetPositionWeights() {
		t.Error("GetPositionWeights() = false, want true")
	}

	hc := cfg.HeatmapConfig()
	if hc.Settings.GridResolution != 4 || hc.Settings.DecayFactor != 0.8 {
		t.Errorf("heatmap settings = %+v", hc.Settings)
	}
	if hc.Settings.SampleInterval != heatmap.DefaultSampleInterval {
		t.Errorf("SampleInterval = %d, want default", hc.Settings.SampleInterval)
	}
	if hc.RegenerateEvery != 25 {
		t.Errorf("RegenerateEvery = %d, want 25", hc.RegenerateEvery)
	}
	if hc.Court != p.CourtDimensions {
		t.Errorf("Court = %+v, want %+v", hc.Court, p.CourtDimensions)
	}

	s := cfg.SpeedSettings()
	if !s.UseHeightCalibration() || !s.UseCourtCalibration() {
		t.Error("expected both calibration modes")
	}
	if s.PixelsPerMeter() != 80 || s.FrameWidthPx() != 1920 {
		t.Errorf("pixel scale = %f over %f", s.PixelsPerMeter(), s.FrameWidthPx())
	}
	if s.DisplayUnits() != units.MPH {
		t.Errorf("DisplayUnits() = %q, want mph", s.DisplayUnits())
	}
	if s.CourtLengthM() != 23.77 {
		t.Errorf("CourtLengthM() = %f, want tennis length", s.CourtLengthM())
	}
}

func TestLoadTuningConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown sport", `{"sport":{"type":"curling"}}`, "unknown sport"},
		{"unordered thresholds", `{"sport":{"excellent_error":6}}`, "acceptableError"},
		{"negative court", `{"sport":{"court_width":-1}}`, "court dimensions"},
		{"trust above one", `{"sport":{"min_trust_confidence":1.5}}`, "minTrustConfidence"},
		{"negative weight", `{"sport":{"edge_weight":-0.1}}`, "edge_weight"},
		{"zero resolution", `{"heatmap":{"grid_resolution":0}}`, "grid_resolution"},
		{"confidence range", `{"heatmap":{"min_confidence":2}}`, "min_confidence"},
		{"decay range", `{"heatmap":{"decay_factor":1.5}}`, "decay_factor"},
		{"history size", `{"heatmap":{"max_history_size":0}}`, "max_history_size"},
		{"player height", `{"speed":{"player_height_cm":0}}`, "player_height_cm"},
		{"mode", `{"speed":{"calibration_mode":"laser"}}`, "calibration_mode"},
		{"units", `{"speed":{"display_units":"knots"}}`, "display_units"},
		{"bad json", `{"sport":`, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, "cfg.json", tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfig_FileChecks(t *testing.T) {
	if _, err := LoadTuningConfig(writeConfig(t, "cfg.yaml", `{}`)); err == nil {
		t.Error("expected extension error")
	}
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected stat error")
	}
	big := `{"sport":{"type":"badminton"}` + strings.Repeat(" ", 1024*1024) + `}`
	if _, err := LoadTuningConfig(writeConfig(t, "big.json", big)); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}
