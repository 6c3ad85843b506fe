package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"path/filepath"

	"github.com/banshee-data/court.report/internal/calibration"
	"github.com/banshee-data/court.report/internal/config"
	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/fsutil"
	"github.com/banshee-data/court.report/internal/heatmap"
	"github.com/banshee-data/court.report/internal/kinematics"
	"github.com/banshee-data/court.report/internal/store"
	"github.com/banshee-data/court.report/internal/timeutil"
)

// SessionFile is a recorded session: the camera's court correspondences plus
// per-frame pose landmarks for one player.
type SessionFile struct {
	Profile           string                     `json:"profile,omitempty"`
	ImageWidth        float64                    `json:"image_width"`
	ImageHeight       float64                    `json:"image_height"`
	CalibrationPoints []court.CalibrationPoint   `json:"calibration_points"`
	Lines             []court.LineCorrespondence `json:"lines,omitempty"`
	Frames            []FrameRecord              `json:"frames"`
}

// FrameRecord is one pose frame. Confidence is the detector's confidence in
// the player's position; absent means fully confident.
type FrameRecord struct {
	kinematics.Frame
	Confidence *float64 `json:"confidence,omitempty"`
}

func (f FrameRecord) confidence() float64 {
	if f.Confidence == nil {
		return 1
	}
	return *f.Confidence
}

// Options wires the pipeline's collaborators.
type Options struct {
	Config *config.TuningConfig
	Store  store.BlobStore
	FS     fsutil.FileSystem
	OutDir string
	// RestoreKey, when set, restores a previously stored calibration instead
	// of calibrating from the session's correspondences.
	RestoreKey string
	Clock      timeutil.Clock
}

// Report summarises a pipeline run.
type Report struct {
	SessionID      string `json:"sessionId"`
	Calibrated     bool   `json:"calibrated"`
	Trustworthy    bool   `json:"trustworthy"`
	Frames         int    `json:"frames"`
	Positions      int    `json:"positions"`
	Regenerations  int    `json:"regenerations"`
	CalibrationKey string `json:"calibrationKey"`
	HeatmapKey     string `json:"heatmapKey"`
}

type calibrationOutput struct {
	Session calibration.Snapshot `json:"session"`
	State   calibration.State    `json:"state"`
}

type speedOutput struct {
	Units   string                 `json:"units"`
	Samples []kinematics.SpeedData `json:"samples"`
}

// Output file names written under Options.OutDir.
const (
	CalibrationFile = "calibration.json"
	HeatmapFile     = "heatmap.json"
	SpeedFile       = "speed.json"
)

func (s SessionFile) validate() error {
	if !(s.ImageWidth > 0) || !(s.ImageHeight > 0) {
		return fmt.Errorf("image size must be positive, got %gx%g", s.ImageWidth, s.ImageHeight)
	}
	if s.Profile != "" && !court.KnownSport(court.SportType(s.Profile)) {
		return fmt.Errorf("unknown sport profile %q", s.Profile)
	}
	return nil
}

// Run calibrates the camera, estimates speeds for every frame, accumulates
// the player's court positions into a heatmap and writes the results.
func Run(ctx context.Context, sess SessionFile, opts Options) (*Report, error) {
	if err := sess.validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Config == nil {
		opts.Config = config.EmptyTuningConfig()
	}
	cfg := *opts.Config
	if sess.Profile != "" {
		sport := sess.Profile
		cfg.Sport.Type = &sport
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	session, err := openSession(ctx, sess, &cfg, opts)
	if err != nil {
		return nil, err
	}
	report := &Report{
		SessionID:   session.ID(),
		Calibrated:  session.IsCalibrated(),
		Trustworthy: session.IsTrustworthy(),
	}

	speed := cfg.SpeedSettings()
	if res, err := session.Result(); err == nil {
		speed.ApplyValidation(res.Metrics)
	}
	estimator := kinematics.NewSpeedEstimator(speed)

	hcfg := cfg.HeatmapConfig()
	hcfg.Clock = opts.Clock
	agg := heatmap.NewAggregator(hcfg)
	agg.StartTracking()

	tr := session.Transformer()
	base := timeutil.UnixMillis(opts.Clock)
	var clamp kinematics.TimestampClamp
	samples := make([]kinematics.SpeedData, 0, len(sess.Frames))

	for _, rec := range sess.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ms := clamp.Clamp(int64(math.Round(rec.Time * 1000)))
		frame := rec.Frame
		frame.Time = float64(ms) / 1000
		samples = append(samples, estimator.Update(frame))
		report.Frames++

		if !report.Trustworthy {
			continue
		}
		foot, ok := kinematics.MidAnkle(frame.Landmarks)
		if !ok {
			continue
		}
		img := court.Point2D{X: foot.X * sess.ImageWidth, Y: foot.Y * sess.ImageHeight}
		world, ok := tr.ImageToWorld(img, 0)
		if !ok {
			continue
		}
		accepted := agg.AddPosition(heatmap.PositionSample{
			World:      world,
			Image:      img,
			Confidence: rec.confidence(),
			Frame:      frame.Number,
			Timestamp:  base + ms,
		})
		if !accepted {
			continue
		}
		report.Positions++
		if agg.ShouldRegenerate() {
			agg.GenerateHeatmap()
			report.Regenerations++
		}
	}
	agg.StopTracking()
	if len(agg.History()) > 0 {
		agg.GenerateHeatmap()
		report.Regenerations++
	}

	if err := writeOutputs(opts, session, agg, speed.DisplayUnits(), samples); err != nil {
		return nil, err
	}

	report.CalibrationKey = store.NewKey("calibration")
	if err := calibration.SaveState(ctx, opts.Store, report.CalibrationKey, session.State()); err != nil {
		return nil, err
	}
	report.HeatmapKey = store.NewKey("heatmap")
	if err := agg.Save(ctx, opts.Store, report.HeatmapKey); err != nil {
		return nil, err
	}
	return report, nil
}

// openSession restores or calibrates the session. A failed restore falls back
// to calibrating from the session file; a failed calibration leaves the
// session uncalibrated so speeds are still reported.
func openSession(ctx context.Context, sess SessionFile, cfg *config.TuningConfig, opts Options) (*calibration.Session, error) {
	scfg := calibration.SessionConfig{
		Profile:            cfg.SportProfile(),
		ImageWidth:         sess.ImageWidth,
		ImageHeight:        sess.ImageHeight,
		UsePositionWeights: cfg.GetPositionWeights(),
		Clock:              opts.Clock,
	}

	if opts.RestoreKey != "" {
		st, err := calibration.LoadState(ctx, opts.Store, opts.RestoreKey)
		if err == nil {
			var restored *calibration.Session
			if restored, err = calibration.RestoreSession(st, scfg); err == nil {
				if restored.IsCalibrated() {
					log.Printf("restored calibration from %q", opts.RestoreKey)
					return restored, nil
				}
				err = calibration.ErrNotCalibrated
			}
		}
		log.Printf("could not restore calibration %q, calibrating from session: %v", opts.RestoreKey, err)
	}

	session := calibration.NewSession(scfg)
	for i, p := range sess.CalibrationPoints {
		if err := session.AddPoint(p); err != nil {
			return nil, fmt.Errorf("calibration point %d: %w", i, err)
		}
	}
	for i, l := range sess.Lines {
		if err := session.AddLine(l); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
	}
	res, err := session.Calibrate()
	if err != nil {
		log.Printf("calibration failed, positions will not be tracked: %v", err)
		return session, nil
	}
	log.Printf("calibrated: error=%.2fpx confidence=%.2f quality=%s",
		res.Metrics.ReprojectionError, res.Metrics.OverallConfidence, res.Metrics.Quality)
	if !session.IsTrustworthy() {
		log.Printf("calibration confidence %.2f is below %.2f, positions will not be tracked",
			res.Metrics.OverallConfidence, scfg.Profile.MinTrustConfidence)
	}
	return session, nil
}

func writeOutputs(opts Options, session *calibration.Session, agg *heatmap.Aggregator,
	units string, samples []kinematics.SpeedData) error {
	out := calibrationOutput{Session: session.Snapshot(), State: session.State()}
	if err := fsutil.WriteJSON(opts.FS, filepath.Join(opts.OutDir, CalibrationFile), out); err != nil {
		return err
	}
	if err := fsutil.WriteJSON(opts.FS, filepath.Join(opts.OutDir, HeatmapFile), agg.Snapshot()); err != nil {
		return err
	}
	return fsutil.WriteJSON(opts.FS, filepath.Join(opts.OutDir, SpeedFile), speedOutput{Units: units, Samples: samples})
}
