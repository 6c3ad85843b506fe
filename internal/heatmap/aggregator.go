package heatmap

import (
	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/timeutil"
	"github.com/google/uuid"
)

// EMA weights for the running average speed.
const (
	speedKeep = 0.9
	speedNew  = 0.1
)

// PositionSample is one observed player position.
type PositionSample struct {
	World      court.Point3D `json:"worldPosition"`
	Image      court.Point2D `json:"imagePosition"`
	Confidence float64       `json:"confidence"`
	Frame      int           `json:"frameNumber"`
	// Timestamp is milliseconds since the epoch. Zero is replaced with the
	// aggregator clock's time when the sample is added.
	Timestamp int64 `json:"timestamp"`
	Zone      Zone  `json:"zone"`
}

// Observer is notified after each accepted sample and each regeneration.
// Callbacks run synchronously.
type Observer interface {
	OnPosition(Statistics)
	OnHeatmap(Heatmap)
}

// Config configures an Aggregator.
type Config struct {
	Settings Settings
	Court    court.Dimensions
	Clock    timeutil.Clock
	// RegenerateEvery is the number of recorded samples after which
	// ShouldRegenerate reports true.
	RegenerateEvery int
}

// Aggregator accumulates player positions into history, movement statistics
// and an occupancy heatmap. It is owned by a single caller.
type Aggregator struct {
	id       string
	settings Settings
	court    court.Dimensions
	clock    timeutil.Clock
	regenN   int

	tracking bool
	history  []PositionSample
	current  *PositionSample
	last     *PositionSample

	lastRecorded int64
	hasRecorded  bool
	sinceRegen   int

	totalDistance float64
	averageSpeed  float64
	zoneTime      map[Zone]int64

	heatmap   *Heatmap
	kernels   *kernelCache
	observers []Observer
}

// NewAggregator creates an aggregator. Invalid settings fall back to
// defaults and an invalid court falls back to the generic profile's.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if !cfg.Court.Valid() {
		cfg.Court = court.Profile(court.SportGeneric).CourtDimensions
	}
	if cfg.RegenerateEvery < 1 {
		cfg.RegenerateEvery = DefaultRegenerateEvery
	}
	return &Aggregator{
		id:       uuid.New().String(),
		settings: cfg.Settings.Sanitized(),
		court:    cfg.Court,
		clock:    cfg.Clock,
		regenN:   cfg.RegenerateEvery,
		zoneTime: make(map[Zone]int64),
		kernels:  newKernelCache(),
	}
}

// ID returns the aggregator's session identifier.
func (a *Aggregator) ID() string { return a.id }

// Subscribe registers an observer.
func (a *Aggregator) Subscribe(o Observer) { a.observers = append(a.observers, o) }

// Settings returns the current settings.
func (a *Aggregator) Settings() Settings { return a.settings }

// Court returns the court dimensions.
func (a *Aggregator) Court() court.Dimensions { return a.court }

// StartTracking enables sample acceptance.
func (a *Aggregator) StartTracking() {
	a.tracking = true
	Diagf("aggregator %s: tracking started", a.id)
}

// StopTracking disables sample acceptance; state is kept.
func (a *Aggregator) StopTracking() {
	a.tracking = false
	Diagf("aggregator %s: tracking stopped", a.id)
}

// IsTracking reports whether samples are being accepted.
func (a *Aggregator) IsTracking() bool { return a.tracking }

// AddPosition offers a sample and reports whether it was accepted. Samples
// are rejected while not tracking, below the minimum confidence or with a
// non-finite position. Every accepted sample updates the current position,
// total distance and average speed; only samples at least SampleInterval
// after the last recorded one are appended to history and credited with
// zone dwell time.
func (a *Aggregator) AddPosition(p PositionSample) bool {
	if !a.tracking {
		return false
	}
	if !(p.Confidence >= a.settings.MinConfidence) {
		Tracef("frame %d rejected: confidence %.2f < %.2f", p.Frame, p.Confidence, a.settings.MinConfidence)
		return false
	}
	if !court.IsFinite(p.World.X) || !court.IsFinite(p.World.Y) {
		Opsf("frame %d rejected: non-finite world position", p.Frame)
		return false
	}
	if p.Timestamp == 0 {
		p.Timestamp = timeutil.UnixMillis(a.clock)
	}
	p.Zone = Classify(a.court, p.World)

	if a.last != nil {
		dist := p.World.PlanarDist(a.last.World)
		a.totalDistance += dist
		if dt := float64(p.Timestamp-a.last.Timestamp) / 1000; dt > 0 {
			a.averageSpeed = speedKeep*a.averageSpeed + speedNew*(dist/dt)
		}
	}
	cur := p
	a.current = &cur
	a.last = &cur

	if !a.hasRecorded || p.Timestamp-a.lastRecorded >= a.settings.SampleInterval {
		if a.hasRecorded {
			a.zoneTime[p.Zone] += p.Timestamp - a.lastRecorded
		}
		a.history = append(a.history, p)
		a.trimHistory()
		a.lastRecorded = p.Timestamp
		a.hasRecorded = true
		a.sinceRegen++
		Tracef("frame %d recorded at (%.2f, %.2f) zone=%s", p.Frame, p.World.X, p.World.Y, p.Zone)
	}

	if len(a.observers) > 0 {
		stats := a.Statistics()
		for _, o := range a.observers {
			o.OnPosition(stats)
		}
	}
	return true
}

func (a *Aggregator) trimHistory() {
	if n := a.settings.MaxHistorySize; len(a.history) > n {
		a.history = append(a.history[:0], a.history[len(a.history)-n:]...)
	}
}

// Current returns the latest accepted sample.
func (a *Aggregator) Current() (PositionSample, bool) {
	if a.current == nil {
		return PositionSample{}, false
	}
	return *a.current, true
}

// History returns a copy of the recorded samples, oldest first.
func (a *Aggregator) History() []PositionSample {
	return append([]PositionSample(nil), a.history...)
}

// ShouldRegenerate reports whether enough samples have been recorded since
// the last GenerateHeatmap to make regenerating worthwhile.
func (a *Aggregator) ShouldRegenerate() bool { return a.sinceRegen >= a.regenN }

// GenerateHeatmap builds the grid from the current history, stores it as the
// latest heatmap and notifies observers.
func (a *Aggregator) GenerateHeatmap() Heatmap {
	h := buildHeatmap(a.history, a.court, a.settings, a.kernels)
	h.GeneratedAt = timeutil.UnixMillis(a.clock)
	a.heatmap = &h
	a.sinceRegen = 0
	Diagf("aggregator %s: heatmap %dx%d from %d samples (max %.3f)",
		a.id, h.Columns, h.Rows, h.SampleCount, h.MaxCount)
	for _, o := range a.observers {
		o.OnHeatmap(h)
	}
	return h
}

// Heatmap returns the most recently generated heatmap.
func (a *Aggregator) Heatmap() (Heatmap, bool) {
	if a.heatmap == nil {
		return Heatmap{}, false
	}
	return *a.heatmap, true
}

// ClearHistory discards samples, statistics and the generated heatmap but
// keeps settings, tracking state and the kernel cache.
func (a *Aggregator) ClearHistory() {
	a.history = nil
	a.current = nil
	a.last = nil
	a.lastRecorded = 0
	a.hasRecorded = false
	a.sinceRegen = 0
	a.totalDistance = 0
	a.averageSpeed = 0
	clear(a.zoneTime)
	a.heatmap = nil
}

// Reset clears history, stops tracking and empties the kernel cache.
func (a *Aggregator) Reset() {
	a.ClearHistory()
	a.tracking = false
	a.kernels.clear()
	Diagf("aggregator %s: reset", a.id)
}

// SetGridResolution sets cells per metre. Invalid values are rejected.
func (a *Aggregator) SetGridResolution(v float64) bool {
	return a.set(validGridResolution(v), "gridResolution", v, func() { a.settings.GridResolution = v })
}

// SetSmoothingRadius sets the blur radius in metres.
func (a *Aggregator) SetSmoothingRadius(v float64) bool {
	return a.set(validSmoothingRadius(v), "smoothingRadius", v, func() { a.settings.SmoothingRadius = v })
}

// SetMinConfidence sets the acceptance threshold in [0,1].
func (a *Aggregator) SetMinConfidence(v float64) bool {
	return a.set(validMinConfidence(v), "minConfidence", v, func() { a.settings.MinConfidence = v })
}

// SetSampleInterval sets the minimum gap between recorded samples in ms.
func (a *Aggregator) SetSampleInterval(ms int64) bool {
	return a.set(validSampleInterval(ms), "sampleInterval", ms, func() { a.settings.SampleInterval = ms })
}

// SetMaxHistorySize caps the history, dropping the oldest samples if needed.
func (a *Aggregator) SetMaxHistorySize(n int) bool {
	return a.set(validMaxHistorySize(n), "maxHistorySize", n, func() {
		a.settings.MaxHistorySize = n
		a.trimHistory()
	})
}

// SetDecayFactor sets the per-second decay in (0,1].
func (a *Aggregator) SetDecayFactor(v float64) bool {
	return a.set(validDecayFactor(v), "decayFactor", v, func() { a.settings.DecayFactor = v })
}

func (a *Aggregator) set(ok bool, name string, v any, apply func()) bool {
	if !ok {
		Opsf("rejected %s=%v; keeping previous value", name, v)
		return false
	}
	apply()
	return true
}
