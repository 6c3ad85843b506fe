package kinematics

import (
	"math"

	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/units"
	"gonum.org/v1/gonum/stat"
)

// MinDeltaT is the smallest time step (seconds) used when differencing
// positions, so repeated timestamps cannot divide by zero.
const MinDeltaT = 1e-3

// Centre-of-gravity model: weighted joint heights from world landmarks,
// rejected below the plausibility floor in favour of a proxy.
const (
	HipWeight            = 0.5
	KneeWeight           = 0.3
	AnkleWeight          = 0.2
	CoGPlausibilityFloor = 0.5 // metres
	// proxyCoGRatio is the fraction of standing height used when the body
	// extent cannot be measured.
	proxyCoGRatio = 0.55
)

// extentSmoothing is the weight a new body extent measurement carries in
// the per-subject reference used for height calibration.
const extentSmoothing = 0.1


// TrackingState is the per-subject estimator state.
type TrackingState int

const (
	NoHistory TrackingState = iota
	Tracking
)

func (s TrackingState) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "no-history"
}

// Frame is one pose observation.
type Frame struct {
	Number int     `json:"frame"`
	Time   float64 `json:"time"` // seconds
	// Landmarks are image landmarks with x/y normalised to the frame.
	Landmarks []Landmark `json:"landmarks"`
	// WorldLandmarks are optional metric landmarks from the pose model.
	WorldLandmarks []Landmark `json:"world_landmarks,omitempty"`
}

// SpeedData is the estimator's output for one frame. Speeds are m/s except
// CurrentSpeed, which is in Units.
type SpeedData struct {
	Frame                 int            `json:"frame"`
	Time                  float64        `json:"time"`
	CenterOfMass          court.Point3D  `json:"centerOfMass"`
	Velocity              court.Vector3D `json:"velocity"`
	GeneralMovingSpeed    float64        `json:"generalMovingSpeed"`
	RightFootSpeed        float64        `json:"rightFootSpeed"`
	OverallSpeed          float64        `json:"overallSpeed"`
	AverageSpeed          float64        `json:"averageSpeed"`
	CurrentSpeed          float64        `json:"currentSpeed"`
	Units                 string         `json:"units"`
	CenterOfGravityHeight float64        `json:"centerOfGravityHeight"`
	// HeightFromWorld is false when the proxy height was used.
	HeightFromWorld bool    `json:"heightFromWorld"`
	ScaleFactor     float64 `json:"scaleFactor"`
}

// SpeedEstimator tracks one subject across frames. Callers must supply
// increasing timestamps (see TimestampClamp).
type SpeedEstimator struct {
	settings CalibrationSettings
	state    TrackingState

	// Previous positions are kept normalised; displacement is scaled once.
	prevCoM    court.Point3D
	prevFoot   court.Point3D
	prevFootOK bool
	prevTime   float64

	// refExtent is the smoothed normalised body height, 0 until measured.
	refExtent float64

	window []float64
}

// NewSpeedEstimator returns an estimator in the NoHistory state.
func NewSpeedEstimator(settings CalibrationSettings) *SpeedEstimator {
	if settings.smoothingWindow < 1 {
		settings.smoothingWindow = DefaultSmoothingWindow
	}
	return &SpeedEstimator{settings: settings}
}

// Settings returns the current calibration settings.
func (e *SpeedEstimator) Settings() CalibrationSettings { return e.settings }

// SetSettings replaces the calibration settings. A smaller smoothing window
// drops the oldest samples.
func (e *SpeedEstimator) SetSettings(s CalibrationSettings) {
	if s.smoothingWindow < 1 {
		s.smoothingWindow = DefaultSmoothingWindow
	}
	e.settings = s
	e.trimWindow()
}

// State returns the tracking state.
func (e *SpeedEstimator) State() TrackingState { return e.state }

// Reset discards the motion history.
func (e *SpeedEstimator) Reset() {
	e.state = NoHistory
	e.prevCoM = court.Point3D{}
	e.prevFoot = court.Point3D{}
	e.prevFootOK = false
	e.prevTime = 0
	e.refExtent = 0
	e.window = e.window[:0]
	Diagf("speed estimator reset")
}

// Update consumes one frame. The first frame after construction or Reset
// reports zero velocity and speed. A frame with no visible landmarks reports
// a centre of mass at the origin and zero speed without disturbing the
// history.
//
// Displacement is taken between normalised positions and scaled by a single
// factor, so a change in visible body height (a raised arm, a crouch) does
// not move a stationary centre of mass.
func (e *SpeedEstimator) Update(f Frame) SpeedData {
	minY, maxY, extentOK := verticalExtent(f.Landmarks)
	if extentOK {
		e.observeExtent(maxY - minY)
	}
	scale := e.settings.ScaleFactor(e.refExtent)

	comN, comOK := CenterOfMass(f.Landmarks)
	footN, footOK := RightFoot(f.Landmarks)
	com := scalePoint(comN, scale)

	out := SpeedData{
		Frame:        f.Number,
		Time:         f.Time,
		CenterOfMass: com,
		Units:        e.settings.displayUnits,
		ScaleFactor:  scale,
	}
	out.CenterOfGravityHeight, out.HeightFromWorld = e.centerOfGravityHeight(f.WorldLandmarks, comN, comOK, minY, maxY, extentOK)

	if !comOK {
		Opsf("frame %d: no visible landmarks", f.Number)
		out.AverageSpeed = e.averageSpeed()
		return out
	}
	if !court.IsFinite(f.Time) {
		Opsf("frame %d: non-finite timestamp %v", f.Number, f.Time)
		out.AverageSpeed = e.averageSpeed()
		return out
	}

	if e.state == Tracking {
		dt := math.Max(MinDeltaT, f.Time-e.prevTime)
		dx := (comN.X - e.prevCoM.X) * scale
		dy := (comN.Y - e.prevCoM.Y) * scale
		dz := (comN.Z - e.prevCoM.Z) * scale
		out.Velocity = court.Vector3D{X: dx / dt, Y: dy / dt, Z: dz / dt}
		out.GeneralMovingSpeed = math.Hypot(dx, dy) / dt
		out.OverallSpeed = math.Sqrt(dx*dx+dy*dy+dz*dz) / dt
		if footOK && e.prevFootOK {
			out.RightFootSpeed = footN.PlanarDist(e.prevFoot) * scale / dt
		}
		e.push(out.OverallSpeed)
	} else {
		Diagf("frame %d: tracking started", f.Number)
	}

	out.AverageSpeed = e.averageSpeed()
	out.CurrentSpeed = units.ConvertSpeed(out.OverallSpeed, e.settings.displayUnits)

	e.state = Tracking
	e.prevCoM = comN
	e.prevFoot = footN
	e.prevFootOK = footOK
	e.prevTime = f.Time

	Tracef("frame %d t=%.3f speed=%.2fm/s avg=%.2fm/s cog=%.2fm",
		f.Number, f.Time, out.OverallSpeed, out.AverageSpeed, out.CenterOfGravityHeight)
	return out
}

// observeExtent folds a measured body extent into the reference. Extents too
// small to measure a body are ignored.
func (e *SpeedEstimator) observeExtent(extent float64) {
	if !(extent >= minBodyExtent) {
		return
	}
	if e.refExtent == 0 {
		e.refExtent = extent
		return
	}
	e.refExtent += extentSmoothing * (extent - e.refExtent)
}

// BodyExtent returns the smoothed normalised body height used for height
// calibration, or 0 before one has been measured.
func (e *SpeedEstimator) BodyExtent() float64 {
	return e.refExtent
}

func scalePoint(p court.Point3D, s float64) court.Point3D {
	return court.Point3D{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

func (e *SpeedEstimator) push(v float64) {
	e.window = append(e.window, v)
	e.trimWindow()
}

func (e *SpeedEstimator) trimWindow() {
	if n := e.settings.smoothingWindow; len(e.window) > n {
		e.window = append(e.window[:0], e.window[len(e.window)-n:]...)
	}
}

func (e *SpeedEstimator) averageSpeed() float64 {
	if len(e.window) == 0 {
		return 0
	}
	return stat.Mean(e.window, nil)
}

// centerOfGravityHeight returns the CoG height in metres and whether it came
// from world landmarks.
func (e *SpeedEstimator) centerOfGravityHeight(world []Landmark, comN court.Point3D, comOK bool,
	minY, maxY float64, extentOK bool) (float64, bool) {
	if h, ok := WorldCoGHeight(world); ok && h >= CoGPlausibilityFloor {
		return h, true
	}
	heightM := e.settings.playerHeightCm / 100
	if comOK && extentOK && maxY-minY >= minBodyExtent {
		rel := (maxY - comN.Y) / (maxY - minY)
		return math.Max(0, math.Min(1, rel)) * heightM, false
	}
	return proxyCoGRatio * heightM, false
}

// WorldCoGHeight estimates the centre-of-gravity height from metric world
// landmarks (y pointing down) as 0.5·hip + 0.3·knee + 0.2·ankle, each measured
// above the lowest visible foot landmark. ok is false when any joint pair is
// fully occluded. The result is an approximation and is not floored.
func WorldCoGHeight(world []Landmark) (float64, bool) {
	if len(world) == 0 {
		return 0, false
	}
	ground, found := 0.0, false
	for _, i := range footIndices {
		l, ok := visibleAt(world, i)
		if !ok {
			continue
		}
		if !found || l.Y > ground {
			ground, found = l.Y, true
		}
	}
	if !found {
		return 0, false
	}
	hip, ok1 := meanOf(world, hipIndices)
	knee, ok2 := meanOf(world, kneeIndices)
	ankle, ok3 := meanOf(world, ankleIndices)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	return HipWeight*(ground-hip.Y) + KneeWeight*(ground-knee.Y) + AnkleWeight*(ground-ankle.Y), true
}
