package kinematics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/banshee-data/court.report/internal/calibration"
	"github.com/banshee-data/court.report/internal/court"
	"github.com/banshee-data/court.report/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pose returns a full landmark set with everything hidden.
func pose() []Landmark {
	return make([]Landmark, PoseLandmarkLen)
}

func show(lms []Landmark, i int, x, y float64) {
	lms[i] = Landmark{X: x, Y: y, Visibility: 0.9}
}

// standing places a visible player centred at (cx, 0.5) whose nose is at
// y=0.25 and feet at y=0.75.
func standing(cx float64) []Landmark {
	lms := pose()
	show(lms, Nose, cx, 0.25)
	show(lms, LeftShoulder, cx-0.03, 0.35)
	show(lms, RightShoulder, cx+0.03, 0.35)
	show(lms, LeftHip, cx-0.02, 0.5)
	show(lms, RightHip, cx+0.02, 0.5)
	show(lms, LeftKnee, cx-0.02, 0.62)
	show(lms, RightKnee, cx+0.02, 0.62)
	show(lms, LeftAnkle, cx-0.02, 0.73)
	show(lms, RightAnkle, cx+0.02, 0.73)
	show(lms, RightFootIndex, cx+0.03, 0.75)
	return lms
}

func courtOnly(length float64) CalibrationSettings {
	s := DefaultCalibrationSettings()
	s.SetModes(false, true)
	s.SetCourtLength(length)
	return s
}

func TestCenterOfMass(t *testing.T) {
	t.Parallel()

	lms := standing(0.4)
	com, ok := CenterOfMass(lms)
	require.True(t, ok)
	assert.InDelta(t, 0.4, com.X, 1e-12)
	assert.InDelta(t, 0.425, com.Y, 1e-12)

	// Visibility exactly at the threshold is excluded.
	lms[LeftShoulder].Visibility = VisibilityThreshold
	lms[RightShoulder].Visibility = 0.1
	com, ok = CenterOfMass(lms)
	require.True(t, ok)
	assert.InDelta(t, 0.5, com.Y, 1e-12)
}

func TestCenterOfMass_TorsoOccluded(t *testing.T) {
	t.Parallel()

	lms := pose()
	show(lms, Nose, 0.2, 0.2)
	show(lms, LeftKnee, 0.4, 0.6)
	com, ok := CenterOfMass(lms)
	require.True(t, ok)
	assert.InDelta(t, 0.3, com.X, 1e-12)
	assert.InDelta(t, 0.4, com.Y, 1e-12)

	com, ok = CenterOfMass(pose())
	assert.False(t, ok)
	assert.Equal(t, court.Point3D{}, com)

	_, ok = CenterOfMass(nil)
	assert.False(t, ok)
}

func TestRightFoot_FallsBackToAnkle(t *testing.T) {
	t.Parallel()

	lms := standing(0.5)
	p, ok := RightFoot(lms)
	require.True(t, ok)
	assert.InDelta(t, 0.75, p.Y, 1e-12)

	lms[RightFootIndex].Visibility = 0
	p, ok = RightFoot(lms)
	require.True(t, ok)
	assert.InDelta(t, 0.73, p.Y, 1e-12)

	lms[RightAnkle].Visibility = 0
	_, ok = RightFoot(lms)
	assert.False(t, ok)
}

func TestMidAnkle(t *testing.T) {
	t.Parallel()

	p, ok := MidAnkle(standing(0.6))
	require.True(t, ok)
	assert.InDelta(t, 0.6, p.X, 1e-12)
	assert.InDelta(t, 0.73, p.Y, 1e-12)
}

func TestLandmark_UnmarshalDefaultsVisibility(t *testing.T) {
	t.Parallel()

	var lms []Landmark
	require.NoError(t, json.Unmarshal([]byte(`[{"x":0.1,"y":0.2},{"x":0.3,"y":0.4,"z":-0.1,"visibility":0.2}]`), &lms))
	require.Len(t, lms, 2)
	assert.Equal(t, 1.0, lms[0].Visibility)
	assert.True(t, lms[0].Visible())
	assert.Equal(t, 0.2, lms[1].Visibility)
	assert.False(t, lms[1].Visible())
}

func TestScaleFactor(t *testing.T) {
	t.Parallel()

	s := DefaultCalibrationSettings()
	assert.InDelta(t, 1.75/0.5, s.ScaleFactor(0.5), 1e-12)
	assert.InDelta(t, 1.75/0.25, s.ScaleFactor(0.25), 1e-12)
	// Unmeasurable extent falls back to the default.
	assert.InDelta(t, 1.75/0.5, s.ScaleFactor(0), 1e-12)

	s.SetModes(false, true)
	assert.InDelta(t, DefaultCourtLengthM, s.ScaleFactor(0.5), 1e-12)
	require.True(t, s.SetPixelScale(100, 1920))
	assert.InDelta(t, 19.2, s.ScaleFactor(0.5), 1e-12)

	s.SetModes(true, true)
	assert.InDelta(t, (3.5+19.2)/2, s.ScaleFactor(0.5), 1e-12)

	s.SetModes(false, false)
	assert.InDelta(t, 19.2, s.ScaleFactor(0.5), 1e-12)

	tiny := courtOnly(0.01)
	assert.Equal(t, MinScaleFactor, tiny.ScaleFactor(0))
}

func TestSettings_RejectInvalid(t *testing.T) {
	t.Parallel()

	s := DefaultCalibrationSettings()
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.False(t, s.SetPlayerHeight(v), "height %v", v)
		assert.False(t, s.SetCourtLength(v), "length %v", v)
		assert.False(t, s.SetPixelScale(v, 1920), "px/m %v", v)
	}
	assert.Equal(t, DefaultPlayerHeightCm, s.PlayerHeightCm())
	assert.Equal(t, DefaultCourtLengthM, s.CourtLengthM())
	assert.Zero(t, s.PixelsPerMeter())

	assert.False(t, s.SetCalibrationAccuracy(101))
	assert.False(t, s.SetCalibrationAccuracy(math.NaN()))
	assert.True(t, s.SetCalibrationAccuracy(100))

	assert.False(t, s.SetSmoothingWindow(0))
	assert.True(t, s.SetSmoothingWindow(3))
	assert.Equal(t, 3, s.SmoothingWindow())

	assert.False(t, s.SetDisplayUnits("knots"))
	assert.True(t, s.SetDisplayUnits(units.MPH))
	assert.Equal(t, units.MPH, s.DisplayUnits())

	assert.True(t, s.SetPlayerHeight(182))
	assert.Equal(t, 182.0, s.PlayerHeightCm())
}

func TestSettings_ApplyValidation(t *testing.T) {
	t.Parallel()

	s := DefaultCalibrationSettings()
	require.True(t, s.ApplyValidation(calibration.ValidationMetrics{OverallConfidence: 0.75}))
	assert.InDelta(t, 75, s.CalibrationAccuracy(), 1e-12)
}

func TestSpeedEstimator_FirstFrameIsZero(t *testing.T) {
	t.Parallel()

	e := NewSpeedEstimator(courtOnly(10))
	assert.Equal(t, NoHistory, e.State())

	out := e.Update(Frame{Number: 0, Time: 0, Landmarks: standing(0.4)})
	assert.Equal(t, Tracking, e.State())
	assert.Zero(t, out.OverallSpeed)
	assert.Zero(t, out.GeneralMovingSpeed)
	assert.Zero(t, out.RightFootSpeed)
	assert.Equal(t, court.Vector3D{}, out.Velocity)
	assert.Zero(t, out.AverageSpeed)
	assert.InDelta(t, 4.0, out.CenterOfMass.X, 1e-12)
}

func TestSpeedEstimator_SyntheticMotion(t *testing.T) {
	t.Parallel()

	// Court scale 10 m per normalised unit: 0.05 units over 0.5 s is 1 m/s.
	e := NewSpeedEstimator(courtOnly(10))
	e.Update(Frame{Number: 0, Time: 1.0, Landmarks: standing(0.40)})
	out := e.Update(Frame{Number: 15, Time: 1.5, Landmarks: standing(0.45)})

	const want = 1.0
	assert.InEpsilon(t, want, out.GeneralMovingSpeed, 0.05)
	assert.InEpsilon(t, want, out.OverallSpeed, 0.05)
	assert.InEpsilon(t, want, out.RightFootSpeed, 0.05)
	assert.InDelta(t, want, out.Velocity.X, 0.05)
	assert.InDelta(t, 0, out.Velocity.Y, 1e-9)
	assert.InEpsilon(t, want, out.AverageSpeed, 0.05)
	assert.InEpsilon(t, 3.6, out.CurrentSpeed, 0.05)
	assert.Equal(t, units.KPH, out.Units)
}

func TestSpeedEstimator_HeightCalibratedMotion(t *testing.T) {
	t.Parallel()

	// The standing body spans 0.5 units, so a 175 cm player gives 3.5 m per
	// unit on its own and (3.5+10)/2 averaged with a 10 m court.
	tests := []struct {
		name     string
		settings func() CalibrationSettings
		scale    float64
	}{
		{"height only", DefaultCalibrationSettings, 3.5},
		{"height and court", func() CalibrationSettings {
			s := courtOnly(10)
			s.SetModes(true, true)
			return s
		}, 6.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSpeedEstimator(tt.settings())
			e.Update(Frame{Number: 0, Time: 1.0, Landmarks: standing(0.40)})
			out := e.Update(Frame{Number: 15, Time: 1.5, Landmarks: standing(0.45)})

			want := 0.05 * tt.scale / 0.5
			assert.InDelta(t, tt.scale, out.ScaleFactor, 1e-9)
			assert.InDelta(t, want, out.GeneralMovingSpeed, 1e-9)
			assert.InDelta(t, want, out.RightFootSpeed, 1e-9)
			assert.InDelta(t, 0.45*tt.scale, out.CenterOfMass.X, 1e-9)
			assert.InDelta(t, 0.5, e.BodyExtent(), 1e-12)
		})
	}
}

func TestSpeedEstimator_StationaryTorsoChangingHeight(t *testing.T) {
	t.Parallel()

	raised := standing(0.5)
	show(raised, LeftWrist, 0.45, 0.05)
	noHead := standing(0.5)
	noHead[Nose].Visibility = 0

	for _, tt := range []struct {
		name     string
		settings func() CalibrationSettings
	}{
		{"height only", DefaultCalibrationSettings},
		{"height and court", func() CalibrationSettings {
			s := courtOnly(10)
			s.SetModes(true, true)
			return s
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSpeedEstimator(tt.settings())
			e.Update(Frame{Number: 0, Time: 0, Landmarks: standing(0.5)})

			var outs []SpeedData
			for i, lms := range [][]Landmark{raised, noHead, standing(0.5)} {
				outs = append(outs, e.Update(Frame{Number: i + 1, Time: float64(i+1) / 30, Landmarks: lms}))
			}
			for _, out := range outs {
				assert.InDelta(t, 0, out.OverallSpeed, 1e-9, "frame %d", out.Frame)
				assert.InDelta(t, 0, out.RightFootSpeed, 1e-9, "frame %d", out.Frame)
			}
			// Extents 0.7, 0.4, 0.5 each move the reference a tenth of the way.
			assert.InDelta(t, 0.5072, e.BodyExtent(), 1e-9)
		})
	}
}

func TestSpeedEstimator_RepeatedTimestamp(t *testing.T) {
	t.Parallel()

	e := NewSpeedEstimator(courtOnly(10))
	e.Update(Frame{Time: 2, Landmarks: standing(0.40)})
	out := e.Update(Frame{Time: 2, Landmarks: standing(0.4001)})
	// Δt is floored at MinDeltaT.
	assert.InDelta(t, 0.001/MinDeltaT, out.GeneralMovingSpeed, 1e-6)
	assert.False(t, math.IsInf(out.OverallSpeed, 0))
}

func TestSpeedEstimator_AverageWindow(t *testing.T) {
	t.Parallel()

	s := courtOnly(10)
	require.True(t, s.SetSmoothingWindow(3))
	e := NewSpeedEstimator(s)

	// Displacements of 0.01, 0.02, ... units per second give 0.1, 0.2, ... m/s.
	x := 0.3
	e.Update(Frame{Time: 0, Landmarks: standing(x)})
	var out SpeedData
	for i := 1; i <= 5; i++ {
		x += 0.01 * float64(i)
		out = e.Update(Frame{Number: i, Time: float64(i), Landmarks: standing(x)})
	}
	assert.InDelta(t, 0.5, out.OverallSpeed, 1e-9)
	assert.InDelta(t, (0.3+0.4+0.5)/3, out.AverageSpeed, 1e-9)

	// Shrinking the window drops the oldest samples.
	s.SetSmoothingWindow(1)
	e.SetSettings(s)
	out = e.Update(Frame{Number: 6, Time: 6, Landmarks: standing(x)})
	assert.InDelta(t, 0, out.AverageSpeed, 1e-9)
}

func TestSpeedEstimator_NoLandmarks(t *testing.T) {
	t.Parallel()

	e := NewSpeedEstimator(courtOnly(10))
	e.Update(Frame{Time: 0, Landmarks: standing(0.4)})
	out := e.Update(Frame{Time: 0.1, Landmarks: pose()})
	assert.Equal(t, court.Point3D{}, out.CenterOfMass)
	assert.Zero(t, out.OverallSpeed)

	// History is untouched, so the next frame differences against t=0.
	out = e.Update(Frame{Time: 0.5, Landmarks: standing(0.45)})
	assert.InEpsilon(t, 1.0, out.GeneralMovingSpeed, 0.05)
}

func TestSpeedEstimator_Reset(t *testing.T) {
	t.Parallel()

	e := NewSpeedEstimator(courtOnly(10))
	e.Update(Frame{Time: 0, Landmarks: standing(0.4)})
	e.Update(Frame{Time: 1, Landmarks: standing(0.5)})
	e.Reset()
	assert.Equal(t, NoHistory, e.State())

	out := e.Update(Frame{Time: 2, Landmarks: standing(0.9)})
	assert.Zero(t, out.OverallSpeed)
	assert.Zero(t, out.AverageSpeed)
}

func worldPose(hipY, kneeY, ankleY, footY float64) []Landmark {
	lms := pose()
	for _, i := range hipIndices {
		lms[i] = Landmark{Y: hipY, Visibility: 1}
	}
	for _, i := range kneeIndices {
		lms[i] = Landmark{Y: kneeY, Visibility: 1}
	}
	for _, i := range ankleIndices {
		lms[i] = Landmark{Y: ankleY, Visibility: 1}
	}
	lms[LeftFootIndex] = Landmark{Y: footY, Visibility: 1}
	return lms
}

func TestWorldCoGHeight(t *testing.T) {
	t.Parallel()

	h, ok := WorldCoGHeight(worldPose(0, 0.45, 0.85, 0.9))
	require.True(t, ok)
	assert.InDelta(t, 0.5*0.9+0.3*0.45+0.2*0.05, h, 1e-12)

	noKnees := worldPose(0, 0.45, 0.85, 0.9)
	noKnees[LeftKnee].Visibility = 0
	noKnees[RightKnee].Visibility = 0
	_, ok = WorldCoGHeight(noKnees)
	assert.False(t, ok)

	_, ok = WorldCoGHeight(nil)
	assert.False(t, ok)
}

func TestSpeedEstimator_CoGHeight(t *testing.T) {
	t.Parallel()

	e := NewSpeedEstimator(DefaultCalibrationSettings())

	out := e.Update(Frame{Landmarks: standing(0.5), WorldLandmarks: worldPose(0, 0.45, 0.85, 0.9)})
	assert.True(t, out.HeightFromWorld)
	assert.InDelta(t, 0.595, out.CenterOfGravityHeight, 1e-9)

	// A deep crouch falls below the plausibility floor and uses the proxy:
	// the centre of mass sits at (0.75-0.425)/(0.75-0.25) of the body extent.
	out = e.Update(Frame{Time: 0.1, Landmarks: standing(0.5), WorldLandmarks: worldPose(0, 0.1, 0.3, 0.35)})
	assert.False(t, out.HeightFromWorld)
	assert.InDelta(t, 0.65*1.75, out.CenterOfGravityHeight, 1e-9)

	// Without world landmarks or a measurable body the fixed ratio is used.
	out = e.Update(Frame{Time: 0.2, Landmarks: pose()})
	assert.False(t, out.HeightFromWorld)
	assert.InDelta(t, 0.55*1.75, out.CenterOfGravityHeight, 1e-9)
}

func TestTimestampClamp(t *testing.T) {
	t.Parallel()

	var c TimestampClamp
	got := []int64{c.Clamp(100), c.Clamp(133), c.Clamp(133), c.Clamp(120), c.Clamp(200)}
	assert.Equal(t, []int64{100, 133, 134, 135, 200}, got)

	c.Reset()
	assert.Equal(t, int64(50), c.Clamp(50))
}
