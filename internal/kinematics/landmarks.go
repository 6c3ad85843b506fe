package kinematics

import (
	"encoding/json"

	"github.com/banshee-data/court.report/internal/court"
)

// Landmark indices in the 33-point pose topology.
const (
	Nose            = 0
	LeftShoulder    = 11
	RightShoulder   = 12
	LeftWrist       = 15
	RightWrist      = 16
	LeftHip         = 23
	RightHip        = 24
	LeftKnee        = 25
	RightKnee       = 26
	LeftAnkle       = 27
	RightAnkle      = 28
	LeftHeel        = 29
	RightHeel       = 30
	LeftFootIndex   = 31
	RightFootIndex  = 32
	PoseLandmarkLen = 33
)

// VisibilityThreshold is the visibility a landmark must exceed to be used.
const VisibilityThreshold = 0.5

var (
	torsoIndices = []int{LeftShoulder, RightShoulder, LeftHip, RightHip}
	hipIndices   = []int{LeftHip, RightHip}
	kneeIndices  = []int{LeftKnee, RightKnee}
	ankleIndices = []int{LeftAnkle, RightAnkle}
	footIndices  = []int{LeftAnkle, RightAnkle, LeftHeel, RightHeel, LeftFootIndex, RightFootIndex}
)

// Landmark is one detected body point. In image landmarks x and y are
// normalised to [0,1] with y pointing down; world landmarks are metres
// relative to the hips, also y-down.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// UnmarshalJSON treats a missing visibility as fully visible.
func (l *Landmark) UnmarshalJSON(data []byte) error {
	type plain Landmark
	p := plain{Visibility: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Landmark(p)
	return nil
}

// Visible reports whether the landmark passes the visibility threshold and
// has finite coordinates.
func (l Landmark) Visible() bool {
	return l.Visibility > VisibilityThreshold &&
		court.IsFinite(l.X) && court.IsFinite(l.Y) && court.IsFinite(l.Z)
}

// Point returns the landmark as a 3D point.
func (l Landmark) Point() court.Point3D {
	return court.Point3D{X: l.X, Y: l.Y, Z: l.Z}
}

// visibleAt returns the landmark at i when it exists and is visible.
func visibleAt(lms []Landmark, i int) (Landmark, bool) {
	if i < 0 || i >= len(lms) || !lms[i].Visible() {
		return Landmark{}, false
	}
	return lms[i], true
}

// meanOf averages the visible landmarks among indices.
func meanOf(lms []Landmark, indices []int) (court.Point3D, bool) {
	var sum court.Point3D
	n := 0
	for _, i := range indices {
		l, ok := visibleAt(lms, i)
		if !ok {
			continue
		}
		sum.X += l.X
		sum.Y += l.Y
		sum.Z += l.Z
		n++
	}
	if n == 0 {
		return court.Point3D{}, false
	}
	f := float64(n)
	return court.Point3D{X: sum.X / f, Y: sum.Y / f, Z: sum.Z / f}, true
}

// CenterOfMass is the mean of the visible torso landmarks (shoulders and
// hips). When the torso is fully occluded every visible landmark is used;
// with nothing visible the result is the origin and ok is false.
func CenterOfMass(lms []Landmark) (court.Point3D, bool) {
	if p, ok := meanOf(lms, torsoIndices); ok {
		return p, true
	}
	var sum court.Point3D
	n := 0
	for _, l := range lms {
		if !l.Visible() {
			continue
		}
		sum.X += l.X
		sum.Y += l.Y
		sum.Z += l.Z
		n++
	}
	if n == 0 {
		return court.Point3D{}, false
	}
	f := float64(n)
	return court.Point3D{X: sum.X / f, Y: sum.Y / f, Z: sum.Z / f}, true
}

// RightFoot returns the right foot index landmark, falling back to the right
// ankle when the foot is not visible.
func RightFoot(lms []Landmark) (court.Point3D, bool) {
	if l, ok := visibleAt(lms, RightFootIndex); ok {
		return l.Point(), true
	}
	if l, ok := visibleAt(lms, RightAnkle); ok {
		return l.Point(), true
	}
	return court.Point3D{}, false
}

// MidAnkle returns the midpoint of the visible ankles (either one alone is
// accepted). It is the ground-contact point mapped onto the court.
func MidAnkle(lms []Landmark) (court.Point2D, bool) {
	p, ok := meanOf(lms, ankleIndices)
	return court.Point2D{X: p.X, Y: p.Y}, ok
}

// verticalExtent returns the smallest and largest y among visible landmarks.
func verticalExtent(lms []Landmark) (minY, maxY float64, ok bool) {
	for _, l := range lms {
		if !l.Visible() {
			continue
		}
		if !ok {
			minY, maxY, ok = l.Y, l.Y, true
			continue
		}
		if l.Y < minY {
			minY = l.Y
		}
		if l.Y > maxY {
			maxY = l.Y
		}
	}
	return minY, maxY, ok
}
