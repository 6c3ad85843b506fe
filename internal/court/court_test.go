package court

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDimensions_NormalizeAndContains(t *testing.T) {
	t.Parallel()

	d := Dimensions{Width: 6, Length: 13.4}
	nx, ny := d.Normalize(Point3D{})
	assert.InDelta(t, 0.5, nx, 1e-12)
	assert.InDelta(t, 0.5, ny, 1e-12)

	for _, c := range d.Corners() {
		assert.True(t, d.Contains(c), "corner %+v should be on court", c)
	}
	assert.False(t, d.Contains(Point3D{X: 3.01}))
	assert.False(t, d.Contains(Point3D{Y: -6.8}))
}

func TestDimensions_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, Dimensions{Width: 1, Length: 1}.Valid())
	assert.False(t, Dimensions{Width: 0, Length: 1}.Valid())
	assert.False(t, Dimensions{Width: 1, Length: math.Inf(1)}.Valid())
}

func TestCalibrationPoint_EffectiveWeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		weight float64
		want   float64
	}{
		{"unset", 0, 1},
		{"negative", -2, 1},
		{"nan", math.NaN(), 1},
		{"positive", 2.5, 2.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalibrationPoint{Weight: tc.weight}.EffectiveWeight())
		})
	}
}

func TestLineCorrespondence_EndpointsOnPlane(t *testing.T) {
	t.Parallel()

	l := LineCorrespondence{
		ImageStart: Point2D{X: 1, Y: 2},
		ImageEnd:   Point2D{X: 3, Y: 4},
		WorldStart: Point3D{X: -3, Y: 0, Z: 1},
		WorldEnd:   Point3D{X: 3, Y: 0, Z: 1},
		Weight:     2,
	}
	ends := l.Endpoints()
	assert.Equal(t, 0.0, ends[0].World.Z)
	assert.Equal(t, 0.0, ends[1].World.Z)
	assert.Equal(t, Point2D{X: 3, Y: 4}, ends[1].Image)
	assert.Equal(t, 2.0, ends[0].Weight)
}

func TestProfiles_Valid(t *testing.T) {
	t.Parallel()

	for _, sport := range []SportType{SportBadminton, SportTennis, SportPickleball, SportGeneric} {
		p := Profile(sport)
		assert.Equal(t, sport, p.Type)
		assert.NoError(t, p.Validate(), "profile %s", sport)
	}
	assert.Equal(t, SportGeneric, Profile("curling").Type)
	assert.False(t, KnownSport("curling"))
}

func TestValidationThresholds_Unordered(t *testing.T) {
	t.Parallel()

	assert.Error(t, ValidationThresholds{ExcellentError: 5, AcceptableError: 3, MaxError: 10}.Validate())
	assert.Error(t, ValidationThresholds{ExcellentError: 0, AcceptableError: 3, MaxError: 10}.Validate())
	assert.Error(t, ValidationThresholds{ExcellentError: 1, AcceptableError: 3, MaxError: 3}.Validate())
}

func TestPointDistances(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5, Point2D{}.Dist(Point2D{X: 3, Y: 4}), 1e-12)
	p := Point3D{X: 3, Y: 4, Z: 12}
	assert.InDelta(t, 13, Point3D{}.Dist(p), 1e-12)
	assert.InDelta(t, 5, Point3D{}.PlanarDist(p), 1e-12)
}
