package court

import "fmt"

// SportType names a built-in sport profile.
type SportType string

const (
	SportBadminton  SportType = "badminton"
	SportTennis     SportType = "tennis"
	SportPickleball SportType = "pickleball"
	SportGeneric    SportType = "generic"
)

// ValidationThresholds are the reprojection-error bands (pixels) that map a
// calibration's error onto a confidence score.
type ValidationThresholds struct {
	ExcellentError  float64 `json:"excellentError"`
	AcceptableError float64 `json:"acceptableError"`
	MaxError        float64 `json:"maxError"`
}

// Validate checks the bands are positive and ordered.
func (v ValidationThresholds) Validate() error {
	if !(v.ExcellentError > 0) || !isFinite(v.ExcellentError) {
		return fmt.Errorf("excellentError must be positive, got %f", v.ExcellentError)
	}
	if !(v.AcceptableError > v.ExcellentError) || !isFinite(v.AcceptableError) {
		return fmt.Errorf("acceptableError must exceed excellentError, got %f", v.AcceptableError)
	}
	if !(v.MaxError > v.AcceptableError) || !isFinite(v.MaxError) {
		return fmt.Errorf("maxError must exceed acceptableError, got %f", v.MaxError)
	}
	return nil
}

// PerspectiveFactors are empirical weighting coefficients for weighted DLT.
// Points near the image edge, far from the camera or near the image centre
// receive extra weight proportional to these factors. A zero factor disables
// that term.
type PerspectiveFactors struct {
	EdgeWeight     float64 `json:"edgeWeight"`
	DistanceWeight float64 `json:"distanceWeight"`
	CenterWeight   float64 `json:"centerWeight"`
}

// SportProfile parameterises calibration for one sport.
type SportProfile struct {
	Type                 SportType            `json:"type"`
	CourtDimensions      Dimensions           `json:"courtDimensions"`
	ValidationThresholds ValidationThresholds `json:"validationThresholds"`
	PerspectiveFactors   PerspectiveFactors   `json:"perspectiveFactors"`
	// MinTrustConfidence is the overall confidence below which a calibration
	// must not drive coordinate transforms.
	MinTrustConfidence float64 `json:"minTrustConfidence"`
}

// Validate checks the profile is usable.
func (p SportProfile) Validate() error {
	if !p.CourtDimensions.Valid() {
		return fmt.Errorf("court dimensions must be positive, got %+v", p.CourtDimensions)
	}
	if err := p.ValidationThresholds.Validate(); err != nil {
		return err
	}
	if p.MinTrustConfidence < 0 || p.MinTrustConfidence > 1 || !isFinite(p.MinTrustConfidence) {
		return fmt.Errorf("minTrustConfidence must be in [0, 1], got %f", p.MinTrustConfidence)
	}
	return nil
}

// Badminton court tolerances are tighter than tennis because the court is
// smaller and fills more of the frame.
var builtinProfiles = map[SportType]SportProfile{
	SportBadminton: {
		Type:                 SportBadminton,
		CourtDimensions:      Dimensions{Width: 6.1, Length: 13.4},
		ValidationThresholds: ValidationThresholds{ExcellentError: 2, AcceptableError: 5, MaxError: 15},
		PerspectiveFactors:   PerspectiveFactors{EdgeWeight: 0.3, DistanceWeight: 0.5, CenterWeight: 0.2},
		MinTrustConfidence:   0.5,
	},
	SportTennis: {
		Type:                 SportTennis,
		CourtDimensions:      Dimensions{Width: 10.97, Length: 23.77},
		ValidationThresholds: ValidationThresholds{ExcellentError: 3, AcceptableError: 8, MaxError: 20},
		PerspectiveFactors:   PerspectiveFactors{EdgeWeight: 0.2, DistanceWeight: 0.6, CenterWeight: 0.2},
		MinTrustConfidence:   0.5,
	},
	SportPickleball: {
		Type:                 SportPickleball,
		CourtDimensions:      Dimensions{Width: 6.1, Length: 13.41},
		ValidationThresholds: ValidationThresholds{ExcellentError: 2, AcceptableError: 6, MaxError: 16},
		PerspectiveFactors:   PerspectiveFactors{EdgeWeight: 0.3, DistanceWeight: 0.5, CenterWeight: 0.2},
		MinTrustConfidence:   0.5,
	},
	SportGeneric: {
		Type:                 SportGeneric,
		CourtDimensions:      Dimensions{Width: 10, Length: 20},
		ValidationThresholds: ValidationThresholds{ExcellentError: 3, AcceptableError: 8, MaxError: 25},
		MinTrustConfidence:   0.5,
	},
}

// Profile returns the built-in profile for sport, falling back to the
// generic profile for unknown sports.
func Profile(sport SportType) SportProfile {
	if p, ok := builtinProfiles[sport]; ok {
		return p
	}
	return builtinProfiles[SportGeneric]
}

// KnownSport reports whether sport has a built-in profile.
func KnownSport(sport SportType) bool {
	_, ok := builtinProfiles[sport]
	return ok
}
