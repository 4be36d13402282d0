package types

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetAreaValidate(t *testing.T) {
	assert.NoError(t, TargetArea{MinLat: 29.4, MaxLat: 31.29, MinLon: 121.2, MaxLon: 123.4}.Validate())

	for name, a := range map[string]TargetArea{
		"inverted lat": {MinLat: 2, MaxLat: 1, MinLon: 0, MaxLon: 1},
		"empty lon":    {MinLat: 0, MaxLat: 1, MinLon: 1, MaxLon: 1},
		"lat range":    {MinLat: -91, MaxLat: 1, MinLon: 0, MaxLon: 1},
		"lon range":    {MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 181},
		"nan":          {MinLat: math.NaN(), MaxLat: 1, MinLon: 0, MaxLon: 1},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, a.Validate())
		})
	}
}

func TestTargetAreaHelpers(t *testing.T) {
	a := TargetArea{MinLat: 10, MaxLat: 20, MinLon: 100, MaxLon: 110}
	lat, lon := a.Center()
	assert.Equal(t, 15.0, lat)
	assert.Equal(t, 105.0, lon)
	assert.Equal(t, "10.000000,20.000000,100.000000,110.000000", a.Key())
}

func TestAnalysisResultValidate(t *testing.T) {
	tests := []struct {
		name  string
		r     AnalysisResult
		valid bool
	}{
		{"ok", AnalysisResult{Status: StatusOK, BluenessPercent: Percent(50), CloudCoverPercent: Percent(10)}, true},
		{"ok without blueness", AnalysisResult{Status: StatusOK, CloudCoverPercent: Percent(10)}, false},
		{"cloudy", AnalysisResult{Status: StatusCloudy, CloudCoverPercent: Percent(80)}, true},
		{"cloudy with blueness", AnalysisResult{Status: StatusCloudy, BluenessPercent: Percent(1), CloudCoverPercent: Percent(80)}, false},
		{"night", AnalysisResult{Status: StatusNight}, true},
		{"night with cloud", AnalysisResult{Status: StatusNight, CloudCoverPercent: Percent(0)}, false},
		{"error", AnalysisResult{Status: StatusError, Detail: "boom"}, true},
		{"out of range", AnalysisResult{Status: StatusCloudy, CloudCoverPercent: Percent(101)}, false},
		{"unknown status", AnalysisResult{Status: "SUNNY"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 66.67, Round(200.0/3, 2))
	assert.Equal(t, 33.3, Round(100.0/3, 1))
	assert.Equal(t, 13.0, Round(12.5, 0))
	assert.Equal(t, 13.0, Round(12.5, -1))
}

func TestErrors(t *testing.T) {
	gerr := &GeometryError{Polygon: 2, Ring: 1, Reason: "ring is not closed"}
	assert.True(t, errors.Is(gerr, ErrInvalidGeometry))
	assert.Contains(t, gerr.Error(), "polygon 2 ring 1")

	src := &GeometryError{Polygon: -1, Reason: "malformed GeoJSON"}
	assert.NotContains(t, src.Error(), "polygon")

	derr := &DimensionError{Want: image.Pt(4, 3), Got: image.Pt(3, 4)}
	assert.True(t, errors.Is(derr, ErrDimensionMismatch))
	assert.Contains(t, derr.Error(), "want 4x3, got 3x4")
}
