package types

import (
	"fmt"
	"image"
	"math"
	"time"
)

// TargetArea is the geographic bounding box analysed on every run
type TargetArea struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// Validate checks that the box is well formed
func (a TargetArea) Validate() error {
	for _, v := range []float64{a.MinLat, a.MaxLat, a.MinLon, a.MaxLon} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target area has non-finite bound")
		}
	}
	if a.MinLat >= a.MaxLat {
		return fmt.Errorf("target area min_lat (%g) must be less than max_lat (%g)", a.MinLat, a.MaxLat)
	}
	if a.MinLon >= a.MaxLon {
		return fmt.Errorf("target area min_lon (%g) must be less than max_lon (%g)", a.MinLon, a.MaxLon)
	}
	if a.MinLat < -90 || a.MaxLat > 90 {
		return fmt.Errorf("target area latitude must be within [-90, 90]")
	}
	if a.MinLon < -180 || a.MaxLon > 180 {
		return fmt.Errorf("target area longitude must be within [-180, 180]")
	}
	return nil
}

// Center returns the center of the box as (lat, lon)
func (a TargetArea) Center() (float64, float64) {
	return (a.MinLat + a.MaxLat) / 2, (a.MinLon + a.MaxLon) / 2
}

// Key returns a canonical string identifying the box
func (a TargetArea) Key() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", a.MinLat, a.MaxLat, a.MinLon, a.MaxLon)
}

// Status is the terminal outcome of one pipeline run
type Status string

const (
	StatusOK     Status = "OK"
	StatusNight  Status = "NIGHT"
	StatusCloudy Status = "CLOUDY"
	StatusError  Status = "ERROR"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusNight, StatusCloudy, StatusError:
		return true
	}
	return false
}

// AnalysisResult is the record produced by every pipeline run.
// BluenessPercent is set only for StatusOK; CloudCoverPercent is set for
// StatusOK and StatusCloudy.
type AnalysisResult struct {
	Timestamp         time.Time `json:"timestamp"`
	Status            Status    `json:"status"`
	BluenessPercent   *float64  `json:"blueness_percent"`
	CloudCoverPercent *float64  `json:"cloud_cover_percent"`
	OutputDirectory   string    `json:"output_directory"`
	Detail            string    `json:"detail,omitempty"`
}

// Validate checks the status/metric invariants of the record
func (r AnalysisResult) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	for name, p := range map[string]*float64{"blueness": r.BluenessPercent, "cloud cover": r.CloudCoverPercent} {
		if p != nil && (*p < 0 || *p > 100 || math.IsNaN(*p)) {
			return fmt.Errorf("%s percent %v outside [0, 100]", name, *p)
		}
	}

	switch r.Status {
	case StatusOK:
		if r.BluenessPercent == nil || r.CloudCoverPercent == nil {
			return fmt.Errorf("status OK requires blueness and cloud cover")
		}
	case StatusCloudy:
		if r.BluenessPercent != nil || r.CloudCoverPercent == nil {
			return fmt.Errorf("status CLOUDY requires cloud cover only")
		}
	case StatusNight, StatusError:
		if r.BluenessPercent != nil || r.CloudCoverPercent != nil {
			return fmt.Errorf("status %s carries no metrics", r.Status)
		}
	}
	return nil
}

// Artifact is an intermediate image captured at a pipeline stage
type Artifact struct {
	Index     int
	Name      string
	Image     image.Image
	Timestamp time.Time
	Directory string
}

// Percent returns a pointer to v, for filling optional result fields
func Percent(v float64) *float64 {
	return &v
}

// Round rounds v to the given number of decimal places
func Round(v float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}
