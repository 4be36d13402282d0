// Package night decides whether a scene is too dark to analyse.
package night

import (
	"image"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/pixel"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Config holds night detection settings
type Config struct {
	// LuminanceThreshold is the mean sea luma (0-255) below which the scene is night
	LuminanceThreshold float64 `json:"luminance_threshold" yaml:"luminance_threshold"`
	// SolarGate enables the sun elevation check at the area center
	SolarGate bool `json:"solar_gate" yaml:"solar_gate"`
	// MinSunElevation is the elevation in degrees below which the sun counts as down
	MinSunElevation float64 `json:"min_sun_elevation" yaml:"min_sun_elevation"`
}

// DefaultConfig returns the default night detection settings
func DefaultConfig() Config {
	return Config{
		LuminanceThreshold: 15,
		SolarGate:          false,
		MinSunElevation:    -6,
	}
}

// Detector classifies scenes as night
type Detector struct {
	config Config
}

// New creates a detector with default settings
func New() *Detector {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a detector with custom settings
func NewWithConfig(config Config) *Detector {
	return &Detector{config: config}
}

// Config returns the detector settings
func (d *Detector) Config() Config {
	return d.config
}

// MeanLuminance returns the mean Rec.601 luma of the sea pixels
func (d *Detector) MeanLuminance(img image.Image, sea mask.Mask) (float64, error) {
	if err := sea.CheckImage(img); err != nil {
		return 0, err
	}

	lumas := make([]float64, 0, sea.Count())
	for y := 0; y < sea.Height; y++ {
		for x := 0; x < sea.Width; x++ {
			if !sea.At(x, y) {
				continue
			}
			lumas = append(lumas, pixel.Luma(pixel.RGB8(img, x, y)))
		}
	}
	if len(lumas) == 0 {
		return 0, types.ErrEmptySeaRegion
	}
	return stat.Mean(lumas, nil), nil
}

// IsNight reports whether the mean sea luminance is below the threshold
func (d *Detector) IsNight(img image.Image, sea mask.Mask) (bool, error) {
	mean, err := d.MeanLuminance(img, sea)
	if err != nil {
		return false, err
	}
	return mean < d.config.LuminanceThreshold, nil
}

// SunDown reports whether the solar gate is enabled and the sun at the
// center of area is below MinSunElevation at t
func (d *Detector) SunDown(area types.TargetArea, t time.Time) bool {
	if !d.config.SolarGate || t.IsZero() {
		return false
	}
	lat, lon := area.Center()
	return SunElevation(lat, lon, t) < d.config.MinSunElevation
}
