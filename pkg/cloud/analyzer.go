// Package cloud measures cloud cover over sea pixels and removes thin cloud
// from the sea mask.
package cloud

import (
	"fmt"
	"image"

	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/pixel"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Config holds cloud detection settings
type Config struct {
	// BrightnessThreshold is the luma (0-255) a pixel must exceed to be cloud
	BrightnessThreshold float64 `json:"brightness_threshold" yaml:"brightness_threshold"`
	// SaturationCeiling is the highest HSV saturation (0-1) a cloud pixel may have
	SaturationCeiling float64 `json:"saturation_ceiling" yaml:"saturation_ceiling"`
	// Precision is the number of decimals cloud cover is rounded to
	Precision int `json:"precision" yaml:"precision"`
}

// DefaultConfig returns the default cloud detection settings
func DefaultConfig() Config {
	return Config{
		BrightnessThreshold: 144,
		SaturationCeiling:   0.35,
		Precision:           2,
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	if c.BrightnessThreshold < 0 || c.BrightnessThreshold > 255 {
		return fmt.Errorf("brightness threshold must be within [0, 255], got %g", c.BrightnessThreshold)
	}
	if c.SaturationCeiling < 0 || c.SaturationCeiling > 1 {
		return fmt.Errorf("saturation ceiling must be within [0, 1], got %g", c.SaturationCeiling)
	}
	if c.Precision < 0 {
		return fmt.Errorf("precision must not be negative")
	}
	return nil
}

// ThinCloudFunc selects which cloud-flagged pixels are thin enough to be
// dropped from the sea mask. A nil func drops every cloud pixel.
type ThinCloudFunc func(r, g, b uint8) bool

// Analysis is the outcome of a cloud pass
type Analysis struct {
	CloudCoverPercent float64
	// CloudMask selects the cloud-flagged sea pixels
	CloudMask mask.Mask
	// Cleaned is the sea mask without thin cloud; empty when Aborted
	Cleaned mask.Mask
	// Aborted is set when cover exceeds the thick cloud threshold
	Aborted bool
}

// Analyzer detects cloud on sea pixels
type Analyzer struct {
	config Config
}

// New creates an analyzer with default settings
func New() *Analyzer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an analyzer with custom settings
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Config returns the analyzer settings
func (a *Analyzer) Config() Config {
	return a.config
}

// IsCloud reports whether a single pixel reads as cloud
func (a *Analyzer) IsCloud(r, g, b uint8) bool {
	if pixel.Luma(r, g, b) <= a.config.BrightnessThreshold {
		return false
	}
	_, s, _ := pixel.HSV(r, g, b)
	return s <= a.config.SaturationCeiling
}

// Analyze measures cloud cover over the sea pixels of img. When cover is
// above thickThreshold percent the result is Aborted; otherwise Cleaned is a
// new mask with thin cloud removed. sea is never modified.
func (a *Analyzer) Analyze(img image.Image, sea mask.Mask, thickThreshold float64, thin ThinCloudFunc) (Analysis, error) {
	if err := sea.CheckImage(img); err != nil {
		return Analysis{}, err
	}

	cloudMask := mask.New(sea.Width, sea.Height)
	thinMask := mask.New(sea.Width, sea.Height)
	seaCount, cloudCount := 0, 0

	for y := 0; y < sea.Height; y++ {
		for x := 0; x < sea.Width; x++ {
			if !sea.At(x, y) {
				continue
			}
			seaCount++

			r, g, b := pixel.RGB8(img, x, y)
			if !a.IsCloud(r, g, b) {
				continue
			}
			cloudCount++
			cloudMask.Set(x, y, true)
			if thin == nil || thin(r, g, b) {
				thinMask.Set(x, y, true)
			}
		}
	}

	if seaCount == 0 {
		return Analysis{}, types.ErrEmptySeaRegion
	}

	result := Analysis{
		CloudCoverPercent: types.Round(100*float64(cloudCount)/float64(seaCount), a.config.Precision),
		CloudMask:         cloudMask,
	}
	if result.CloudCoverPercent > thickThreshold {
		result.Aborted = true
		return result, nil
	}

	result.Cleaned = sea.AndNot(thinMask)
	return result, nil
}
