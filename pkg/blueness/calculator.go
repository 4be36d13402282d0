// Package blueness turns cloud-free sea pixels into a single blueness
// percentage.
package blueness

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/pixel"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

const (
	// MethodDominance scores each pixel by how far blue exceeds red and green
	MethodDominance = "dominance"
	// MethodHueBand counts pixels whose HSV color falls in a blue band
	MethodHueBand = "hue-band"
)

// Config holds blueness settings
type Config struct {
	Method    string `json:"method" yaml:"method"`
	Precision int    `json:"precision" yaml:"precision"`

	// Hue band bounds, used by MethodHueBand. Hue in degrees, the rest 0-1.
	HueMin        float64 `json:"hue_min" yaml:"hue_min"`
	HueMax        float64 `json:"hue_max" yaml:"hue_max"`
	MinSaturation float64 `json:"min_saturation" yaml:"min_saturation"`
	MinValue      float64 `json:"min_value" yaml:"min_value"`
}

// DefaultConfig returns the default blueness settings
func DefaultConfig() Config {
	return Config{
		Method:        MethodDominance,
		Precision:     2,
		HueMin:        200,
		HueMax:        280,
		MinSaturation: 40.0 / 255,
		MinValue:      20.0 / 255,
	}
}

// Validate checks the settings
func (c Config) Validate() error {
	switch c.Method {
	case MethodDominance:
	case MethodHueBand:
		if c.HueMin < 0 || c.HueMax > 360 || c.HueMin > c.HueMax {
			return fmt.Errorf("hue band [%g, %g] is not within [0, 360]", c.HueMin, c.HueMax)
		}
		if c.MinSaturation < 0 || c.MinSaturation > 1 || c.MinValue < 0 || c.MinValue > 1 {
			return fmt.Errorf("hue band saturation and value bounds must be within [0, 1]")
		}
	default:
		return fmt.Errorf("unknown blueness method %q", c.Method)
	}
	if c.Precision < 0 {
		return fmt.Errorf("precision must not be negative")
	}
	return nil
}

// Calculator computes the blueness index
type Calculator struct {
	config Config
	score  func(r, g, b uint8) float64
}

// New creates a calculator with default settings
func New() *Calculator {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a calculator with custom settings.
// An unknown method falls back to MethodDominance.
func NewWithConfig(config Config) *Calculator {
	c := &Calculator{config: config}
	switch config.Method {
	case MethodHueBand:
		c.score = c.hueBandScore
	default:
		c.config.Method = MethodDominance
		c.score = DominanceScore
	}
	return c
}

// Config returns the calculator settings
func (c *Calculator) Config() Config {
	return c.config
}

// Score returns the per-pixel score in [0, 1]
func (c *Calculator) Score(r, g, b uint8) float64 {
	return c.score(r, g, b)
}

// DominanceScore is (b - max(r, g)) / b, clamped at 0
func DominanceScore(r, g, b uint8) float64 {
	if b == 0 {
		return 0
	}
	other := math.Max(float64(r), float64(g))
	return math.Max(0, float64(b)-other) / float64(b)
}

func (c *Calculator) hueBandScore(r, g, b uint8) float64 {
	h, s, v := pixel.HSV(r, g, b)
	if h >= c.config.HueMin && h <= c.config.HueMax && s >= c.config.MinSaturation && v >= c.config.MinValue {
		return 1
	}
	return 0
}

// Compute returns the mean score of the selected pixels as a percentage
func (c *Calculator) Compute(img image.Image, cleaned mask.Mask) (float64, error) {
	if err := cleaned.CheckImage(img); err != nil {
		return 0, err
	}

	scores := make([]float64, 0, cleaned.Count())
	for y := 0; y < cleaned.Height; y++ {
		for x := 0; x < cleaned.Width; x++ {
			if !cleaned.At(x, y) {
				continue
			}
			scores = append(scores, c.score(pixel.RGB8(img, x, y)))
		}
	}
	if len(scores) == 0 {
		return 0, types.ErrEmptySeaRegion
	}

	percent := types.Round(100*stat.Mean(scores, nil), c.config.Precision)
	return math.Max(0, math.Min(100, percent)), nil
}

// ScoreImage renders per-pixel scores as grayscale; unselected pixels are black
func (c *Calculator) ScoreImage(img image.Image, cleaned mask.Mask) (*image.Gray, error) {
	if err := cleaned.CheckImage(img); err != nil {
		return nil, err
	}

	out := image.NewGray(image.Rect(0, 0, cleaned.Width, cleaned.Height))
	for y := 0; y < cleaned.Height; y++ {
		for x := 0; x < cleaned.Width; x++ {
			if !cleaned.At(x, y) {
				continue
			}
			out.Pix[y*out.Stride+x] = uint8(math.Round(255 * c.score(pixel.RGB8(img, x, y))))
		}
	}
	return out, nil
}
