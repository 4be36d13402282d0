package cloud

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

var (
	seaBlue = color.RGBA{20, 60, 180, 255}
	white   = color.RGBA{255, 255, 255, 255}
	haze    = color.RGBA{200, 200, 210, 255}
)

// createTestImage creates a uniformly colored test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestIsCloud(t *testing.T) {
	a := New()
	assert.True(t, a.IsCloud(255, 255, 255))
	assert.True(t, a.IsCloud(200, 200, 210))
	assert.False(t, a.IsCloud(20, 60, 180))
	assert.False(t, a.IsCloud(140, 140, 140))
	assert.True(t, a.IsCloud(150, 150, 150))
	assert.False(t, a.IsCloud(255, 220, 0), "bright but saturated")
}

func TestAnalyzeThickCloudAborts(t *testing.T) {
	img := createTestImage(4, 4, white)
	// bottom row stays clear
	for x := 0; x < 4; x++ {
		img.Set(x, 3, seaBlue)
	}

	res, err := New().Analyze(img, mask.Full(4, 4), 50, nil)
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Equal(t, 75.0, res.CloudCoverPercent)
	assert.Equal(t, 12, res.CloudMask.Count())
	assert.Equal(t, 0, res.Cleaned.Len())
}

func TestAnalyzeThresholdIsStrict(t *testing.T) {
	img := createTestImage(2, 2, seaBlue)
	img.Set(0, 0, white)
	img.Set(1, 0, white)

	res, err := New().Analyze(img, mask.Full(2, 2), 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.CloudCoverPercent)
	assert.False(t, res.Aborted)
	assert.Equal(t, 2, res.Cleaned.Count())
}

func TestAnalyzeThinCloudRemoved(t *testing.T) {
	img := createTestImage(4, 4, seaBlue)
	img.Set(1, 1, white)
	img.Set(2, 2, haze)
	sea := mask.Full(4, 4)

	res, err := New().Analyze(img, sea, 70, nil)
	require.NoError(t, err)
	assert.False(t, res.Aborted)
	assert.Equal(t, 12.5, res.CloudCoverPercent)
	assert.Equal(t, 14, res.Cleaned.Count())
	assert.False(t, res.Cleaned.At(1, 1))
	assert.False(t, res.Cleaned.At(2, 2))

	// input mask untouched
	assert.Equal(t, 16, sea.Count())
}

func TestAnalyzeThinCloudFunc(t *testing.T) {
	img := createTestImage(4, 4, seaBlue)
	img.Set(1, 1, white)
	img.Set(2, 2, haze)

	// only the haze is thin enough to drop
	onlyHaze := func(r, g, b uint8) bool { return r < 255 }

	res, err := New().Analyze(img, mask.Full(4, 4), 70, onlyHaze)
	require.NoError(t, err)
	assert.Equal(t, 2, res.CloudMask.Count())
	assert.Equal(t, 15, res.Cleaned.Count())
	assert.True(t, res.Cleaned.At(1, 1))
	assert.False(t, res.Cleaned.At(2, 2))
}

func TestAnalyzeZeroCoverKeepsSeaMask(t *testing.T) {
	img := createTestImage(4, 4, seaBlue)
	sea := mask.Full(4, 4)
	sea.Set(0, 0, false)

	res, err := New().Analyze(img, sea, 70, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.CloudCoverPercent)
	assert.True(t, res.Cleaned.Equal(sea))
}

func TestAnalyzeDenominatorIsSeaOnly(t *testing.T) {
	img := createTestImage(4, 4, white)
	sea := mask.New(4, 4)
	// 4 sea pixels, one cloudy
	for x := 0; x < 4; x++ {
		sea.Set(x, 0, true)
		img.Set(x, 0, seaBlue)
	}
	img.Set(0, 0, white)

	res, err := New().Analyze(img, sea, 70, nil)
	require.NoError(t, err)
	assert.Equal(t, 25.0, res.CloudCoverPercent)
}

func TestAnalyzeIgnoresLandPixels(t *testing.T) {
	sea := mask.Full(4, 4)
	for y := 0; y < 4; y++ {
		sea.Set(0, y, false)
	}

	base := createTestImage(4, 4, seaBlue)
	base.Set(2, 2, white)
	mutated := createTestImage(4, 4, seaBlue)
	mutated.Set(2, 2, white)
	for y := 0; y < 4; y++ {
		mutated.Set(0, y, white)
	}

	a, err := New().Analyze(base, sea, 70, nil)
	require.NoError(t, err)
	b, err := New().Analyze(mutated, sea, 70, nil)
	require.NoError(t, err)

	assert.Equal(t, a.CloudCoverPercent, b.CloudCoverPercent)
	assert.True(t, a.Cleaned.Equal(b.Cleaned))
	assert.True(t, a.CloudMask.Equal(b.CloudMask))
}

func TestAnalyzeRounding(t *testing.T) {
	img := createTestImage(3, 1, seaBlue)
	img.Set(0, 0, white)

	a := NewWithConfig(Config{BrightnessThreshold: 144, SaturationCeiling: 0.35, Precision: 1})
	res, err := a.Analyze(img, mask.Full(3, 1), 70, nil)
	require.NoError(t, err)
	assert.Equal(t, 33.3, res.CloudCoverPercent)
}

func TestAnalyzeEmptySea(t *testing.T) {
	img := createTestImage(4, 4, white)

	_, err := New().Analyze(img, mask.New(4, 4), 70, nil)
	assert.True(t, errors.Is(err, types.ErrEmptySeaRegion))
}

func TestAnalyzeDimensionMismatch(t *testing.T) {
	img := createTestImage(4, 4, white)

	_, err := New().Analyze(img, mask.Full(4, 5), 70, nil)
	assert.True(t, errors.Is(err, types.ErrDimensionMismatch))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{BrightnessThreshold: 300}.Validate())
	assert.Error(t, Config{BrightnessThreshold: 144, SaturationCeiling: 2}.Validate())
	assert.Error(t, Config{BrightnessThreshold: 144, Precision: -1}.Validate())
}
