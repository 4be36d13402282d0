package aquachroma

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/source"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

var testArea = types.TargetArea{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func testConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Area = testArea
	return cfg
}

func TestNewRejectsBadGeometry(t *testing.T) {
	open := geo.NewLand("open", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}}})
	_, err := NewWithConfig(testConfig(), open)
	assert.ErrorIs(t, err, types.ErrInvalidGeometry)
}

func TestAnalyzeImage(t *testing.T) {
	a, err := NewWithConfig(testConfig(), geo.NewLand("none"))
	require.NoError(t, err)

	tr, err := geo.AffineForArea(testArea, 10, 10)
	require.NoError(t, err)

	ts := time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC)
	out := a.AnalyzeImage(solid(10, 10, color.NRGBA{0, 0, 255, 255}), tr, ts)
	assert.Equal(t, types.StatusOK, out.Result.Status)
	assert.Equal(t, ts, out.Result.Timestamp)
	require.NotNil(t, out.Result.BluenessPercent)
	assert.Equal(t, 100.0, *out.Result.BluenessPercent)

	out = a.AnalyzeImage(solid(10, 10, color.NRGBA{2, 2, 4, 255}), tr, ts)
	assert.Equal(t, types.StatusNight, out.Result.Status)
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	require.NoError(t, imageio.SaveImage(solid(20, 20, color.NRGBA{230, 230, 230, 255}), path, "png", 90, false))

	a, err := NewWithConfig(testConfig(), geo.NewLand("none"))
	require.NoError(t, err)

	out, err := a.AnalyzeFile(path, FileOptions{
		Projection:      source.ProjectionEquirectangular,
		Bounds:          testArea,
		OutputDirectory: "/tmp/run",
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusCloudy, out.Result.Status)
	assert.Equal(t, "/tmp/run", out.Result.OutputDirectory)
	assert.False(t, out.Result.Timestamp.IsZero())

	_, err = a.AnalyzeFile(filepath.Join(t.TempDir(), "missing.png"), FileOptions{
		Projection: source.ProjectionEquirectangular,
		Bounds:     testArea,
	})
	assert.Error(t, err)

	_, err = a.AnalyzeFile(path, FileOptions{Projection: "polar", Bounds: testArea})
	assert.Error(t, err)
}

func TestNewUsesDefaults(t *testing.T) {
	a, err := New(geo.NewLand("none"))
	require.NoError(t, err)
	assert.Equal(t, pipeline.DefaultConfig(), a.Config())
	assert.Equal(t, Version, GetVersion())
}
