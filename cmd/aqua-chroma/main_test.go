package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

const westHalfLand = `{
  "type": "Feature",
  "properties": {},
  "geometry": {
    "type": "Polygon",
    "coordinates": [[[0, 0], [0.5, 0], [0.5, 1], [0, 1], [0, 0]]]
  }
}`

func writeFixtures(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	landPath := filepath.Join(dir, "land.geojson")
	require.NoError(t, os.WriteFile(landPath, []byte(westHalfLand), 0644))

	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
area: {min_lat: 0, max_lat: 1, min_lon: 0, max_lon: 1}
land:
  path: %s
source:
  projection: equirectangular
  bounds: {min_lat: 0, max_lat: 1, min_lon: 0, max_lon: 1}
log:
  level: error
`, landPath)), 0644))

	tiles := filepath.Join(dir, "tiles")
	blue := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			blue.SetNRGBA(x, y, color.NRGBA{0, 0, 255, 255})
		}
	}
	require.NoError(t, os.MkdirAll(tiles, 0755))
	require.NoError(t, imageio.SaveImage(blue, filepath.Join(tiles, "blue.png"), "png", 90, false))
	require.NoError(t, imageio.SaveImage(image.NewNRGBA(image.Rect(0, 0, 20, 20)), filepath.Join(tiles, "dark.png"), "png", 90, false))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel = "", ""
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "aqua-chroma version")
}

func TestAnalyzeDirectory(t *testing.T) {
	dir, cfgPath := writeFixtures(t)
	outDir := filepath.Join(dir, "out")

	stdout, err := execute(t, "analyze", filepath.Join(dir, "tiles"), "--config", cfgPath, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "blue.png")

	data, err := os.ReadFile(filepath.Join(outDir, "results.json"))
	require.NoError(t, err)
	var results []caseResult
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 2)

	byName := map[string]types.AnalysisResult{}
	for _, r := range results {
		byName[filepath.Base(r.File)] = r.Result
	}
	assert.Equal(t, types.StatusOK, byName["blue.png"].Status)
	require.NotNil(t, byName["blue.png"].BluenessPercent)
	assert.Equal(t, 100.0, *byName["blue.png"].BluenessPercent)
	assert.Equal(t, types.StatusNight, byName["dark.png"].Status)

	entries, err := os.ReadDir(filepath.Join(outDir, "blue"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"01_cropped.png",
		"02_geo-mask.png",
		"03_sea-only.png",
		"04_cloud-mask.png",
		"05_cleaned.png",
		"06_blueness.png",
	}, names)
}

func TestAnalyzeMissingInput(t *testing.T) {
	_, cfgPath := writeFixtures(t)
	_, err := execute(t, "analyze", filepath.Join(t.TempDir(), "nothing.png"), "--config", cfgPath)
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: {thick_cloud_percent: 500}\n"), 0644))
	_, err := execute(t, "analyze", ".", "--config", path)
	assert.ErrorContains(t, err, "invalid configuration")
}
