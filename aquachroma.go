// Package aquachroma measures how blue the sea is in satellite image tiles.
//
// A run crops the tile to a target area, masks land using GeoJSON polygons,
// and then classifies the scene. Night scenes and scenes with thick cloud are
// reported without a blueness value. Otherwise thin cloud is removed and the
// blueness index of the remaining sea pixels is computed.
//
// Basic usage:
//
//	land, err := geo.LoadLandFile("land.geojson")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	a, err := aquachroma.New(land)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out, err := a.AnalyzeFile("tile.png", aquachroma.FileOptions{
//		Projection: source.ProjectionMercator,
//		Bounds:     tileBounds,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(out.Result.Status)
//
// The package consists of these components:
//
//  1. Geo (pkg/geo): geotransforms and land polygons
//  2. Mask (pkg/mask): sea mask rasterization and caching
//  3. Night, Cloud, Blueness (pkg/night, pkg/cloud, pkg/blueness): the classifiers
//  4. Pipeline (pkg/pipeline): the orchestrator that runs the stages in order
//
// The aqua-chroma command wraps the same pipeline in a scheduled service with a
// result store and an HTTP API.
package aquachroma

import (
	"fmt"
	"image"
	"time"

	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/source"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Version of the aqua-chroma library
const Version = "0.3.0"

// Analyzer provides a high-level interface over the pipeline
type Analyzer struct {
	loader       *imageio.Loader
	orchestrator *pipeline.Orchestrator
}

// FileOptions describe the image passed to AnalyzeFile
type FileOptions struct {
	// Projection is source.ProjectionMercator or source.ProjectionEquirectangular
	Projection string
	// Bounds is the geographic extent of the whole image
	Bounds types.TargetArea
	// Timestamp defaults to the file's analysis time
	Timestamp time.Time
	// OutputDirectory is recorded on the result; artifacts are only written
	// when a sink is configured
	OutputDirectory string
}

// New creates an Analyzer with the default pipeline configuration
func New(land geo.Land) (*Analyzer, error) {
	return NewWithConfig(pipeline.DefaultConfig(), land)
}

// NewWithConfig creates an Analyzer with custom configuration
func NewWithConfig(config pipeline.Config, land geo.Land, opts ...pipeline.Option) (*Analyzer, error) {
	o, err := pipeline.New(config, land, opts...)
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		loader:       imageio.NewLoader(),
		orchestrator: o,
	}, nil
}

// LoadImage loads an image from file
func (a *Analyzer) LoadImage(path string) (image.Image, error) {
	return a.loader.LoadImage(path)
}

// AnalyzeImage runs the pipeline on an image whose pixel grid is described by t
func (a *Analyzer) AnalyzeImage(img image.Image, t geo.Transform, ts time.Time) pipeline.Output {
	return a.orchestrator.Run(pipeline.Input{
		Image:     img,
		Transform: t,
		Timestamp: ts,
	})
}

// AnalyzeFile loads path and runs the pipeline on it. Errors are returned only
// when the file cannot be loaded or placed; analysis failures are reported as
// StatusError in the output.
func (a *Analyzer) AnalyzeFile(path string, opts FileOptions) (pipeline.Output, error) {
	img, err := a.LoadImage(path)
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("failed to load image: %w", err)
	}
	if err := a.loader.ValidateImage(img); err != nil {
		return pipeline.Output{}, err
	}

	t, err := source.TransformFor(opts.Projection, opts.Bounds, img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		return pipeline.Output{}, err
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return a.orchestrator.Run(pipeline.Input{
		Image:           img,
		Transform:       t,
		Timestamp:       ts,
		OutputDirectory: opts.OutputDirectory,
	}), nil
}

// Config returns the pipeline configuration
func (a *Analyzer) Config() pipeline.Config {
	return a.orchestrator.Config()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
