// Package source fetches the satellite tile for a run and pairs it with its
// geotransform.
package source

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Projections understood by Static
const (
	ProjectionMercator        = "mercator"
	ProjectionEquirectangular = "equirectangular"
)

// Source produces the pipeline input for a run timestamp
type Source interface {
	Fetch(ctx context.Context, ts time.Time) (pipeline.Input, error)
}

// ImageLoader is the subset of *imageio.Loader used by Static
type ImageLoader interface {
	LoadImageSmart(ctx context.Context, source string) (image.Image, error)
}

// Config holds static source settings
type Config struct {
	// Location is a file path or http(s) URL. The placeholders {timestamp}
	// (unix seconds) and {time} (UTC, 20060102T150405Z) are substituted.
	Location   string `json:"location" yaml:"location"`
	Projection string `json:"projection" yaml:"projection"`
	// Bounds is the geographic extent covered by the image
	Bounds types.TargetArea `json:"bounds" yaml:"bounds"`
	// OutputRoot is the parent of the per-run artifact directories
	OutputRoot string `json:"output_root" yaml:"output_root"`
}

// Validate checks the settings
func (c Config) Validate() error {
	if strings.TrimSpace(c.Location) == "" {
		return fmt.Errorf("source location is required")
	}
	switch c.Projection {
	case ProjectionMercator, ProjectionEquirectangular:
	default:
		return fmt.Errorf("unknown projection %q", c.Projection)
	}
	return c.Bounds.Validate()
}

// Static loads a single image whose extent is fixed by configuration
type Static struct {
	config Config
	loader ImageLoader
}

// NewStatic creates a static source
func NewStatic(config Config, loader ImageLoader) (*Static, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		loader = imageio.NewLoader()
	}
	return &Static{config: config, loader: loader}, nil
}

// Location returns the resolved image location for ts
func (s *Static) Location(ts time.Time) string {
	return ExpandTemplate(s.config.Location, ts)
}

// Fetch loads the image for ts and derives its geotransform
func (s *Static) Fetch(ctx context.Context, ts time.Time) (pipeline.Input, error) {
	loc := s.Location(ts)
	img, err := s.loader.LoadImageSmart(ctx, loc)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("failed to load %s: %w", loc, err)
	}

	t, err := TransformFor(s.config.Projection, s.config.Bounds, img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		return pipeline.Input{}, err
	}

	return pipeline.Input{
		Image:           img,
		Transform:       t,
		Timestamp:       ts,
		OutputDirectory: RunDirectory(s.config.OutputRoot, ts),
	}, nil
}

// TransformFor builds the geotransform of a w x h image covering bounds
func TransformFor(projection string, bounds types.TargetArea, w, h int) (geo.Transform, error) {
	switch projection {
	case ProjectionMercator:
		return geo.NewMercator(bounds, w, h)
	case ProjectionEquirectangular:
		return geo.AffineForArea(bounds, w, h)
	}
	return nil, fmt.Errorf("unknown projection %q", projection)
}

// ExpandTemplate substitutes the time placeholders in tmpl
func ExpandTemplate(tmpl string, ts time.Time) string {
	r := strings.NewReplacer(
		"{timestamp}", strconv.FormatInt(ts.Unix(), 10),
		"{time}", ts.UTC().Format("20060102T150405Z"),
	)
	return r.Replace(tmpl)
}

// RunDirectory is the artifact directory for a run; empty root disables it
func RunDirectory(root string, ts time.Time) string {
	if root == "" {
		return ""
	}
	return filepath.Join(root, ts.UTC().Format("20060102_150405"))
}
