// Package pipeline sequences masking, night and cloud gating and the
// blueness metric into one deterministic run per image.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/aqua-chroma/internal/observability"
	"github.com/menta2k/aqua-chroma/pkg/blueness"
	"github.com/menta2k/aqua-chroma/pkg/cloud"
	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/night"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Config is the immutable configuration of an Orchestrator
type Config struct {
	Area     types.TargetArea
	Night    night.Config
	Cloud    cloud.Config
	Blueness blueness.Config
	// ThickCloudPercent aborts the run as CLOUDY when cloud cover exceeds it
	ThickCloudPercent float64
	// ScaleFactor resamples the cropped tile (nearest neighbour) before
	// analysis; 0 or 1 disables it
	ScaleFactor float64
}

// DefaultConfig returns settings for the East China Sea area
func DefaultConfig() Config {
	return Config{
		Area:              types.TargetArea{MinLat: 29.40, MaxLat: 31.29, MinLon: 121.20, MaxLon: 123.40},
		Night:             night.DefaultConfig(),
		Cloud:             cloud.DefaultConfig(),
		Blueness:          blueness.DefaultConfig(),
		ThickCloudPercent: 70,
		ScaleFactor:       1,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if err := c.Area.Validate(); err != nil {
		return err
	}
	if err := c.Cloud.Validate(); err != nil {
		return fmt.Errorf("cloud: %w", err)
	}
	if err := c.Blueness.Validate(); err != nil {
		return fmt.Errorf("blueness: %w", err)
	}
	if c.ThickCloudPercent < 0 || c.ThickCloudPercent > 100 {
		return fmt.Errorf("thick cloud percent must be within [0, 100], got %g", c.ThickCloudPercent)
	}
	if c.ScaleFactor < 0 || c.ScaleFactor > 8 || math.IsNaN(c.ScaleFactor) {
		return fmt.Errorf("scale factor must be within [0, 8], got %g", c.ScaleFactor)
	}
	return nil
}

// ArtifactSink receives intermediate images as they are produced.
// Submit must not block the pipeline.
type ArtifactSink interface {
	Submit(a types.Artifact)
}

// Input is one image to analyse
type Input struct {
	Image image.Image
	// Transform maps pixel coordinates relative to Image.Bounds().Min
	Transform       geo.Transform
	Timestamp       time.Time
	OutputDirectory string
}

// Output is the result of one run
type Output struct {
	Result    types.AnalysisResult
	Artifacts []types.Artifact
	Stage     Stage
	// Err is the failure behind an ERROR result
	Err error
}

// Option customises an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = metrics }
}

// WithSink forwards every artifact to sink
func WithSink(sink ArtifactSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithMaskBuilder replaces the mask builder, usually with a *mask.Cache
func WithMaskBuilder(b mask.Builder) Option {
	return func(o *Orchestrator) { o.masks = b }
}

// WithThinCloud restricts which cloud pixels are removed before the blueness stage
func WithThinCloud(fn cloud.ThinCloudFunc) Option {
	return func(o *Orchestrator) { o.thin = fn }
}

// Orchestrator runs the analysis stages in order
type Orchestrator struct {
	config   Config
	land     geo.Land
	masks    mask.Builder
	night    *night.Detector
	cloud    *cloud.Analyzer
	blueness *blueness.Calculator
	thin     cloud.ThinCloudFunc
	sink     ArtifactSink
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// New creates an Orchestrator for a land source. The land polygons are
// validated here so a bad source fails at startup rather than on every run.
func New(config Config, land geo.Land, opts ...Option) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if err := mask.ValidatePolygons(land.Polygons); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		config:   config,
		land:     land,
		masks:    mask.NewMasker(),
		night:    night.NewWithConfig(config.Night),
		cloud:    cloud.NewWithConfig(config.Cloud),
		blueness: blueness.NewWithConfig(config.Blueness),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the orchestrator settings
func (o *Orchestrator) Config() Config {
	return o.config
}

// Run analyses one image. It always returns exactly one result; failures and
// panics become StatusError with no metrics.
func (o *Orchestrator) Run(in Input) (out Output) {
	start := time.Now()
	out.Stage = StageRaw

	defer func() {
		if r := recover(); r != nil {
			o.fail(&out, fmt.Errorf("panic in stage %s: %v", out.Stage, r))
		}
		if out.Err == nil && !out.Stage.Terminal() {
			o.fail(&out, fmt.Errorf("run stopped in non-terminal stage %s", out.Stage))
		}
		if out.Err == nil {
			if err := out.Result.Validate(); err != nil {
				o.fail(&out, fmt.Errorf("inconsistent result: %w", err))
			}
		}
		o.finish(&out, start)
	}()

	out.Result = types.AnalysisResult{
		Timestamp:       in.Timestamp,
		OutputDirectory: in.OutputDirectory,
	}
	if err := o.run(in, &out); err != nil {
		o.fail(&out, err)
	}
	return out
}

func (o *Orchestrator) run(in Input, out *Output) error {
	if in.Image == nil {
		return errors.New("input image is nil")
	}
	if in.Transform == nil {
		return errors.New("input geotransform is nil")
	}
	if err := imageio.ValidateImage(in.Image, 1); err != nil {
		return err
	}

	// Crop to the target area
	tile, t, err := o.crop(in.Image, in.Transform)
	if err != nil {
		return fmt.Errorf("crop: %w", err)
	}
	o.emit(out, in, ArtifactCropped, tile)
	info := imageio.GetImageInfo(tile)
	o.logger.Debug("cropped tile", zap.Int("width", info.Width), zap.Int("height", info.Height))

	// Build the sea mask for the tile grid
	w, h := tile.Bounds().Dx(), tile.Bounds().Dy()
	sea, err := o.masks.BuildMask(o.config.Area, o.land, t, w, h)
	if err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	if err := sea.CheckImage(tile); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	out.Stage = StageCroppedAndMasked
	o.emit(out, in, ArtifactGeoMask, imageio.MaskOverlay(tile, sea, imageio.LandTint, 0.6))
	o.emit(out, in, ArtifactSeaOnly, sea.Apply(tile))

	if sea.Count() == 0 {
		return fmt.Errorf("mask: %w", types.ErrEmptySeaRegion)
	}

	// Night gate
	if o.night.SunDown(o.config.Area, in.Timestamp) {
		o.logger.Debug("sun below horizon", zap.Time("timestamp", in.Timestamp))
		out.Stage = StageNight
		out.Result.Status = types.StatusNight
		return nil
	}
	isNight, err := o.night.IsNight(tile, sea)
	if err != nil {
		return fmt.Errorf("night: %w", err)
	}
	if isNight {
		out.Stage = StageNight
		out.Result.Status = types.StatusNight
		return nil
	}

	// Cloud gate
	clouds, err := o.cloud.Analyze(tile, sea, o.config.ThickCloudPercent, o.thin)
	if err != nil {
		return fmt.Errorf("cloud: %w", err)
	}
	out.Stage = StageCloudChecked
	o.emit(out, in, ArtifactCloudMask, clouds.CloudMask.Gray())

	if clouds.Aborted {
		out.Stage = StageCloudy
		out.Result.Status = types.StatusCloudy
		out.Result.CloudCoverPercent = types.Percent(clouds.CloudCoverPercent)
		return nil
	}

	out.Stage = StageCleaned
	o.emit(out, in, ArtifactCleaned, clouds.Cleaned.Apply(tile))

	// Blueness
	percent, err := o.blueness.Compute(tile, clouds.Cleaned)
	if err != nil {
		return fmt.Errorf("blueness: %w", err)
	}
	scores, err := o.blueness.ScoreImage(tile, clouds.Cleaned)
	if err != nil {
		o.logger.Warn("failed to render blueness scores", zap.Error(err))
	} else {
		o.emit(out, in, ArtifactBlueness, scores)
	}

	out.Stage = StageBluenessComputed
	out.Result.Status = types.StatusOK
	out.Result.BluenessPercent = types.Percent(percent)
	out.Result.CloudCoverPercent = types.Percent(clouds.CloudCoverPercent)
	return nil
}

// crop cuts the target area out of img and applies the optional upscale.
// The returned transform addresses the returned image.
func (o *Orchestrator) crop(img image.Image, t geo.Transform) (image.Image, geo.Transform, error) {
	b := img.Bounds()
	grid := image.Rect(0, 0, b.Dx(), b.Dy())

	window, err := geo.Window(t, o.config.Area, grid)
	if err != nil {
		return nil, nil, err
	}

	var tile image.Image = img
	if window != grid || b.Min != (image.Point{}) {
		tile = imaging.Crop(img, window.Add(b.Min))
		t = geo.Shift(t, float64(window.Min.X), float64(window.Min.Y))
	}

	sf := o.config.ScaleFactor
	if sf > 0 && sf != 1 {
		w := int(math.Round(float64(window.Dx()) * sf))
		h := int(math.Round(float64(window.Dy()) * sf))
		if w < 1 || h < 1 {
			return nil, nil, fmt.Errorf("scale factor %g collapses the %dx%d tile", sf, window.Dx(), window.Dy())
		}
		// nearest neighbour keeps every output pixel a copy of one source
		// pixel, so land never bleeds into sea
		tile = imaging.Resize(tile, w, h, imaging.NearestNeighbor)
		t = geo.Scale(t, float64(w)/float64(window.Dx()), float64(h)/float64(window.Dy()))
	}
	return tile, t, nil
}

func (o *Orchestrator) emit(out *Output, in Input, name string, img image.Image) {
	a := types.Artifact{
		Index:     len(out.Artifacts) + 1,
		Name:      name,
		Image:     img,
		Timestamp: in.Timestamp,
		Directory: in.OutputDirectory,
	}
	out.Artifacts = append(out.Artifacts, a)
	if o.sink != nil {
		o.sink.Submit(a)
	}
}

func (o *Orchestrator) fail(out *Output, err error) {
	o.logger.Error("pipeline run failed",
		zap.Error(err),
		zap.Stringer("stage", out.Stage),
		zap.Time("timestamp", out.Result.Timestamp),
	)
	out.Err = err
	out.Stage = StageFailed
	out.Result.Status = types.StatusError
	out.Result.BluenessPercent = nil
	out.Result.CloudCoverPercent = nil
	out.Result.Detail = err.Error()
}

func (o *Orchestrator) finish(out *Output, start time.Time) {
	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.ObserveResult(out.Result, elapsed.Seconds())
	}

	fields := []zap.Field{
		zap.Time("timestamp", out.Result.Timestamp),
		zap.String("status", string(out.Result.Status)),
		zap.Stringer("stage", out.Stage),
		zap.Int("artifacts", len(out.Artifacts)),
		zap.Duration("elapsed", elapsed),
	}
	if p := out.Result.BluenessPercent; p != nil {
		fields = append(fields, zap.Float64("blueness_percent", *p))
	}
	if p := out.Result.CloudCoverPercent; p != nil {
		fields = append(fields, zap.Float64("cloud_cover_percent", *p))
	}
	o.logger.Info("pipeline run finished", fields...)
}
