package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/aqua-chroma/pkg/blueness"
	"github.com/menta2k/aqua-chroma/pkg/cloud"
	"github.com/menta2k/aqua-chroma/pkg/night"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/source"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Area     types.TargetArea `json:"area" yaml:"area"`
	Land     LandConfig       `json:"land" yaml:"land"`
	Night    night.Config     `json:"night" yaml:"night"`
	Cloud    cloud.Config     `json:"cloud" yaml:"cloud"`
	Blueness blueness.Config  `json:"blueness" yaml:"blueness"`
	Pipeline PipelineConfig   `json:"pipeline" yaml:"pipeline"`
	Source   source.Config    `json:"source" yaml:"source"`
	Output   OutputConfig     `json:"output" yaml:"output"`
	Store    StoreConfig      `json:"store" yaml:"store"`
	Schedule ScheduleConfig   `json:"schedule" yaml:"schedule"`
	Server   ServerConfig     `json:"server" yaml:"server"`
	Log      LogConfig        `json:"log" yaml:"log"`
}

// LandConfig points at the GeoJSON land polygons
type LandConfig struct {
	Path string `json:"path" yaml:"path"`
}

// PipelineConfig holds orchestration settings
type PipelineConfig struct {
	ThickCloudPercent float64 `json:"thick_cloud_percent" yaml:"thick_cloud_percent"`
	ScaleFactor       float64 `json:"scale_factor" yaml:"scale_factor"`
	MaskCacheSize     int     `json:"mask_cache_size" yaml:"mask_cache_size"`
}

// OutputConfig holds debug image settings
type OutputConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Format    string `json:"format" yaml:"format"`
	Quality   int    `json:"quality" yaml:"quality"`
	QueueSize int    `json:"queue_size" yaml:"queue_size"`
}

// StoreConfig holds result store settings
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ScheduleConfig holds periodic run settings
type ScheduleConfig struct {
	Interval   Duration `json:"interval" yaml:"interval"`
	RunOnStart bool     `json:"run_on_start" yaml:"run_on_start"`
	Timeout    Duration `json:"timeout" yaml:"timeout"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Addr         string   `json:"addr" yaml:"addr"`
	ReadTimeout  Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// Default returns a configuration with default values
func Default() *Config {
	area := types.TargetArea{MinLat: 29.40, MaxLat: 31.29, MinLon: 121.20, MaxLon: 123.40}
	return &Config{
		Area:     area,
		Land:     LandConfig{Path: "./data/land.geojson"},
		Night:    night.DefaultConfig(),
		Cloud:    cloud.DefaultConfig(),
		Blueness: blueness.DefaultConfig(),
		Pipeline: PipelineConfig{
			ThickCloudPercent: 70,
			ScaleFactor:       1,
			MaskCacheSize:     4,
		},
		Source: source.Config{
			Location:   "./data/{timestamp}.png",
			Projection: source.ProjectionMercator,
			Bounds:     area,
			OutputRoot: "./output",
		},
		Output: OutputConfig{
			Enabled:   true,
			Format:    "png",
			Quality:   90,
			QueueSize: 64,
		},
		Store: StoreConfig{Path: "./aqua-chroma.db"},
		Schedule: ScheduleConfig{
			Interval:   Duration(10 * time.Minute),
			RunOnStart: true,
			Timeout:    Duration(2 * time.Minute),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(2 * time.Minute),
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file, chosen by
// extension. Fields missing from the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if isYAML(filename) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration as JSON or YAML, chosen by extension
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(filename) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}

	if c.Night.LuminanceThreshold < 0 || c.Night.LuminanceThreshold > 255 {
		return fmt.Errorf("night.luminance_threshold must be between 0 and 255")
	}

	if c.Pipeline.MaskCacheSize < 1 {
		return fmt.Errorf("pipeline.mask_cache_size must be positive")
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}

	switch strings.ToLower(c.Output.Format) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.format must be png, jpg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	if c.Output.QueueSize < 1 {
		return fmt.Errorf("output.queue_size must be positive")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	if c.Schedule.Interval.Duration() < time.Second {
		return fmt.Errorf("schedule.interval must be at least 1s")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	return nil
}

// PipelineConfig derives the immutable pipeline configuration
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Area:              c.Area,
		Night:             c.Night,
		Cloud:             c.Cloud,
		Blueness:          c.Blueness,
		ThickCloudPercent: c.Pipeline.ThickCloudPercent,
		ScaleFactor:       c.Pipeline.ScaleFactor,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "aqua-chroma", "config.yaml")
}
