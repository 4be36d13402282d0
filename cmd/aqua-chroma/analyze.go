package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	aquachroma "github.com/menta2k/aqua-chroma"
	"github.com/menta2k/aqua-chroma/internal/artifacts"
	"github.com/menta2k/aqua-chroma/internal/utils"
	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

type analyzeOptions struct {
	outDir     string
	projection string
	noImages   bool
}

// caseResult is one line of results.json
type caseResult struct {
	File   string               `json:"file"`
	Result types.AnalysisResult `json:"result"`
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <image|directory>",
		Short: "Analyse local tiles and write per-image artifacts",
		Long: `Analyse one image or every image under a directory.

Each image is placed using source.bounds and the projection from the
configuration. Artifacts for an image are written to <out>/<image name>/ and
all results are collected in <out>/results.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "out", "output directory")
	cmd.Flags().StringVar(&opts.projection, "projection", "", "override source.projection (mercator, equirectangular)")
	cmd.Flags().BoolVar(&opts.noImages, "no-images", false, "skip writing artifact images")
	return cmd
}

func runAnalyze(cmd *cobra.Command, input string, opts analyzeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.projection != "" {
		cfg.Source.Projection = opts.projection
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	files, err := inputFiles(input, opts.outDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", input)
	}

	land, err := geo.LoadLandFile(cfg.Land.Path)
	if err != nil {
		return err
	}

	var sink pipeline.ArtifactSink = artifacts.Discard{}
	if !opts.noImages {
		// every artifact of a batch must land on disk
		writer := artifacts.NewWriter(artifacts.Config{
			Format:    cfg.Output.Format,
			Quality:   cfg.Output.Quality,
			QueueSize: len(files) * 8,
		}, logger.Named("artifacts"), nil)
		defer writer.Close()
		sink = writer
	}

	analyzer, err := aquachroma.NewWithConfig(cfg.PipelineConfig(), land,
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithSink(sink),
		pipeline.WithMaskBuilder(mask.NewCache(mask.NewMasker(), cfg.Pipeline.MaskCacheSize, nil)),
	)
	if err != nil {
		return err
	}

	if err := utils.EnsureDir(opts.outDir); err != nil {
		return err
	}

	results := make([]caseResult, 0, len(files))
	for _, file := range files {
		ts := time.Now().UTC()
		if info, err := os.Stat(file); err == nil {
			ts = info.ModTime().UTC().Truncate(time.Second)
		}

		out, err := analyzer.AnalyzeFile(file, aquachroma.FileOptions{
			Projection:      cfg.Source.Projection,
			Bounds:          cfg.Source.Bounds,
			Timestamp:       ts,
			OutputDirectory: filepath.Join(opts.outDir, utils.SanitizeFilename(utils.BaseName(file))),
		})
		if err != nil {
			logger.Warn("skipping image", zap.String("file", file), zap.Error(err))
			continue
		}

		results = append(results, caseResult{File: file, Result: out.Result})
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-7s %s\n", filepath.Base(file), out.Result.Status, summary(out.Result))
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	path := filepath.Join(opts.outDir, "results.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Info("analysis complete", zap.Int("images", len(results)), zap.String("results", path))
	return nil
}

func inputFiles(input, outDir string) ([]string, error) {
	if utils.FileExists(input) {
		return []string{input}, nil
	}
	if utils.DirExists(input) {
		return utils.ListImageFiles(input, outDir)
	}
	return nil, fmt.Errorf("input %s does not exist", input)
}

func summary(r types.AnalysisResult) string {
	switch {
	case r.BluenessPercent != nil:
		return fmt.Sprintf("blueness=%.2f%% cloud=%.2f%%", *r.BluenessPercent, *r.CloudCoverPercent)
	case r.CloudCoverPercent != nil:
		return fmt.Sprintf("cloud=%.2f%%", *r.CloudCoverPercent)
	case r.Detail != "":
		return r.Detail
	}
	return ""
}
