package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/aqua-chroma/internal/artifacts"
	"github.com/menta2k/aqua-chroma/internal/observability"
	"github.com/menta2k/aqua-chroma/internal/scheduler"
	"github.com/menta2k/aqua-chroma/internal/server"
	"github.com/menta2k/aqua-chroma/internal/store"
	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/mask"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/source"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled analysis and serve results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics := observability.NewMetrics()

			land, err := geo.LoadLandFile(cfg.Land.Path)
			if err != nil {
				return err
			}
			logger.Info("loaded land polygons",
				zap.String("path", cfg.Land.Path),
				zap.Int("polygons", len(land.Polygons)),
			)

			var sink pipeline.ArtifactSink = artifacts.Discard{}
			if cfg.Output.Enabled {
				writer := artifacts.NewWriter(artifacts.Config{
					Format:    cfg.Output.Format,
					Quality:   cfg.Output.Quality,
					QueueSize: cfg.Output.QueueSize,
				}, logger.Named("artifacts"), metrics)
				defer writer.Close()
				sink = writer
			}

			cache := mask.NewCache(mask.NewMasker(), cfg.Pipeline.MaskCacheSize, metrics.ObserveMaskCache)
			orch, err := pipeline.New(cfg.PipelineConfig(), land,
				pipeline.WithLogger(logger.Named("pipeline")),
				pipeline.WithMetrics(metrics),
				pipeline.WithSink(sink),
				pipeline.WithMaskBuilder(cache),
			)
			if err != nil {
				return err
			}

			src, err := source.NewStatic(cfg.Source, imageio.NewLoader())
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			runner, err := scheduler.NewRunner(scheduler.Config{
				Interval:   cfg.Schedule.Interval.Duration(),
				Timeout:    cfg.Schedule.Timeout.Duration(),
				RunOnStart: cfg.Schedule.RunOnStart,
			}, src, orch, st,
				scheduler.WithLogger(logger.Named("scheduler")),
				scheduler.WithMetrics(metrics),
			)
			if err != nil {
				return err
			}

			srv := server.New(server.Config{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
				WriteTimeout: cfg.Server.WriteTimeout.Duration(),
			}, st, runner, runner.Ready, logger.Named("http"))

			if err := runner.Start(ctx); err != nil {
				return err
			}
			defer runner.Stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
