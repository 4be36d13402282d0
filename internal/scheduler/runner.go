// Package scheduler triggers pipeline runs on a fixed interval and records
// their results.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/menta2k/aqua-chroma/internal/observability"
	"github.com/menta2k/aqua-chroma/pkg/pipeline"
	"github.com/menta2k/aqua-chroma/pkg/source"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// ErrAlreadyProcessed is returned by Tick when the current slot has a result
var ErrAlreadyProcessed = errors.New("timestamp already processed")

// DebugDirectory is the subdirectory of a run directory that on-demand
// analyses write their artifacts to
const DebugDirectory = "debug"

// Processor runs the pipeline on one input
type Processor interface {
	Run(in pipeline.Input) pipeline.Output
}

// ResultStore records results
type ResultStore interface {
	Append(ctx context.Context, r types.AnalysisResult) error
	Processed(ctx context.Context, ts time.Time) (bool, error)
}

// Config holds runner settings
type Config struct {
	Interval   time.Duration
	Timeout    time.Duration
	RunOnStart bool
}

// Option customises a Runner
type Option func(*Runner)

// WithClock replaces the clock used to compute run timestamps
func WithClock(clock clockwork.Clock) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = metrics }
}

// Runner fetches a tile for each interval slot, runs the pipeline on it and
// appends the result. A slot is processed at most once.
type Runner struct {
	config  Config
	source  source.Source
	proc    Processor
	store   ResultStore
	clock   clockwork.Clock
	logger  *zap.Logger
	metrics *observability.Metrics

	cron  *cron.Cron
	mu    sync.Mutex
	ready atomic.Bool
	wg    sync.WaitGroup
}

// NewRunner creates a Runner
func NewRunner(config Config, src source.Source, proc Processor, store ResultStore, opts ...Option) (*Runner, error) {
	if config.Interval < time.Second {
		return nil, fmt.Errorf("interval must be at least 1s, got %s", config.Interval)
	}
	if src == nil || proc == nil || store == nil {
		return nil, fmt.Errorf("source, processor and store are required")
	}

	r := &Runner{
		config: config,
		source: src,
		proc:   proc,
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Slot returns the run timestamp for t: t truncated to the interval, in UTC
func (r *Runner) Slot(t time.Time) time.Time {
	return t.UTC().Truncate(r.config.Interval)
}

// Ready reports whether the first scheduled run has completed
func (r *Runner) Ready() bool {
	return r.ready.Load()
}

// Tick processes the current slot. It returns ErrAlreadyProcessed when the
// slot has a result, and the fetch error when the source fails; in both cases
// nothing is recorded.
func (r *Runner) Tick(ctx context.Context) (types.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	ts := r.Slot(r.clock.Now())
	logger := r.logger.With(zap.Time("timestamp", ts))

	done, err := r.store.Processed(ctx, ts)
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("failed to check store: %w", err)
	}
	if done {
		logger.Debug("slot already processed")
		return types.AnalysisResult{}, ErrAlreadyProcessed
	}

	in, err := r.source.Fetch(ctx, ts)
	if err != nil {
		logger.Warn("failed to fetch image", zap.Error(err))
		if r.metrics != nil {
			r.metrics.FetchErrors.Inc()
		}
		return types.AnalysisResult{}, fmt.Errorf("fetch: %w", err)
	}

	out := r.proc.Run(in)
	if err := r.store.Append(ctx, out.Result); err != nil {
		return out.Result, fmt.Errorf("failed to record result: %w", err)
	}
	return out.Result, nil
}

// Analyze fetches and analyses the tile for ts without recording the result.
// It waits for a running Tick and writes artifacts under the run's debug
// subdirectory.
func (r *Runner) Analyze(ctx context.Context, ts time.Time) (types.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	in, err := r.source.Fetch(ctx, ts.UTC())
	if err != nil {
		if r.metrics != nil {
			r.metrics.FetchErrors.Inc()
		}
		return types.AnalysisResult{}, fmt.Errorf("fetch: %w", err)
	}
	if in.OutputDirectory != "" {
		in.OutputDirectory = filepath.Join(in.OutputDirectory, DebugDirectory)
	}
	return r.proc.Run(in).Result, nil
}

// Start schedules Tick every interval and, if configured, runs it once immediately
func (r *Runner) Start(ctx context.Context) error {
	cl := cronLogger{r.logger.Sugar()}
	r.cron = cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))

	spec := fmt.Sprintf("@every %s", r.config.Interval)
	if _, err := r.cron.AddFunc(spec, func() { r.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule runs: %w", err)
	}
	r.cron.Start()
	r.logger.Info("scheduler started", zap.Duration("interval", r.config.Interval))

	if !r.config.RunOnStart {
		r.ready.Store(true)
		return nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.tick(ctx)
	}()
	return nil
}

// Stop stops scheduling and waits for a running tick to finish
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.wg.Wait()
	r.logger.Info("scheduler stopped")
}

func (r *Runner) tick(ctx context.Context) {
	defer r.ready.Store(true)

	result, err := r.Tick(ctx)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
	case err != nil:
		r.logger.Error("scheduled run failed", zap.Error(err))
	default:
		r.logger.Info("scheduled run recorded",
			zap.Time("timestamp", result.Timestamp),
			zap.String("status", string(result.Status)),
		)
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
