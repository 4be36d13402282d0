// Package artifacts writes pipeline debug images to disk in the background.
package artifacts

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/menta2k/aqua-chroma/internal/observability"
	"github.com/menta2k/aqua-chroma/internal/utils"
	"github.com/menta2k/aqua-chroma/pkg/imageio"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Config holds writer settings
type Config struct {
	Format    string
	Quality   int
	QueueSize int
}

// Writer saves artifacts as NN_<name>.<ext> inside each artifact's directory.
// Submit never blocks; when the queue is full the artifact is dropped.
type Writer struct {
	config  Config
	logger  *zap.Logger
	metrics *observability.Metrics

	queue chan types.Artifact
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewWriter starts a writer goroutine. metrics may be nil.
func NewWriter(config Config, logger *zap.Logger, metrics *observability.Metrics) *Writer {
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	if config.Format == "" {
		config.Format = "png"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Writer{
		config:  config,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan types.Artifact, config.QueueSize),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Filename returns the file name used for an artifact
func Filename(a types.Artifact, format string) string {
	return fmt.Sprintf("%02d_%s.%s", a.Index, utils.SanitizeFilename(a.Name), imageio.Extension(format))
}

// Submit queues an artifact for writing. Artifacts without a directory are ignored.
func (w *Writer) Submit(a types.Artifact) {
	if a.Directory == "" || a.Image == nil {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.dropped(a, "writer closed")
		return
	}

	select {
	case w.queue <- a:
	default:
		w.dropped(a, "queue full")
	}
}

// Close stops accepting artifacts and waits until the queue is drained
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for a := range w.queue {
		if err := w.write(a); err != nil {
			w.logger.Warn("failed to write artifact",
				zap.Error(err),
				zap.String("name", a.Name),
				zap.String("directory", a.Directory),
			)
			if w.metrics != nil {
				w.metrics.ArtifactErrors.Inc()
			}
			continue
		}
		if w.metrics != nil {
			w.metrics.ArtifactsWritten.Inc()
		}
	}
}

func (w *Writer) write(a types.Artifact) error {
	if err := utils.EnsureDir(a.Directory); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	path := filepath.Join(a.Directory, Filename(a, w.config.Format))
	return imageio.SaveImage(a.Image, path, w.config.Format, w.config.Quality, false)
}

func (w *Writer) dropped(a types.Artifact, reason string) {
	w.logger.Warn("dropped artifact", zap.String("name", a.Name), zap.String("reason", reason))
	if w.metrics != nil {
		w.metrics.ArtifactsDropped.Inc()
	}
}

// Discard is a sink that ignores every artifact
type Discard struct{}

// Submit does nothing
func (Discard) Submit(types.Artifact) {}
