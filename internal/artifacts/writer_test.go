package artifacts

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/menta2k/aqua-chroma/internal/observability"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

func artifact(dir string, index int, name string) types.Artifact {
	return types.Artifact{
		Index:     index,
		Name:      name,
		Image:     image.NewGray(image.Rect(0, 0, 4, 4)),
		Timestamp: time.Unix(0, 0),
		Directory: dir,
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "01_cropped.png", Filename(types.Artifact{Index: 1, Name: "cropped"}, "png"))
	assert.Equal(t, "12_cloud-mask.jpg", Filename(types.Artifact{Index: 12, Name: "cloud-mask"}, "jpeg"))
	assert.Equal(t, "03_a_b.webp", Filename(types.Artifact{Index: 3, Name: "a/b"}, "webp"))
}

func TestWriterWritesInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	metrics := observability.NewMetricsForTesting()
	w := NewWriter(Config{Format: "png", Quality: 90, QueueSize: 8}, zap.NewNop(), metrics)

	w.Submit(artifact(dir, 1, "cropped"))
	w.Submit(artifact(dir, 2, "geo-mask"))
	w.Submit(artifact(dir, 3, "sea-only"))
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"01_cropped.png", "02_geo-mask.png", "03_sea-only.png"}, names)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ArtifactsWritten))
}

func TestWriterIgnoresArtifactsWithoutDirectory(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	w := NewWriter(Config{QueueSize: 1}, nil, metrics)
	w.Submit(artifact("", 1, "cropped"))
	require.NoError(t, w.Close())

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ArtifactsWritten))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ArtifactsDropped))
}

func TestWriterDropsAfterClose(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	w := NewWriter(Config{QueueSize: 1}, nil, metrics)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	w.Submit(artifact(t.TempDir(), 1, "cropped"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ArtifactsDropped))
}

func TestWriterNeverBlocks(t *testing.T) {
	dir := t.TempDir()
	metrics := observability.NewMetricsForTesting()
	w := NewWriter(Config{QueueSize: 1}, nil, metrics)

	done := make(chan struct{})
	go func() {
		for i := 1; i <= 200; i++ {
			w.Submit(artifact(dir, i, "tile"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked")
	}
	require.NoError(t, w.Close())

	written := testutil.ToFloat64(metrics.ArtifactsWritten)
	dropped := testutil.ToFloat64(metrics.ArtifactsDropped)
	assert.Equal(t, 200.0, written+dropped)
}

func TestWriterCountsWriteErrors(t *testing.T) {
	// a file where the directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	metrics := observability.NewMetricsForTesting()
	w := NewWriter(Config{QueueSize: 4}, nil, metrics)
	w.Submit(artifact(filepath.Join(blocker, "run"), 1, "cropped"))
	require.NoError(t, w.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ArtifactErrors))
}

func TestDiscard(t *testing.T) {
	Discard{}.Submit(artifact("x", 1, "cropped"))
}
