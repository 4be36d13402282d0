package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{true, false} {
		logger, err := NewLogger("debug", dev)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}
}

func TestObserveResult(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveResult(types.AnalysisResult{
		Status:            types.StatusOK,
		BluenessPercent:   types.Percent(61.5),
		CloudCoverPercent: types.Percent(12),
	}, 0.2)
	m.ObserveResult(types.AnalysisResult{Status: types.StatusNight}, 0.1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("NIGHT")))
	assert.Equal(t, 61.5, testutil.ToFloat64(m.Blueness))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.CloudCover))
}

func TestObserveMaskCache(t *testing.T) {
	m := NewMetricsForTesting()
	m.ObserveMaskCache(false)
	m.ObserveMaskCache(true)
	m.ObserveMaskCache(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MaskCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MaskCache.WithLabelValues("miss")))
}
