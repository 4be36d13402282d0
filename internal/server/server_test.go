package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/aqua-chroma/internal/store"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

type fakeAnalyzer struct {
	err error
	got time.Time
}

func (f *fakeAnalyzer) Analyze(_ context.Context, ts time.Time) (types.AnalysisResult, error) {
	f.got = ts
	if f.err != nil {
		return types.AnalysisResult{}, f.err
	}
	return types.AnalysisResult{Timestamp: ts, Status: types.StatusNight}, nil
}

var t0 = time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *store.ResultStore {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Append(ctx, types.AnalysisResult{
		Timestamp:         t0,
		Status:            types.StatusOK,
		BluenessPercent:   types.Percent(66.67),
		CloudCoverPercent: types.Percent(0),
	}))
	require.NoError(t, s.Append(ctx, types.AnalysisResult{
		Timestamp:         t0.Add(10 * time.Minute),
		Status:            types.StatusCloudy,
		CloudCoverPercent: types.Percent(75),
	}))
	return s
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	ready := false
	s := New(Config{Addr: ":0"}, seededStore(t), nil, func() bool { return ready }, nil)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/readyz").Code)

	ready = true
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(Config{}, seededStore(t), nil, nil, nil)
	rec := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListResults(t *testing.T) {
	s := New(Config{}, seededStore(t), nil, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/results")
	require.Equal(t, http.StatusOK, rec.Code)
	var results []types.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, types.StatusCloudy, results[0].Status)
	assert.Nil(t, results[0].BluenessPercent)

	rec = do(t, s, http.MethodGet, "/api/results?limit=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/results?limit=zero").Code)
}

func TestGetResult(t *testing.T) {
	s := New(Config{}, seededStore(t), nil, nil, nil)

	for _, path := range []string{
		"/api/results/1717214400",
		"/api/results/2024-06-01T04:00:00Z",
	} {
		rec := do(t, s, http.MethodGet, path)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var result types.AnalysisResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, types.StatusOK, result.Status)
		require.NotNil(t, result.BluenessPercent)
		assert.Equal(t, 66.67, *result.BluenessPercent)
	}

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/results/1").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/results/yesterday").Code)
}

func TestDebugAnalyze(t *testing.T) {
	st := seededStore(t)
	a := &fakeAnalyzer{}
	s := New(Config{}, st, a, nil, nil)

	rec := do(t, s, http.MethodPost, "/api/debug/analyze/1717300800")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Unix(1717300800, 0).UTC(), a.got)

	processed, err := st.Processed(context.Background(), a.got)
	require.NoError(t, err)
	assert.False(t, processed)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/api/debug/analyze/1717300800").Code)

	a.err = errors.New("no tile")
	assert.Equal(t, http.StatusBadGateway, do(t, s, http.MethodPost, "/api/debug/analyze/1717300800").Code)
}

func TestDebugAnalyzeDisabled(t *testing.T) {
	s := New(Config{}, seededStore(t), nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/api/debug/analyze/1").Code)
}
