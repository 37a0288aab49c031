package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/domain/aggregate"
	"tifo/internal/services/ingestion"
	"tifo/internal/workers"
	"tifo/pkg/errors"
)

type fakeAggregates struct {
	stats aggregate.Stats
	trend aggregate.Trend
	err   error
}

func (f *fakeAggregates) Stats(_ context.Context, scope aggregate.Scope, scopeID string, _ aggregate.Window) (aggregate.Stats, error) {
	if f.err != nil {
		return aggregate.Stats{}, f.err
	}
	out := f.stats
	out.Scope = scope
	out.ScopeID = scopeID
	return out, nil
}

func (f *fakeAggregates) Trend(_ context.Context, _ aggregate.Scope, _ string, _ time.Duration) (aggregate.Trend, error) {
	if f.err != nil {
		return aggregate.Trend{}, f.err
	}
	return f.trend, nil
}

type fakeIngest struct {
	report ingestion.Report
	query  string
}

func (f *fakeIngest) RunOnce(_ context.Context, query string) (ingestion.Report, error) {
	f.query = query
	return f.report, nil
}

func testHandler(t *testing.T) (*AppHandler, *fakeAggregates, *fakeIngest, *workers.RefreshManager) {
	t.Helper()

	manager := workers.NewRefreshManager(workers.RefreshConfig{
		NormalInterval:  time.Hour, // ticks never fire during the test
		BoostedInterval: time.Minute,
	}, func(ctx context.Context, contextID string) (int, error) {
		return 0, nil
	})
	t.Cleanup(manager.Stop)

	aggregates := &fakeAggregates{
		stats: aggregate.Stats{TotalPosts: 4, AverageScore: 62.5},
		trend: aggregate.Trend{Direction: aggregate.TrendUp, Delta: 5.5},
	}
	ingest := &fakeIngest{report: ingestion.Report{RunID: "r1", PostsIngested: 3}}

	return NewAppHandler(aggregates, ingest, manager), aggregates, ingest, manager
}

func serve(h *AppHandler, method, target, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleAggregates(t *testing.T) {
	h, _, _, _ := testHandler(t)

	rec := serve(h, http.MethodGet, "/aggregates?scope=club&id=arsenal&minutes=30", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats aggregate.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, aggregate.ScopeClub, stats.Scope)
	assert.Equal(t, "arsenal", stats.ScopeID)
	assert.Equal(t, 4, stats.TotalPosts)
}

func TestHandleAggregates_BadParams(t *testing.T) {
	h, _, _, _ := testHandler(t)

	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/aggregates?scope=galaxy&id=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/aggregates?scope=club", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/aggregates?scope=club&id=a&minutes=-5", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodPost, "/aggregates?scope=club&id=a", "{}").Code)
}

func TestHandleAggregates_StoreDown(t *testing.T) {
	h, aggregates, _, _ := testHandler(t)
	aggregates.err = errors.ErrUnavailable

	rec := serve(h, http.MethodGet, "/aggregates?scope=club&id=arsenal", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleTrend(t *testing.T) {
	h, _, _, _ := testHandler(t)

	rec := serve(h, http.MethodGet, "/trend?scope=club&id=arsenal&minutes=60", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var trend aggregate.Trend
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trend))
	assert.Equal(t, aggregate.TrendUp, trend.Direction)
}

func TestContextLifecycleOverHTTP(t *testing.T) {
	h, _, _, manager := testHandler(t)

	rec := serve(h, http.MethodPost, "/contexts/activate", `{"context_id":"club:arsenal"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var state workers.RefreshState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, workers.ModeNormal, state.Mode)

	rec = serve(h, http.MethodPost, "/contexts/activate", `{"context_id":"club:arsenal"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, http.MethodGet, "/contexts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var states []workers.RefreshState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	require.Len(t, states, 1)

	rec = serve(h, http.MethodPost, "/contexts/deactivate", `{"context_id":"club:arsenal"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodPost, "/contexts/deactivate", `{"context_id":"club:arsenal"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, active := manager.State("club:arsenal")
	assert.False(t, active)
}

func TestHandleIngest(t *testing.T) {
	h, _, ingest, _ := testHandler(t)

	rec := serve(h, http.MethodPost, "/ingest", `{"query":"arsenal"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ingestion.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.PostsIngested)
	assert.Equal(t, "arsenal", ingest.query)

	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodPost, "/ingest", `{}`).Code)
}
