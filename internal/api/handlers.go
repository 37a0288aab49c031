package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tifo/internal/domain/aggregate"
	"tifo/internal/services/ingestion"
	"tifo/internal/workers"
	"tifo/pkg/errors"
	"tifo/pkg/logger"
)

// defaultWindowMinutes is the aggregate window when the client does not
// pass one.
const defaultWindowMinutes = 60

// AggregateReader serves rollups and trends.
type AggregateReader interface {
	Stats(ctx context.Context, scope aggregate.Scope, scopeID string, window aggregate.Window) (aggregate.Stats, error)
	Trend(ctx context.Context, scope aggregate.Scope, scopeID string, windowSize time.Duration) (aggregate.Trend, error)
}

// IngestRunner triggers one pipeline pass on demand.
type IngestRunner interface {
	RunOnce(ctx context.Context, query string) (ingestion.Report, error)
}

// AppHandler exposes the application endpoints.
type AppHandler struct {
	aggregates AggregateReader
	ingest     IngestRunner
	refresh    *workers.RefreshManager
	now        func() time.Time
	log        *logger.Logger
}

// NewAppHandler creates the application handler.
func NewAppHandler(aggregates AggregateReader, ingest IngestRunner, refresh *workers.RefreshManager) *AppHandler {
	return &AppHandler{
		aggregates: aggregates,
		ingest:     ingest,
		refresh:    refresh,
		now:        time.Now,
		log:        logger.Get().With("component", "api"),
	}
}

// RegisterRoutes attaches the application endpoints to the mux.
func (h *AppHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/aggregates", h.handleAggregates)
	mux.HandleFunc("/trend", h.handleTrend)
	mux.HandleFunc("/contexts", h.handleContexts)
	mux.HandleFunc("/contexts/activate", h.handleActivate)
	mux.HandleFunc("/contexts/deactivate", h.handleDeactivate)
	mux.HandleFunc("/ingest", h.handleIngest)
}

func (h *AppHandler) handleAggregates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	scope, scopeID, minutes, ok := h.scopeParams(w, r)
	if !ok {
		return
	}

	to := h.now()
	window := aggregate.Window{From: to.Add(-time.Duration(minutes) * time.Minute), To: to}

	stats, err := h.aggregates.Stats(r.Context(), scope, scopeID, window)
	if err != nil {
		h.log.Errorw("Aggregate query failed", "scope", scope, "scope_id", scopeID, "error", err)
		writeError(w, http.StatusBadGateway, "aggregate unavailable")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *AppHandler) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	scope, scopeID, minutes, ok := h.scopeParams(w, r)
	if !ok {
		return
	}

	trend, err := h.aggregates.Trend(r.Context(), scope, scopeID, time.Duration(minutes)*time.Minute)
	if err != nil {
		h.log.Errorw("Trend query failed", "scope", scope, "scope_id", scopeID, "error", err)
		writeError(w, http.StatusBadGateway, "trend unavailable")
		return
	}

	writeJSON(w, http.StatusOK, trend)
}

func (h *AppHandler) handleContexts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, h.refresh.States())
}

type contextRequest struct {
	ContextID string `json:"context_id"`
}

func (h *AppHandler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.mutateContext(w, r, h.refresh.Activate)
}

func (h *AppHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.mutateContext(w, r, h.refresh.Deactivate)
}

func (h *AppHandler) mutateContext(w http.ResponseWriter, r *http.Request, op func(string) error) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ContextID == "" {
		writeError(w, http.StatusBadRequest, "context_id required")
		return
	}

	if err := op(req.ContextID); err != nil {
		switch {
		case errors.Is(err, errors.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "context already active")
		case errors.Is(err, errors.ErrNotFound):
			writeError(w, http.StatusNotFound, "context not active")
		default:
			h.log.Errorw("Context mutation failed", "context", req.ContextID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	state, _ := h.refresh.State(req.ContextID)
	writeJSON(w, http.StatusOK, state)
}

type ingestRequest struct {
	Query string `json:"query"`
}

func (h *AppHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	report, err := h.ingest.RunOnce(r.Context(), req.Query)
	if err != nil {
		h.log.Errorw("Manual ingest failed", "query", req.Query, "error", err)
		writeError(w, http.StatusBadGateway, "ingest failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *AppHandler) scopeParams(w http.ResponseWriter, r *http.Request) (aggregate.Scope, string, int, bool) {
	scope := aggregate.Scope(r.URL.Query().Get("scope"))
	scopeID := r.URL.Query().Get("id")

	if !scope.Valid() {
		writeError(w, http.StatusBadRequest, "scope must be club, match or platform")
		return "", "", 0, false
	}
	if scopeID == "" {
		writeError(w, http.StatusBadRequest, "id required")
		return "", "", 0, false
	}

	minutes := defaultWindowMinutes
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "minutes must be a positive integer")
			return "", "", 0, false
		}
		minutes = parsed
	}

	return scope, scopeID, minutes, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
