package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dga-topology/analytics"
	"dga-topology/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	changePointsDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_points_detected_total",
			Help: "Total number of topological change points flagged",
		},
		[]string{"unit_id"},
	)
)

// Submitter queues analysis jobs.
type Submitter interface {
	Submit(job analytics.Job) error
}

// AnalysisHandler serves analysis submissions and stored results.
type AnalysisHandler struct {
	store    analytics.ResultStore
	engine   Submitter
	defaults analytics.Options
	logger   *slog.Logger
}

// OnChangePoint counts flagged change points per unit. Pass it to the engine.
func OnChangePoint(unitID string, _ models.ChangePoint) {
	changePointsDetectedTotal.WithLabelValues(unitID).Inc()
}

func NewAnalysisHandler(store analytics.ResultStore, engine Submitter, defaults analytics.Options, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AnalysisHandler{
		store:    store,
		engine:   engine,
		defaults: defaults,
		logger:   logger,
	}
}

func (h *AnalysisHandler) observe(r *http.Request, endpoint string, status int, start time.Time) {
	requestDurationSeconds.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
}

func (h *AnalysisHandler) fail(w http.ResponseWriter, r *http.Request, endpoint string, status int, msg string, start time.Time) {
	h.observe(r, endpoint, status, start)
	http.Error(w, msg, status)
}

// HandleAnalyze accepts a series and queues it for analysis.
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/analyze"
	start := time.Now()

	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON format", start)
		return
	}

	if err := req.Validate(); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, err.Error(), start)
		return
	}

	series, err := req.Series()
	if err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, err.Error(), start)
		return
	}

	opts := applyRequestConfig(h.defaults, req.Options)
	if err := opts.Validate(); err != nil {
		h.fail(w, r, endpoint, http.StatusBadRequest, err.Error(), start)
		return
	}

	if err := h.engine.Submit(analytics.Job{UnitID: req.UnitID, Series: series, Options: opts}); err != nil {
		switch {
		case errors.Is(err, analytics.ErrQueueFull), errors.Is(err, analytics.ErrEngineClosed):
			h.fail(w, r, endpoint, http.StatusServiceUnavailable, err.Error(), start)
			return
		case errors.Is(err, models.ErrInvalidConfig):
			h.fail(w, r, endpoint, http.StatusBadRequest, err.Error(), start)
			return
		}
		h.fail(w, r, endpoint, http.StatusInternalServerError, err.Error(), start)
		return
	}

	h.logger.Debug("analysis queued", "unit_id", req.UnitID, "rows", series.Len())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "accepted",
		"unit_id": req.UnitID,
	})

	h.observe(r, endpoint, http.StatusAccepted, start)
}

// HandleGetAnalysis returns the latest stored result of a unit.
func (h *AnalysisHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/analysis"
	start := time.Now()

	unitID := r.URL.Query().Get("unit_id")
	if unitID == "" {
		h.fail(w, r, endpoint, http.StatusBadRequest, "unit_id parameter is required", start)
		return
	}

	result, err := h.store.GetAnalysis(r.Context(), unitID)
	if err != nil {
		h.fail(w, r, endpoint, http.StatusInternalServerError, "Failed to get analysis: "+err.Error(), start)
		return
	}
	if result == nil {
		h.fail(w, r, endpoint, http.StatusNotFound, "no analysis for unit "+unitID, start)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)

	h.observe(r, endpoint, http.StatusOK, start)
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func applyRequestConfig(opts analytics.Options, rc *models.RequestConfig) analytics.Options {
	if rc == nil {
		return opts
	}

	if rc.WindowSize != 0 {
		opts.WindowSize = rc.WindowSize
	}
	if rc.Step != 0 {
		opts.Step = rc.Step
	}
	if rc.MaxDim != nil {
		opts.MaxDim = *rc.MaxDim
	}
	if rc.Difference != nil {
		opts.Difference = *rc.Difference
	}
	if rc.Alignment != "" {
		opts.Alignment = models.Alignment(rc.Alignment)
	}
	if rc.EmptyPolicy != "" {
		opts.EmptyPolicy = analytics.EmptyPolicy(rc.EmptyPolicy)
	}

	return opts
}
