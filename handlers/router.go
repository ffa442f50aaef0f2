package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers the API routes and the Prometheus endpoint.
func NewRouter(h *AnalysisHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/analyze", h.HandleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/analysis", h.HandleGetAnalysis).Methods(http.MethodGet)
	r.Path("/metrics").Handler(promhttp.Handler())

	return r
}
