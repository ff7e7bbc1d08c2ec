package routes

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/observability/metrics"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

type MetricsHandler struct {
	engine  *pipeline.Engine
	started time.Time
}

type HealthStatus struct {
	Status    string `json:"status"`
	DatasetID string `json:"dataset_id,omitempty"`
	Records   int    `json:"records"`
	Uptime    string `json:"uptime"`
}

func NewMetricsHandler(engine *pipeline.Engine) *MetricsHandler {
	return &MetricsHandler{engine: engine, started: time.Now()}
}

func (h *MetricsHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.handlePrometheus).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/stats", h.handleStats).Methods(http.MethodGet)
}

func (h *MetricsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	}
	if current, err := h.engine.Current(); err == nil {
		status.DatasetID = current.ID
		status.Records = current.Records
	}
	writeJSON(w, status)
}

func (h *MetricsHandler) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Stats()
	metrics.ObserveMemo(stats.Hits, stats.Misses, stats.Entries)
	metrics.WritePrometheus(w)
}

func (h *MetricsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Stats())
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Error("failed to write json response")
	}
}
