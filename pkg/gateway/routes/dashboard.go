package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/noshow/pkg/analytics/aggregate"
	"github.com/synaptica-ai/noshow/pkg/analytics/cohort"
	"github.com/synaptica-ai/noshow/pkg/analytics/dsl"
	"github.com/synaptica-ai/noshow/pkg/analytics/filter"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/common/models"
	"github.com/synaptica-ai/noshow/pkg/normalizer"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

type DashboardHandler struct {
	service *cohort.Service
	engine  *pipeline.Engine
}

func NewDashboardHandler(service *cohort.Service, engine *pipeline.Engine) *DashboardHandler {
	return &DashboardHandler{service: service, engine: engine}
}

func (h *DashboardHandler) Register(r *mux.Router) {
	r.HandleFunc("/dashboard", h.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/query", h.handleQuery).Methods(http.MethodPost)
	r.HandleFunc("/dashboard/verify", h.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/buckets/{dimension}", h.handleBuckets).Methods(http.MethodGet)
	r.HandleFunc("/insights", h.handleInsights).Methods(http.MethodGet)
	r.HandleFunc("/filters/options", h.handleOptions).Methods(http.MethodGet)
	r.HandleFunc("/export.csv", h.handleExportCSV).Methods(http.MethodGet)
	r.HandleFunc("/export.parquet", h.handleExportParquet).Methods(http.MethodGet)
	r.HandleFunc("/views", h.handleListViews).Methods(http.MethodGet)
	r.HandleFunc("/views", h.handleSaveView).Methods(http.MethodPost)
	r.HandleFunc("/views/{id}/run", h.handleRunView).Methods(http.MethodGet)
}

func (h *DashboardHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filters, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, err, "invalid filters")
		return
	}
	view, err := h.service.View(r.Context(), filters)
	if err != nil {
		writeError(w, err, "failed to compute dashboard")
		return
	}
	writeJSON(w, view)
}

func (h *DashboardHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req models.ViewQuery
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid view query", http.StatusBadRequest)
		return
	}
	if req.DSL == "" {
		http.Error(w, "dsl is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = "view-" + time.Now().UTC().Format("20060102-150405.000")
	}

	result, err := h.service.Execute(r.Context(), req)
	if err != nil {
		writeError(w, err, "failed to execute view query")
		return
	}
	writeJSON(w, result)
}

func (h *DashboardHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload struct {
		DSL string `json:"dsl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.service.VerifyDSL(payload.DSL); err != nil {
		writeError(w, err, "invalid query")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *DashboardHandler) handleBuckets(w http.ResponseWriter, r *http.Request) {
	filters, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, err, "invalid filters")
		return
	}
	dim := models.Dimension(mux.Vars(r)["dimension"])
	buckets, err := h.engine.Buckets(filters, dim)
	if err != nil {
		writeError(w, err, "failed to aggregate")
		return
	}
	writeJSON(w, map[string]interface{}{
		"dimension": dim,
		"filters":   filters,
		"buckets":   buckets,
	})
}

func (h *DashboardHandler) handleInsights(w http.ResponseWriter, r *http.Request) {
	filters, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, err, "invalid filters")
		return
	}
	insights := h.engine.Insights(filters)
	writeJSON(w, map[string]interface{}{
		"filters":  filters,
		"insights": insights,
		"messages": insights.Messages(),
	})
}

func (h *DashboardHandler) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Options())
}

func (h *DashboardHandler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	filters, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, err, "invalid filters")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.csv"`)
	if err := h.service.Export(r.Context(), filters, w); err != nil {
		logger.Log.WithError(err).Error("csv export failed")
	}
}

func (h *DashboardHandler) handleExportParquet(w http.ResponseWriter, r *http.Request) {
	filters, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, err, "invalid filters")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.parquet"`)
	if _, err := h.service.ExportParquet(r.Context(), filters, w); err != nil {
		logger.Log.WithError(err).Error("parquet export failed")
	}
}

func (h *DashboardHandler) handleListViews(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if val := r.URL.Query().Get("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	views, err := h.service.ListViews(r.Context(), limit)
	if err != nil {
		writeError(w, err, "failed to list views")
		return
	}
	writeJSON(w, map[string]interface{}{"views": views})
}

func (h *DashboardHandler) handleSaveView(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req models.SavedView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid view", http.StatusBadRequest)
		return
	}
	saved, err := h.service.SaveView(r.Context(), req)
	if err != nil {
		writeError(w, err, "failed to save view")
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (h *DashboardHandler) handleRunView(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunView(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, "failed to run view")
		return
	}
	writeJSON(w, result)
}

// writeError maps domain errors to status codes; anything unrecognised is
// logged and reported as 500 with the generic message.
func writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case normalizer.IsValidationError(err),
		errors.Is(err, dsl.ErrInvalidQuery),
		errors.Is(err, filter.ErrInvalidFilter),
		errors.Is(err, aggregate.ErrUnknownDimension):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, pipeline.ErrNoDataset),
		errors.Is(err, cohort.ErrViewNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cohort.ErrViewsUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.Log.WithError(err).Error(message)
		http.Error(w, message, http.StatusInternalServerError)
	}
}
