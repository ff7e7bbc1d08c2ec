package routes

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
	"github.com/synaptica-ai/noshow/pkg/normalizer"
	"github.com/synaptica-ai/noshow/pkg/pipeline"
)

type DatasetHandler struct {
	service *normalizer.Service
	engine  *pipeline.Engine
	maxBody int64
}

func NewDatasetHandler(service *normalizer.Service, engine *pipeline.Engine, maxBody int64) *DatasetHandler {
	return &DatasetHandler{service: service, engine: engine, maxBody: maxBody}
}

// Register mounts read routes on r and the upload route on write, which may
// carry stricter middleware.
func (h *DatasetHandler) Register(r, write *mux.Router) {
	write.HandleFunc("/datasets", h.handleLoad).Methods(http.MethodPost)
	r.HandleFunc("/datasets/current", h.handleCurrent).Methods(http.MethodGet)
	r.HandleFunc("/datasets/history", h.handleHistory).Methods(http.MethodGet)
}

type fetchRequest struct {
	URL string `json:"url"`
}

// handleLoad accepts either a delimited file body or a JSON {"url": ...}
// pointing at one.
func (h *DatasetHandler) handleLoad(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req fetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		summary, err := h.service.Fetch(r.Context(), req.URL)
		if err != nil {
			writeError(w, err, "failed to fetch dataset")
			return
		}
		respondJSON(w, http.StatusCreated, summary)
		return
	}

	source := strings.TrimSpace(r.URL.Query().Get("source"))
	if source == "" {
		source = "upload"
	}
	summary, err := h.service.Load(r.Context(), source, r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "dataset too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, err, "failed to load dataset")
		return
	}
	respondJSON(w, http.StatusCreated, summary)
}

func (h *DatasetHandler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Current()
	if err != nil {
		writeError(w, err, "failed to read dataset")
		return
	}
	writeJSON(w, summary)
}

func (h *DatasetHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if val := r.URL.Query().Get("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	loads, err := h.service.History(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list dataset loads")
		http.Error(w, "failed to list dataset loads", http.StatusInternalServerError)
		return
	}
	if loads == nil {
		loads = []normalizer.LoadModel{}
	}
	writeJSON(w, map[string]interface{}{"loads": loads})
}
