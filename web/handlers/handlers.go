// Package handlers provides the HTTP API for the estimation service.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alienxp03/mealjury/internal/core"
	"github.com/alienxp03/mealjury/internal/engine"
	"github.com/alienxp03/mealjury/internal/export"
	"github.com/alienxp03/mealjury/internal/validate"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine *engine.Engine
}

// New creates a new Handler.
func New(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// Routes builds the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/healthz", h.handleHealth)

	r.Route("/api/estimates", func(r chi.Router) {
		r.Post("/", h.handleCreateEstimate)
		r.Get("/", h.handleListEstimates)
		r.Get("/{id}", h.handleGetEstimate)
		r.Delete("/{id}", h.handleDeleteEstimate)
		r.Get("/{id}/export/{format}", h.handleExportEstimate)
	})

	r.Post("/api/validate", h.handleValidate)

	r.Route("/api/corrections", func(r chi.Router) {
		r.Post("/", h.handleCreateCorrection)
		r.Get("/", h.handleListCorrections)
	})

	r.Get("/api/patterns", h.handleListPatterns)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCreateEstimate(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	record, err := h.engine.Estimate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleListEstimates(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	records, err := h.engine.ListRecords(limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*core.EstimateRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	record, err := h.engine.GetRecord(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("estimate not found"))
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *Handler) handleDeleteEstimate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.engine.GetRecord(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("estimate not found"))
		return
	}
	if err := h.engine.DeleteRecord(id); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportEstimate(w http.ResponseWriter, r *http.Request) {
	record, err := h.engine.GetRecord(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, fmt.Errorf("estimate not found"))
		return
	}

	exporter, err := export.GetExporter(export.Format(chi.URLParam(r, "format")))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	filename := export.GenerateFilename(record, exporter.FileExtension())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	switch exporter.FileExtension() {
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
	case "json":
		w.Header().Set("Content-Type", "application/json")
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}

	if err := exporter.Export(record, w); err != nil {
		slog.Error("Export failed", "id", record.ID, "error", err)
	}
}

type validateRequest struct {
	FoodName string      `json:"food_name"`
	Quantity string      `json:"quantity"`
	Calories int         `json:"calories"`
	Macros   core.Macros `json:"macros"`
}

type validateResponse struct {
	validate.Result
	Reasonable bool `json:"reasonable"`
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.FoodName == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("food_name is required"))
		return
	}

	result := validate.Validate(req.FoodName, req.Quantity, req.Calories, req.Macros)
	reasonable, warnings := validate.CheckReasonableness(core.FoodItem{
		Name:     req.FoodName,
		Quantity: req.Quantity,
		Calories: req.Calories,
		Macros:   req.Macros,
	})
	resp := validateResponse{Result: result, Reasonable: reasonable}
	for _, warning := range warnings {
		if !containsString(resp.Warnings, warning) {
			resp.Warnings = append(resp.Warnings, warning)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

type correctionRequest struct {
	UserID            string `json:"user_id"`
	EstimateID        string `json:"estimate_id,omitempty"`
	Message           string `json:"message,omitempty"`
	FoodName          string `json:"food_name,omitempty"`
	OriginalCalories  int    `json:"original_calories,omitempty"`
	CorrectedCalories int    `json:"corrected_calories,omitempty"`
}

func (h *Handler) handleCreateCorrection(w http.ResponseWriter, r *http.Request) {
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	// Two shapes: a free-text message about a stored estimate, or an
	// explicit original/corrected pair.
	var correction *core.UserCorrection
	var err error
	if req.Message != "" && req.EstimateID != "" {
		var record *core.EstimateRecord
		record, err = h.engine.GetRecord(req.EstimateID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		if record == nil {
			respondError(w, http.StatusNotFound, fmt.Errorf("estimate not found"))
			return
		}
		correction, err = h.engine.CorrectionFromMessage(req.UserID, record, req.Message)
	} else {
		correction, err = h.engine.SaveCorrection(req.UserID, req.FoodName, req.OriginalCalories, req.CorrectedCalories)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	respondJSON(w, http.StatusCreated, correction)
}

func (h *Handler) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, fmt.Errorf("user_id is required"))
		return
	}
	corrections := h.engine.Corrections(userID)
	if corrections == nil {
		corrections = []core.UserCorrection{}
	}
	respondJSON(w, http.StatusOK, corrections)
}

func (h *Handler) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns := h.engine.Patterns()
	if patterns == nil {
		patterns = []core.CorrectionPattern{}
	}
	respondJSON(w, http.StatusOK, patterns)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
