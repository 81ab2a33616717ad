package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stockpulse/stockpulse/internal/service"
)

// AlertHandler exposes the trigger endpoints under /api/v1/alerts/*.
// Responses use a plain {success, ...} shape rather than the JSON:API
// envelope: completion is always HTTP 200 (including "nothing to send");
// only an unhandled failure is 500.
type AlertHandler struct {
	runner *service.AlertRunner
	log    *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(runner *service.AlertRunner, log *slog.Logger) *AlertHandler {
	return &AlertHandler{runner: runner, log: log}
}

// MovementCheck handles POST /api/v1/alerts/movement-check.
func (h *AlertHandler) MovementCheck(w http.ResponseWriter, r *http.Request) {
	var req service.MovementCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "request body must be valid JSON"})
		return
	}
	if req.CompanyID == "" || req.RecipientEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "company_id and recipient_email are required"})
		return
	}

	result, err := h.runner.MovementCheck(r.Context(), req)
	if err != nil {
		h.log.Error("movement check failed", "company_id", req.CompanyID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StockCheck handles POST /api/v1/alerts/stock-check.
func (h *AlertHandler) StockCheck(w http.ResponseWriter, r *http.Request) {
	var req service.StockCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "request body must be valid JSON"})
		return
	}
	if req.CompanyID == "" || req.RecipientEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "company_id and recipient_email are required"})
		return
	}

	result, err := h.runner.StockCheck(r.Context(), req)
	if err != nil {
		h.log.Error("stock check failed", "company_id", req.CompanyID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RunScheduled handles POST /api/v1/alerts/run-scheduled. It takes no body
// and scans every active schedule; per-tenant failures are embedded in the
// results array rather than failing the batch.
func (h *AlertHandler) RunScheduled(w http.ResponseWriter, r *http.Request) {
	results := h.runner.RunScheduled(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": results,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
