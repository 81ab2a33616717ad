package handler

import (
	"encoding/json"
	"net/http"

	"github.com/stockpulse/stockpulse/internal/api/jsonapi"
	"github.com/stockpulse/stockpulse/internal/api/middleware"
	"github.com/stockpulse/stockpulse/internal/push"
)

// PushHandler exposes the push-subscription lifecycle under /api/v1/push/*.
// All routes require a JWT; the user identity comes from the claims, never
// from the request body.
type PushHandler struct {
	manager *push.Manager
}

// NewPushHandler creates a PushHandler.
func NewPushHandler(manager *push.Manager) *PushHandler {
	return &PushHandler{manager: manager}
}

type subscribeRequest struct {
	Subscription push.Subscription `json:"subscription"`
}

// Subscribe handles POST /api/v1/push/subscribe. Re-subscribing an
// existing endpoint refreshes the stored keys instead of duplicating.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "authentication required")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if req.Subscription.Endpoint == "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "missing_field", "Unprocessable Entity", "subscription endpoint is required")
		return
	}

	if !h.manager.Subscribe(r.Context(), claims.UserID, claims.CompanyID, req.Subscription) {
		jsonapi.RenderError(w, http.StatusInternalServerError, "subscribe_failed", "Internal Server Error", "subscription could not be saved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe handles POST /api/v1/push/unsubscribe. Removing an endpoint
// that was never subscribed is "nothing to do", reported as removed=false
// with HTTP 200.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "authentication required")
		return
	}

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "endpoint is required")
		return
	}

	removed := h.manager.Unsubscribe(r.Context(), claims.UserID, req.Endpoint)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed": removed})
}

// List handles GET /api/v1/push/subscriptions.
func (h *PushHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		jsonapi.RenderError(w, http.StatusUnauthorized, "missing_token", "Unauthorized", "authentication required")
		return
	}

	subs := h.manager.List(r.Context(), claims.UserID)
	data := make([]any, 0, len(subs))
	for _, s := range subs {
		data = append(data, jsonapi.ResourceObject{
			Type: "push_subscription",
			ID:   s.ID,
			Attributes: map[string]any{
				"endpoint":   s.Endpoint,
				"created_at": s.CreatedAt,
			},
		})
	}
	jsonapi.RenderList(w, http.StatusOK, data)
}
