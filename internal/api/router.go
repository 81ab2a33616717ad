// Package api wires all API routes onto the provided ServeMux.
package api

import (
	"net/http"

	"github.com/stockpulse/stockpulse/internal/api/handler"
	"github.com/stockpulse/stockpulse/internal/api/middleware"
	"github.com/stockpulse/stockpulse/internal/health"
)

// Deps bundles the handlers and secrets the router needs.
type Deps struct {
	Health       *health.Handler
	Auth         *handler.AuthHandler
	Alerts       *handler.AlertHandler
	Push         *handler.PushHandler
	Schedules    *handler.ScheduleHandler
	JWTSecret    string
	ServiceToken string
}

// RegisterRoutes registers all application routes on mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /api/v1/health", d.Health.ServeHealth)
	mux.HandleFunc("GET /api/v1/ready", d.Health.ServeReady)

	// Auth endpoints (no auth required)
	mux.HandleFunc("POST /api/v1/auth/login", d.Auth.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", d.Auth.Refresh)

	protected := middleware.RequireAuth(d.JWTSecret)
	mux.Handle("POST /api/v1/auth/logout", protected(http.HandlerFunc(d.Auth.Logout)))

	// Trigger endpoints, guarded by the static service token. These are
	// invoked by an external scheduler, not by browser sessions.
	service := middleware.RequireService(d.ServiceToken)
	mux.Handle("POST /api/v1/alerts/movement-check", service(http.HandlerFunc(d.Alerts.MovementCheck)))
	mux.Handle("POST /api/v1/alerts/stock-check", service(http.HandlerFunc(d.Alerts.StockCheck)))
	mux.Handle("POST /api/v1/alerts/run-scheduled", service(http.HandlerFunc(d.Alerts.RunScheduled)))

	// Push subscription lifecycle (JWT required)
	mux.Handle("POST /api/v1/push/subscribe", protected(http.HandlerFunc(d.Push.Subscribe)))
	mux.Handle("POST /api/v1/push/unsubscribe", protected(http.HandlerFunc(d.Push.Unsubscribe)))
	mux.Handle("GET /api/v1/push/subscriptions", protected(http.HandlerFunc(d.Push.List)))

	// Tenant schedule configuration (JWT required)
	mux.Handle("GET /api/v1/schedules/stock", protected(http.HandlerFunc(d.Schedules.GetStock)))
	mux.Handle("PUT /api/v1/schedules/stock", protected(http.HandlerFunc(d.Schedules.PutStock)))
	mux.Handle("GET /api/v1/schedules/movement", protected(http.HandlerFunc(d.Schedules.GetMovement)))
	mux.Handle("PUT /api/v1/schedules/movement", protected(http.HandlerFunc(d.Schedules.PutMovement)))

	// Catch-all 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}
