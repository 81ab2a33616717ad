package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/stockpulse/stockpulse/internal/api/jsonapi"
	"github.com/stockpulse/stockpulse/internal/api/middleware"
	"github.com/stockpulse/stockpulse/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleHandler exposes tenant alert-schedule configuration under
// /api/v1/schedules/*. The tenant is always taken from the JWT claims.
type ScheduleHandler struct {
	db *gorm.DB
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

func validCadence(scheduleType string, hour, day int) string {
	switch scheduleType {
	case model.ScheduleDaily, model.ScheduleWeekly, model.ScheduleDisabled:
	default:
		return "schedule_type must be daily, weekly or disabled"
	}
	if hour < 0 || hour > 23 {
		return "hour_of_day must be between 0 and 23"
	}
	if scheduleType == model.ScheduleWeekly && (day < 0 || day > 6) {
		return "day_of_week must be between 0 and 6"
	}
	return ""
}

// stockScheduleAttrs is the wire shape of a stock alert schedule.
type stockScheduleAttrs struct {
	ScheduleType   string  `json:"schedule_type"`
	HourOfDay      int     `json:"hour_of_day"`
	DayOfWeek      int     `json:"day_of_week"`
	IsActive       bool    `json:"is_active"`
	RecipientEmail string  `json:"recipient_email"`
	LastSentAt     *string `json:"last_sent_at,omitempty"`
}

// GetStock handles GET /api/v1/schedules/stock. A tenant with no stored
// row gets the disabled defaults.
func (h *ScheduleHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.CompanyID == "" {
		jsonapi.RenderError(w, http.StatusForbidden, "no_company", "Forbidden", "user is not attached to a company")
		return
	}

	var s model.StockAlertSchedule
	err := h.db.WithContext(r.Context()).First(&s, "company_id = ?", claims.CompanyID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		jsonapi.RenderError(w, http.StatusInternalServerError, "storage_error", "Internal Server Error", "could not load schedule")
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = model.StockAlertSchedule{CompanyID: claims.CompanyID, ScheduleType: model.ScheduleDisabled, HourOfDay: 8}
	}
	renderStockSchedule(w, s)
}

// PutStock handles PUT /api/v1/schedules/stock, upserting the tenant's row.
func (h *ScheduleHandler) PutStock(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.CompanyID == "" {
		jsonapi.RenderError(w, http.StatusForbidden, "no_company", "Forbidden", "user is not attached to a company")
		return
	}

	var req stockScheduleAttrs
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if msg := validCadence(req.ScheduleType, req.HourOfDay, req.DayOfWeek); msg != "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "invalid_cadence", "Unprocessable Entity", msg)
		return
	}

	s := model.StockAlertSchedule{
		CompanyID:      claims.CompanyID,
		ScheduleType:   req.ScheduleType,
		HourOfDay:      req.HourOfDay,
		DayOfWeek:      req.DayOfWeek,
		IsActive:       req.IsActive,
		RecipientEmail: req.RecipientEmail,
	}
	err := h.db.WithContext(r.Context()).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"schedule_type", "hour_of_day", "day_of_week", "is_active", "recipient_email", "updated_at",
		}),
	}).Create(&s).Error
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "storage_error", "Internal Server Error", "could not save schedule")
		return
	}
	renderStockSchedule(w, s)
}

// movementScheduleAttrs is the wire shape of a movement alert schedule.
type movementScheduleAttrs struct {
	ScheduleType     string  `json:"schedule_type"`
	HourOfDay        int     `json:"hour_of_day"`
	DayOfWeek        int     `json:"day_of_week"`
	IsActive         bool    `json:"is_active"`
	ThresholdPercent float64 `json:"threshold_percent"`
	ComparisonDays   int     `json:"comparison_days"`
	RecipientEmail   string  `json:"recipient_email"`
	LastRunAt        *string `json:"last_run_at,omitempty"`
}

// GetMovement handles GET /api/v1/schedules/movement.
func (h *ScheduleHandler) GetMovement(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.CompanyID == "" {
		jsonapi.RenderError(w, http.StatusForbidden, "no_company", "Forbidden", "user is not attached to a company")
		return
	}

	var s model.MovementAlertSchedule
	err := h.db.WithContext(r.Context()).First(&s, "company_id = ?", claims.CompanyID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		jsonapi.RenderError(w, http.StatusInternalServerError, "storage_error", "Internal Server Error", "could not load schedule")
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = model.MovementAlertSchedule{
			CompanyID:        claims.CompanyID,
			ScheduleType:     model.ScheduleDisabled,
			HourOfDay:        8,
			ThresholdPercent: 20,
			ComparisonDays:   7,
		}
	}
	renderMovementSchedule(w, s)
}

// PutMovement handles PUT /api/v1/schedules/movement.
func (h *ScheduleHandler) PutMovement(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || claims.CompanyID == "" {
		jsonapi.RenderError(w, http.StatusForbidden, "no_company", "Forbidden", "user is not attached to a company")
		return
	}

	var req movementScheduleAttrs
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonapi.RenderError(w, http.StatusBadRequest, "invalid_body", "Bad Request", "request body must be valid JSON")
		return
	}
	if msg := validCadence(req.ScheduleType, req.HourOfDay, req.DayOfWeek); msg != "" {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "invalid_cadence", "Unprocessable Entity", msg)
		return
	}
	if req.ThresholdPercent < 0 || req.ComparisonDays < 0 {
		jsonapi.RenderError(w, http.StatusUnprocessableEntity, "invalid_field", "Unprocessable Entity", "threshold_percent and comparison_days must not be negative")
		return
	}

	s := model.MovementAlertSchedule{
		CompanyID:        claims.CompanyID,
		ScheduleType:     req.ScheduleType,
		HourOfDay:        req.HourOfDay,
		DayOfWeek:        req.DayOfWeek,
		IsActive:         req.IsActive,
		ThresholdPercent: req.ThresholdPercent,
		ComparisonDays:   req.ComparisonDays,
		RecipientEmail:   req.RecipientEmail,
	}
	err := h.db.WithContext(r.Context()).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"schedule_type", "hour_of_day", "day_of_week", "is_active",
			"threshold_percent", "comparison_days", "recipient_email", "updated_at",
		}),
	}).Create(&s).Error
	if err != nil {
		jsonapi.RenderError(w, http.StatusInternalServerError, "storage_error", "Internal Server Error", "could not save schedule")
		return
	}
	renderMovementSchedule(w, s)
}

func renderStockSchedule(w http.ResponseWriter, s model.StockAlertSchedule) {
	attrs := stockScheduleAttrs{
		ScheduleType:   s.ScheduleType,
		HourOfDay:      s.HourOfDay,
		DayOfWeek:      s.DayOfWeek,
		IsActive:       s.IsActive,
		RecipientEmail: s.RecipientEmail,
	}
	if s.LastSentAt != nil {
		ts := s.LastSentAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		attrs.LastSentAt = &ts
	}
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "stock_alert_schedule",
		ID:         s.CompanyID,
		Attributes: attrs,
	})
}

func renderMovementSchedule(w http.ResponseWriter, s model.MovementAlertSchedule) {
	attrs := movementScheduleAttrs{
		ScheduleType:     s.ScheduleType,
		HourOfDay:        s.HourOfDay,
		DayOfWeek:        s.DayOfWeek,
		IsActive:         s.IsActive,
		ThresholdPercent: s.ThresholdPercent,
		ComparisonDays:   s.ComparisonDays,
		RecipientEmail:   s.RecipientEmail,
	}
	if s.LastRunAt != nil {
		ts := s.LastRunAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		attrs.LastRunAt = &ts
	}
	jsonapi.RenderOne(w, http.StatusOK, jsonapi.ResourceObject{
		Type:       "movement_alert_schedule",
		ID:         s.CompanyID,
		Attributes: attrs,
	})
}
