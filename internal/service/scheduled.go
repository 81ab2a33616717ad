package service

import (
	"context"
	"fmt"

	"github.com/stockpulse/stockpulse/internal/alert"
	"github.com/stockpulse/stockpulse/internal/model"
)

// RunResult is the per-schedule outcome of a scheduled batch run.
type RunResult struct {
	CompanyID       string `json:"company_id"`
	Type            string `json:"type"` // "stock_alert" or "movement_alert"
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	ChangesCount    *int   `json:"changes_count,omitempty"`
	OutOfStockCount *int   `json:"out_of_stock_count,omitempty"`
	LowStockCount   *int   `json:"low_stock_count,omitempty"`
}

// RunScheduled scans every active schedule of both variants, applies the
// cadence gate, and executes the ones that are due. One tenant's failure
// never stops the batch: failures become entries in the returned slice.
//
// Timestamp semantics differ by variant: movement schedules record
// "checked" (last_run_at advances after every eligible run), stock
// schedules record "sent" (last_sent_at only advances after an email was
// delivered).
func (r *AlertRunner) RunScheduled(ctx context.Context) []RunResult {
	now := r.now().UTC()
	results := []RunResult{}

	var stockSchedules []model.StockAlertSchedule
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND schedule_type <> ?", true, model.ScheduleDisabled).
		Find(&stockSchedules).Error; err != nil {
		r.log.Error("scan stock schedules failed", "err", err)
	}
	for _, s := range stockSchedules {
		cadence := alert.Cadence{
			ScheduleType: s.ScheduleType,
			HourOfDay:    s.HourOfDay,
			DayOfWeek:    s.DayOfWeek,
			IsActive:     s.IsActive,
		}
		if !alert.Due(cadence, s.LastSentAt, now) {
			continue
		}
		results = append(results, r.runStockSchedule(ctx, s))
	}

	var movementSchedules []model.MovementAlertSchedule
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND schedule_type <> ?", true, model.ScheduleDisabled).
		Find(&movementSchedules).Error; err != nil {
		r.log.Error("scan movement schedules failed", "err", err)
	}
	for _, s := range movementSchedules {
		cadence := alert.Cadence{
			ScheduleType: s.ScheduleType,
			HourOfDay:    s.HourOfDay,
			DayOfWeek:    s.DayOfWeek,
			IsActive:     s.IsActive,
		}
		if !alert.Due(cadence, s.LastRunAt, now) {
			continue
		}
		results = append(results, r.runMovementSchedule(ctx, s))
	}

	return results
}

func (r *AlertRunner) runStockSchedule(ctx context.Context, s model.StockAlertSchedule) RunResult {
	result := RunResult{CompanyID: s.CompanyID, Type: TypeStockAlert}

	company, err := r.loadCompany(ctx, s.CompanyID)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	recipient := s.RecipientEmail
	if recipient == "" {
		recipient = company.Email
	}
	if recipient == "" {
		result.Message = "no recipient email configured"
		return result
	}

	check, err := r.StockCheck(ctx, StockCheckRequest{
		CompanyID:      s.CompanyID,
		RecipientEmail: recipient,
		CompanyName:    company.Name,
	})
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Success = check.Success
	result.Message = check.Message
	result.OutOfStockCount = check.OutOfStockCount
	result.LowStockCount = check.LowStockCount

	if check.sent {
		now := r.now().UTC()
		if err := r.db.WithContext(ctx).Model(&model.StockAlertSchedule{}).
			Where("id = ?", s.ID).
			Update("last_sent_at", now).Error; err != nil {
			r.log.Error("update stock schedule timestamp failed", "schedule_id", s.ID, "err", err)
		}
	}
	return result
}

func (r *AlertRunner) runMovementSchedule(ctx context.Context, s model.MovementAlertSchedule) RunResult {
	result := RunResult{CompanyID: s.CompanyID, Type: TypeMovementAlert}

	// Checked-not-sent semantics: advance the timestamp up front so an
	// overlapping trigger in the same hour is gated out even when this run
	// produces nothing.
	now := r.now().UTC()
	if err := r.db.WithContext(ctx).Model(&model.MovementAlertSchedule{}).
		Where("id = ?", s.ID).
		Update("last_run_at", now).Error; err != nil {
		r.log.Error("update movement schedule timestamp failed", "schedule_id", s.ID, "err", err)
	}

	company, err := r.loadCompany(ctx, s.CompanyID)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	recipient := s.RecipientEmail
	if recipient == "" {
		recipient = company.Email
	}
	if recipient == "" {
		result.Message = "no recipient email configured"
		return result
	}

	req := MovementCheckRequest{
		CompanyID:      s.CompanyID,
		RecipientEmail: recipient,
		CompanyName:    company.Name,
	}
	if s.ThresholdPercent > 0 {
		req.ThresholdPercent = &s.ThresholdPercent
	}
	if s.ComparisonDays > 0 {
		req.ComparisonDays = &s.ComparisonDays
	}

	check, err := r.MovementCheck(ctx, req)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Success = check.Success
	result.Message = check.Message
	result.ChangesCount = check.ChangesCount
	return result
}

func (r *AlertRunner) loadCompany(ctx context.Context, companyID string) (model.Company, error) {
	var company model.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", companyID).Error; err != nil {
		return model.Company{}, fmt.Errorf("load company: %w", err)
	}
	return company, nil
}
