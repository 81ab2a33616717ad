// Package service orchestrates the alert computations against the store
// and hands results to the notification dispatcher.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stockpulse/stockpulse/internal/alert"
	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/internal/model"
	"github.com/stockpulse/stockpulse/internal/notify"
	"github.com/stockpulse/stockpulse/internal/push"
	"gorm.io/gorm"
)

// Notification type tags used in the audit log and run results.
const (
	TypeStockAlert    = "stock_alert"
	TypeMovementAlert = "movement_alert"
)

// AlertRunner executes stock and movement checks for one tenant or for
// every schedule that is due. Each run re-fetches state from the store;
// nothing is cached between invocations.
type AlertRunner struct {
	db         *gorm.DB
	dispatcher *notify.Dispatcher
	pusher     *push.Sender // nil when VAPID keys are not configured
	defaults   config.AlertConfig
	now        func() time.Time
	log        *slog.Logger
}

// NewAlertRunner creates an AlertRunner. pusher may be nil.
func NewAlertRunner(db *gorm.DB, dispatcher *notify.Dispatcher, pusher *push.Sender, defaults config.AlertConfig, log *slog.Logger) *AlertRunner {
	return &AlertRunner{
		db:         db,
		dispatcher: dispatcher,
		pusher:     pusher,
		defaults:   defaults,
		now:        time.Now,
		log:        log,
	}
}

// MovementCheckRequest is the body of a movement-check trigger invocation.
type MovementCheckRequest struct {
	CompanyID        string   `json:"company_id"`
	RecipientEmail   string   `json:"recipient_email"`
	CompanyName      string   `json:"company_name"`
	ThresholdPercent *float64 `json:"threshold_percent,omitempty"`
	ComparisonDays   *int     `json:"comparison_days,omitempty"`
}

// MovementCheckResult is the trigger response body for a movement check.
type MovementCheckResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	ChangesCount *int   `json:"changes_count,omitempty"`
}

// StockCheckRequest is the body of a stock-check trigger invocation.
type StockCheckRequest struct {
	CompanyID      string `json:"company_id"`
	RecipientEmail string `json:"recipient_email"`
	CompanyName    string `json:"company_name"`
}

// StockCheckResult is the trigger response body for a stock check.
type StockCheckResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	OutOfStockCount *int   `json:"out_of_stock_count,omitempty"`
	LowStockCount   *int   `json:"low_stock_count,omitempty"`

	sent bool // an email was actually delivered
}

// MovementCheck computes period-over-period movement changes for one
// company and emails the significant ones, if any.
func (r *AlertRunner) MovementCheck(ctx context.Context, req MovementCheckRequest) (MovementCheckResult, error) {
	now := r.now().UTC()
	opts := alert.DeltaOptions{
		WindowDays:       r.defaults.DefaultComparisonDays,
		ThresholdPercent: r.defaults.DefaultThresholdPercent,
		NetMode:          r.defaults.NetMode,
		Now:              now,
	}
	if req.ComparisonDays != nil && *req.ComparisonDays > 0 {
		opts.WindowDays = *req.ComparisonDays
	}
	if req.ThresholdPercent != nil && *req.ThresholdPercent > 0 {
		opts.ThresholdPercent = *req.ThresholdPercent
	}

	products, err := r.loadProducts(ctx, req.CompanyID)
	if err != nil {
		return MovementCheckResult{}, err
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var movements []model.StockMovement
	since := now.Add(-2 * time.Duration(opts.WindowDays) * 24 * time.Hour)
	err = r.db.WithContext(ctx).
		Where("company_id = ? AND created_at > ?", req.CompanyID, since).
		Find(&movements).Error
	if err != nil {
		return MovementCheckResult{}, fmt.Errorf("load movements: %w", err)
	}

	changes := alert.ComputeChanges(movements, byID, opts)
	count := len(changes)
	if count == 0 {
		return MovementCheckResult{
			Success:      true,
			Message:      "No significant movement changes",
			ChangesCount: &count,
		}, nil
	}

	subject := fmt.Sprintf("Movement alert: %d significant changes - %s", count, req.CompanyName)
	body := notify.BuildMovementAlertHTML(req.CompanyName, opts.WindowDays, changes)
	res := r.dispatcher.Dispatch(ctx, notify.Message{
		CompanyID: req.CompanyID,
		Type:      TypeMovementAlert,
		Recipient: req.RecipientEmail,
		Subject:   subject,
		HTML:      body,
		Metadata: map[string]any{
			"changes_count":     count,
			"threshold_percent": opts.ThresholdPercent,
			"comparison_days":   opts.WindowDays,
		},
	})
	if !res.OK() {
		return MovementCheckResult{
			Success:      false,
			Message:      "alert email failed: " + res.Err.Error(),
			ChangesCount: &count,
		}, nil
	}

	r.broadcast(ctx, req.CompanyID, push.Payload{
		Title: "Movement alert",
		Body:  fmt.Sprintf("%d products changed significantly in the last %d days", count, opts.WindowDays),
		Tag:   TypeMovementAlert,
	})
	return MovementCheckResult{Success: true, ChangesCount: &count}, nil
}

// StockCheck classifies the company's products by stock level and emails
// the out-of-stock/low-stock report, if any products qualify.
func (r *AlertRunner) StockCheck(ctx context.Context, req StockCheckRequest) (StockCheckResult, error) {
	products, err := r.loadProducts(ctx, req.CompanyID)
	if err != nil {
		return StockCheckResult{}, err
	}

	report := alert.BuildStockReport(products)
	out := len(report.OutOfStock)
	low := len(report.LowStock)
	if report.Empty() {
		return StockCheckResult{
			Success:         true,
			Message:         "No stock alerts needed",
			OutOfStockCount: &out,
			LowStockCount:   &low,
		}, nil
	}

	subject, tmpl := r.loadTemplate(ctx, req.CompanyID)
	if subject == "" {
		subject = fmt.Sprintf("Stock alert: %d out of stock, %d low - %s", out, low, req.CompanyName)
	}
	body := notify.BuildStockAlertHTML(tmpl, notify.StockAlertVars(req.CompanyName, report))
	res := r.dispatcher.Dispatch(ctx, notify.Message{
		CompanyID: req.CompanyID,
		Type:      TypeStockAlert,
		Recipient: req.RecipientEmail,
		Subject:   subject,
		HTML:      body,
		Metadata: map[string]any{
			"out_of_stock_count": out,
			"low_stock_count":    low,
			"total_products":     report.TotalProducts,
		},
	})
	if !res.OK() {
		return StockCheckResult{
			Success:         false,
			Message:         "alert email failed: " + res.Err.Error(),
			OutOfStockCount: &out,
			LowStockCount:   &low,
		}, nil
	}

	r.broadcast(ctx, req.CompanyID, push.Payload{
		Title: "Stock alert",
		Body:  fmt.Sprintf("%d out of stock, %d low on stock", out, low),
		Tag:   TypeStockAlert,
	})
	return StockCheckResult{Success: true, OutOfStockCount: &out, LowStockCount: &low, sent: true}, nil
}

func (r *AlertRunner) loadProducts(ctx context.Context, companyID string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return products, nil
}

// loadTemplate returns the tenant's active stock-alert template, or empty
// strings when none exists. Template lookup failures fall back to the
// built-in body.
func (r *AlertRunner) loadTemplate(ctx context.Context, companyID string) (subject, body string) {
	var tmpl model.EmailTemplate
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND type = ? AND is_active = ?", companyID, TypeStockAlert, true).
		First(&tmpl).Error
	if err != nil {
		return "", ""
	}
	return tmpl.Subject, tmpl.BodyHTML
}

func (r *AlertRunner) broadcast(ctx context.Context, companyID string, payload push.Payload) {
	if r.pusher == nil {
		return
	}
	if n := r.pusher.Broadcast(ctx, companyID, payload); n > 0 {
		r.log.Debug("push broadcast delivered", "company_id", companyID, "count", n)
	}
}
