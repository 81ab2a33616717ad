// Package push manages web-push subscription records and delivers alert
// payloads to subscribed browsers via VAPID.
package push

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stockpulse/stockpulse/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Subscription carries the browser-issued endpoint and key pair submitted
// on subscribe.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

// Keys holds the encryption keys of a push subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Manager owns the push_subscriptions table. Its methods never panic and
// never leak storage errors to callers: failures are logged and reduced to
// sentinel return values, mirroring the browser-side lifecycle where every
// step degrades to "not subscribed" rather than crashing the page.
type Manager struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewManager creates a Manager.
func NewManager(db *gorm.DB, log *slog.Logger) *Manager {
	return &Manager{db: db, log: log}
}

// Subscribe upserts the subscription keyed on (user_id, endpoint). Calling
// it again for an endpoint that already exists refreshes the keys rather
// than creating a duplicate row. Returns false when the record could not
// be saved.
func (m *Manager) Subscribe(ctx context.Context, userID, companyID string, sub Subscription) bool {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		m.log.Warn("push subscribe rejected: incomplete subscription", "user_id", userID)
		return false
	}
	row := model.PushSubscription{
		UserID:    userID,
		CompanyID: companyID,
		Endpoint:  sub.Endpoint,
		P256dh:    sub.Keys.P256dh,
		Auth:      sub.Keys.Auth,
	}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"company_id", "p256dh", "auth", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		m.log.Error("push subscribe failed", "user_id", userID, "err", err)
		return false
	}
	return true
}

// Unsubscribe deletes the subscription matching (user_id, endpoint).
// Returns false without issuing a delete when no such subscription exists;
// a missing subscription is "nothing to do", not a failure.
func (m *Manager) Unsubscribe(ctx context.Context, userID, endpoint string) bool {
	var row model.PushSubscription
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			m.log.Error("push unsubscribe lookup failed", "user_id", userID, "err", err)
		}
		return false
	}
	if err := m.db.WithContext(ctx).Delete(&row).Error; err != nil {
		m.log.Error("push unsubscribe delete failed", "user_id", userID, "err", err)
		return false
	}
	return true
}

// List returns the user's subscriptions, newest first. Returns an empty
// slice on storage failure.
func (m *Manager) List(ctx context.Context, userID string) []model.PushSubscription {
	var rows []model.PushSubscription
	err := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		m.log.Error("push list failed", "user_id", userID, "err", err)
		return nil
	}
	return rows
}
