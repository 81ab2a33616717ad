package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PushSubscription stores a browser-issued web-push endpoint and key pair.
// Unique on (user_id, endpoint): re-subscribing from the same browser
// upserts rather than duplicating.
type PushSubscription struct {
	ID        string    `gorm:"type:text;primaryKey"`
	UserID    string    `gorm:"type:text;not null;uniqueIndex:idx_push_user_endpoint"`
	CompanyID string    `gorm:"type:text;not null;index"`
	Endpoint  string    `gorm:"type:text;not null;uniqueIndex:idx_push_user_endpoint"`
	P256dh    string    `gorm:"type:text;not null"`
	Auth      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (p *PushSubscription) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
