package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule cadence values.
const (
	ScheduleDaily    = "daily"
	ScheduleWeekly   = "weekly"
	ScheduleDisabled = "disabled"
)

// Notification log statuses.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// StockAlertSchedule configures the daily/weekly low-stock email for a
// tenant. LastSentAt is only advanced after a successful send.
type StockAlertSchedule struct {
	ID             string `gorm:"type:text;primaryKey"`
	CompanyID      string `gorm:"type:text;not null;uniqueIndex"`
	ScheduleType   string `gorm:"type:text;not null;default:'disabled'"`
	HourOfDay      int    `gorm:"not null;default:8"`
	DayOfWeek      int    `gorm:"not null;default:0"`
	IsActive       bool   `gorm:"not null;default:false"`
	RecipientEmail string `gorm:"type:text;not null;default:''"`
	LastSentAt     *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (s *StockAlertSchedule) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// MovementAlertSchedule configures the period-over-period movement change
// email. LastRunAt records "checked", not "sent": it is advanced whenever
// the schedule runs, even if no significant changes were found.
type MovementAlertSchedule struct {
	ID               string  `gorm:"type:text;primaryKey"`
	CompanyID        string  `gorm:"type:text;not null;uniqueIndex"`
	ScheduleType     string  `gorm:"type:text;not null;default:'disabled'"`
	HourOfDay        int     `gorm:"not null;default:8"`
	DayOfWeek        int     `gorm:"not null;default:0"`
	IsActive         bool    `gorm:"not null;default:false"`
	ThresholdPercent float64 `gorm:"not null;default:20"`
	ComparisonDays   int     `gorm:"not null;default:7"`
	RecipientEmail   string  `gorm:"type:text;not null;default:''"`
	LastRunAt        *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (s *MovementAlertSchedule) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// NotificationLog is a write-once audit record, one row per send attempt.
type NotificationLog struct {
	ID           string    `gorm:"type:text;primaryKey"`
	CompanyID    string    `gorm:"type:text;not null;index"`
	Type         string    `gorm:"type:text;not null"`
	Recipient    string    `gorm:"type:text;not null"`
	Subject      string    `gorm:"type:text;not null"`
	Status       string    `gorm:"type:text;not null"`
	ErrorMessage string    `gorm:"type:text;not null;default:''"`
	Metadata     string    `gorm:"type:text;not null;default:'{}'"`
	CreatedAt    time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (n *NotificationLog) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// EmailTemplate is a tenant-stored subject/body pair with {{placeholder}}
// variables, used by the stock alert instead of the built-in body when
// present and active.
type EmailTemplate struct {
	ID        string    `gorm:"type:text;primaryKey"`
	CompanyID string    `gorm:"type:text;not null;index"`
	Type      string    `gorm:"type:text;not null"`
	Subject   string    `gorm:"type:text;not null"`
	BodyHTML  string    `gorm:"type:text;not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (t *EmailTemplate) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
