package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock movement types. Quantities are stored with whatever sign the
// originating operation recorded; the alerting logic never normalises them.
const (
	MovementIn            = "in"
	MovementOut           = "out"
	MovementPurchase      = "purchase"
	MovementAdjustmentAdd = "adjustment_add"
	MovementAdjustmentSub = "adjustment_sub"
)

// Product is a point-in-time inventory snapshot row. The alerting logic
// reads it and never writes it.
type Product struct {
	ID          string    `gorm:"type:text;primaryKey"`
	CompanyID   string    `gorm:"type:text;not null;index"`
	Name        string    `gorm:"type:text;not null"`
	NameAr      string    `gorm:"type:text;not null;default:''"`
	Quantity    int64     `gorm:"not null;default:0"`
	MinQuantity int64     `gorm:"not null;default:0"`
	IsActive    bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// StockMovement is an append-only ledger row created by sales, purchases
// and adjustments. Never mutated or deleted by the alerting logic.
type StockMovement struct {
	ID           string    `gorm:"type:text;primaryKey"`
	CompanyID    string    `gorm:"type:text;not null;index:idx_movements_company_created"`
	ProductID    string    `gorm:"type:text;not null;index"`
	MovementType string    `gorm:"type:text;not null"`
	Quantity     int64     `gorm:"not null"`
	Reference    string    `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null;index:idx_movements_company_created"`
}

// BeforeCreate generates a UUID primary key if not set.
func (m *StockMovement) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
