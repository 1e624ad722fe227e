package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shop is the affiliate partner that earns commissions and requests withdrawals.
// Its row doubles as the per-shop admission lock.
type Shop struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID      `gorm:"column:user_id;type:uuid;uniqueIndex:ux_shops_user_id"`
	Name            string          `gorm:"column:name;not null"`
	Address         string          `gorm:"column:address;not null;default:''"`
	CommissionRate  decimal.Decimal `gorm:"column:commission_rate;type:numeric(7,6);not null"`
	AffiliationCode string          `gorm:"column:affiliation_code;not null;uniqueIndex:ux_shops_affiliation_code"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shop) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
