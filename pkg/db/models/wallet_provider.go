package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletProvider is the external wallet whose users are referred by shops.
type WalletProvider struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	APIKey    string          `gorm:"column:api_key;not null;uniqueIndex:ux_wallet_providers_api_key"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CPAAmount decimal.Decimal `gorm:"column:cpa_amount;type:numeric(18,6);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *WalletProvider) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
