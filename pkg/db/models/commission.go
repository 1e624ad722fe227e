package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// Commission splits an invoice's gross revenue between the shop (net) and the
// platform. Amounts never change after insert.
type Commission struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EventType        enums.RevenueEventType `gorm:"column:event_type;not null"`
	Status           enums.CommissionStatus `gorm:"column:status;not null;index:idx_commissions_shop_status,priority:2"`
	GrossRevenue     decimal.Decimal        `gorm:"column:gross_revenue;type:numeric(18,6);not null"`
	NetRevenue       decimal.Decimal        `gorm:"column:net_revenue;type:numeric(18,6);not null"`
	PlatformRevenue  decimal.Decimal        `gorm:"column:platform_revenue;type:numeric(18,6);not null"`
	AvailableAt      *time.Time             `gorm:"column:available_at"`
	ShopID           uuid.UUID              `gorm:"column:shop_id;type:uuid;not null;index:idx_commissions_shop_status,priority:1"`
	WalletProviderID uuid.UUID              `gorm:"column:wallet_provider_id;type:uuid;not null"`
	AffiliateUserID  uuid.UUID              `gorm:"column:affiliate_user_id;type:uuid;not null"`
	InvoiceID        *uuid.UUID             `gorm:"column:invoice_id;type:uuid;uniqueIndex:ux_commissions_invoice_id"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (c *Commission) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
