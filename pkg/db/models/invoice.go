package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// Invoice is the settled revenue record for one external provider invoice.
type Invoice struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID       string                 `gorm:"column:external_id;not null;uniqueIndex:ux_invoices_external_id"`
	EventType        enums.RevenueEventType `gorm:"column:event_type;not null"`
	Status           enums.InvoiceStatus    `gorm:"column:status;not null"`
	GrossRevenue     decimal.Decimal        `gorm:"column:gross_revenue;type:numeric(18,6);not null"`
	Currency         string                 `gorm:"column:currency;not null"`
	PaidAt           time.Time              `gorm:"column:paid_at;not null"`
	TransactionHash  *string                `gorm:"column:transaction_hash"`
	ShopID           uuid.UUID              `gorm:"column:shop_id;type:uuid;not null;index:idx_invoices_shop_id"`
	AffiliateUserID  uuid.UUID              `gorm:"column:affiliate_user_id;type:uuid;not null"`
	WalletProviderID uuid.UUID              `gorm:"column:wallet_provider_id;type:uuid;not null"`
	RawPayload       datatypes.JSON         `gorm:"column:raw_payload"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
