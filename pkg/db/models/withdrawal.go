package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// Withdrawal is a shop's payout request. PENDING requests reserve balance.
type Withdrawal struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ShopID             uuid.UUID              `gorm:"column:shop_id;type:uuid;not null;index:idx_withdrawals_shop_status,priority:1"`
	RequestedAmount    decimal.Decimal        `gorm:"column:requested_amount;type:numeric(18,6);not null"`
	PaymentType        enums.PaymentType      `gorm:"column:payment_type;not null"`
	DestinationAddress *string                `gorm:"column:destination_address"`
	Status             enums.WithdrawalStatus `gorm:"column:status;not null;index:idx_withdrawals_shop_status,priority:2"`
	PayoutAmount       decimal.NullDecimal    `gorm:"column:payout_amount;type:numeric(18,6)"`
	TransactionHash    *string                `gorm:"column:transaction_hash"`
	FailureReason      *string                `gorm:"column:failure_reason"`
	PaidAt             *time.Time             `gorm:"column:paid_at"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Withdrawal) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}
