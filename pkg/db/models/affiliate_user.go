package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// AffiliateUser is a wallet user referred by a shop. It is unique per
// (partner user, wallet provider, shop).
type AffiliateUser struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PartnerUserID     string                  `gorm:"column:partner_user_id;not null;uniqueIndex:ux_affiliate_users_identity,priority:1"`
	WalletProviderID  uuid.UUID               `gorm:"column:wallet_provider_id;type:uuid;not null;uniqueIndex:ux_affiliate_users_identity,priority:2"`
	ShopID            uuid.UUID               `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:ux_affiliate_users_identity,priority:3;index:idx_affiliate_users_shop_id"`
	Status            enums.AffiliateStatus   `gorm:"column:status;not null"`
	AcquisitionSource enums.AcquisitionSource `gorm:"column:acquisition_source;not null"`
	ActivatedAt       *time.Time              `gorm:"column:activated_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *AffiliateUser) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
