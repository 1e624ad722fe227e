package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
)

// Shop inserts an active shop with the given commission rate.
func Shop(t testing.TB, conn *gorm.DB, rate string) *models.Shop {
	t.Helper()
	owner := uuid.New()
	shop := &models.Shop{
		UserID:          &owner,
		Name:            "Shop " + owner.String()[:8],
		CommissionRate:  decimal.RequireFromString(rate),
		AffiliationCode: "AFF-" + owner.String()[:8],
		IsActive:        true,
	}
	if err := conn.Create(shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	return shop
}

// Provider inserts an active wallet provider.
func Provider(t testing.TB, conn *gorm.DB) *models.WalletProvider {
	t.Helper()
	key := uuid.NewString()
	provider := &models.WalletProvider{
		Name:     "Wallet " + key[:8],
		APIKey:   key,
		IsActive: true,
	}
	if err := conn.Create(provider).Error; err != nil {
		t.Fatalf("seed wallet provider: %v", err)
	}
	return provider
}
