// Package pilot seeds and purges the demo data used for pilot runs.
package pilot

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/internal/walletproviders"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

const (
	DemoAffiliationCode = "PILOT-DEMO"
	DemoProviderAPIKey  = "pilot-demo-wallet"
)

var demoCommissionRate = decimal.RequireFromString("0.15")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Shops             shops.Repository
	Providers         walletproviders.Repository
	TransactionRunner txRunner
	Logger            *logger.Logger
}

type Service struct {
	shops     shops.Repository
	providers walletproviders.Repository
	txRunner  txRunner
	logg      *logger.Logger
}

// SeedResult reports the demo rows and whether each one was created.
type SeedResult struct {
	Shop            *models.Shop
	Provider        *models.WalletProvider
	ShopCreated     bool
	ProviderCreated bool
}

// ResetResult counts rows removed by Reset.
type ResetResult struct {
	Commissions    int64
	Invoices       int64
	AffiliateUsers int64
	WebhookEvents  int64
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Shops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shop repository required")
	}
	if params.Providers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet provider repository required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		shops:     params.Shops,
		providers: params.Providers,
		txRunner:  params.TransactionRunner,
		logg:      params.Logger,
	}, nil
}

// Seed makes sure the demo shop and wallet provider exist. Existing rows
// matched by affiliation code and api key are left as they are.
func (s *Service) Seed(ctx context.Context) (*SeedResult, error) {
	var result SeedResult
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		shop, created, err := s.seedShop(ctx, s.shops.WithTx(tx))
		if err != nil {
			return err
		}
		provider, providerCreated, err := s.seedProvider(ctx, s.providers.WithTx(tx))
		if err != nil {
			return err
		}
		result = SeedResult{Shop: shop, Provider: provider, ShopCreated: created, ProviderCreated: providerCreated}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":          result.Shop.ID.String(),
		"provider_id":      result.Provider.ID.String(),
		"shop_created":     result.ShopCreated,
		"provider_created": result.ProviderCreated,
	})
	s.logg.Info(logCtx, "pilot data seeded")
	return &result, nil
}

func (s *Service) seedShop(ctx context.Context, repo shops.Repository) (*models.Shop, bool, error) {
	existing, err := repo.FindByAffiliationCode(ctx, DemoAffiliationCode)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup demo shop")
	}
	shop := &models.Shop{
		Name:            "Pilot Demo Shop",
		Address:         "Demo Street 1",
		CommissionRate:  demoCommissionRate,
		AffiliationCode: DemoAffiliationCode,
		IsActive:        true,
	}
	if err := repo.Create(ctx, shop); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create demo shop")
	}
	return shop, true, nil
}

func (s *Service) seedProvider(ctx context.Context, repo walletproviders.Repository) (*models.WalletProvider, bool, error) {
	existing, err := repo.FindByAPIKey(ctx, DemoProviderAPIKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup demo wallet provider")
	}
	provider := &models.WalletProvider{
		Name:     "Pilot Demo Wallet",
		APIKey:   DemoProviderAPIKey,
		IsActive: true,
	}
	if err := repo.Create(ctx, provider); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create demo wallet provider")
	}
	return provider, true, nil
}

// Reset purges CPA commissions and invoices, affiliate users and webhook
// events in one transaction. Shops, providers and withdrawals stay.
func (s *Service) Reset(ctx context.Context) (*ResetResult, error) {
	var result ResetResult
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		steps := []struct {
			name  string
			count *int64
			run   func(*gorm.DB) *gorm.DB
		}{
			{"commissions", &result.Commissions, func(db *gorm.DB) *gorm.DB {
				return db.Where("event_type = ?", enums.RevenueEventTypeCPA).Delete(&models.Commission{})
			}},
			{"invoices", &result.Invoices, func(db *gorm.DB) *gorm.DB {
				return db.Where("event_type = ?", enums.RevenueEventTypeCPA).Delete(&models.Invoice{})
			}},
			{"affiliate users", &result.AffiliateUsers, func(db *gorm.DB) *gorm.DB {
				return db.Where("1 = 1").Delete(&models.AffiliateUser{})
			}},
			{"webhook events", &result.WebhookEvents, func(db *gorm.DB) *gorm.DB {
				return db.Where("1 = 1").Delete(&models.WebhookEvent{})
			}},
		}
		for _, step := range steps {
			res := step.run(tx.WithContext(ctx))
			if res.Error != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "delete "+step.name)
			}
			*step.count = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"commissions":     result.Commissions,
		"invoices":        result.Invoices,
		"affiliate_users": result.AffiliateUsers,
		"webhook_events":  result.WebhookEvents,
	})
	s.logg.Warn(logCtx, "pilot data reset")
	return &result, nil
}
