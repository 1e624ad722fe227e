package invoices

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/internal/walletproviders"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	"github.com/angelmondragon/affiliate-ledger/pkg/metrics"
)

// UpsertInput is a settled activation reported by a provider.
type UpsertInput struct {
	ExternalID       string
	ShopID           uuid.UUID
	WalletProviderID uuid.UUID
	AffiliateUserID  uuid.UUID
	GrossRevenue     decimal.Decimal
	Currency         string
	PaidAt           *time.Time
	TransactionHash  *string
	EventType        enums.RevenueEventType
	RawPayload       []byte
}

type LedgerParams struct {
	Repo            Repository
	Shops           shops.Repository
	Providers       walletproviders.Repository
	Clock           clock.Clock
	Logger          *logger.Logger
	Metrics         *metrics.LedgerMetrics
	DefaultCurrency string
}

// Ledger records invoices. It never touches commissions.
type Ledger struct {
	repo            Repository
	shops           shops.Repository
	providers       walletproviders.Repository
	clock           clock.Clock
	logg            *logger.Logger
	metrics         *metrics.LedgerMetrics
	defaultCurrency string
}

func NewLedger(params LedgerParams) (*Ledger, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice repository required")
	}
	if params.Shops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shop repository required")
	}
	if params.Providers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet provider repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	currency := strings.ToUpper(strings.TrimSpace(params.DefaultCurrency))
	if currency == "" {
		currency = "EUR"
	}
	return &Ledger{
		repo:            params.Repo,
		shops:           params.Shops,
		providers:       params.Providers,
		clock:           clk,
		logg:            params.Logger,
		metrics:         params.Metrics,
		defaultCurrency: currency,
	}, nil
}

func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	clone := *l
	clone.repo = l.repo.WithTx(tx)
	clone.shops = l.shops.WithTx(tx)
	clone.providers = l.providers.WithTx(tx)
	return &clone
}

// UpsertOnActivation creates the invoice as PAID or re-applies the settlement
// fields of an existing one. A changed gross revenue is accepted but reported
// as an anomaly since its commission keeps the original amounts.
func (l *Ledger) UpsertOnActivation(ctx context.Context, input UpsertInput) (*models.Invoice, error) {
	externalID := strings.TrimSpace(input.ExternalID)
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "externalInvoiceId is required")
	}
	if !input.GrossRevenue.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "grossRevenue must be positive")
	}
	eventType := input.EventType
	if eventType == "" {
		eventType = enums.RevenueEventTypeCPA
	}
	if !eventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported eventType")
	}
	if input.AffiliateUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate user is required")
	}
	if err := l.requireShopAndProvider(ctx, input.ShopID, input.WalletProviderID); err != nil {
		return nil, err
	}

	paidAt := l.clock.Now()
	if input.PaidAt != nil && !input.PaidAt.IsZero() {
		paidAt = input.PaidAt.UTC()
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = l.defaultCurrency
	}
	var raw datatypes.JSON
	if len(input.RawPayload) > 0 {
		raw = datatypes.JSON(input.RawPayload)
	}

	candidate := &models.Invoice{
		ExternalID:       externalID,
		EventType:        eventType,
		Status:           enums.InvoiceStatusPaid,
		GrossRevenue:     input.GrossRevenue,
		Currency:         currency,
		PaidAt:           paidAt,
		TransactionHash:  input.TransactionHash,
		ShopID:           input.ShopID,
		AffiliateUserID:  input.AffiliateUserID,
		WalletProviderID: input.WalletProviderID,
		RawPayload:       raw,
	}

	existing, err := l.repo.FindByExternalID(ctx, externalID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup invoice")
	}
	if existing == nil {
		inserted, err := l.repo.InsertIfAbsent(ctx, candidate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create invoice")
		}
		if inserted {
			return candidate, nil
		}
		existing, err = l.repo.FindByExternalID(ctx, externalID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload invoice")
		}
	}

	if !existing.GrossRevenue.Equal(candidate.GrossRevenue) {
		warnCtx := l.logg.WithFields(ctx, map[string]any{
			"invoice_id":     existing.ID.String(),
			"external_id":    externalID,
			"previous_gross": existing.GrossRevenue.String(),
			"incoming_gross": candidate.GrossRevenue.String(),
		})
		l.logg.Warn(warnCtx, "invoice gross revenue changed on redelivery")
		l.metrics.IncInvoiceAnomaly()
	}

	existing.Status = candidate.Status
	existing.AffiliateUserID = candidate.AffiliateUserID
	existing.GrossRevenue = candidate.GrossRevenue
	existing.Currency = candidate.Currency
	existing.PaidAt = candidate.PaidAt
	existing.TransactionHash = candidate.TransactionHash
	existing.RawPayload = candidate.RawPayload
	existing.UpdatedAt = l.clock.Now()
	if err := l.repo.Reapply(ctx, existing); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update invoice")
	}
	return existing, nil
}

func (l *Ledger) requireShopAndProvider(ctx context.Context, shopID, providerID uuid.UUID) error {
	if _, err := l.shops.FindByID(ctx, shopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop")
	}
	if _, err := l.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wallet provider not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup wallet provider")
	}
	return nil
}
