package commissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	"github.com/angelmondragon/affiliate-ledger/pkg/metrics"
)

// DefaultHoldPeriod delays availability of a paid commission.
const DefaultHoldPeriod = 7 * 24 * time.Hour

// amountScale matches the numeric(18,6) columns.
const amountScale = 6

type DeriverParams struct {
	Repo       Repository
	Shops      shops.Repository
	Logger     *logger.Logger
	Metrics    *metrics.LedgerMetrics
	HoldPeriod time.Duration
	BatchSize  int
}

// Deriver turns paid invoices into exactly one commission each.
type Deriver struct {
	repo       Repository
	shops      shops.Repository
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	holdPeriod time.Duration
	batchSize  int
}

func NewDeriver(params DeriverParams) (*Deriver, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "commission repository required")
	}
	if params.Shops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shop repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.HoldPeriod < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "hold period must not be negative")
	}
	hold := params.HoldPeriod
	if hold == 0 {
		hold = DefaultHoldPeriod
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &Deriver{
		repo:       params.Repo,
		shops:      params.Shops,
		logg:       params.Logger,
		metrics:    params.Metrics,
		holdPeriod: hold,
		batchSize:  batch,
	}, nil
}

// Split is the shop and platform share of a gross amount.
type Split struct {
	Net      decimal.Decimal
	Platform decimal.Decimal
}

// SplitRevenue computes net = gross*rate rounded to the ledger scale and gives
// the remainder to the platform, so the shares always sum to gross.
func SplitRevenue(gross, rate decimal.Decimal) (Split, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 1")
	}
	if gross.IsNegative() {
		return Split{}, pkgerrors.New(pkgerrors.CodeValidation, "gross revenue must not be negative")
	}
	net := gross.Mul(rate).Round(amountScale)
	return Split{Net: net, Platform: gross.Sub(net)}, nil
}

// Derive returns the commission for invoice, creating it when none exists.
// An existing commission is returned unchanged.
func (d *Deriver) Derive(ctx context.Context, invoice *models.Invoice, shop *models.Shop) (*models.Commission, error) {
	if invoice == nil || shop == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice and shop are required")
	}

	existing, err := d.repo.FindByInvoiceID(ctx, invoice.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup commission")
	}

	if invoice.Status != enums.InvoiceStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice is not paid")
	}
	if invoice.ShopID != shop.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice does not belong to shop")
	}
	split, err := SplitRevenue(invoice.GrossRevenue, shop.CommissionRate)
	if err != nil {
		return nil, err
	}

	invoiceID := invoice.ID
	availableAt := invoice.PaidAt.UTC().Add(d.holdPeriod)
	commission := &models.Commission{
		EventType:        invoice.EventType,
		Status:           enums.CommissionStatusPaid,
		GrossRevenue:     invoice.GrossRevenue,
		NetRevenue:       split.Net,
		PlatformRevenue:  split.Platform,
		AvailableAt:      &availableAt,
		ShopID:           shop.ID,
		WalletProviderID: invoice.WalletProviderID,
		AffiliateUserID:  invoice.AffiliateUserID,
		InvoiceID:        &invoiceID,
	}
	inserted, err := d.repo.InsertIfAbsent(ctx, commission)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create commission")
	}
	if !inserted {
		winner, err := d.repo.FindByInvoiceID(ctx, invoice.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload commission")
		}
		return winner, nil
	}
	d.metrics.AddCommissionsDerived(1)
	return commission, nil
}

// DerivePending derives commissions for every invoice lacking one, reading
// the backlog in pages of the batch size. Failed invoices are skipped by the
// cursor so they cannot starve newer ones; their errors are returned combined
// and they are retried on the next pass.
func (d *Deriver) DerivePending(ctx context.Context) (int, error) {
	shopsByID := map[uuid.UUID]*models.Shop{}
	var (
		cursor  *InvoiceCursor
		created int
		errs    error
	)
	for {
		invoices, err := d.repo.ListUnderivedInvoices(ctx, cursor, d.batchSize)
		if err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list underived invoices"))
			break
		}
		for i := range invoices {
			invoice := &invoices[i]
			if err := d.derivePendingOne(ctx, invoice, shopsByID); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("invoice %s: %w", invoice.ID, err))
				continue
			}
			created++
		}
		if len(invoices) < d.batchSize || ctx.Err() != nil {
			break
		}
		last := invoices[len(invoices)-1]
		cursor = &InvoiceCursor{PaidAt: last.PaidAt, ID: last.ID}
	}

	if created > 0 {
		d.logg.Info(d.logg.WithField(ctx, "count", created), "commissions derived")
	}
	return created, errs
}

func (d *Deriver) derivePendingOne(ctx context.Context, invoice *models.Invoice, shopsByID map[uuid.UUID]*models.Shop) error {
	shop, ok := shopsByID[invoice.ShopID]
	if !ok {
		var err error
		shop, err = d.shops.FindByID(ctx, invoice.ShopID)
		if err != nil {
			return fmt.Errorf("load shop: %w", err)
		}
		shopsByID[invoice.ShopID] = shop
	}
	_, err := d.Derive(ctx, invoice, shop)
	return err
}

// ListByShop returns the shop's commissions, newest first.
func (d *Deriver) ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Commission, error) {
	rows, err := d.repo.ListByShop(ctx, shopID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commissions")
	}
	return rows, nil
}
