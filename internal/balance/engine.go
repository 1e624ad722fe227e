package balance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

// Balance is a shop's position at AsOf, recomputed from persisted records.
type Balance struct {
	ShopID               uuid.UUID
	AsOf                 time.Time
	AvailableCommissions decimal.Decimal
	PendingCommissions   decimal.Decimal
	PendingWithdrawals   decimal.Decimal
	PaidWithdrawals      decimal.Decimal
	// Available is AvailableCommissions minus PendingWithdrawals, never below zero.
	Available decimal.Decimal
}

// Engine computes balances on demand. There is no stored running total.
type Engine struct {
	repo Repository
}

func NewEngine(repo Repository) (*Engine, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balance repository required")
	}
	return &Engine{repo: repo}, nil
}

func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	if tx == nil {
		return e
	}
	return &Engine{repo: e.repo.WithTx(tx)}
}

func (e *Engine) Compute(ctx context.Context, shopID uuid.UUID, asOf time.Time) (*Balance, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	asOf = asOf.UTC()

	available, err := e.repo.CommissionAmounts(ctx, shopID, enums.CommissionStatusPaid, &asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum available commissions")
	}
	pending, err := e.repo.CommissionAmounts(ctx, shopID, enums.CommissionStatusPending, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum pending commissions")
	}
	pendingOut, err := e.repo.WithdrawalAmounts(ctx, shopID, enums.WithdrawalStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum pending withdrawals")
	}
	paidOut, err := e.repo.WithdrawalAmounts(ctx, shopID, enums.WithdrawalStatusPaid)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum paid withdrawals")
	}

	b := &Balance{
		ShopID:               shopID,
		AsOf:                 asOf,
		AvailableCommissions: sum(available),
		PendingCommissions:   sum(pending),
		PendingWithdrawals:   sum(pendingOut),
		PaidWithdrawals:      sum(paidOut),
	}
	b.Available = decimal.Max(decimal.Zero, b.AvailableCommissions.Sub(b.PendingWithdrawals))
	return b, nil
}

func sum(values []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
