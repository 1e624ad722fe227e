package balance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// Repository reads the amounts the balance is reduced from. Sums are done in
// decimal on the caller side so sqlite and Postgres agree to the last digit.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// CommissionAmounts returns net revenue of the shop's commissions in
	// status. When availableAsOf is set only rows with available_at NULL or
	// not after it are included.
	CommissionAmounts(ctx context.Context, shopID uuid.UUID, status enums.CommissionStatus, availableAsOf *time.Time) ([]decimal.Decimal, error)
	WithdrawalAmounts(ctx context.Context, shopID uuid.UUID, status enums.WithdrawalStatus) ([]decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CommissionAmounts(ctx context.Context, shopID uuid.UUID, status enums.CommissionStatus, availableAsOf *time.Time) ([]decimal.Decimal, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("shop_id = ? AND status = ?", shopID, status)
	if availableAsOf != nil {
		q = q.Where("(available_at IS NULL OR available_at <= ?)", availableAsOf.UTC())
	}
	var amounts []decimal.Decimal
	if err := q.Pluck("net_revenue", &amounts).Error; err != nil {
		return nil, err
	}
	return amounts, nil
}

func (r *repository) WithdrawalAmounts(ctx context.Context, shopID uuid.UUID, status enums.WithdrawalStatus) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("shop_id = ? AND status = ?", shopID, status).
		Pluck("requested_amount", &amounts).Error; err != nil {
		return nil, err
	}
	return amounts, nil
}
