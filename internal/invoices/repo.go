package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
)

// Repository persists invoices keyed by their external id.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Invoice, error)
	InsertIfAbsent(ctx context.Context, invoice *models.Invoice) (bool, error)
	Reapply(ctx context.Context, invoice *models.Invoice) error
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByExternalID(ctx context.Context, externalID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) InsertIfAbsent(ctx context.Context, invoice *models.Invoice) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(invoice)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Reapply refreshes the settlement fields and the affiliate of an existing
// invoice. Shop and provider stay as first recorded.
func (r *repository) Reapply(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).
		Model(invoice).
		Select("status", "affiliate_user_id", "gross_revenue", "currency", "paid_at", "transaction_hash", "raw_payload", "updated_at").
		Updates(invoice).Error
}
