package commissions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// Repository persists commission entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*models.Commission, error)
	InsertIfAbsent(ctx context.Context, commission *models.Commission) (bool, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Commission, error)
	// ListUnderivedInvoices returns PAID invoices that have no commission yet,
	// ordered by (paid_at, id) and starting strictly after the cursor when set.
	ListUnderivedInvoices(ctx context.Context, after *InvoiceCursor, limit int) ([]models.Invoice, error)
}

// InvoiceCursor is the position of the last invoice a derivation pass visited.
type InvoiceCursor struct {
	PaidAt time.Time
	ID     uuid.UUID
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

func (r *repository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*models.Commission, error) {
	var commission models.Commission
	if err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).First(&commission).Error; err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *repository) InsertIfAbsent(ctx context.Context, commission *models.Commission) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "invoice_id"}}, DoNothing: true}).
		Create(commission)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Commission, error) {
	var rows []models.Commission
	q := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListUnderivedInvoices(ctx context.Context, after *InvoiceCursor, limit int) ([]models.Invoice, error) {
	var rows []models.Invoice
	q := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Select("invoices.*").
		Joins("LEFT JOIN commissions ON commissions.invoice_id = invoices.id").
		Where("commissions.id IS NULL AND invoices.status = ?", enums.InvoiceStatusPaid)
	if after != nil {
		q = q.Where("(invoices.paid_at > ? OR (invoices.paid_at = ? AND invoices.id > ?))", after.PaidAt, after.PaidAt, after.ID)
	}
	q = q.Order("invoices.paid_at ASC").Order("invoices.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
