package shops

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
)

// Repository handles shop persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Shop, error)
	FindByAffiliationCode(ctx context.Context, code string) (*models.Shop, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindByAffiliationCode(ctx context.Context, code string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("affiliation_code = ?", code).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// LockByID reads the shop with FOR UPDATE so callers in the same transaction
// serialize per shop. sqlite drops the locking clause; its single writer
// connection gives the same ordering.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}
