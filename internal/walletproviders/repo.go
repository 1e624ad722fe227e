package walletproviders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
)

// Repository manages wallet provider records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, provider *models.WalletProvider) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.WalletProvider, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*models.WalletProvider, error)
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

func (r *repository) Create(ctx context.Context, provider *models.WalletProvider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WalletProvider, error) {
	var provider models.WalletProvider
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&provider).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *repository) FindByAPIKey(ctx context.Context, apiKey string) (*models.WalletProvider, error) {
	var provider models.WalletProvider
	if err := r.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&provider).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}
