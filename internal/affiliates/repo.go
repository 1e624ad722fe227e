package affiliates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
)

// Identity is the natural key of an affiliate user.
type Identity struct {
	PartnerUserID    string
	WalletProviderID uuid.UUID
	ShopID           uuid.UUID
}

// Repository persists affiliate users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.AffiliateUser, error)
	FindByIdentity(ctx context.Context, identity Identity) (*models.AffiliateUser, error)
	InsertIfAbsent(ctx context.Context, user *models.AffiliateUser) (bool, error)
	UpdateSignupSource(ctx context.Context, id uuid.UUID, source enums.AcquisitionSource) error
	Activate(ctx context.Context, id uuid.UUID, at time.Time) error
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

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AffiliateUser, error) {
	var user models.AffiliateUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByIdentity(ctx context.Context, identity Identity) (*models.AffiliateUser, error) {
	var user models.AffiliateUser
	if err := r.db.WithContext(ctx).
		Where("partner_user_id = ? AND wallet_provider_id = ? AND shop_id = ?",
			identity.PartnerUserID, identity.WalletProviderID, identity.ShopID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) InsertIfAbsent(ctx context.Context, user *models.AffiliateUser) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partner_user_id"}, {Name: "wallet_provider_id"}, {Name: "shop_id"}},
			DoNothing: true,
		}).
		Create(user)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateSignupSource never touches ACTIVE rows.
func (r *repository) UpdateSignupSource(ctx context.Context, id uuid.UUID, source enums.AcquisitionSource) error {
	return r.db.WithContext(ctx).
		Model(&models.AffiliateUser{}).
		Where("id = ? AND status = ?", id, enums.AffiliateStatusSignup).
		Update("acquisition_source", source).Error
}

// Activate promotes the user to ACTIVE and keeps the first activation time.
func (r *repository) Activate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AffiliateUser{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.AffiliateStatusActive,
			"activated_at": gorm.Expr("COALESCE(activated_at, ?)", at),
		}).Error
}
