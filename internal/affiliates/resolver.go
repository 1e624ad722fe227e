package affiliates

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/internal/walletproviders"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

// SignupInput addresses an affiliate by its natural key.
type SignupInput struct {
	ShopID            uuid.UUID
	WalletProviderID  uuid.UUID
	PartnerUserID     string
	AcquisitionSource enums.AcquisitionSource
}

// ActivationInput addresses an affiliate either by AffiliateUserID or by the
// (PartnerUserID, WalletProviderID, ShopID) triple.
type ActivationInput struct {
	ShopID            uuid.UUID
	WalletProviderID  uuid.UUID
	PartnerUserID     string
	AffiliateUserID   *uuid.UUID
	PaidAt            *time.Time
	AcquisitionSource enums.AcquisitionSource
}

type ResolverParams struct {
	Repo      Repository
	Shops     shops.Repository
	Providers walletproviders.Repository
	Clock     clock.Clock
}

// Resolver finds, creates and activates affiliate users. Status only moves
// SIGNUP to ACTIVE and activated_at is written once.
type Resolver struct {
	repo      Repository
	shops     shops.Repository
	providers walletproviders.Repository
	clock     clock.Clock
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "affiliate repository required")
	}
	if params.Shops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shop repository required")
	}
	if params.Providers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet provider repository required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Resolver{repo: params.Repo, shops: params.Shops, providers: params.Providers, clock: clk}, nil
}

// WithTx returns a resolver whose reads and writes run on tx.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	if tx == nil {
		return r
	}
	return &Resolver{
		repo:      r.repo.WithTx(tx),
		shops:     r.shops.WithTx(tx),
		providers: r.providers.WithTx(tx),
		clock:     r.clock,
	}
}

// ResolveOrCreateOnSignup returns the affiliate for the triple, creating it in
// SIGNUP when absent. The shop and provider must already exist.
func (r *Resolver) ResolveOrCreateOnSignup(ctx context.Context, input SignupInput) (*models.AffiliateUser, error) {
	identity, err := r.identity(ctx, input.ShopID, input.WalletProviderID, input.PartnerUserID)
	if err != nil {
		return nil, err
	}
	source := input.AcquisitionSource
	if source == "" {
		source = enums.AcquisitionSourceQR
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid acquisition source")
	}

	user, err := r.findOrCreate(ctx, identity, source)
	if err != nil {
		return nil, err
	}
	if user.Status == enums.AffiliateStatusSignup && user.AcquisitionSource != source {
		if err := r.repo.UpdateSignupSource(ctx, user.ID, source); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update acquisition source")
		}
		user.AcquisitionSource = source
	}
	return user, nil
}

// ResolveOrActivate promotes the addressed affiliate to ACTIVE. An explicit
// affiliate id must exist and belong to the shop and provider; a triple is
// found or created first.
func (r *Resolver) ResolveOrActivate(ctx context.Context, input ActivationInput) (*models.AffiliateUser, error) {
	if err := r.requireShopAndProvider(ctx, input.ShopID, input.WalletProviderID); err != nil {
		return nil, err
	}

	var (
		user        *models.AffiliateUser
		activatedAt = r.clock.Now()
	)
	switch {
	case input.AffiliateUserID != nil && *input.AffiliateUserID != uuid.Nil:
		found, err := r.repo.FindByID(ctx, *input.AffiliateUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "affiliate user not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup affiliate user")
		}
		if found.ShopID != input.ShopID || found.WalletProviderID != input.WalletProviderID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliate user does not belong to shop and provider")
		}
		user = found

	case strings.TrimSpace(input.PartnerUserID) != "":
		source := input.AcquisitionSource
		if source == "" {
			source = enums.AcquisitionSourceQR
		}
		if !source.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid acquisition source")
		}
		identity := Identity{
			PartnerUserID:    strings.TrimSpace(input.PartnerUserID),
			WalletProviderID: input.WalletProviderID,
			ShopID:           input.ShopID,
		}
		found, err := r.findOrCreate(ctx, identity, source)
		if err != nil {
			return nil, err
		}
		user = found
		if input.PaidAt != nil && !input.PaidAt.IsZero() {
			activatedAt = input.PaidAt.UTC()
		}

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "affiliateUserId or partnerUserId is required")
	}

	if user.Status == enums.AffiliateStatusActive && user.ActivatedAt != nil {
		return user, nil
	}
	if err := r.repo.Activate(ctx, user.ID, activatedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate affiliate user")
	}
	activated, err := r.repo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload affiliate user")
	}
	return activated, nil
}

func (r *Resolver) identity(ctx context.Context, shopID, providerID uuid.UUID, partnerUserID string) (Identity, error) {
	partner := strings.TrimSpace(partnerUserID)
	if partner == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeValidation, "partnerUserId is required")
	}
	if err := r.requireShopAndProvider(ctx, shopID, providerID); err != nil {
		return Identity{}, err
	}
	return Identity{PartnerUserID: partner, WalletProviderID: providerID, ShopID: shopID}, nil
}

func (r *Resolver) requireShopAndProvider(ctx context.Context, shopID, providerID uuid.UUID) error {
	if shopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shopId is required")
	}
	if providerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "walletProviderId is required")
	}
	if _, err := r.shops.FindByID(ctx, shopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup shop")
	}
	if _, err := r.providers.FindByID(ctx, providerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wallet provider not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup wallet provider")
	}
	return nil
}

// findOrCreate inserts a SIGNUP row when the identity is new and then reads
// whichever row won.
func (r *Resolver) findOrCreate(ctx context.Context, identity Identity, source enums.AcquisitionSource) (*models.AffiliateUser, error) {
	user, err := r.repo.FindByIdentity(ctx, identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup affiliate user")
	}

	candidate := &models.AffiliateUser{
		PartnerUserID:     identity.PartnerUserID,
		WalletProviderID:  identity.WalletProviderID,
		ShopID:            identity.ShopID,
		Status:            enums.AffiliateStatusSignup,
		AcquisitionSource: source,
	}
	inserted, err := r.repo.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create affiliate user")
	}
	if inserted {
		return candidate, nil
	}
	user, err = r.repo.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload affiliate user")
	}
	return user, nil
}
