package affiliates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/internal/walletproviders"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/dbtest"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

type resolverFixture struct {
	conn     *gorm.DB
	resolver *Resolver
	clock    *clock.FakeClock
	shop     *models.Shop
	provider *models.WalletProvider
}

func newResolverFixture(t *testing.T) resolverFixture {
	t.Helper()
	conn := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	resolver, err := NewResolver(ResolverParams{
		Repo:      NewRepository(conn),
		Shops:     shops.NewRepository(conn),
		Providers: walletproviders.NewRepository(conn),
		Clock:     clk,
	})
	require.NoError(t, err)
	return resolverFixture{
		conn:     conn,
		resolver: resolver,
		clock:    clk,
		shop:     dbtest.Shop(t, conn, "0.2"),
		provider: dbtest.Provider(t, conn),
	}
}

func TestSignupCreatesOnceAndUpdatesSource(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)

	first, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{
		ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: " bob ",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AffiliateStatusSignup, first.Status)
	assert.Equal(t, enums.AcquisitionSourceQR, first.AcquisitionSource)
	assert.Equal(t, "bob", first.PartnerUserID)
	assert.Nil(t, first.ActivatedAt)

	second, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{
		ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "bob", AcquisitionSource: enums.AcquisitionSourceLink,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, enums.AcquisitionSourceLink, second.AcquisitionSource)

	var count int64
	require.NoError(t, f.conn.Model(&models.AffiliateUser{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSignupSamePartnerUnderOtherProviderIsDistinct(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	other := dbtest.Provider(t, f.conn)

	a, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "bob"})
	require.NoError(t, err)
	b, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: f.shop.ID, WalletProviderID: other.ID, PartnerUserID: "bob"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSignupRequiresExistingShopAndProvider(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)

	_, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: uuid.New(), WalletProviderID: f.provider.ID, PartnerUserID: "bob"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: f.shop.ID, WalletProviderID: uuid.New(), PartnerUserID: "bob"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestActivationByTripleCreatesAndUsesPaidAt(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)
	paidAt := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	user, err := f.resolver.ResolveOrActivate(ctx, ActivationInput{
		ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "carol", PaidAt: &paidAt,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AffiliateStatusActive, user.Status)
	require.NotNil(t, user.ActivatedAt)
	assert.True(t, user.ActivatedAt.Equal(paidAt))
}

func TestActivationNeverRegressesOrOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)

	signup, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "bob"})
	require.NoError(t, err)

	active, err := f.resolver.ResolveOrActivate(ctx, ActivationInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID, AffiliateUserID: &signup.ID})
	require.NoError(t, err)
	require.NotNil(t, active.ActivatedAt)
	firstActivation := *active.ActivatedAt
	assert.True(t, firstActivation.Equal(f.clock.Now()))

	f.clock.Advance(48 * time.Hour)
	later := f.clock.Now()
	again, err := f.resolver.ResolveOrActivate(ctx, ActivationInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "bob", PaidAt: &later})
	require.NoError(t, err)
	assert.Equal(t, enums.AffiliateStatusActive, again.Status)
	assert.True(t, again.ActivatedAt.Equal(firstActivation))

	afterSignup, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{
		ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "bob", AcquisitionSource: enums.AcquisitionSourceAPI,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AffiliateStatusActive, afterSignup.Status)
	assert.Equal(t, enums.AcquisitionSourceQR, afterSignup.AcquisitionSource)
	require.NotNil(t, afterSignup.ActivatedAt)
	assert.True(t, afterSignup.ActivatedAt.Equal(firstActivation))
}

func TestActivationAddressingErrors(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)

	missing := uuid.New()
	_, err := f.resolver.ResolveOrActivate(ctx, ActivationInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID, AffiliateUserID: &missing})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = f.resolver.ResolveOrActivate(ctx, ActivationInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	otherShop := dbtest.Shop(t, f.conn, "0.1")
	user, err := f.resolver.ResolveOrCreateOnSignup(ctx, SignupInput{ShopID: otherShop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "dave"})
	require.NoError(t, err)
	_, err = f.resolver.ResolveOrActivate(ctx, ActivationInput{ShopID: f.shop.ID, WalletProviderID: f.provider.ID, AffiliateUserID: &user.ID})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestResolverWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newResolverFixture(t)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		if _, err := f.resolver.WithTx(tx).ResolveOrCreateOnSignup(ctx, SignupInput{
			ShopID: f.shop.ID, WalletProviderID: f.provider.ID, PartnerUserID: "erin",
		}); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeInternal, "abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.conn.Model(&models.AffiliateUser{}).Count(&count).Error)
	assert.Zero(t, count)
}
