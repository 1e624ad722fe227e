package withdrawals

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/balance"
	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/dbtest"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

type serviceFixture struct {
	conn  *gorm.DB
	svc   *Service
	clock *clock.FakeClock
	shop  *models.Shop
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	clk := clock.NewFakeClock(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	engine, err := balance.NewEngine(balance.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:              NewRepository(conn),
		Shops:             shops.NewRepository(conn),
		Balance:           engine,
		TransactionRunner: client,
		Clock:             clk,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	return serviceFixture{conn: conn, svc: svc, clock: clk, shop: dbtest.Shop(t, conn, "0.2")}
}

func (f serviceFixture) credit(t *testing.T, net string, availableAt *time.Time) {
	t.Helper()
	amount := decimal.RequireFromString(net)
	require.NoError(t, f.conn.Create(&models.Commission{
		EventType:        enums.RevenueEventTypeCPA,
		Status:           enums.CommissionStatusPaid,
		GrossRevenue:     amount,
		NetRevenue:       amount,
		PlatformRevenue:  decimal.Zero,
		AvailableAt:      availableAt,
		ShopID:           f.shop.ID,
		WalletProviderID: uuid.New(),
		AffiliateUserID:  uuid.New(),
	}).Error)
}

func strPtr(s string) *string { return &s }

func TestRequestAdmitsWithinBalance(t *testing.T) {
	f := newServiceFixture(t)
	f.credit(t, "20", nil)

	res, err := f.svc.Request(context.Background(), RequestInput{
		ShopID:             f.shop.ID,
		Amount:             decimal.NewFromInt(15),
		PaymentType:        "CRYPTO",
		DestinationAddress: strPtr("  0xwallet  "),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPending, res.Withdrawal.Status)
	assert.Equal(t, "0xwallet", *res.Withdrawal.DestinationAddress)
	assert.True(t, res.AvailableBalance.Equal(decimal.NewFromInt(5)))

	list, err := f.svc.List(context.Background(), f.shop.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestRequestRejectsAboveAvailable(t *testing.T) {
	f := newServiceFixture(t)
	future := f.clock.Now().Add(24 * time.Hour)
	f.credit(t, "20", &future)

	_, err := f.svc.Request(context.Background(), RequestInput{ShopID: f.shop.ID, Amount: decimal.NewFromInt(1), PaymentType: "FIAT"})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficient))

	var count int64
	require.NoError(t, f.conn.Model(&models.Withdrawal{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRequestValidation(t *testing.T) {
	f := newServiceFixture(t)
	f.credit(t, "100", nil)
	ctx := context.Background()

	cases := []RequestInput{
		{ShopID: f.shop.ID, Amount: decimal.Zero, PaymentType: "FIAT"},
		{ShopID: f.shop.ID, Amount: decimal.NewFromInt(-5), PaymentType: "FIAT"},
		{ShopID: f.shop.ID, Amount: decimal.RequireFromString("0.0000001"), PaymentType: "FIAT"},
		{ShopID: f.shop.ID, Amount: decimal.NewFromInt(5), PaymentType: "PAYPAL"},
		{ShopID: f.shop.ID, Amount: decimal.NewFromInt(5), PaymentType: "CRYPTO"},
		{ShopID: f.shop.ID, Amount: decimal.NewFromInt(5), PaymentType: "CRYPTO", DestinationAddress: strPtr("   ")},
	}
	for i, in := range cases {
		_, err := f.svc.Request(ctx, in)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "case %d: %v", i, err)
	}

	var count int64
	require.NoError(t, f.conn.Model(&models.Withdrawal{}).Count(&count).Error)
	assert.Zero(t, count)

	res, err := f.svc.Request(ctx, RequestInput{ShopID: f.shop.ID, Amount: decimal.NewFromInt(5), PaymentType: "FIAT"})
	require.NoError(t, err)
	assert.Nil(t, res.Withdrawal.DestinationAddress)

	_, err = f.svc.Request(ctx, RequestInput{ShopID: uuid.New(), Amount: decimal.NewFromInt(5), PaymentType: "FIAT"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestConcurrentRequestsCannotOverdraw(t *testing.T) {
	f := newServiceFixture(t)
	f.credit(t, "20", nil)

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Request(context.Background(), RequestInput{
				ShopID:      f.shop.ID,
				Amount:      decimal.NewFromInt(8),
				PaymentType: "FIAT",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case pkgerrors.Is(err, pkgerrors.CodeInsufficient):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, admitted)
	assert.Equal(t, workers-2, rejected)

	var amounts []decimal.Decimal
	require.NoError(t, f.conn.Model(&models.Withdrawal{}).Where("shop_id = ?", f.shop.ID).Pluck("requested_amount", &amounts).Error)
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	assert.True(t, total.LessThanOrEqual(decimal.NewFromInt(20)))
}

func TestLifecycleTransitions(t *testing.T) {
	f := newServiceFixture(t)
	f.credit(t, "50", nil)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, RequestInput{ShopID: f.shop.ID, Amount: decimal.NewFromInt(30), PaymentType: "FIAT"})
	require.NoError(t, err)
	id := res.Withdrawal.ID

	_, err = f.svc.MarkPaid(ctx, id, MarkPaidInput{PayoutAmount: decimal.NewFromInt(29)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "PENDING cannot jump to PAID")

	processing, err := f.svc.MarkProcessing(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusProcessing, processing.Status)

	_, err = f.svc.MarkPaid(ctx, id, MarkPaidInput{PayoutAmount: decimal.NewFromInt(31)})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	paid, err := f.svc.MarkPaid(ctx, id, MarkPaidInput{PayoutAmount: decimal.RequireFromString("29.5"), TransactionHash: strPtr("0xfeed")})
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusPaid, paid.Status)
	require.True(t, paid.PayoutAmount.Valid)
	assert.True(t, paid.PayoutAmount.Decimal.Equal(decimal.RequireFromString("29.5")))
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(f.clock.Now()))

	_, err = f.svc.MarkFailed(ctx, id, "late failure")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict), "PAID is terminal")

	_, err = f.svc.MarkProcessing(ctx, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestFailedWithdrawalReleasesReservation(t *testing.T) {
	f := newServiceFixture(t)
	f.credit(t, "20", nil)
	ctx := context.Background()

	res, err := f.svc.Request(ctx, RequestInput{ShopID: f.shop.ID, Amount: decimal.NewFromInt(20), PaymentType: "FIAT"})
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, RequestInput{ShopID: f.shop.ID, Amount: decimal.NewFromInt(1), PaymentType: "FIAT"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficient))

	failed, err := f.svc.MarkFailed(ctx, res.Withdrawal.ID, "bank rejected")
	require.NoError(t, err)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "bank rejected", *failed.FailureReason)

	_, err = f.svc.Request(ctx, RequestInput{ShopID: f.shop.ID, Amount: decimal.NewFromInt(20), PaymentType: "FIAT"})
	require.NoError(t, err)
}
