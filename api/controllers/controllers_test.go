package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/affiliate-ledger/api/middleware"
	"github.com/angelmondragon/affiliate-ledger/internal/balance"
	"github.com/angelmondragon/affiliate-ledger/internal/withdrawals"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

var testShop = &models.Shop{ID: uuid.MustParse("9a4c1d3e-0b2f-4e6a-8c7d-5f1e2a3b4c5d"), Name: "Acme"}

func shopRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(middleware.WithShop(r.Context(), testShop))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return errBody["code"].(string)
}

type stubWithdrawals struct {
	lastInput withdrawals.RequestInput
	requestFn func(withdrawals.RequestInput) (*withdrawals.RequestResult, error)
	rows      []models.Withdrawal

	lastPaid   withdrawals.MarkPaidInput
	lastReason string
	transition func(id uuid.UUID) (*models.Withdrawal, error)
}

func (s *stubWithdrawals) Request(_ context.Context, input withdrawals.RequestInput) (*withdrawals.RequestResult, error) {
	s.lastInput = input
	return s.requestFn(input)
}

func (s *stubWithdrawals) List(context.Context, uuid.UUID) ([]models.Withdrawal, error) {
	return s.rows, nil
}

func (s *stubWithdrawals) MarkProcessing(_ context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return s.transition(id)
}

func (s *stubWithdrawals) MarkPaid(_ context.Context, id uuid.UUID, input withdrawals.MarkPaidInput) (*models.Withdrawal, error) {
	s.lastPaid = input
	return s.transition(id)
}

func (s *stubWithdrawals) MarkFailed(_ context.Context, id uuid.UUID, reason string) (*models.Withdrawal, error) {
	s.lastReason = reason
	return s.transition(id)
}

func TestRequestWithdrawal(t *testing.T) {
	id := uuid.New()
	svc := &stubWithdrawals{requestFn: func(in withdrawals.RequestInput) (*withdrawals.RequestResult, error) {
		return &withdrawals.RequestResult{
			Withdrawal:       &models.Withdrawal{ID: id, Status: enums.WithdrawalStatusPending, RequestedAmount: in.Amount},
			AvailableBalance: decimal.RequireFromString("4.5"),
		}, nil
	}}
	rec := httptest.NewRecorder()
	RequestWithdrawal(svc, logger.Nop())(rec, shopRequest(http.MethodPost, "/api/v1/withdrawals",
		`{"amount":15.5,"paymentType":"CRYPTO","destinationAddress":"0xabc"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, id.String(), body["withdrawalId"])
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, json.Number("4.5"), body["availableBalance"])

	assert.Equal(t, testShop.ID, svc.lastInput.ShopID)
	assert.True(t, svc.lastInput.Amount.Equal(decimal.RequireFromString("15.5")))
	require.NotNil(t, svc.lastInput.DestinationAddress)
	assert.Equal(t, "0xabc", *svc.lastInput.DestinationAddress)
}

func TestRequestWithdrawalRejections(t *testing.T) {
	svc := &stubWithdrawals{requestFn: func(withdrawals.RequestInput) (*withdrawals.RequestResult, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficient, "insufficient balance")
	}}

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing amount", `{"paymentType":"FIAT"}`, http.StatusBadRequest, string(pkgerrors.CodeValidation)},
		{"missing payment type", `{"amount":1}`, http.StatusBadRequest, string(pkgerrors.CodeValidation)},
		{"unknown field", `{"amount":1,"paymentType":"FIAT","extra":true}`, http.StatusBadRequest, string(pkgerrors.CodeValidation)},
		{"insufficient", `{"amount":1000,"paymentType":"FIAT"}`, http.StatusBadRequest, string(pkgerrors.CodeInsufficient)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequestWithdrawal(svc, logger.Nop())(rec, shopRequest(http.MethodPost, "/api/v1/withdrawals", tc.body))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestRequestWithdrawalWithoutShop(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/withdrawals", strings.NewReader(`{}`))
	RequestWithdrawal(&stubWithdrawals{}, logger.Nop())(rec, r)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListWithdrawals(t *testing.T) {
	svc := &stubWithdrawals{rows: []models.Withdrawal{
		{ID: uuid.New(), RequestedAmount: decimal.NewFromInt(10), PaymentType: enums.PaymentTypeFiat, Status: enums.WithdrawalStatusPaid,
			PayoutAmount: decimal.NewNullDecimal(decimal.RequireFromString("9.75"))},
	}}
	rec := httptest.NewRecorder()
	ListWithdrawals(svc, logger.Nop())(rec, shopRequest(http.MethodGet, "/api/v1/withdrawals", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	items := body["withdrawals"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, json.Number("10"), item["amount"])
	assert.Equal(t, json.Number("9.75"), item["payoutAmount"])
	assert.Equal(t, "PAID", item["status"])
}

type stubCommissions struct {
	limit int
	rows  []models.Commission
}

func (s *stubCommissions) ListByShop(_ context.Context, _ uuid.UUID, limit int) ([]models.Commission, error) {
	s.limit = limit
	return s.rows, nil
}

func TestListCommissions(t *testing.T) {
	svc := &stubCommissions{rows: []models.Commission{{
		ID:              uuid.New(),
		EventType:       enums.RevenueEventTypeCPA,
		Status:          enums.CommissionStatusPending,
		GrossRevenue:    decimal.NewFromInt(100),
		NetRevenue:      decimal.NewFromInt(20),
		PlatformRevenue: decimal.NewFromInt(80),
	}}}

	rec := httptest.NewRecorder()
	ListCommissions(svc, logger.Nop())(rec, shopRequest(http.MethodGet, "/api/v1/commissions", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultCommissionsLimit, svc.limit)
	items := decodeBody(t, rec)["commissions"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, json.Number("20"), items[0].(map[string]any)["netRevenue"])

	rec = httptest.NewRecorder()
	ListCommissions(svc, logger.Nop())(rec, shopRequest(http.MethodGet, "/api/v1/commissions?limit=5", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.limit)

	rec = httptest.NewRecorder()
	ListCommissions(svc, logger.Nop())(rec, shopRequest(http.MethodGet, "/api/v1/commissions?limit=500", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type stubBalance struct {
	asOf time.Time
}

func (s *stubBalance) Compute(_ context.Context, shopID uuid.UUID, asOf time.Time) (*balance.Balance, error) {
	s.asOf = asOf
	return &balance.Balance{
		ShopID:               shopID,
		AvailableCommissions: decimal.NewFromInt(30),
		PendingCommissions:   decimal.NewFromInt(12),
		PendingWithdrawals:   decimal.NewFromInt(10),
		PaidWithdrawals:      decimal.NewFromInt(5),
		Available:            decimal.NewFromInt(20),
	}, nil
}

func TestBalance(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	engine := &stubBalance{}
	rec := httptest.NewRecorder()
	Balance(engine, clock.NewFakeClock(now), "EUR", logger.Nop())(rec, shopRequest(http.MethodGet, "/api/v1/balance", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, engine.asOf.Equal(now))
	body := decodeBody(t, rec)
	assert.Equal(t, "Acme", body["shopName"])
	assert.Equal(t, "EUR", body["currency"])
	assert.Equal(t, json.Number("30"), body["commissionsAvailable"])
	assert.Equal(t, json.Number("12"), body["commissionsPending"])
	assert.Equal(t, json.Number("10"), body["withdrawalsPending"])
	assert.Equal(t, json.Number("5"), body["withdrawalsPaid"])
	assert.Equal(t, json.Number("20"), body["availableBalance"])
}

func adminRequest(path, id, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("withdrawalId", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminWithdrawalTransitions(t *testing.T) {
	id := uuid.New()
	svc := &stubWithdrawals{transition: func(got uuid.UUID) (*models.Withdrawal, error) {
		assert.Equal(t, id, got)
		return &models.Withdrawal{ID: got, Status: enums.WithdrawalStatusProcessing, RequestedAmount: decimal.NewFromInt(10)}, nil
	}}

	rec := httptest.NewRecorder()
	AdminMarkWithdrawalProcessing(svc, logger.Nop())(rec, adminRequest("/processing", id.String(), ""))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "PROCESSING", body["withdrawal"].(map[string]any)["status"])

	rec = httptest.NewRecorder()
	AdminMarkWithdrawalPaid(svc, logger.Nop())(rec, adminRequest("/paid", id.String(), `{"payoutAmount":"9.5","transactionHash":"0xfeed"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.lastPaid.PayoutAmount.Equal(decimal.RequireFromString("9.5")))
	require.NotNil(t, svc.lastPaid.TransactionHash)

	rec = httptest.NewRecorder()
	AdminMarkWithdrawalFailed(svc, logger.Nop())(rec, adminRequest("/failed", id.String(), `{"reason":"  bank rejected  "}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bank rejected", svc.lastReason)

	rec = httptest.NewRecorder()
	AdminMarkWithdrawalFailed(svc, logger.Nop())(rec, adminRequest("/failed", id.String(), ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.lastReason)
}

func TestAdminWithdrawalErrors(t *testing.T) {
	svc := &stubWithdrawals{transition: func(uuid.UUID) (*models.Withdrawal, error) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal is not PROCESSING")
	}}

	rec := httptest.NewRecorder()
	AdminMarkWithdrawalProcessing(svc, logger.Nop())(rec, adminRequest("/processing", "not-a-uuid", ""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	AdminMarkWithdrawalPaid(svc, logger.Nop())(rec, adminRequest("/paid", uuid.NewString(), `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	AdminMarkWithdrawalPaid(svc, logger.Nop())(rec, adminRequest("/paid", uuid.NewString(), `{"payoutAmount":5}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeStateConflict), errorCode(t, rec))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"live"}`, rec.Body.String())

	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec = httptest.NewRecorder()
	HealthReady(map[string]Pinger{"db": ok, "redis": nil}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthReady(map[string]Pinger{"db": ok, "redis": down}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
