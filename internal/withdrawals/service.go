package withdrawals

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/balance"
	"github.com/angelmondragon/affiliate-ledger/internal/shops"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	"github.com/angelmondragon/affiliate-ledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	"github.com/angelmondragon/affiliate-ledger/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RequestInput is a shop's payout request.
type RequestInput struct {
	ShopID             uuid.UUID
	Amount             decimal.Decimal
	PaymentType        string
	DestinationAddress *string
}

// RequestResult carries the admitted withdrawal and the balance left after it.
type RequestResult struct {
	Withdrawal       *models.Withdrawal
	AvailableBalance decimal.Decimal
}

// MarkPaidInput settles a PROCESSING withdrawal.
type MarkPaidInput struct {
	PayoutAmount    decimal.Decimal
	TransactionHash *string
}

type ServiceParams struct {
	Repo              Repository
	Shops             shops.Repository
	Balance           *balance.Engine
	TransactionRunner txRunner
	Clock             clock.Clock
	Logger            *logger.Logger
	Metrics           *metrics.LedgerMetrics
}

// Service admits withdrawals against the computed balance and drives their
// payout lifecycle.
type Service struct {
	repo     Repository
	shops    shops.Repository
	balance  *balance.Engine
	txRunner txRunner
	clock    clock.Clock
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal repository required")
	}
	if params.Shops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shop repository required")
	}
	if params.Balance == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balance engine required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	clk := params.Clock
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		repo:     params.Repo,
		shops:    params.Shops,
		balance:  params.Balance,
		txRunner: params.TransactionRunner,
		clock:    clk,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Request validates the input, then locks the shop row, recomputes the balance
// and inserts a PENDING withdrawal in one transaction. Concurrent requests for
// a shop therefore see each other's reservations.
func (s *Service) Request(ctx context.Context, input RequestInput) (*RequestResult, error) {
	withdrawal, err := s.validate(input)
	if err != nil {
		s.metrics.IncWithdrawal(metrics.OutcomeInvalid)
		return nil, err
	}

	var result RequestResult
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.shops.WithTx(tx).LockByID(ctx, input.ShopID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock shop")
		}

		current, err := s.balance.WithTx(tx).Compute(ctx, input.ShopID, s.clock.Now())
		if err != nil {
			return err
		}
		if withdrawal.RequestedAmount.GreaterThan(current.Available) {
			return pkgerrors.New(pkgerrors.CodeInsufficient, "requested amount exceeds available balance").
				WithDetails(map[string]any{
					"requested": withdrawal.RequestedAmount.InexactFloat64(),
					"available": current.Available.InexactFloat64(),
				})
		}

		if err := s.repo.WithTx(tx).Create(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create withdrawal")
		}
		result = RequestResult{
			Withdrawal:       withdrawal,
			AvailableBalance: current.Available.Sub(withdrawal.RequestedAmount),
		}
		return nil
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeInsufficient) {
			s.metrics.IncWithdrawal(metrics.OutcomeInsufficient)
		}
		return nil, err
	}

	s.metrics.IncWithdrawal(metrics.OutcomeAdmitted)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"shop_id":       input.ShopID.String(),
		"withdrawal_id": withdrawal.ID.String(),
		"amount":        withdrawal.RequestedAmount.String(),
	})
	s.logg.Info(logCtx, "withdrawal requested")
	return &result, nil
}

func (s *Service) validate(input RequestInput) (*models.Withdrawal, error) {
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id is required")
	}
	amount := input.Amount.Round(6)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	paymentType, err := enums.ParsePaymentType(strings.TrimSpace(input.PaymentType))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paymentType must be CRYPTO or FIAT")
	}

	var destination *string
	if input.DestinationAddress != nil {
		if trimmed := strings.TrimSpace(*input.DestinationAddress); trimmed != "" {
			destination = &trimmed
		}
	}
	if paymentType == enums.PaymentTypeCrypto && destination == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destinationAddress is required for CRYPTO")
	}

	return &models.Withdrawal{
		ShopID:             input.ShopID,
		RequestedAmount:    amount,
		PaymentType:        paymentType,
		DestinationAddress: destination,
		Status:             enums.WithdrawalStatusPending,
	}, nil
}

// List returns the shop's withdrawals, newest first.
func (s *Service) List(ctx context.Context, shopID uuid.UUID) ([]models.Withdrawal, error) {
	rows, err := s.repo.ListByShop(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list withdrawals")
	}
	return rows, nil
}

func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	return s.transition(ctx, id, enums.WithdrawalStatusProcessing, map[string]any{})
}

// MarkPaid records the payout. The payout may be below the requested amount
// because of fees but never above it.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, input MarkPaidInput) (*models.Withdrawal, error) {
	if !input.PayoutAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payoutAmount must be positive")
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.PayoutAmount.GreaterThan(current.RequestedAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payoutAmount exceeds requested amount")
	}

	updates := map[string]any{
		"payout_amount": input.PayoutAmount.Round(6),
		"paid_at":       s.clock.Now(),
	}
	if input.TransactionHash != nil {
		if hash := strings.TrimSpace(*input.TransactionHash); hash != "" {
			updates["transaction_hash"] = hash
		}
	}
	return s.transition(ctx, id, enums.WithdrawalStatusPaid, updates)
}

func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*models.Withdrawal, error) {
	updates := map[string]any{}
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		updates["failure_reason"] = trimmed
	}
	return s.transition(ctx, id, enums.WithdrawalStatusFailed, updates)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next enums.WithdrawalStatus, updates map[string]any) (*models.Withdrawal, error) {
	updates["status"] = next
	changed, err := s.repo.Transition(ctx, id, enums.SourcesFor(next), updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update withdrawal status")
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal cannot move to "+next.String()).
			WithDetails(map[string]any{"status": current.Status, "requested": next})
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"withdrawal_id": id.String(),
		"shop_id":       current.ShopID.String(),
		"status":        next.String(),
	})
	s.logg.Info(logCtx, "withdrawal status changed")
	return current, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup withdrawal")
	}
	return w, nil
}
