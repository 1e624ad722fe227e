package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/affiliate-ledger/api/responses"
	"github.com/angelmondragon/affiliate-ledger/api/validators"
	"github.com/angelmondragon/affiliate-ledger/internal/withdrawals"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

const maxFailureReasonLen = 500

type withdrawalOperator interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	MarkPaid(ctx context.Context, id uuid.UUID, input withdrawals.MarkPaidInput) (*models.Withdrawal, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (*models.Withdrawal, error)
}

type markPaidRequest struct {
	PayoutAmount    *decimal.Decimal `json:"payoutAmount" validate:"required"`
	TransactionHash *string          `json:"transactionHash" validate:"omitempty,max=255"`
}

type markFailedRequest struct {
	Reason string `json:"reason"`
}

func AdminMarkWithdrawalProcessing(svc withdrawalOperator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := withdrawalID(w, r, logg)
		if !ok {
			return
		}
		updated, err := svc.MarkProcessing(r.Context(), id)
		writeWithdrawal(w, r, logg, updated, err)
	}
}

func AdminMarkWithdrawalPaid(svc withdrawalOperator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := withdrawalID(w, r, logg)
		if !ok {
			return
		}
		var req markPaidRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkPaid(r.Context(), id, withdrawals.MarkPaidInput{
			PayoutAmount:    *req.PayoutAmount,
			TransactionHash: req.TransactionHash,
		})
		writeWithdrawal(w, r, logg, updated, err)
	}
}

// AdminMarkWithdrawalFailed accepts an empty body; the reason is optional.
func AdminMarkWithdrawalFailed(svc withdrawalOperator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := withdrawalID(w, r, logg)
		if !ok {
			return
		}
		var req markFailedRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(w, r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		updated, err := svc.MarkFailed(r.Context(), id, validators.SanitizeString(req.Reason, maxFailureReasonLen))
		writeWithdrawal(w, r, logg, updated, err)
	}
}

func withdrawalID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "withdrawalId"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal id"))
		return uuid.Nil, false
	}
	return id, true
}

func writeWithdrawal(w http.ResponseWriter, r *http.Request, logg *logger.Logger, updated *models.Withdrawal, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"withdrawal": newWithdrawalDTO(updated),
	})
}
