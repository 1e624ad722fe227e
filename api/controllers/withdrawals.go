package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/affiliate-ledger/api/middleware"
	"github.com/angelmondragon/affiliate-ledger/api/responses"
	"github.com/angelmondragon/affiliate-ledger/api/validators"
	"github.com/angelmondragon/affiliate-ledger/internal/withdrawals"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

type withdrawalRequester interface {
	Request(ctx context.Context, input withdrawals.RequestInput) (*withdrawals.RequestResult, error)
	List(ctx context.Context, shopID uuid.UUID) ([]models.Withdrawal, error)
}

type withdrawalRequest struct {
	Amount             *decimal.Decimal `json:"amount" validate:"required"`
	PaymentType        string           `json:"paymentType" validate:"required"`
	DestinationAddress *string          `json:"destinationAddress" validate:"omitempty,max=255"`
}

type withdrawalCreatedResponse struct {
	OK               bool        `json:"ok"`
	WithdrawalID     uuid.UUID   `json:"withdrawalId"`
	Status           string      `json:"status"`
	AvailableBalance json.Number `json:"availableBalance"`
}

// RequestWithdrawal admits a payout request against the caller's balance.
func RequestWithdrawal(svc withdrawalRequester, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := middleware.ShopFromContext(r.Context())
		if shop == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found"))
			return
		}

		var req withdrawalRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Request(r.Context(), withdrawals.RequestInput{
			ShopID:             shop.ID,
			Amount:             *req.Amount,
			PaymentType:        req.PaymentType,
			DestinationAddress: req.DestinationAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusCreated, withdrawalCreatedResponse{
			OK:               true,
			WithdrawalID:     result.Withdrawal.ID,
			Status:           result.Withdrawal.Status.String(),
			AvailableBalance: amount(result.AvailableBalance),
		})
	}
}

// ListWithdrawals returns the caller's withdrawals, newest first.
func ListWithdrawals(svc withdrawalRequester, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := middleware.ShopFromContext(r.Context())
		if shop == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found"))
			return
		}

		rows, err := svc.List(r.Context(), shop.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]withdrawalDTO, 0, len(rows))
		for i := range rows {
			out = append(out, newWithdrawalDTO(&rows[i]))
		}
		responses.WriteJSON(w, http.StatusOK, map[string]any{"withdrawals": out})
	}
}
