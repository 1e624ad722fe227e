package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/affiliate-ledger/api/middleware"
	"github.com/angelmondragon/affiliate-ledger/api/responses"
	"github.com/angelmondragon/affiliate-ledger/internal/balance"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

type balanceReader interface {
	Compute(ctx context.Context, shopID uuid.UUID, asOf time.Time) (*balance.Balance, error)
}

type balanceResponse struct {
	ShopID               uuid.UUID   `json:"shopId"`
	ShopName             string      `json:"shopName"`
	Currency             string      `json:"currency"`
	CommissionsAvailable json.Number `json:"commissionsAvailable"`
	CommissionsPending   json.Number `json:"commissionsPending"`
	WithdrawalsPending   json.Number `json:"withdrawalsPending"`
	WithdrawalsPaid      json.Number `json:"withdrawalsPaid"`
	AvailableBalance     json.Number `json:"availableBalance"`
}

// Balance reports the caller's shop balance computed at request time.
func Balance(engine balanceReader, clk clock.Clock, currency string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := middleware.ShopFromContext(r.Context())
		if shop == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found"))
			return
		}

		current, err := engine.Compute(r.Context(), shop.ID, clk.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, balanceResponse{
			ShopID:               shop.ID,
			ShopName:             shop.Name,
			Currency:             currency,
			CommissionsAvailable: amount(current.AvailableCommissions),
			CommissionsPending:   amount(current.PendingCommissions),
			WithdrawalsPending:   amount(current.PendingWithdrawals),
			WithdrawalsPaid:      amount(current.PaidWithdrawals),
			AvailableBalance:     amount(current.Available),
		})
	}
}
