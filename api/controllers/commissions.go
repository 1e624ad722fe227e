package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/affiliate-ledger/api/middleware"
	"github.com/angelmondragon/affiliate-ledger/api/responses"
	"github.com/angelmondragon/affiliate-ledger/api/validators"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

const (
	defaultCommissionsLimit = 50
	maxCommissionsLimit     = 200
)

type commissionLister interface {
	ListByShop(ctx context.Context, shopID uuid.UUID, limit int) ([]models.Commission, error)
}

func ListCommissions(svc commissionLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := middleware.ShopFromContext(r.Context())
		if shop == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found"))
			return
		}
		limit, err := validators.ParseLimit(r, defaultCommissionsLimit, maxCommissionsLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByShop(r.Context(), shop.ID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]commissionDTO, 0, len(rows))
		for i := range rows {
			out = append(out, newCommissionDTO(&rows[i]))
		}
		responses.WriteJSON(w, http.StatusOK, map[string]any{"commissions": out})
	}
}
