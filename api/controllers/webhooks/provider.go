package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/affiliate-ledger/api/responses"
	providerwebhook "github.com/angelmondragon/affiliate-ledger/internal/webhooks/provider"
	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/config"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	"github.com/angelmondragon/affiliate-ledger/pkg/signature"
)

const (
	headerSignature = "X-Signature"
	headerTimestamp = "X-Timestamp"
	headerEventID   = "X-Event-Id"
	headerProvider  = "X-Provider"

	defaultMaxBodyBytes int64 = 1 << 20
)

type deliveryHandler interface {
	Handle(ctx context.Context, delivery providerwebhook.Delivery) (*providerwebhook.Result, error)
}

type providerResponse struct {
	OK              bool       `json:"ok"`
	Duplicated      bool       `json:"duplicated"`
	InvoiceID       *uuid.UUID `json:"invoiceId,omitempty"`
	AffiliateUserID *uuid.UUID `json:"affiliateUserId,omitempty"`
}

// ProviderWebhook authenticates a wallet provider delivery and hands the raw
// body to the webhook service. The signature covers the exact bytes received.
func ProviderWebhook(cfg config.WebhookConfig, svc deliveryHandler, clk clock.Clock, logg *logger.Logger) http.HandlerFunc {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sig := strings.TrimSpace(r.Header.Get(headerSignature))
		ts := strings.TrimSpace(r.Header.Get(headerTimestamp))
		if sig == "" || ts == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing signature headers"))
			return
		}
		if !signature.VerifyTimestamp(ts, clk.Now(), cfg.MaxDrift) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "timestamp outside allowed window"))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read body"))
			return
		}

		provider := strings.TrimSpace(r.Header.Get(headerProvider))
		if !signature.Verify(cfg.SecretFor(provider), ts, sig, body) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		eventID := strings.TrimSpace(r.Header.Get(headerEventID))
		if eventID == "" || provider == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Event-Id and X-Provider are required"))
			return
		}

		result, err := svc.Handle(ctx, providerwebhook.Delivery{
			Provider: provider,
			EventID:  eventID,
			Body:     body,
		})
		if err != nil {
			// Unknown shops, providers and affiliates are the sender's mistake.
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, pkgerrors.As(err).Message())
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, providerResponse{
			OK:              true,
			Duplicated:      result.Duplicated,
			InvoiceID:       result.InvoiceID,
			AffiliateUserID: result.AffiliateUserID,
		})
	}
}
