package providerwebhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/internal/affiliates"
	"github.com/angelmondragon/affiliate-ledger/internal/events"
	"github.com/angelmondragon/affiliate-ledger/internal/invoices"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
	"github.com/angelmondragon/affiliate-ledger/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventStore interface {
	Record(ctx context.Context, input events.RecordInput) (*events.RecordResult, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	ListUnprocessed(ctx context.Context, grace time.Duration, limit int) ([]models.WebhookEvent, error)
}

// Delivery is an authenticated webhook request.
type Delivery struct {
	Provider string
	EventID  string
	Body     []byte
}

// Result is reported back to the provider.
type Result struct {
	Duplicated      bool
	InvoiceID       *uuid.UUID
	AffiliateUserID *uuid.UUID
}

type ServiceParams struct {
	Events            eventStore
	Affiliates        *affiliates.Resolver
	Invoices          *invoices.Ledger
	TransactionRunner txRunner
	Logger            *logger.Logger
	Metrics           *metrics.LedgerMetrics
}

// Service turns provider deliveries into affiliate and invoice records behind
// the event store's idempotency gate. It never writes commissions.
type Service struct {
	events     eventStore
	affiliates *affiliates.Resolver
	invoices   *invoices.Ledger
	txRunner   txRunner
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event store required")
	}
	if params.Affiliates == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "affiliate resolver required")
	}
	if params.Invoices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "invoice ledger required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		events:     params.Events,
		affiliates: params.Affiliates,
		invoices:   params.Invoices,
		txRunner:   params.TransactionRunner,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Handle parses the delivery, records it and dispatches it when new. A failed
// dispatch leaves the event recorded with processed_at unset.
func (s *Service) Handle(ctx context.Context, delivery Delivery) (*Result, error) {
	event, err := ParseEvent(delivery.Body)
	if err != nil {
		s.metrics.IncWebhookEvent("invalid", metrics.OutcomeRejected)
		return nil, err
	}
	ctx = s.logg.WithEvent(ctx, delivery.Provider, delivery.EventID, string(event.Type))

	recorded, err := s.events.Record(ctx, events.RecordInput{
		Provider: delivery.Provider,
		EventID:  delivery.EventID,
		Type:     string(event.Type),
		Payload:  delivery.Body,
	})
	if err != nil {
		return nil, err
	}
	if !recorded.IsNew {
		s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeDuplicate)
		s.logg.Info(ctx, "duplicate webhook delivery ignored")
		return &Result{Duplicated: true}, nil
	}

	result, err := s.process(ctx, recorded.Event.ID, event)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Replay re-dispatches a recorded event whose earlier handling failed.
func (s *Service) Replay(ctx context.Context, stored *models.WebhookEvent) error {
	if stored == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	if stored.ProcessedAt != nil {
		return nil
	}
	event, err := ParseEvent(stored.Payload)
	if err != nil {
		return err
	}
	ctx = s.logg.WithEvent(ctx, stored.Provider, stored.EventID, stored.Type)
	_, err = s.process(ctx, stored.ID, event)
	return err
}

// ReplayPending replays events left unprocessed for longer than grace and
// returns how many completed.
func (s *Service) ReplayPending(ctx context.Context, grace time.Duration, limit int) (int, error) {
	pending, err := s.events.ListUnprocessed(ctx, grace, limit)
	if err != nil {
		return 0, err
	}
	var (
		replayed int
		errs     error
	)
	for i := range pending {
		if err := s.Replay(ctx, &pending[i]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("event %s: %w", pending[i].EventID, err))
			continue
		}
		replayed++
	}
	return replayed, errs
}

func (s *Service) process(ctx context.Context, recordID uuid.UUID, event *Event) (*Result, error) {
	var result *Result
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.dispatch(ctx, tx, event)
		return err
	})
	if err != nil {
		s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeFailed)
		s.logg.Warn(ctx, "webhook handling failed: "+err.Error())
		return nil, err
	}
	if err := s.events.MarkProcessed(ctx, recordID); err != nil {
		return nil, err
	}
	s.metrics.IncWebhookEvent(string(event.Type), metrics.OutcomeProcessed)
	s.logg.Info(ctx, "webhook processed")
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event *Event) (*Result, error) {
	resolver := s.affiliates.WithTx(tx)

	if event.Signup != nil {
		in := event.Signup
		user, err := resolver.ResolveOrCreateOnSignup(ctx, affiliates.SignupInput{
			ShopID:            in.ShopID,
			WalletProviderID:  in.WalletProviderID,
			PartnerUserID:     in.PartnerUserID,
			AcquisitionSource: in.AcquisitionSource,
		})
		if err != nil {
			return nil, err
		}
		return &Result{AffiliateUserID: &user.ID}, nil
	}

	in := event.Activation
	if in == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported event type")
	}
	user, err := resolver.ResolveOrActivate(ctx, affiliates.ActivationInput{
		ShopID:            in.ShopID,
		WalletProviderID:  in.WalletProviderID,
		PartnerUserID:     in.PartnerUserID,
		AffiliateUserID:   in.AffiliateUserID,
		PaidAt:            in.PaidAt,
		AcquisitionSource: in.AcquisitionSource,
	})
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoices.WithTx(tx).UpsertOnActivation(ctx, invoices.UpsertInput{
		ExternalID:       in.ExternalInvoiceID,
		ShopID:           in.ShopID,
		WalletProviderID: in.WalletProviderID,
		AffiliateUserID:  user.ID,
		GrossRevenue:     in.GrossRevenue,
		Currency:         in.Currency,
		PaidAt:           in.PaidAt,
		TransactionHash:  in.TransactionHash,
		EventType:        in.EventType,
		RawPayload:       event.Data,
	})
	if err != nil {
		return nil, err
	}
	return &Result{InvoiceID: &invoice.ID, AffiliateUserID: &user.ID}, nil
}
