package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/affiliate-ledger/pkg/clock"
	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
	pkgerrors "github.com/angelmondragon/affiliate-ledger/pkg/errors"
)

// RecordInput is one authenticated provider delivery.
type RecordInput struct {
	Provider string
	EventID  string
	Type     string
	Payload  []byte
}

// RecordResult reports whether the delivery is the first for its event id.
type RecordResult struct {
	IsNew bool
	Event *models.WebhookEvent
}

// Store is the idempotency gate in front of webhook handling.
type Store struct {
	repo  Repository
	clock clock.Clock
}

func NewStore(repo Repository, clk clock.Clock) (*Store, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook event repository required")
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Store{repo: repo, clock: clk}, nil
}

// Record looks the event id up and inserts it when absent. Of concurrent
// deliveries for one event id exactly one observes IsNew.
func (s *Store) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	eventID := strings.TrimSpace(input.EventID)
	provider := strings.TrimSpace(input.Provider)
	if eventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if provider == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider is required")
	}

	existing, err := s.repo.FindByEventID(ctx, eventID)
	switch {
	case err == nil:
		return &RecordResult{IsNew: false, Event: existing}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup webhook event")
	}

	payload := input.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	event := &models.WebhookEvent{
		Provider:  provider,
		EventID:   eventID,
		Type:      input.Type,
		Payload:   datatypes.JSON(payload),
		CreatedAt: s.clock.Now(),
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, event)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert webhook event")
	}
	if !inserted {
		winner, err := s.repo.FindByEventID(ctx, eventID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload webhook event")
		}
		return &RecordResult{IsNew: false, Event: winner}, nil
	}
	return &RecordResult{IsNew: true, Event: event}, nil
}

func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.MarkProcessed(ctx, id, s.clock.Now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark webhook event processed")
	}
	return nil
}

// ListUnprocessed returns events recorded more than grace ago whose handling
// never completed.
func (s *Store) ListUnprocessed(ctx context.Context, grace time.Duration, limit int) ([]models.WebhookEvent, error) {
	rows, err := s.repo.ListUnprocessed(ctx, s.clock.Now().Add(-grace), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unprocessed webhook events")
	}
	return rows, nil
}
