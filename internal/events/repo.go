package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/affiliate-ledger/pkg/db/models"
)

// Repository persists webhook idempotency records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
	// InsertIfAbsent reports false when another row already holds the event id.
	InsertIfAbsent(ctx context.Context, event *models.WebhookEvent) (bool, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]models.WebhookEvent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) InsertIfAbsent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkProcessed only stamps rows that are still unprocessed.
func (r *repository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("id = ? AND processed_at IS NULL", id).
		Update("processed_at", at).Error
}

func (r *repository) ListUnprocessed(ctx context.Context, createdBefore time.Time, limit int) ([]models.WebhookEvent, error) {
	var rows []models.WebhookEvent
	q := r.db.WithContext(ctx).
		Where("processed_at IS NULL AND created_at < ?", createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
