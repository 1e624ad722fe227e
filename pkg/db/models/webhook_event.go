package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent is the idempotency record for a provider delivery. Only
// ProcessedAt changes after insert.
type WebhookEvent struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Provider    string         `gorm:"column:provider;not null"`
	EventID     string         `gorm:"column:event_id;not null;uniqueIndex:ux_webhook_events_event_id"`
	Type        string         `gorm:"column:type;not null"`
	Payload     datatypes.JSON `gorm:"column:payload;not null"`
	ProcessedAt *time.Time     `gorm:"column:processed_at;index:idx_webhook_events_unprocessed"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (e *WebhookEvent) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	return nil
}
