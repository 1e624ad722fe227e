package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

const (
	defaultReplayGrace = 10 * time.Minute
	defaultReplayBatch = 50
)

type webhookReplayer interface {
	ReplayPending(ctx context.Context, grace time.Duration, limit int) (int, error)
}

type WebhookReplayJobParams struct {
	Logger   *logger.Logger
	Replayer webhookReplayer
	// Grace keeps the job away from deliveries that may still be in flight.
	Grace     time.Duration
	BatchSize int
}

// NewWebhookReplayJob retries recorded webhook events whose handling failed.
func NewWebhookReplayJob(params WebhookReplayJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Replayer == nil {
		return nil, fmt.Errorf("webhook replayer required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultReplayGrace
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReplayBatch
	}
	return &webhookReplayJob{
		logg:     params.Logger,
		replayer: params.Replayer,
		grace:    grace,
		batch:    batch,
	}, nil
}

type webhookReplayJob struct {
	logg     *logger.Logger
	replayer webhookReplayer
	grace    time.Duration
	batch    int
}

func (j *webhookReplayJob) Name() string { return "webhook-replay" }

func (j *webhookReplayJob) Run(ctx context.Context) error {
	replayed, err := j.replayer.ReplayPending(ctx, j.grace, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"events_replayed": replayed,
		"grace":           j.grace.String(),
		"batch_size":      j.batch,
	})
	if err != nil {
		return fmt.Errorf("replay webhook events: %w", err)
	}
	if replayed > 0 {
		j.logg.Info(logCtx, "webhook events replayed")
	}
	return nil
}
