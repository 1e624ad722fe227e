package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

type fakeDeriver struct {
	derived int
	err     error
	calls   int
}

func (f *fakeDeriver) DerivePending(context.Context) (int, error) {
	f.calls++
	return f.derived, f.err
}

type fakeReplayer struct {
	grace time.Duration
	limit int
	err   error
}

func (f *fakeReplayer) ReplayPending(_ context.Context, grace time.Duration, limit int) (int, error) {
	f.grace = grace
	f.limit = limit
	return 3, f.err
}

func TestCommissionDerivationJob(t *testing.T) {
	deriver := &fakeDeriver{derived: 4}
	job, err := NewCommissionDerivationJob(CommissionDerivationJobParams{Logger: logger.Nop(), Deriver: deriver})
	if err != nil {
		t.Fatalf("NewCommissionDerivationJob: %v", err)
	}
	if job.Name() != "commission-derivation" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deriver.calls != 1 {
		t.Fatalf("expected one derivation pass, got %d", deriver.calls)
	}

	deriver.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error to propagate")
	}

	if _, err := NewCommissionDerivationJob(CommissionDerivationJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected missing deriver error")
	}
}

func TestWebhookReplayJobDefaults(t *testing.T) {
	replayer := &fakeReplayer{}
	job, err := NewWebhookReplayJob(WebhookReplayJobParams{Logger: logger.Nop(), Replayer: replayer})
	if err != nil {
		t.Fatalf("NewWebhookReplayJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if replayer.grace != defaultReplayGrace || replayer.limit != defaultReplayBatch {
		t.Fatalf("expected defaults, got grace=%s limit=%d", replayer.grace, replayer.limit)
	}
}

func TestWebhookReplayJobPropagatesError(t *testing.T) {
	replayer := &fakeReplayer{err: errors.New("event evt-1: shop not found")}
	job, err := NewWebhookReplayJob(WebhookReplayJobParams{
		Logger:    logger.Nop(),
		Replayer:  replayer,
		Grace:     time.Minute,
		BatchSize: 5,
	})
	if err != nil {
		t.Fatalf("NewWebhookReplayJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if replayer.grace != time.Minute || replayer.limit != 5 {
		t.Fatalf("configured values not passed through")
	}
}
