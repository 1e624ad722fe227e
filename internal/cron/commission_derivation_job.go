package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/affiliate-ledger/pkg/logger"
)

type commissionDeriver interface {
	DerivePending(ctx context.Context) (int, error)
}

type CommissionDerivationJobParams struct {
	Logger  *logger.Logger
	Deriver commissionDeriver
}

// NewCommissionDerivationJob creates commissions for paid invoices that do not
// have one yet.
func NewCommissionDerivationJob(params CommissionDerivationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Deriver == nil {
		return nil, fmt.Errorf("commission deriver required")
	}
	return &commissionDerivationJob{logg: params.Logger, deriver: params.Deriver}, nil
}

type commissionDerivationJob struct {
	logg    *logger.Logger
	deriver commissionDeriver
}

func (j *commissionDerivationJob) Name() string { return "commission-derivation" }

func (j *commissionDerivationJob) Run(ctx context.Context) error {
	derived, err := j.deriver.DerivePending(ctx)
	logCtx := j.logg.WithField(ctx, "commissions_derived", derived)
	if err != nil {
		return fmt.Errorf("derive commissions: %w", err)
	}
	if derived > 0 {
		j.logg.Info(logCtx, "commissions derived")
	}
	return nil
}
