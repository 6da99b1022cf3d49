package services

import (
	"context"
	"fmt"
	"time"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// ReconciliationReport summarizes one reconciliation sweep.
type ReconciliationReport struct {
	Examined  int
	Captured  int
	Failed    int
	Unsettled int
}

// ChargeReconciliationService settles charges stuck in pending after an
// ambiguous payment outcome (timeout, crash between store write and
// capture). It asks the collaborator what actually happened to the key and
// records that answer; it never re-submits a capture itself.
type ChargeReconciliationService struct {
	store      ChargeStore
	payments   PaymentCollaborator
	staleAfter time.Duration
	batchSize  int
}

// NewChargeReconciliationService creates a new reconciliation service.
func NewChargeReconciliationService(store ChargeStore, payments PaymentCollaborator, staleAfter time.Duration, batchSize int) *ChargeReconciliationService {
	return &ChargeReconciliationService{
		store:      store,
		payments:   payments,
		staleAfter: staleAfter,
		batchSize:  batchSize,
	}
}

// ReconcileStalePending sweeps one batch of stale pending charges and
// settles each against the collaborator's record. Charges the collaborator
// has no record of stay pending; they settle on a later sweep or a caller
// retry.
func (s *ChargeReconciliationService) ReconcileStalePending(ctx context.Context) (*ReconciliationReport, error) {
	cutoff := time.Now().Add(-s.staleAfter)
	charges, err := s.store.ListStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale charges: %w", err)
	}

	report := &ReconciliationReport{Examined: len(charges)}

	for _, charge := range charges {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome, err := s.payments.QueryByKey(ctx, charge.ID)
		if err != nil {
			logger.L.Warn("reconciliation query failed, charge stays pending",
				"charge_id", charge.ID, "error", err)
			report.Unsettled++
			continue
		}
		if outcome == nil {
			// The collaborator never saw the key: the original capture call
			// did not go through. Leave pending for the caller to retry.
			report.Unsettled++
			continue
		}

		if outcome.Succeeded {
			ref := outcome.Reference
			if _, err := s.store.TransitionStatus(ctx, charge.ID, models.ChargeStatusCaptured,
				[]models.ChargeStatus{models.ChargeStatusPending}, &ref, nil); err != nil {
				return report, err
			}
			report.Captured++
			logger.L.Info("reconciled stale charge as captured", "charge_id", charge.ID)
		} else {
			reason := outcome.DeclineReason
			if _, err := s.store.TransitionStatus(ctx, charge.ID, models.ChargeStatusFailed,
				[]models.ChargeStatus{models.ChargeStatusPending}, nil, &reason); err != nil {
				return report, err
			}
			report.Failed++
			logger.L.Info("reconciled stale charge as failed",
				"charge_id", charge.ID, "reason", reason)
		}
	}

	return report, nil
}

// Run executes reconciliation sweeps on a fixed interval until the context
// is cancelled.
func (s *ChargeReconciliationService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.ReconcileStalePending(ctx)
			if err != nil {
				logger.L.Error("reconciliation sweep failed", "error", err)
				continue
			}
			if report.Examined > 0 {
				logger.L.Info("reconciliation sweep finished",
					"examined", report.Examined, "captured", report.Captured,
					"failed", report.Failed, "unsettled", report.Unsettled)
			}
		}
	}
}
