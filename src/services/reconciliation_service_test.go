package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

func stalePendingCharge(key string) *models.Charge {
	return &models.Charge{
		ID:        key,
		TenantID:  uuid.New(),
		FeeCode:   "TAX_REPORT_FATCA",
		Quantity:  1,
		Amount:    decimal.NewFromFloat(19.99),
		Currency:  "USD",
		Status:    models.ChargeStatusPending,
		CreatedAt: time.Now().Add(-time.Hour),
		UpdatedAt: time.Now().Add(-time.Hour),
	}
}

func TestReconcileStalePending(t *testing.T) {
	ctx := context.Background()
	store := newMemoryChargeStore()
	collab := newFakeCollaborator()

	// The collaborator settled key-captured and declined key-failed before
	// the service lost track of them; key-unknown never reached it.
	collab.settled["key-captured"] = &PaymentOutcome{Succeeded: true, Reference: "ref-captured"}
	collab.settled["key-failed"] = &PaymentOutcome{Succeeded: false, DeclineReason: "card expired"}

	for _, key := range []string{"key-captured", "key-failed", "key-unknown"} {
		if _, _, err := store.CreatePending(ctx, stalePendingCharge(key)); err != nil {
			t.Fatalf("CreatePending() error = %v", err)
		}
	}

	service := NewChargeReconciliationService(store, collab, 15*time.Minute, 100)
	report, err := service.ReconcileStalePending(ctx)
	if err != nil {
		t.Fatalf("ReconcileStalePending() error = %v", err)
	}

	if report.Examined != 3 {
		t.Errorf("Examined = %d, want 3", report.Examined)
	}
	if report.Captured != 1 || report.Failed != 1 || report.Unsettled != 1 {
		t.Errorf("Report = %+v, want 1 captured, 1 failed, 1 unsettled", report)
	}

	captured, _ := store.Get(ctx, "key-captured")
	if captured.Status != models.ChargeStatusCaptured {
		t.Errorf("key-captured status = %s, want captured", captured.Status)
	}
	if captured.ExternalReference == nil || *captured.ExternalReference != "ref-captured" {
		t.Errorf("key-captured reference = %v, want ref-captured", captured.ExternalReference)
	}

	failed, _ := store.Get(ctx, "key-failed")
	if failed.Status != models.ChargeStatusFailed {
		t.Errorf("key-failed status = %s, want failed", failed.Status)
	}

	unknown, _ := store.Get(ctx, "key-unknown")
	if unknown.Status != models.ChargeStatusPending {
		t.Errorf("key-unknown status = %s, want pending", unknown.Status)
	}
}

func TestReconcileSkipsFreshPending(t *testing.T) {
	ctx := context.Background()
	store := newMemoryChargeStore()
	collab := newFakeCollaborator()

	fresh := stalePendingCharge("key-fresh")
	fresh.CreatedAt = time.Now()
	if _, _, err := store.CreatePending(ctx, fresh); err != nil {
		t.Fatalf("CreatePending() error = %v", err)
	}

	service := NewChargeReconciliationService(store, collab, 15*time.Minute, 100)
	report, err := service.ReconcileStalePending(ctx)
	if err != nil {
		t.Fatalf("ReconcileStalePending() error = %v", err)
	}
	if report.Examined != 0 {
		t.Errorf("Examined = %d, want 0", report.Examined)
	}
}
