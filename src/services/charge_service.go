package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// Charge orchestration errors
var (
	ErrChargeNotFound      = errors.New("charge not found")
	ErrOptionalFeeDeclined = errors.New("optional fee requires explicit acceptance")
	ErrIdempotencyConflict = errors.New("idempotency key reused with different charge parameters")
	ErrPaymentDeclined     = errors.New("payment was declined")
	ErrPaymentUnavailable  = errors.New("payment collaborator unavailable")
	ErrNotRefundable       = errors.New("charge is not in a refundable state")
	ErrInvalidRefundAmount = errors.New("refund amount must be positive and not exceed the captured amount")
)

// PaymentOutcome is the collaborator's answer for one capture attempt.
type PaymentOutcome struct {
	Succeeded     bool
	Reference     string // Collaborator-side transaction reference
	DeclineReason string
}

// PaymentCollaborator is the external payment system charges are captured
// through. Capture must be idempotent on the key: re-submitting a key the
// collaborator has already settled returns the original outcome without
// moving money again. QueryByKey looks up a prior attempt without
// charging; it returns a nil outcome when the collaborator has no record
// of the key.
type PaymentCollaborator interface {
	Capture(ctx context.Context, key string, amount decimal.Decimal, currency string, paymentMethodRef string) (*PaymentOutcome, error)
	QueryByKey(ctx context.Context, key string) (*PaymentOutcome, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal, currency string) error
}

// ChargeStore persists charges. CreatePending must be atomic under
// concurrent submission of the same key: exactly one caller observes
// created=true, every other caller gets the already-stored record.
type ChargeStore interface {
	CreatePending(ctx context.Context, charge *models.Charge) (*models.Charge, bool, error)
	Get(ctx context.Context, id string) (*models.Charge, error)
	// TransitionStatus applies the update only while the stored status is one
	// of allowedFrom, and reports whether the row was transitioned.
	TransitionStatus(ctx context.Context, id string, next models.ChargeStatus, allowedFrom []models.ChargeStatus, externalRef *string, failureReason *string) (bool, error)
	MarkRefunded(ctx context.Context, id string, amount decimal.Decimal, reason string) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Charge, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*models.Charge, error)
}

// FeeResolver yields the active fee definition for a tenant and code.
// Satisfied by RateCatalogService.
type FeeResolver interface {
	GetFeeDefinition(ctx context.Context, tenantID uuid.UUID, feeCode string) (*models.FeeDefinition, error)
}

// ChargeRequest describes one charge submission. IdempotencyKey is the
// caller's dedup handle: retries of the same logical charge reuse the key.
type ChargeRequest struct {
	IdempotencyKey   string
	TenantID         uuid.UUID
	FeeCode          string
	Quantity         int64
	BaseAmount       decimal.Decimal
	PaymentMethodRef string
	AcceptOptional   bool
	ReferenceType    *string
	ReferenceID      *uuid.UUID
	Metadata         map[string]interface{}
}

// ChargeOrchestratorService drives a fee from calculation through payment
// capture to a persisted charge record. The charge row is written before
// the collaborator is called, so a crash between the two leaves a pending
// record the reconciler can resolve rather than an untracked capture.
type ChargeOrchestratorService struct {
	catalog    FeeResolver
	calculator *FeeCalculatorService
	store      ChargeStore
	payments   PaymentCollaborator
}

// NewChargeOrchestratorService creates a new charge orchestrator.
func NewChargeOrchestratorService(catalog FeeResolver, calculator *FeeCalculatorService, store ChargeStore, payments PaymentCollaborator) *ChargeOrchestratorService {
	return &ChargeOrchestratorService{
		catalog:    catalog,
		calculator: calculator,
		store:      store,
		payments:   payments,
	}
}

// Charge executes one idempotent charge. Submitting the same key twice,
// sequentially or concurrently, yields the same charge record and at most
// one capture. A key reused with different fee parameters is rejected with
// ErrIdempotencyConflict.
func (s *ChargeOrchestratorService) Charge(ctx context.Context, req ChargeRequest) (*models.Charge, error) {
	if req.IdempotencyKey == "" {
		return nil, errors.New("idempotency key is required")
	}

	fee, err := s.catalog.GetFeeDefinition(ctx, req.TenantID, req.FeeCode)
	if err != nil {
		return nil, err
	}
	if fee.IsOptional && !req.AcceptOptional {
		return nil, fmt.Errorf("%w: %s", ErrOptionalFeeDeclined, req.FeeCode)
	}

	calc, err := s.calculator.Calculate(fee, req.Quantity, req.BaseAmount)
	if err != nil {
		return nil, fmt.Errorf("fee calculation failed: %w", err)
	}

	now := time.Now()
	charge := &models.Charge{
		ID:               req.IdempotencyKey,
		TenantID:         req.TenantID,
		FeeCode:          req.FeeCode,
		Quantity:         calc.Quantity,
		BaseAmount:       req.BaseAmount,
		Amount:           calc.FeeAmount,
		Currency:         calc.Currency,
		Status:           models.ChargeStatusPending,
		PaymentMethodRef: req.PaymentMethodRef,
		ReferenceType:    req.ReferenceType,
		ReferenceID:      req.ReferenceID,
		Metadata:         req.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	stored, created, err := s.store.CreatePending(ctx, charge)
	if err != nil {
		return nil, fmt.Errorf("failed to record charge: %w", err)
	}

	if !created {
		if !stored.Matches(req.FeeCode, calc.FeeAmount, calc.Currency) {
			return nil, fmt.Errorf("%w: key %s", ErrIdempotencyConflict, req.IdempotencyKey)
		}
		if stored.IsTerminal() {
			return stored, nil
		}
		// Pending or failed: fall through and drive the capture again.
		// The collaborator dedups on the key, so a capture that actually
		// went through the first time is returned, not repeated.
	}

	if calc.FeeAmount.IsZero() {
		// Nothing to collect; settle immediately without the collaborator.
		if _, err := s.store.TransitionStatus(ctx, stored.ID, models.ChargeStatusCaptured,
			[]models.ChargeStatus{models.ChargeStatusPending, models.ChargeStatusFailed}, nil, nil); err != nil {
			return nil, err
		}
		return s.store.Get(ctx, stored.ID)
	}

	return s.capture(ctx, stored)
}

// capture drives a single payment attempt and records the outcome.
func (s *ChargeOrchestratorService) capture(ctx context.Context, charge *models.Charge) (*models.Charge, error) {
	outcome, err := s.payments.Capture(ctx, charge.ID, charge.Amount, charge.Currency, charge.PaymentMethodRef)
	if err != nil {
		// Ambiguous outcome: the collaborator may or may not have captured.
		// The charge stays pending for the reconciler to settle via QueryByKey.
		logger.L.Warn("payment capture outcome unknown, leaving charge pending",
			"charge_id", charge.ID, "tenant_id", charge.TenantID, "error", err)
		return charge, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}

	if !outcome.Succeeded {
		reason := outcome.DeclineReason
		if _, err := s.store.TransitionStatus(ctx, charge.ID, models.ChargeStatusFailed,
			[]models.ChargeStatus{models.ChargeStatusPending, models.ChargeStatusFailed}, nil, &reason); err != nil {
			return nil, err
		}
		updated, getErr := s.store.Get(ctx, charge.ID)
		if getErr != nil {
			return nil, getErr
		}
		return updated, fmt.Errorf("%w: %s", ErrPaymentDeclined, reason)
	}

	ref := outcome.Reference
	transitioned, err := s.store.TransitionStatus(ctx, charge.ID, models.ChargeStatusCaptured,
		[]models.ChargeStatus{models.ChargeStatusPending, models.ChargeStatusFailed}, &ref, nil)
	if err != nil {
		return nil, err
	}
	if !transitioned {
		// A concurrent attempt won the race; its result stands.
		logger.L.Info("charge already settled by concurrent attempt", "charge_id", charge.ID)
	}

	return s.store.Get(ctx, charge.ID)
}

// GetCharge looks up a charge by its idempotency key.
func (s *ChargeOrchestratorService) GetCharge(ctx context.Context, id string) (*models.Charge, error) {
	return s.store.Get(ctx, id)
}

// ListCharges returns a tenant's most recent charges.
func (s *ChargeOrchestratorService) ListCharges(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Charge, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListByTenant(ctx, tenantID, limit)
}

// Refund refunds part or all of a captured charge through the collaborator
// and records the refund on the charge.
func (s *ChargeOrchestratorService) Refund(ctx context.Context, id string, amount decimal.Decimal, reason string) (*models.Charge, error) {
	charge, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if charge.Status != models.ChargeStatusCaptured {
		return nil, fmt.Errorf("%w: status %s", ErrNotRefundable, charge.Status)
	}
	if !amount.IsPositive() || amount.GreaterThan(charge.Amount) {
		return nil, ErrInvalidRefundAmount
	}

	if charge.ExternalReference != nil {
		if err := s.payments.Refund(ctx, *charge.ExternalReference, amount, charge.Currency); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
	}

	if err := s.store.MarkRefunded(ctx, id, amount, reason); err != nil {
		return nil, err
	}

	logger.L.Info("charge refunded", "charge_id", id, "amount", amount.String(), "reason", reason)
	return s.store.Get(ctx, id)
}
