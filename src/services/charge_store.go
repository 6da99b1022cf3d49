package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// PostgresChargeStore implements ChargeStore on PostgreSQL. Idempotency
// rests on the primary key: concurrent inserts of one key collapse via
// ON CONFLICT DO NOTHING, and status transitions are conditional updates
// so a stale attempt can never overwrite a settled charge.
type PostgresChargeStore struct {
	db *sql.DB
}

// NewPostgresChargeStore creates a charge store backed by the given database.
func NewPostgresChargeStore(db *sql.DB) *PostgresChargeStore {
	return &PostgresChargeStore{db: db}
}

const chargeColumns = `
	id, tenant_id, fee_code, quantity, base_amount, amount, currency,
	status, failure_reason, payment_method_ref, external_reference,
	reference_type, reference_id, metadata, invoice_id,
	refunded_at, refund_amount, refund_reason,
	created_at, updated_at, captured_at, failed_at
`

// CreatePending inserts the charge as pending, or returns the existing
// record when the key is already taken. Exactly one concurrent caller per
// key observes created=true.
func (s *PostgresChargeStore) CreatePending(ctx context.Context, charge *models.Charge) (*models.Charge, bool, error) {
	metadataJSON, err := json.Marshal(charge.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO charges (
			id, tenant_id, fee_code, quantity, base_amount, amount, currency,
			status, payment_method_ref, reference_type, reference_id, metadata,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		charge.ID, charge.TenantID, charge.FeeCode, charge.Quantity,
		charge.BaseAmount, charge.Amount, charge.Currency, charge.Status,
		charge.PaymentMethodRef, charge.ReferenceType, charge.ReferenceID,
		metadataJSON, charge.CreatedAt, charge.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			existing, getErr := s.Get(ctx, charge.ID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert charge: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	existing, err := s.Get(ctx, charge.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, affected == 1, nil
}

// Get looks up a charge by id. Returns ErrChargeNotFound if absent.
func (s *PostgresChargeStore) Get(ctx context.Context, id string) (*models.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE id = $1`

	charge := &models.Charge{}
	var metadataJSON []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&charge.ID, &charge.TenantID, &charge.FeeCode, &charge.Quantity,
		&charge.BaseAmount, &charge.Amount, &charge.Currency,
		&charge.Status, &charge.FailureReason, &charge.PaymentMethodRef,
		&charge.ExternalReference, &charge.ReferenceType, &charge.ReferenceID,
		&metadataJSON, &charge.InvoiceID,
		&charge.RefundedAt, &charge.RefundAmount, &charge.RefundReason,
		&charge.CreatedAt, &charge.UpdatedAt, &charge.CapturedAt, &charge.FailedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrChargeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get charge: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &charge.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode charge metadata: %w", err)
		}
	}

	return charge, nil
}

// TransitionStatus moves the charge to next only while its stored status is
// one of allowedFrom. Returns false, nil when another writer got there
// first.
func (s *PostgresChargeStore) TransitionStatus(ctx context.Context, id string, next models.ChargeStatus, allowedFrom []models.ChargeStatus, externalRef *string, failureReason *string) (bool, error) {
	from := make([]string, len(allowedFrom))
	for i, st := range allowedFrom {
		from[i] = string(st)
	}

	now := time.Now()
	var capturedAt, failedAt *time.Time
	switch next {
	case models.ChargeStatusCaptured:
		capturedAt = &now
	case models.ChargeStatusFailed:
		failedAt = &now
	}

	query := `
		UPDATE charges
		SET status = $1,
		    external_reference = COALESCE($2, external_reference),
		    failure_reason = $3,
		    captured_at = COALESCE($4, captured_at),
		    failed_at = COALESCE($5, failed_at),
		    updated_at = $6
		WHERE id = $7 AND status = ANY($8)
	`

	result, err := s.db.ExecContext(ctx, query,
		next, externalRef, failureReason, capturedAt, failedAt, now, id, pq.Array(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition charge status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// MarkRefunded records a refund against a captured charge.
func (s *PostgresChargeStore) MarkRefunded(ctx context.Context, id string, amount decimal.Decimal, reason string) error {
	query := `
		UPDATE charges
		SET status = $1, refunded_at = $2, refund_amount = $3, refund_reason = $4, updated_at = $2
		WHERE id = $5 AND status = $6
	`

	result, err := s.db.ExecContext(ctx, query,
		models.ChargeStatusRefunded, time.Now(), amount, reason, id, models.ChargeStatusCaptured,
	)
	if err != nil {
		return fmt.Errorf("failed to mark charge refunded: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotRefundable, id)
	}
	return nil
}

// ListByTenant returns a tenant's charges, newest first.
func (s *PostgresChargeStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Charge, error) {
	query := `
		SELECT id FROM charges
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	charges := make([]*models.Charge, 0, len(ids))
	for _, id := range ids {
		charge, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}
	return charges, nil
}

// ListStalePending returns pending charges created before the cutoff, for
// the reconciler to settle against the payment collaborator.
func (s *PostgresChargeStore) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*models.Charge, error) {
	query := `
		SELECT id FROM charges
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, models.ChargeStatusPending, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending charges: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	charges := make([]*models.Charge, 0, len(ids))
	for _, id := range ids {
		charge, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		charges = append(charges, charge)
	}
	return charges, nil
}
