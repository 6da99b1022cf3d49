package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// RevenueStore persists revenue records and invoices.
type RevenueStore interface {
	// SumCapturedCharges totals the tenant's captured charges in
	// [periodStart, periodEnd).
	SumCapturedCharges(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (decimal.Decimal, int, error)

	// ClosePeriod commits one period close atomically: it allocates the
	// period's next invoice sequence number into invoice.InvoiceNumber,
	// retires any current revenue record for the period in favor of
	// record, inserts the invoice and the record, and stamps the period's
	// captured charges with the new invoice id. Charges stamped by an
	// earlier close of the same period are restamped, so nothing keeps
	// pointing at a superseded invoice.
	ClosePeriod(ctx context.Context, record *models.RevenueRecord, invoice *models.Invoice, periodStart, periodEnd time.Time) error
}

// PostgresRevenueStore implements RevenueStore on PostgreSQL.
type PostgresRevenueStore struct {
	db *sql.DB
}

// NewPostgresRevenueStore creates a new Postgres-backed revenue store.
func NewPostgresRevenueStore(db *sql.DB) *PostgresRevenueStore {
	return &PostgresRevenueStore{db: db}
}

func (s *PostgresRevenueStore) SumCapturedCharges(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM charges
		WHERE tenant_id = $1 AND status = $2
		  AND captured_at >= $3 AND captured_at < $4
	`

	var total decimal.Decimal
	var count int
	err := s.db.QueryRowContext(ctx, query, tenantID, models.ChargeStatusCaptured, periodStart, periodEnd).
		Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to sum captured charges: %w", err)
	}
	return total, count, nil
}

func (s *PostgresRevenueStore) ClosePeriod(ctx context.Context, record *models.RevenueRecord, invoice *models.Invoice, periodStart, periodEnd time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	invoice.InvoiceNumber, err = s.nextInvoiceNumber(ctx, tx, invoice.BillingMonth, invoice.BillingYear)
	if err != nil {
		return err
	}

	if err := s.supersedeCurrent(ctx, tx, record.TenantID, record.PeriodMonth, record.PeriodYear, record.ID); err != nil {
		return err
	}
	if err := s.insertInvoice(ctx, tx, invoice); err != nil {
		return err
	}
	if err := s.insertRecord(ctx, tx, record); err != nil {
		return err
	}

	// No invoice_id filter: a re-run of the period must move charges off
	// the superseded invoice onto this one.
	stampQuery := `
		UPDATE charges SET invoice_id = $1, updated_at = $2
		WHERE tenant_id = $3 AND status = $4
		  AND captured_at >= $5 AND captured_at < $6
	`
	if _, err := tx.ExecContext(ctx, stampQuery,
		invoice.ID, time.Now(), record.TenantID, models.ChargeStatusCaptured, periodStart, periodEnd,
	); err != nil {
		return fmt.Errorf("failed to stamp charges: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revenue aggregation: %w", err)
	}
	return nil
}

// nextInvoiceNumber allocates the next INV-YYYY-MM-NNN number for the
// period, scoped across all tenants. The counter lives in its own row per
// period and is bumped atomically, so concurrent closes can never be
// handed the same number.
func (s *PostgresRevenueStore) nextInvoiceNumber(ctx context.Context, tx *sql.Tx, month, year int) (string, error) {
	query := `
		INSERT INTO invoice_sequences (billing_year, billing_month, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (billing_year, billing_month)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value
	`

	var seq int
	if err := tx.QueryRowContext(ctx, query, year, month).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%04d-%02d-%03d", year, month, seq), nil
}

// supersedeCurrent retires any existing current record for the period.
func (s *PostgresRevenueStore) supersedeCurrent(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, month, year int, successor uuid.UUID) error {
	query := `
		UPDATE revenue_records
		SET is_current = FALSE, superseded_by = $1
		WHERE tenant_id = $2 AND period_month = $3 AND period_year = $4 AND is_current = TRUE
	`

	if _, err := tx.ExecContext(ctx, query, successor, tenantID, month, year); err != nil {
		return fmt.Errorf("failed to supersede revenue record: %w", err)
	}
	return nil
}

func (s *PostgresRevenueStore) insertRecord(ctx context.Context, tx *sql.Tx, record *models.RevenueRecord) error {
	query := `
		INSERT INTO revenue_records (
			id, tenant_id, period_month, period_year, total_aum,
			subscription_fee, aum_revenue_share, usage_charges, total_revenue,
			currency, days_active, is_prorated, is_current, invoice_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := tx.ExecContext(ctx, query,
		record.ID, record.TenantID, record.PeriodMonth, record.PeriodYear, record.TotalAUM,
		record.SubscriptionFee, record.AUMRevenueShare, record.UsageCharges, record.TotalRevenue,
		record.Currency, record.DaysActive, record.IsProrated, record.IsCurrent,
		record.InvoiceID, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert revenue record: %w", err)
	}
	return nil
}

func (s *PostgresRevenueStore) insertInvoice(ctx context.Context, tx *sql.Tx, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, tenant_id, invoice_number, billing_month, billing_year,
			total_aum, subscription_total, aum_share_total, usage_total,
			total_amount, currency, charge_count, status, due_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := tx.ExecContext(ctx, query,
		invoice.ID, invoice.TenantID, invoice.InvoiceNumber, invoice.BillingMonth,
		invoice.BillingYear, invoice.TotalAUM, invoice.SubscriptionTotal,
		invoice.AUMShareTotal, invoice.UsageTotal, invoice.TotalAmount,
		invoice.Currency, invoice.ChargeCount, invoice.Status, invoice.DueDate,
		invoice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}
