package database

import (
	"database/sql"
	"fmt"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		country CHAR(2) NOT NULL,
		revenue_model TEXT NOT NULL,
		base_fee_usd NUMERIC(12,2) NOT NULL DEFAULT 0,
		aum_share_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
		currency CHAR(3) NOT NULL,
		status TEXT NOT NULL,
		onboarded_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS fee_definitions (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		fee_code TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		pricing_kind TEXT NOT NULL,
		rate_per_unit NUMERIC(12,4) NOT NULL DEFAULT 0,
		rate_percent NUMERIC(8,4) NOT NULL DEFAULT 0,
		tiers JSONB,
		chargeable_to TEXT NOT NULL,
		split_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
		currency CHAR(3) NOT NULL,
		minimum_charge NUMERIC(12,2),
		maximum_charge NUMERIC(12,2),
		free_tier_limit BIGINT NOT NULL DEFAULT 0,
		is_optional BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (tenant_id, fee_code)
	)`,
	`CREATE TABLE IF NOT EXISTS charges (
		id TEXT PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		fee_code TEXT NOT NULL,
		quantity BIGINT NOT NULL DEFAULT 0,
		base_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		amount NUMERIC(14,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		status TEXT NOT NULL,
		failure_reason TEXT,
		payment_method_ref TEXT NOT NULL DEFAULT '',
		external_reference TEXT,
		reference_type TEXT,
		reference_id UUID,
		metadata JSONB,
		invoice_id UUID,
		refunded_at TIMESTAMPTZ,
		refund_amount NUMERIC(14,2),
		refund_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		captured_at TIMESTAMPTZ,
		failed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_charges_tenant_status ON charges (tenant_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_charges_pending_created ON charges (created_at) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		invoice_number TEXT NOT NULL UNIQUE,
		billing_month INT NOT NULL,
		billing_year INT NOT NULL,
		total_aum NUMERIC(18,2) NOT NULL DEFAULT 0,
		subscription_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		aum_share_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		usage_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_amount NUMERIC(14,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		charge_count INT NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_sequences (
		billing_year INT NOT NULL,
		billing_month INT NOT NULL,
		last_value INT NOT NULL,
		PRIMARY KEY (billing_year, billing_month)
	)`,
	`CREATE TABLE IF NOT EXISTS revenue_records (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		period_month INT NOT NULL,
		period_year INT NOT NULL,
		total_aum NUMERIC(18,2) NOT NULL DEFAULT 0,
		subscription_fee NUMERIC(14,2) NOT NULL DEFAULT 0,
		aum_revenue_share NUMERIC(14,2) NOT NULL DEFAULT 0,
		usage_charges NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_revenue NUMERIC(14,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		days_active INT NOT NULL,
		is_prorated BOOLEAN NOT NULL DEFAULT FALSE,
		is_current BOOLEAN NOT NULL DEFAULT TRUE,
		superseded_by UUID,
		invoice_id UUID REFERENCES invoices(id),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS compliance_obligations (
		id UUID PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id),
		subject_id UUID NOT NULL,
		rule_type TEXT NOT NULL,
		inputs JSONB NOT NULL,
		result JSONB NOT NULL,
		obligation_flag BOOLEAN NOT NULL,
		amount_due NUMERIC(14,2) NOT NULL DEFAULT 0,
		computed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_obligations_subject ON compliance_obligations (subject_id, rule_type, computed_at)`,
}

// InitDB creates the schema if it does not exist.
func InitDB(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	logger.L.Info("Database schema ready.")
	return nil
}
