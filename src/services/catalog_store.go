package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// CatalogStore persists tenants and their fee catalogs.
type CatalogStore interface {
	// LoadConfig reads the tenant row and its full fee catalog.
	// Returns ErrUnknownTenant if the tenant does not exist.
	LoadConfig(ctx context.Context, tenantID uuid.UUID) (*models.TenantBillingConfig, error)

	// SaveTenant upserts a tenant row.
	SaveTenant(ctx context.Context, tenant *models.Tenant) error

	// SaveFeeDefinition upserts a fee definition row.
	SaveFeeDefinition(ctx context.Context, fee *models.FeeDefinition) error

	// SetFeeActive toggles a fee definition on or off. found reports
	// whether a matching row existed.
	SetFeeActive(ctx context.Context, tenantID uuid.UUID, feeCode string, active bool) (found bool, err error)
}

// PostgresCatalogStore implements CatalogStore on PostgreSQL.
type PostgresCatalogStore struct {
	db *sql.DB
}

// NewPostgresCatalogStore creates a new Postgres-backed catalog store.
func NewPostgresCatalogStore(db *sql.DB) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

func (s *PostgresCatalogStore) LoadConfig(ctx context.Context, tenantID uuid.UUID) (*models.TenantBillingConfig, error) {
	tenantQuery := `
		SELECT id, slug, name, country, revenue_model, base_fee_usd,
		       aum_share_percentage, currency, status, onboarded_at, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	tenant := models.Tenant{}
	err := s.db.QueryRowContext(ctx, tenantQuery, tenantID).Scan(
		&tenant.ID, &tenant.Slug, &tenant.Name, &tenant.Country, &tenant.RevenueModel,
		&tenant.BaseFeeUSD, &tenant.AUMSharePercentage, &tenant.Currency, &tenant.Status,
		&tenant.OnboardedAt, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}

	feeQuery := `
		SELECT id, tenant_id, fee_code, description, pricing_kind, rate_per_unit,
		       rate_percent, tiers, chargeable_to, split_percentage, currency,
		       minimum_charge, maximum_charge, free_tier_limit, is_optional, is_active,
		       created_at, updated_at
		FROM fee_definitions
		WHERE tenant_id = $1
	`

	rows, err := s.db.QueryContext(ctx, feeQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fee catalog: %w", err)
	}
	defer rows.Close()

	fees := make(map[string]*models.FeeDefinition)
	for rows.Next() {
		fee := &models.FeeDefinition{}
		var tiersJSON []byte

		err := rows.Scan(
			&fee.ID, &fee.TenantID, &fee.FeeCode, &fee.Description, &fee.PricingKind,
			&fee.RatePerUnit, &fee.RatePercent, &tiersJSON, &fee.ChargeableTo,
			&fee.SplitPercentage, &fee.Currency, &fee.MinimumCharge, &fee.MaximumCharge,
			&fee.FreeTierLimit, &fee.IsOptional, &fee.IsActive, &fee.CreatedAt, &fee.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee definition: %w", err)
		}

		if len(tiersJSON) > 0 {
			if err := json.Unmarshal(tiersJSON, &fee.Tiers); err != nil {
				return nil, fmt.Errorf("failed to decode tiers for %s: %w", fee.FeeCode, err)
			}
		}

		fees[fee.FeeCode] = fee
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.TenantBillingConfig{Tenant: tenant, Fees: fees}, nil
}

func (s *PostgresCatalogStore) SaveTenant(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (
			id, slug, name, country, revenue_model, base_fee_usd,
			aum_share_percentage, currency, status, onboarded_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			revenue_model = EXCLUDED.revenue_model,
			base_fee_usd = EXCLUDED.base_fee_usd,
			aum_share_percentage = EXCLUDED.aum_share_percentage,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID, tenant.Slug, tenant.Name, tenant.Country, tenant.RevenueModel,
		tenant.BaseFeeUSD, tenant.AUMSharePercentage, tenant.Currency, tenant.Status,
		tenant.OnboardedAt, tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

func (s *PostgresCatalogStore) SaveFeeDefinition(ctx context.Context, fee *models.FeeDefinition) error {
	tiersJSON, err := json.Marshal(fee.Tiers)
	if err != nil {
		return fmt.Errorf("failed to encode tiers: %w", err)
	}

	query := `
		INSERT INTO fee_definitions (
			id, tenant_id, fee_code, description, pricing_kind, rate_per_unit,
			rate_percent, tiers, chargeable_to, split_percentage, currency,
			minimum_charge, maximum_charge, free_tier_limit, is_optional, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (tenant_id, fee_code) DO UPDATE SET
			description = EXCLUDED.description,
			pricing_kind = EXCLUDED.pricing_kind,
			rate_per_unit = EXCLUDED.rate_per_unit,
			rate_percent = EXCLUDED.rate_percent,
			tiers = EXCLUDED.tiers,
			chargeable_to = EXCLUDED.chargeable_to,
			split_percentage = EXCLUDED.split_percentage,
			currency = EXCLUDED.currency,
			minimum_charge = EXCLUDED.minimum_charge,
			maximum_charge = EXCLUDED.maximum_charge,
			free_tier_limit = EXCLUDED.free_tier_limit,
			is_optional = EXCLUDED.is_optional,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		fee.ID, fee.TenantID, fee.FeeCode, fee.Description, fee.PricingKind,
		fee.RatePerUnit, fee.RatePercent, tiersJSON, fee.ChargeableTo,
		fee.SplitPercentage, fee.Currency, fee.MinimumCharge, fee.MaximumCharge,
		fee.FreeTierLimit, fee.IsOptional, fee.IsActive, fee.CreatedAt, fee.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save fee definition: %w", err)
	}
	return nil
}

func (s *PostgresCatalogStore) SetFeeActive(ctx context.Context, tenantID uuid.UUID, feeCode string, active bool) (bool, error) {
	query := `
		UPDATE fee_definitions
		SET is_active = $1, updated_at = $2
		WHERE tenant_id = $3 AND fee_code = $4
	`

	result, err := s.db.ExecContext(ctx, query, active, time.Now(), tenantID, feeCode)
	if err != nil {
		return false, fmt.Errorf("failed to update fee definition: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
