package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// Configuration errors. These are never silently defaulted: a missing
// tenant or fee code must surface to the caller, not bill zero.
var (
	ErrUnknownTenant  = errors.New("unknown tenant")
	ErrUnknownFeeCode = errors.New("unknown fee code")
	ErrFeeInactive    = errors.New("fee is not active")
)

// RateCatalogService resolves a tenant's billing configuration: its revenue
// model parameters plus its full fee catalog.
//
// Reads are served through a per-tenant cache with a bounded TTL; writes
// invalidate the tenant's entry synchronously before they are acknowledged,
// so the staleness window is at most the cache TTL and never unbounded.
type RateCatalogService struct {
	store CatalogStore
	cache *cache.Cache
}

// NewRateCatalogService creates a new rate catalog service. cacheTTL bounds
// how stale a cached config may be after an out-of-band store change.
func NewRateCatalogService(store CatalogStore, cacheTTL time.Duration) *RateCatalogService {
	return &RateCatalogService{
		store: store,
		cache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

func configCacheKey(tenantID uuid.UUID) string {
	return "billing_config:" + tenantID.String()
}

// Resolve returns the billing configuration snapshot for a tenant.
// Returns ErrUnknownTenant if the tenant does not exist.
func (s *RateCatalogService) Resolve(ctx context.Context, tenantID uuid.UUID) (*models.TenantBillingConfig, error) {
	if cached, found := s.cache.Get(configCacheKey(tenantID)); found {
		return cached.(*models.TenantBillingConfig), nil
	}

	config, err := s.store.LoadConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.cache.SetDefault(configCacheKey(tenantID), config)
	return config, nil
}

// GetFeeDefinition resolves one fee definition for a tenant.
// Returns ErrUnknownFeeCode when the code is absent from the catalog and
// ErrFeeInactive when it exists but has been switched off.
func (s *RateCatalogService) GetFeeDefinition(ctx context.Context, tenantID uuid.UUID, feeCode string) (*models.FeeDefinition, error) {
	config, err := s.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	fee := config.FeeByCode(feeCode)
	if fee == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeeCode, feeCode)
	}
	if !fee.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrFeeInactive, feeCode)
	}

	return fee, nil
}

// SaveTenant validates and upserts a tenant, then invalidates its cached
// configuration before returning so no later read can observe the old rates.
func (s *RateCatalogService) SaveTenant(ctx context.Context, tenant *models.Tenant) error {
	if err := tenant.Validate(); err != nil {
		return fmt.Errorf("invalid tenant config: %w", err)
	}

	now := time.Now()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	tenant.UpdatedAt = now

	if err := s.store.SaveTenant(ctx, tenant); err != nil {
		return err
	}

	s.cache.Delete(configCacheKey(tenant.ID))
	return nil
}

// SaveFeeDefinition validates and upserts a fee definition, invalidating
// the tenant's cached configuration before returning.
func (s *RateCatalogService) SaveFeeDefinition(ctx context.Context, fee *models.FeeDefinition) error {
	if err := fee.Validate(); err != nil {
		return fmt.Errorf("invalid fee definition %s: %w", fee.FeeCode, err)
	}

	now := time.Now()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	fee.UpdatedAt = now

	if err := s.store.SaveFeeDefinition(ctx, fee); err != nil {
		return err
	}

	s.cache.Delete(configCacheKey(fee.TenantID))
	return nil
}

// SetFeeActive toggles a fee definition on or off, invalidating the cache.
func (s *RateCatalogService) SetFeeActive(ctx context.Context, tenantID uuid.UUID, feeCode string, active bool) error {
	found, err := s.store.SetFeeActive(ctx, tenantID, feeCode, active)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownFeeCode, feeCode)
	}

	s.cache.Delete(configCacheKey(tenantID))
	return nil
}

// Invalidate drops the cached configuration for a tenant. Exposed for
// callers that mutate tenant config outside this service.
func (s *RateCatalogService) Invalidate(tenantID uuid.UUID) {
	s.cache.Delete(configCacheKey(tenantID))
}
