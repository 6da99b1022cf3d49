package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

type fakeCatalogStore struct {
	mu        sync.Mutex
	tenants   map[uuid.UUID]*models.Tenant
	fees      map[uuid.UUID]map[string]*models.FeeDefinition
	loadCalls int
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{
		tenants: make(map[uuid.UUID]*models.Tenant),
		fees:    make(map[uuid.UUID]map[string]*models.FeeDefinition),
	}
}

func (s *fakeCatalogStore) LoadConfig(_ context.Context, tenantID uuid.UUID) (*models.TenantBillingConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadCalls++
	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}

	fees := make(map[string]*models.FeeDefinition, len(s.fees[tenantID]))
	for code, fee := range s.fees[tenantID] {
		copied := *fee
		fees[code] = &copied
	}
	return &models.TenantBillingConfig{Tenant: *tenant, Fees: fees}, nil
}

func (s *fakeCatalogStore) SaveTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *tenant
	s.tenants[tenant.ID] = &copied
	return nil
}

func (s *fakeCatalogStore) SaveFeeDefinition(_ context.Context, fee *models.FeeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fees[fee.TenantID] == nil {
		s.fees[fee.TenantID] = make(map[string]*models.FeeDefinition)
	}
	copied := *fee
	s.fees[fee.TenantID][fee.FeeCode] = &copied
	return nil
}

func (s *fakeCatalogStore) SetFeeActive(_ context.Context, tenantID uuid.UUID, feeCode string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fee, ok := s.fees[tenantID][feeCode]
	if !ok {
		return false, nil
	}
	fee.IsActive = active
	return true, nil
}

func (s *fakeCatalogStore) loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCalls
}

func catalogTenant() *models.Tenant {
	return &models.Tenant{
		ID:           uuid.New(),
		Slug:         "adib",
		Name:         "ADIB",
		Country:      "AE",
		RevenueModel: models.RevenueModelSaaS,
		BaseFeeUSD:   dec("120"),
		Currency:     "USD",
		Status:       models.TenantStatusActive,
	}
}

func catalogFee(tenantID uuid.UUID, code string) *models.FeeDefinition {
	return &models.FeeDefinition{
		ID:           uuid.New(),
		TenantID:     tenantID,
		FeeCode:      code,
		PricingKind:  models.PricingFlat,
		RatePerUnit:  dec("19.99"),
		ChargeableTo: models.ChargeableToEndUser,
		Currency:     "USD",
		IsActive:     true,
	}
}

func TestResolveServesFromCache(t *testing.T) {
	store := newFakeCatalogStore()
	tenant := catalogTenant()
	store.tenants[tenant.ID] = tenant

	service := NewRateCatalogService(store, time.Minute)
	ctx := context.Background()

	first, err := service.Resolve(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := service.Resolve(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if store.loads() != 1 {
		t.Errorf("Store loads = %d, want 1 (second read should hit the cache)", store.loads())
	}
	if first.Tenant.ID != second.Tenant.ID {
		t.Error("Cached config does not match the loaded config")
	}
}

func TestResolveUnknownTenant(t *testing.T) {
	service := NewRateCatalogService(newFakeCatalogStore(), time.Minute)

	_, err := service.Resolve(context.Background(), uuid.New())
	if !errors.Is(err, ErrUnknownTenant) {
		t.Errorf("Expected ErrUnknownTenant, got %v", err)
	}
}

func TestSaveTenantInvalidatesCache(t *testing.T) {
	store := newFakeCatalogStore()
	tenant := catalogTenant()
	store.tenants[tenant.ID] = tenant

	service := NewRateCatalogService(store, time.Minute)
	ctx := context.Background()

	if _, err := service.Resolve(ctx, tenant.ID); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	updated := *tenant
	updated.BaseFeeUSD = dec("240")
	if err := service.SaveTenant(ctx, &updated); err != nil {
		t.Fatalf("SaveTenant() error = %v", err)
	}

	config, err := service.Resolve(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !config.Tenant.BaseFeeUSD.Equal(dec("240")) {
		t.Errorf("BaseFeeUSD = %v, want 240 (stale config served after save)", config.Tenant.BaseFeeUSD)
	}
	if store.loads() != 2 {
		t.Errorf("Store loads = %d, want 2 (save must drop the cached entry)", store.loads())
	}
}

func TestSaveTenantRejectsInvalidConfig(t *testing.T) {
	service := NewRateCatalogService(newFakeCatalogStore(), time.Minute)

	tenant := catalogTenant()
	tenant.Country = "US"
	err := service.SaveTenant(context.Background(), tenant)
	if !errors.Is(err, models.ErrInvalidCountry) {
		t.Errorf("Expected ErrInvalidCountry, got %v", err)
	}
}

func TestSaveFeeDefinitionInvalidatesCache(t *testing.T) {
	store := newFakeCatalogStore()
	tenant := catalogTenant()
	store.tenants[tenant.ID] = tenant
	fee := catalogFee(tenant.ID, "ACCOUNT_STATEMENT")
	store.fees[tenant.ID] = map[string]*models.FeeDefinition{fee.FeeCode: fee}

	service := NewRateCatalogService(store, time.Minute)
	ctx := context.Background()

	if _, err := service.GetFeeDefinition(ctx, tenant.ID, fee.FeeCode); err != nil {
		t.Fatalf("GetFeeDefinition() error = %v", err)
	}

	updated := *fee
	updated.RatePerUnit = dec("24.99")
	if err := service.SaveFeeDefinition(ctx, &updated); err != nil {
		t.Fatalf("SaveFeeDefinition() error = %v", err)
	}

	resolved, err := service.GetFeeDefinition(ctx, tenant.ID, fee.FeeCode)
	if err != nil {
		t.Fatalf("GetFeeDefinition() error = %v", err)
	}
	if !resolved.RatePerUnit.Equal(dec("24.99")) {
		t.Errorf("RatePerUnit = %v, want 24.99 (stale rate served after save)", resolved.RatePerUnit)
	}
}

func TestSetFeeActiveInvalidatesCache(t *testing.T) {
	store := newFakeCatalogStore()
	tenant := catalogTenant()
	store.tenants[tenant.ID] = tenant
	fee := catalogFee(tenant.ID, "INSTANT_SYNC")
	store.fees[tenant.ID] = map[string]*models.FeeDefinition{fee.FeeCode: fee}

	service := NewRateCatalogService(store, time.Minute)
	ctx := context.Background()

	if _, err := service.GetFeeDefinition(ctx, tenant.ID, fee.FeeCode); err != nil {
		t.Fatalf("GetFeeDefinition() error = %v", err)
	}

	if err := service.SetFeeActive(ctx, tenant.ID, fee.FeeCode, false); err != nil {
		t.Fatalf("SetFeeActive() error = %v", err)
	}

	_, err := service.GetFeeDefinition(ctx, tenant.ID, fee.FeeCode)
	if !errors.Is(err, ErrFeeInactive) {
		t.Errorf("Expected ErrFeeInactive after deactivation, got %v", err)
	}
}

func TestSetFeeActiveUnknownCode(t *testing.T) {
	store := newFakeCatalogStore()
	tenant := catalogTenant()
	store.tenants[tenant.ID] = tenant

	service := NewRateCatalogService(store, time.Minute)

	err := service.SetFeeActive(context.Background(), tenant.ID, "NO_SUCH_FEE", false)
	if !errors.Is(err, ErrUnknownFeeCode) {
		t.Errorf("Expected ErrUnknownFeeCode, got %v", err)
	}
}

func TestGetFeeDefinitionUnknownCode(t *testing.T) {
	store := newFakeCatalogStore()
	tenant := catalogTenant()
	store.tenants[tenant.ID] = tenant

	service := NewRateCatalogService(store, time.Minute)

	_, err := service.GetFeeDefinition(context.Background(), tenant.ID, "NO_SUCH_FEE")
	if !errors.Is(err, ErrUnknownFeeCode) {
		t.Errorf("Expected ErrUnknownFeeCode, got %v", err)
	}
}
