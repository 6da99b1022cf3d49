package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

func TestComputeRecurring(t *testing.T) {
	tests := []struct {
		name             string
		model            models.RevenueModel
		baseFee          decimal.Decimal
		aumShare         decimal.Decimal
		totalAUM         decimal.Decimal
		daysActive       int
		daysInMonth      int
		expectedSub      decimal.Decimal
		expectedAUMShare decimal.Decimal
	}{
		{
			name:             "AUM share only",
			model:            models.RevenueModelAUMShare,
			aumShare:         dec("1.5"),
			totalAUM:         dec("500000"),
			daysActive:       30,
			daysInMonth:      30,
			expectedSub:      decimal.Zero,
			expectedAUMShare: dec("7500.00"),
		},
		{
			name:             "SaaS full month",
			model:            models.RevenueModelSaaS,
			baseFee:          dec("120"),
			totalAUM:         dec("500000"),
			daysActive:       31,
			daysInMonth:      31,
			expectedSub:      dec("10.00"),
			expectedAUMShare: decimal.Zero,
		},
		{
			name:             "Hybrid combines both",
			model:            models.RevenueModelHybrid,
			baseFee:          dec("240"),
			aumShare:         dec("2"),
			totalAUM:         dec("100000"),
			daysActive:       30,
			daysInMonth:      30,
			expectedSub:      dec("20.00"),
			expectedAUMShare: dec("2000.00"),
		},
		{
			name:             "SaaS prorated for mid-month onboarding",
			model:            models.RevenueModelSaaS,
			baseFee:          dec("120"),
			daysActive:       15,
			daysInMonth:      30,
			expectedSub:      dec("5.00"), // 10.00 * 15/30
			expectedAUMShare: decimal.Zero,
		},
		{
			name:             "AUM share is not prorated",
			model:            models.RevenueModelAUMShare,
			aumShare:         dec("1.5"),
			totalAUM:         dec("500000"),
			daysActive:       10,
			daysInMonth:      30,
			expectedSub:      decimal.Zero,
			expectedAUMShare: dec("7500.00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant := &models.Tenant{
				RevenueModel:       tt.model,
				BaseFeeUSD:         tt.baseFee,
				AUMSharePercentage: tt.aumShare,
			}

			components := ComputeRecurring(tenant, tt.totalAUM, tt.daysActive, tt.daysInMonth)
			if !components.SubscriptionFee.Equal(tt.expectedSub) {
				t.Errorf("SubscriptionFee = %v, want %v", components.SubscriptionFee, tt.expectedSub)
			}
			if !components.AUMRevenueShare.Equal(tt.expectedAUMShare) {
				t.Errorf("AUMRevenueShare = %v, want %v", components.AUMRevenueShare, tt.expectedAUMShare)
			}
		})
	}
}

func TestComputeRecurringRounding(t *testing.T) {
	// 100 / 12 = 8.3333... must come out as a clean currency amount.
	tenant := &models.Tenant{
		RevenueModel: models.RevenueModelSaaS,
		BaseFeeUSD:   dec("100"),
	}

	components := ComputeRecurring(tenant, decimal.Zero, 30, 30)
	if !components.SubscriptionFee.Equal(dec("8.33")) {
		t.Errorf("SubscriptionFee = %v, want 8.33", components.SubscriptionFee)
	}
}

type fakeConfigResolver struct {
	config *models.TenantBillingConfig
}

func (r *fakeConfigResolver) Resolve(_ context.Context, tenantID uuid.UUID) (*models.TenantBillingConfig, error) {
	if r.config == nil || r.config.Tenant.ID != tenantID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTenant, tenantID)
	}
	return r.config, nil
}

// fakeRevenueStore keeps the ClosePeriod contract in memory: per-period
// sequence allocation, supersede, and restamping of the period's charges.
type fakeRevenueStore struct {
	mu        sync.Mutex
	usage     decimal.Decimal
	count     int
	chargeIDs []string
	sequences map[string]int
	records   []*models.RevenueRecord
	invoices  []*models.Invoice
	stamped   map[string]uuid.UUID
}

func newFakeRevenueStore(usage decimal.Decimal, chargeIDs []string) *fakeRevenueStore {
	return &fakeRevenueStore{
		usage:     usage,
		count:     len(chargeIDs),
		chargeIDs: chargeIDs,
		sequences: make(map[string]int),
		stamped:   make(map[string]uuid.UUID),
	}
}

func (s *fakeRevenueStore) SumCapturedCharges(_ context.Context, _ uuid.UUID, _, _ time.Time) (decimal.Decimal, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage, s.count, nil
}

func (s *fakeRevenueStore) ClosePeriod(_ context.Context, record *models.RevenueRecord, invoice *models.Invoice, _, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	periodKey := fmt.Sprintf("%04d-%02d", invoice.BillingYear, invoice.BillingMonth)
	s.sequences[periodKey]++
	invoice.InvoiceNumber = fmt.Sprintf("INV-%04d-%02d-%03d", invoice.BillingYear, invoice.BillingMonth, s.sequences[periodKey])

	for _, prior := range s.records {
		if prior.TenantID == record.TenantID && prior.PeriodMonth == record.PeriodMonth &&
			prior.PeriodYear == record.PeriodYear && prior.IsCurrent {
			prior.IsCurrent = false
			successor := record.ID
			prior.SupersededBy = &successor
		}
	}

	s.records = append(s.records, record)
	s.invoices = append(s.invoices, invoice)
	for _, chargeID := range s.chargeIDs {
		s.stamped[chargeID] = invoice.ID
	}
	return nil
}

func TestAggregatePeriod(t *testing.T) {
	tenant := models.Tenant{
		ID:           uuid.New(),
		Slug:         "adib",
		Country:      "AE",
		RevenueModel: models.RevenueModelSaaS,
		BaseFeeUSD:   dec("120"),
		Currency:     "USD",
		Status:       models.TenantStatusActive,
	}
	resolver := &fakeConfigResolver{config: &models.TenantBillingConfig{Tenant: tenant}}
	store := newFakeRevenueStore(dec("25.00"), []string{"charge-1", "charge-2"})
	service := NewRevenueLedgerService(store, resolver, 15)

	invoice, err := service.AggregatePeriod(context.Background(), tenant.ID, 7, 2026, decimal.Zero)
	if err != nil {
		t.Fatalf("AggregatePeriod() error = %v", err)
	}

	if invoice.InvoiceNumber != "INV-2026-07-001" {
		t.Errorf("InvoiceNumber = %s, want INV-2026-07-001", invoice.InvoiceNumber)
	}
	if !invoice.TotalAmount.Equal(dec("35.00")) {
		t.Errorf("TotalAmount = %v, want 35.00 (10.00 subscription + 25.00 usage)", invoice.TotalAmount)
	}
	if invoice.ChargeCount != 2 {
		t.Errorf("ChargeCount = %d, want 2", invoice.ChargeCount)
	}
	wantDue := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	if !invoice.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", invoice.DueDate, wantDue)
	}
}

func TestAggregatePeriodRerunSupersedes(t *testing.T) {
	tenant := models.Tenant{
		ID:           uuid.New(),
		Slug:         "snb",
		Country:      "SA",
		RevenueModel: models.RevenueModelSaaS,
		BaseFeeUSD:   dec("120"),
		Currency:     "USD",
		Status:       models.TenantStatusActive,
	}
	resolver := &fakeConfigResolver{config: &models.TenantBillingConfig{Tenant: tenant}}
	store := newFakeRevenueStore(dec("40.00"), []string{"charge-1", "charge-2", "charge-3"})
	service := NewRevenueLedgerService(store, resolver, 15)
	ctx := context.Background()

	first, err := service.AggregatePeriod(ctx, tenant.ID, 7, 2026, decimal.Zero)
	if err != nil {
		t.Fatalf("AggregatePeriod() error = %v", err)
	}
	second, err := service.AggregatePeriod(ctx, tenant.ID, 7, 2026, decimal.Zero)
	if err != nil {
		t.Fatalf("AggregatePeriod() rerun error = %v", err)
	}

	// The rerun must allocate a fresh number, never reuse the first.
	if first.InvoiceNumber != "INV-2026-07-001" {
		t.Errorf("First InvoiceNumber = %s, want INV-2026-07-001", first.InvoiceNumber)
	}
	if second.InvoiceNumber != "INV-2026-07-002" {
		t.Errorf("Second InvoiceNumber = %s, want INV-2026-07-002", second.InvoiceNumber)
	}

	if len(store.records) != 2 {
		t.Fatalf("Expected 2 revenue records, got %d", len(store.records))
	}
	old, current := store.records[0], store.records[1]
	if old.IsCurrent {
		t.Error("Expected the first record to be retired after the rerun")
	}
	if old.SupersededBy == nil || *old.SupersededBy != current.ID {
		t.Error("Expected the first record to point at its successor")
	}
	if !current.IsCurrent {
		t.Error("Expected the rerun's record to be current")
	}

	// Charges must follow the superseding invoice, not stay on the old one.
	for _, chargeID := range store.chargeIDs {
		if store.stamped[chargeID] != second.ID {
			t.Errorf("Charge %s stamped with %v, want the rerun invoice %v",
				chargeID, store.stamped[chargeID], second.ID)
		}
	}
}

func TestAggregatePeriodValidation(t *testing.T) {
	tenant := models.Tenant{
		ID:           uuid.New(),
		Slug:         "adib",
		Country:      "AE",
		RevenueModel: models.RevenueModelSaaS,
		BaseFeeUSD:   dec("120"),
		Currency:     "USD",
		Status:       models.TenantStatusSuspended,
	}
	resolver := &fakeConfigResolver{config: &models.TenantBillingConfig{Tenant: tenant}}
	service := NewRevenueLedgerService(newFakeRevenueStore(decimal.Zero, nil), resolver, 15)
	ctx := context.Background()

	if _, err := service.AggregatePeriod(ctx, tenant.ID, 13, 2026, decimal.Zero); err != ErrInvalidPeriod {
		t.Errorf("Expected ErrInvalidPeriod for month 13, got %v", err)
	}
	if _, err := service.AggregatePeriod(ctx, tenant.ID, 7, 2026, decimal.Zero); err == nil {
		t.Error("Expected an error for a suspended tenant")
	}
}
