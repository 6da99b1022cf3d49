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

// Revenue aggregation errors
var (
	ErrInvalidPeriod  = errors.New("period month must be 1-12 and year positive")
	ErrTenantInactive = errors.New("tenant is not active")
)

// ConfigResolver yields a tenant's billing configuration snapshot.
// Satisfied by RateCatalogService.
type ConfigResolver interface {
	Resolve(ctx context.Context, tenantID uuid.UUID) (*models.TenantBillingConfig, error)
}

// RecurringComponents is the revenue-model-driven part of a period's
// revenue, before usage charges are added.
type RecurringComponents struct {
	SubscriptionFee decimal.Decimal
	AUMRevenueShare decimal.Decimal
}

// RevenueLedgerService closes billing periods: it rolls captured charges
// and the tenant's recurring revenue into an immutable RevenueRecord and
// emits the period invoice. Re-running a period supersedes the prior
// record instead of rewriting it.
type RevenueLedgerService struct {
	store          RevenueStore
	catalog        ConfigResolver
	invoiceDueDays int
}

// NewRevenueLedgerService creates a new revenue ledger service.
func NewRevenueLedgerService(store RevenueStore, catalog ConfigResolver, invoiceDueDays int) *RevenueLedgerService {
	return &RevenueLedgerService{store: store, catalog: catalog, invoiceDueDays: invoiceDueDays}
}

// ComputeRecurring derives the recurring revenue for one period from the
// tenant's revenue model. SaaS contributes one twelfth of the annual base
// fee, AUM-share contributes the share percentage applied to the period's
// AUM snapshot, and hybrid contributes both. daysActive prorates the
// subscription for tenants onboarded mid-period; pass the full month's day
// count for a full period.
func ComputeRecurring(tenant *models.Tenant, totalAUM decimal.Decimal, daysActive, daysInMonth int) RecurringComponents {
	components := RecurringComponents{
		SubscriptionFee: decimal.Zero,
		AUMRevenueShare: decimal.Zero,
	}

	twelve := decimal.NewFromInt(12)

	switch tenant.RevenueModel {
	case models.RevenueModelSaaS:
		components.SubscriptionFee = tenant.BaseFeeUSD.Div(twelve)
	case models.RevenueModelHybrid:
		components.SubscriptionFee = tenant.BaseFeeUSD.Div(twelve)
		components.AUMRevenueShare = percentOf(totalAUM, tenant.AUMSharePercentage)
	case models.RevenueModelAUMShare:
		components.AUMRevenueShare = percentOf(totalAUM, tenant.AUMSharePercentage)
	}

	if daysActive < daysInMonth && daysInMonth > 0 {
		ratio := decimal.NewFromInt(int64(daysActive)).Div(decimal.NewFromInt(int64(daysInMonth)))
		components.SubscriptionFee = components.SubscriptionFee.Mul(ratio)
	}

	components.SubscriptionFee = components.SubscriptionFee.RoundBank(2)
	components.AUMRevenueShare = components.AUMRevenueShare.RoundBank(2)
	return components
}

// AggregatePeriod closes one billing period for a tenant: sums its
// captured usage charges, adds the recurring component, writes the
// revenue record (superseding any earlier record for the period) and
// emits the invoice. totalAUM is the tenant's AUM snapshot for the period.
func (s *RevenueLedgerService) AggregatePeriod(ctx context.Context, tenantID uuid.UUID, month, year int, totalAUM decimal.Decimal) (*models.Invoice, error) {
	if month < 1 || month > 12 || year <= 0 {
		return nil, ErrInvalidPeriod
	}

	config, err := s.catalog.Resolve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	tenant := &config.Tenant
	if !tenant.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrTenantInactive, tenant.Slug)
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	lastDay := periodEnd.AddDate(0, 0, -1)
	daysInMonth := lastDay.Day()

	daysActive := daysInMonth
	if tenant.OnboardedAt != nil && tenant.OnboardedAt.After(periodStart) && tenant.OnboardedAt.Before(periodEnd) {
		daysActive = daysInMonth - tenant.OnboardedAt.Day() + 1
	}

	recurring := ComputeRecurring(tenant, totalAUM, daysActive, daysInMonth)

	usage, chargeCount, err := s.store.SumCapturedCharges(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	total := recurring.SubscriptionFee.Add(recurring.AUMRevenueShare).Add(usage)

	record := &models.RevenueRecord{
		ID:              uuid.New(),
		TenantID:        tenantID,
		PeriodMonth:     month,
		PeriodYear:      year,
		TotalAUM:        totalAUM,
		SubscriptionFee: recurring.SubscriptionFee,
		AUMRevenueShare: recurring.AUMRevenueShare,
		UsageCharges:    usage,
		TotalRevenue:    total,
		Currency:        tenant.Currency,
		DaysActive:      daysActive,
		IsProrated:      daysActive < daysInMonth,
		IsCurrent:       true,
		CreatedAt:       time.Now(),
	}

	invoice := &models.Invoice{
		ID:                uuid.New(),
		TenantID:          tenantID,
		BillingMonth:      month,
		BillingYear:       year,
		TotalAUM:          totalAUM,
		SubscriptionTotal: recurring.SubscriptionFee,
		AUMShareTotal:     recurring.AUMRevenueShare,
		UsageTotal:        usage,
		TotalAmount:       total,
		Currency:          tenant.Currency,
		ChargeCount:       chargeCount,
		Status:            models.InvoiceStatusDraft,
		DueDate:           lastDay.AddDate(0, 0, s.invoiceDueDays),
		CreatedAt:         time.Now(),
	}
	record.InvoiceID = &invoice.ID

	if err := s.store.ClosePeriod(ctx, record, invoice, periodStart, periodEnd); err != nil {
		return nil, err
	}

	logger.L.Info("billing period closed",
		"tenant_id", tenantID, "period", fmt.Sprintf("%04d-%02d", year, month),
		"invoice_number", invoice.InvoiceNumber, "total", total.String())

	return invoice, nil
}
