package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueRecord is the per-tenant, per-period revenue rollup. Records are
// immutable once finalized: re-running aggregation for a closed period
// inserts a superseding record and flips IsCurrent on the old one, it never
// rewrites history.
type RevenueRecord struct {
	ID       uuid.UUID `json:"id" db:"id"`
	TenantID uuid.UUID `json:"tenant_id" db:"tenant_id"`

	PeriodMonth int `json:"period_month" db:"period_month"`
	PeriodYear  int `json:"period_year" db:"period_year"`

	TotalAUM decimal.Decimal `json:"total_aum" db:"total_aum"` // AUM snapshot for the period

	// Revenue components
	SubscriptionFee decimal.Decimal `json:"subscription_fee" db:"subscription_fee"` // SaaS/Hybrid recurring component
	AUMRevenueShare decimal.Decimal `json:"aum_revenue_share" db:"aum_revenue_share"`
	UsageCharges    decimal.Decimal `json:"usage_charges" db:"usage_charges"` // Sum of captured charges in period
	TotalRevenue    decimal.Decimal `json:"total_revenue" db:"total_revenue"`

	Currency string `json:"currency" db:"currency"`

	DaysActive int  `json:"days_active" db:"days_active"`
	IsProrated bool `json:"is_prorated" db:"is_prorated"`

	IsCurrent    bool       `json:"is_current" db:"is_current"`
	SupersededBy *uuid.UUID `json:"superseded_by,omitempty" db:"superseded_by"`

	InvoiceID *uuid.UUID `json:"invoice_id,omitempty" db:"invoice_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
	InvoiceStatusVoid  InvoiceStatus = "void"
)

// Invoice bills a tenant for one closed period. Constituent charges carry
// the invoice's ID so line items stay traceable.
type Invoice struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	InvoiceNumber string    `json:"invoice_number" db:"invoice_number"` // INV-YYYY-MM-NNN

	BillingMonth int `json:"billing_month" db:"billing_month"`
	BillingYear  int `json:"billing_year" db:"billing_year"`

	TotalAUM          decimal.Decimal `json:"total_aum" db:"total_aum"`
	SubscriptionTotal decimal.Decimal `json:"subscription_total" db:"subscription_total"`
	AUMShareTotal     decimal.Decimal `json:"aum_share_total" db:"aum_share_total"`
	UsageTotal        decimal.Decimal `json:"usage_total" db:"usage_total"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	Currency          string          `json:"currency" db:"currency"`

	ChargeCount int `json:"charge_count" db:"charge_count"`

	Status  InvoiceStatus `json:"status" db:"status"`
	DueDate time.Time     `json:"due_date" db:"due_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
