package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueModel represents how the platform monetizes a bank partner
type RevenueModel string

const (
	RevenueModelSaaS     RevenueModel = "SAAS"      // Fixed annual fee per user
	RevenueModelHybrid   RevenueModel = "HYBRID"    // Base fee + AUM share
	RevenueModelAUMShare RevenueModel = "AUM_SHARE" // Percentage of AUM only
)

// TenantStatus represents valid tenant statuses
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusClosed    TenantStatus = "closed"
)

// Tenant represents a bank partner on the platform.
// Each tenant has an isolated fee catalog and a revenue model that
// determines how the platform bills it.
type Tenant struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Slug    string    `json:"slug" db:"slug"`
	Name    string    `json:"name" db:"name"`
	Country string    `json:"country" db:"country"` // ISO 3166-1 alpha-2 (AE or SA)

	// Revenue model configuration
	RevenueModel       RevenueModel    `json:"revenue_model" db:"revenue_model"`
	BaseFeeUSD         decimal.Decimal `json:"base_fee_usd" db:"base_fee_usd"`                 // Annual fee per user (SaaS/Hybrid)
	AUMSharePercentage decimal.Decimal `json:"aum_share_percentage" db:"aum_share_percentage"` // Platform's AUM share (Hybrid/AUM-Share)
	Currency           string          `json:"currency" db:"currency"`

	Status      TenantStatus `json:"status" db:"status"`
	OnboardedAt *time.Time   `json:"onboarded_at,omitempty" db:"onboarded_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Validation errors
var (
	ErrInvalidRevenueModel = errors.New("unknown revenue model")
	ErrInvalidBaseFee      = errors.New("base fee must be between 10 and 500 USD per year")
	ErrInvalidAUMShare     = errors.New("AUM share percentage must be between 1 and 50")
	ErrInvalidCountry      = errors.New("country must be AE or SA")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter ISO code")
)

// Validate validates the tenant's revenue model configuration.
// Model parameters are validated here, at configuration time, so the fee
// calculator never re-checks them on the hot path.
func (t *Tenant) Validate() error {
	if t.Country != "AE" && t.Country != "SA" {
		return ErrInvalidCountry
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}

	minFee := decimal.NewFromInt(10)
	maxFee := decimal.NewFromInt(500)
	minShare := decimal.NewFromInt(1)
	maxShare := decimal.NewFromInt(50)

	switch t.RevenueModel {
	case RevenueModelSaaS:
		if t.BaseFeeUSD.LessThan(minFee) || t.BaseFeeUSD.GreaterThan(maxFee) {
			return ErrInvalidBaseFee
		}
	case RevenueModelHybrid:
		if t.BaseFeeUSD.LessThan(minFee) || t.BaseFeeUSD.GreaterThan(maxFee) {
			return ErrInvalidBaseFee
		}
		if t.AUMSharePercentage.LessThan(minShare) || t.AUMSharePercentage.GreaterThan(maxShare) {
			return ErrInvalidAUMShare
		}
	case RevenueModelAUMShare:
		if t.AUMSharePercentage.LessThan(minShare) || t.AUMSharePercentage.GreaterThan(maxShare) {
			return ErrInvalidAUMShare
		}
	default:
		return ErrInvalidRevenueModel
	}

	return nil
}

// IsActive returns true if the tenant can be billed
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
