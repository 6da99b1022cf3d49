package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeBreakdown discloses how a fee amount was derived. All component
// amounts are unrounded; only FeeCalculation.FeeAmount carries the final
// currency rounding.
type FeeBreakdown struct {
	PricingKind PricingKind     `json:"pricing_kind"`
	Quantity    int64           `json:"quantity"`
	BaseAmount  decimal.Decimal `json:"base_amount"`

	// Components present depending on pricing kind
	RatePerUnit      decimal.Decimal `json:"rate_per_unit,omitempty"`
	RatePercent      decimal.Decimal `json:"rate_percent,omitempty"`
	FlatComponent    decimal.Decimal `json:"flat_component"`
	PercentComponent decimal.Decimal `json:"percent_component"`
	TierComponents   []TierComponent `json:"tier_components,omitempty"`

	// Post-rule adjustments
	BillableQuantity int64 `json:"billable_quantity"` // Quantity after free tier
	MinimumApplied   bool  `json:"minimum_applied"`
	MaximumApplied   bool  `json:"maximum_applied"`

	// Split portions (unrounded; zero unless chargeable_to is split)
	UserPortion decimal.Decimal `json:"user_portion"`
	BankPortion decimal.Decimal `json:"bank_portion"`

	UnroundedTotal decimal.Decimal `json:"unrounded_total"`
}

// TierComponent records the marginal amount taxed within one band.
type TierComponent struct {
	From        decimal.Decimal  `json:"from"`
	UpTo        *decimal.Decimal `json:"up_to,omitempty"`
	RatePercent decimal.Decimal  `json:"rate_percent"`
	Amount      decimal.Decimal  `json:"amount"` // Portion of base falling in this band
	Fee         decimal.Decimal  `json:"fee"`    // Unrounded marginal fee
}

// FeeCalculation is the result of evaluating a fee definition against a
// quantity and base amount. It is ephemeral: nothing is persisted unless
// the calculation is subsequently charged.
type FeeCalculation struct {
	TenantID     uuid.UUID        `json:"tenant_id"`
	FeeCode      string           `json:"fee_code"`
	Description  string           `json:"description"`
	Quantity     int64            `json:"quantity"`
	BaseAmount   decimal.Decimal  `json:"base_amount"`
	FeeAmount    decimal.Decimal  `json:"fee_amount"` // Rounded once, banker's rounding, minor-unit precision
	Currency     string           `json:"currency"`
	ChargeableTo ChargeableEntity `json:"chargeable_to"`
	IsOptional   bool             `json:"is_optional"`
	Breakdown    FeeBreakdown     `json:"breakdown"`
}
