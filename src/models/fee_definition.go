package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingKind represents the shape of a fee's pricing rule.
// The fee calculator dispatches on this tag; all rounding and aggregation
// logic lives in one place rather than per-kind subtypes.
type PricingKind string

const (
	PricingFlat       PricingKind = "flat"               // rate_per_unit * quantity
	PricingPercentage PricingKind = "percentage_of_base" // base_amount * rate_percent / 100
	PricingHybrid     PricingKind = "hybrid"             // flat component + percentage component
	PricingTiered     PricingKind = "tiered"             // marginal rate per band of base_amount
)

// ChargeableEntity represents who pays a fee
type ChargeableEntity string

const (
	ChargeableToEndUser  ChargeableEntity = "end_user"
	ChargeableToBank     ChargeableEntity = "bank"
	ChargeableToPlatform ChargeableEntity = "platform"
	ChargeableToSplit    ChargeableEntity = "split" // Divided between end user and bank
)

// FeeTier is one band of a tiered pricing rule. UpTo is the inclusive upper
// boundary of the band; a nil UpTo marks the final, unbounded band.
type FeeTier struct {
	UpTo        *decimal.Decimal `json:"up_to,omitempty"`
	RatePercent decimal.Decimal  `json:"rate_percent"`
}

// FeeDefinition is one entry in a tenant's rate catalog.
// FeeCode + TenantID is the natural key.
type FeeDefinition struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	FeeCode     string    `json:"fee_code" db:"fee_code"` // e.g. "TAX_REPORT_FATCA"
	Description string    `json:"description" db:"description"`

	PricingKind PricingKind     `json:"pricing_kind" db:"pricing_kind"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit" db:"rate_per_unit"` // Flat amount per unit (flat/hybrid)
	RatePercent decimal.Decimal `json:"rate_percent" db:"rate_percent"`   // Percentage of base (percentage/hybrid)
	Tiers       []FeeTier       `json:"tiers,omitempty" db:"-"`           // Bands for tiered pricing

	ChargeableTo    ChargeableEntity `json:"chargeable_to" db:"chargeable_to"`
	SplitPercentage decimal.Decimal  `json:"split_percentage" db:"split_percentage"` // End user's share when split

	Currency string `json:"currency" db:"currency"`

	// Optional clamps and free tier, applied after the pricing rule
	MinimumCharge *decimal.Decimal `json:"minimum_charge,omitempty" db:"minimum_charge"`
	MaximumCharge *decimal.Decimal `json:"maximum_charge,omitempty" db:"maximum_charge"`
	FreeTierLimit int64            `json:"free_tier_limit" db:"free_tier_limit"` // Units included before flat fees apply

	IsOptional bool `json:"is_optional" db:"is_optional"` // Requires explicit acceptance before charging
	IsActive   bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Fee definition validation errors
var (
	ErrMissingFeeCode      = errors.New("fee code is required")
	ErrInvalidPricingKind  = errors.New("unknown pricing kind")
	ErrNegativeRate        = errors.New("rates must not be negative")
	ErrMissingTiers        = errors.New("tiered pricing requires at least one tier")
	ErrUnorderedTiers      = errors.New("tier boundaries must be strictly increasing")
	ErrUnboundedInnerTier  = errors.New("only the final tier may be unbounded")
	ErrInvalidSplitPercent = errors.New("split percentage must be between 0 and 100")
)

// Validate validates the fee definition at configuration time.
func (f *FeeDefinition) Validate() error {
	if f.FeeCode == "" {
		return ErrMissingFeeCode
	}
	if len(f.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if f.RatePerUnit.IsNegative() || f.RatePercent.IsNegative() {
		return ErrNegativeRate
	}

	switch f.PricingKind {
	case PricingFlat, PricingPercentage, PricingHybrid:
		// Rates already checked above
	case PricingTiered:
		if len(f.Tiers) == 0 {
			return ErrMissingTiers
		}
		var prev *decimal.Decimal
		for i, tier := range f.Tiers {
			if tier.RatePercent.IsNegative() {
				return ErrNegativeRate
			}
			if tier.UpTo == nil {
				if i != len(f.Tiers)-1 {
					return ErrUnboundedInnerTier
				}
				continue
			}
			if prev != nil && !tier.UpTo.GreaterThan(*prev) {
				return ErrUnorderedTiers
			}
			prev = tier.UpTo
		}
	default:
		return ErrInvalidPricingKind
	}

	if f.ChargeableTo == ChargeableToSplit {
		hundred := decimal.NewFromInt(100)
		if f.SplitPercentage.IsNegative() || f.SplitPercentage.GreaterThan(hundred) {
			return ErrInvalidSplitPercent
		}
	}

	return nil
}

// TenantBillingConfig is the snapshot the fee calculator works against:
// the tenant's revenue model parameters plus its full rate catalog.
// The resolver hands out one immutable snapshot per calculation so an
// in-flight calculation never sees a half-applied config change.
type TenantBillingConfig struct {
	Tenant Tenant
	Fees   map[string]*FeeDefinition // keyed by fee code
}

// FeeByCode returns the fee definition for a code, or nil if absent.
func (c *TenantBillingConfig) FeeByCode(code string) *FeeDefinition {
	return c.Fees[code]
}
