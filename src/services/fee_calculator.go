package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// Fee calculation errors
var (
	ErrInvalidQuantity    = errors.New("quantity must not be negative")
	ErrNegativeBaseAmount = errors.New("base amount must not be negative")
)

// FeeCalculatorService turns a fee definition plus a quantity and base
// amount into an exact fee. It is pure: no database, no clock, no I/O.
// All arithmetic is exact decimal; rounding happens exactly once, to
// currency minor units with banker's rounding, after every component and
// clamp has been applied.
type FeeCalculatorService struct{}

// NewFeeCalculatorService creates a new fee calculator service.
func NewFeeCalculatorService() *FeeCalculatorService {
	return &FeeCalculatorService{}
}

// Calculate evaluates a fee definition against a quantity and base amount.
// Quantity drives flat per-unit components; baseAmount drives percentage
// and tiered components. An omitted (zero) quantity means one unit, so a
// bare request can never price a flat fee at nothing. The fee definition
// is treated as read-only.
func (s *FeeCalculatorService) Calculate(fee *models.FeeDefinition, quantity int64, baseAmount decimal.Decimal) (*models.FeeCalculation, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		quantity = 1
	}
	if baseAmount.IsNegative() {
		return nil, ErrNegativeBaseAmount
	}
	if !fee.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrFeeInactive, fee.FeeCode)
	}

	breakdown := models.FeeBreakdown{
		PricingKind:      fee.PricingKind,
		Quantity:         quantity,
		BaseAmount:       baseAmount,
		BillableQuantity: quantity,
	}

	// Free tier only discounts unit-driven components
	if fee.FreeTierLimit > 0 {
		breakdown.BillableQuantity = quantity - fee.FreeTierLimit
		if breakdown.BillableQuantity < 0 {
			breakdown.BillableQuantity = 0
		}
	}

	var total decimal.Decimal

	switch fee.PricingKind {
	case models.PricingFlat:
		breakdown.RatePerUnit = fee.RatePerUnit
		breakdown.FlatComponent = fee.RatePerUnit.Mul(decimal.NewFromInt(breakdown.BillableQuantity))
		total = breakdown.FlatComponent

	case models.PricingPercentage:
		breakdown.RatePercent = fee.RatePercent
		breakdown.PercentComponent = percentOf(baseAmount, fee.RatePercent)
		total = breakdown.PercentComponent

	case models.PricingHybrid:
		breakdown.RatePerUnit = fee.RatePerUnit
		breakdown.RatePercent = fee.RatePercent
		breakdown.FlatComponent = fee.RatePerUnit.Mul(decimal.NewFromInt(breakdown.BillableQuantity))
		breakdown.PercentComponent = percentOf(baseAmount, fee.RatePercent)
		total = breakdown.FlatComponent.Add(breakdown.PercentComponent)

	case models.PricingTiered:
		components := marginalTiers(fee.Tiers, baseAmount)
		breakdown.TierComponents = components
		for _, c := range components {
			total = total.Add(c.Fee)
		}

	default:
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidPricingKind, fee.PricingKind)
	}

	if fee.MinimumCharge != nil && total.IsPositive() && total.LessThan(*fee.MinimumCharge) {
		total = *fee.MinimumCharge
		breakdown.MinimumApplied = true
	}
	if fee.MaximumCharge != nil && total.GreaterThan(*fee.MaximumCharge) {
		total = *fee.MaximumCharge
		breakdown.MaximumApplied = true
	}

	breakdown.UnroundedTotal = total

	if fee.ChargeableTo == models.ChargeableToSplit {
		breakdown.UserPortion = percentOf(total, fee.SplitPercentage)
		breakdown.BankPortion = total.Sub(breakdown.UserPortion)
	}

	return &models.FeeCalculation{
		TenantID:     fee.TenantID,
		FeeCode:      fee.FeeCode,
		Description:  fee.Description,
		Quantity:     quantity,
		BaseAmount:   baseAmount,
		FeeAmount:    total.RoundBank(2),
		Currency:     fee.Currency,
		ChargeableTo: fee.ChargeableTo,
		IsOptional:   fee.IsOptional,
		Breakdown:    breakdown,
	}, nil
}

// percentOf returns amount * percent / 100 without rounding.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(decimal.NewFromInt(100))
}

// marginalTiers slices the base amount across the tier bands and applies
// each band's rate to the portion that falls inside it. A boundary value
// belongs to the lower band; bands above the base amount contribute
// nothing.
func marginalTiers(tiers []models.FeeTier, baseAmount decimal.Decimal) []models.TierComponent {
	components := make([]models.TierComponent, 0, len(tiers))
	floor := decimal.Zero

	for _, tier := range tiers {
		if !baseAmount.GreaterThan(floor) {
			break
		}

		ceiling := baseAmount
		if tier.UpTo != nil && tier.UpTo.LessThan(baseAmount) {
			ceiling = *tier.UpTo
		}

		portion := ceiling.Sub(floor)
		components = append(components, models.TierComponent{
			From:        floor,
			UpTo:        tier.UpTo,
			RatePercent: tier.RatePercent,
			Amount:      portion,
			Fee:         percentOf(portion, tier.RatePercent),
		})

		if tier.UpTo == nil {
			break
		}
		floor = *tier.UpTo
	}

	return components
}
