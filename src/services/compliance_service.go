package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

// Compliance evaluation errors
var (
	ErrUnknownRuleType    = errors.New("unknown compliance rule type")
	ErrIncompleteSnapshot = errors.New("subject snapshot is missing required inputs")
)

// FBAR filing threshold: aggregate foreign account balances exceeding this
// at any point in the year trigger a filing obligation.
var fbarThreshold = decimal.NewFromInt(10000)

// Zakat constants: the levy rate and the gold weight defining the nisab
// floor. The threshold itself is gold price x 85 grams and is recomputed
// on every evaluation because the gold price moves.
var (
	zakatRatePercent           = decimal.NewFromFloat(2.5)
	nisabGoldGrams             = decimal.NewFromInt(85)
	defaultGoldPriceUSDPerGram = decimal.NewFromFloat(64.24)
)

// GoldPriceFunc returns the current gold price per gram in USD.
type GoldPriceFunc func() decimal.Decimal

// StaticGoldPrice returns a GoldPriceFunc pinned to one price.
func StaticGoldPrice(price decimal.Decimal) GoldPriceFunc {
	return func() decimal.Decimal { return price }
}

// defaultParticipatingJurisdictions are the CRS signatories recognized
// when no explicit set is configured. The US is deliberately absent: it
// reports under FATCA, not CRS.
var defaultParticipatingJurisdictions = []string{
	"AE", "SA", "GB", "DE", "FR", "IT", "ES", "NL", "CH", "LU",
	"IN", "PK", "SG", "HK", "JP", "KR", "CN", "AU", "NZ", "CA",
	"KW", "QA", "BH", "OM", "JO", "EG", "TR", "ZA", "BR", "MX",
}

// ComplianceEvaluatorService evaluates regulatory rules against immutable
// subject snapshots. The Evaluate* methods are pure; EvaluateAndRecord
// persists the outcome as an append-only obligation row so recomputation
// never rewrites an audit trail.
type ComplianceEvaluatorService struct {
	db            *sql.DB
	goldPrice     GoldPriceFunc
	participating map[string]bool
}

// NewComplianceEvaluatorService creates a new compliance evaluator.
// goldPrice supplies the per-gram USD gold price used to derive the nisab
// threshold; nil falls back to a static default. participating lists the
// CRS participating jurisdictions; nil falls back to the built-in set.
func NewComplianceEvaluatorService(db *sql.DB, goldPrice GoldPriceFunc, participating []string) *ComplianceEvaluatorService {
	if goldPrice == nil {
		goldPrice = StaticGoldPrice(defaultGoldPriceUSDPerGram)
	}
	if participating == nil {
		participating = defaultParticipatingJurisdictions
	}

	set := make(map[string]bool, len(participating))
	for _, country := range participating {
		set[country] = true
	}

	return &ComplianceEvaluatorService{db: db, goldPrice: goldPrice, participating: set}
}

// EvaluateFATCA determines US-person status and the FBAR filing obligation.
// The FBAR test needs the maximum aggregate balance across all accounts at
// any point in the period, so it walks the balance series rather than
// current balances.
func (s *ComplianceEvaluatorService) EvaluateFATCA(snapshot *models.SubjectSnapshot) (*models.FATCAResult, error) {
	if snapshot.BirthCountry == "" && len(snapshot.Citizenships) == 0 && !snapshot.USIndicia {
		return nil, fmt.Errorf("%w: no FATCA indicia inputs", ErrIncompleteSnapshot)
	}

	isUSPerson := snapshot.USIndicia || snapshot.BirthCountry == "US"
	for _, c := range snapshot.Citizenships {
		if c == "US" {
			isUSPerson = true
		}
	}

	maxAggregate := maxAggregateBalance(snapshot.Accounts)

	return &models.FATCAResult{
		IsUSPerson:          isUSPerson,
		RequiresFBAR:        isUSPerson && maxAggregate.GreaterThan(fbarThreshold),
		MaxAggregateBalance: maxAggregate,
		Threshold:           fbarThreshold,
	}, nil
}

// EvaluateCRS determines whether the subject is reportable under the
// Common Reporting Standard: a tax residency is reportable when it is a
// participating jurisdiction and differs from the jurisdiction holding
// the accounts.
func (s *ComplianceEvaluatorService) EvaluateCRS(snapshot *models.SubjectSnapshot) (*models.CRSResult, error) {
	if snapshot.HoldingJurisdiction == "" {
		return nil, fmt.Errorf("%w: holding jurisdiction is required", ErrIncompleteSnapshot)
	}

	var total decimal.Decimal
	for _, account := range snapshot.Accounts {
		total = total.Add(account.Balance)
	}

	result := &models.CRSResult{}
	seen := make(map[string]bool)
	for _, residency := range snapshot.TaxResidencies {
		if residency == snapshot.HoldingJurisdiction || seen[residency] || !s.participating[residency] {
			continue
		}
		seen[residency] = true
		result.Reports = append(result.Reports, models.CRSCountryReport{
			Country:      residency,
			TotalBalance: total,
			AccountCount: len(snapshot.Accounts),
		})
	}

	result.Reportable = len(result.Reports) > 0
	return result, nil
}

// EvaluateZakat computes the Zakat obligation: 2.5% of net zakatable
// wealth, due only when the nisab floor is met and the wealth was held a
// full lunar year. The nisab is derived from the current gold price on
// every call. ZakatDue is rounded to currency precision.
func (s *ComplianceEvaluatorService) EvaluateZakat(snapshot *models.SubjectSnapshot) (*models.ZakatResult, error) {
	if len(snapshot.ZakatableAssets) == 0 {
		return nil, fmt.Errorf("%w: no zakatable assets declared", ErrIncompleteSnapshot)
	}

	nisabThreshold := s.goldPrice().Mul(nisabGoldGrams)

	var assets, liabilities decimal.Decimal
	for _, amount := range snapshot.ZakatableAssets {
		assets = assets.Add(amount)
	}
	for _, amount := range snapshot.DeductibleLiabilities {
		liabilities = liabilities.Add(amount)
	}

	net := assets.Sub(liabilities)
	if net.IsNegative() {
		net = decimal.Zero
	}

	nisabMet := net.GreaterThanOrEqual(nisabThreshold)

	due := decimal.Zero
	if nisabMet && snapshot.HeldFullLunarYear {
		due = percentOf(net, zakatRatePercent).RoundBank(2)
	}

	return &models.ZakatResult{
		NetZakatableWealth: net,
		NisabThreshold:     nisabThreshold,
		NisabMet:           nisabMet,
		HeldFullLunarYear:  snapshot.HeldFullLunarYear,
		ZakatDue:           due,
	}, nil
}

// EvaluateAndRecord runs the named rule against the snapshot and persists
// the outcome as a new obligation row.
func (s *ComplianceEvaluatorService) EvaluateAndRecord(ctx context.Context, ruleType models.ComplianceRuleType, snapshot *models.SubjectSnapshot) (*models.ComplianceObligation, error) {
	var (
		result         interface{}
		obligationFlag bool
		amountDue      = decimal.Zero
		err            error
	)

	switch ruleType {
	case models.RuleTypeFATCA:
		var r *models.FATCAResult
		r, err = s.EvaluateFATCA(snapshot)
		if err == nil {
			result = r
			obligationFlag = r.RequiresFBAR
		}
	case models.RuleTypeCRS:
		var r *models.CRSResult
		r, err = s.EvaluateCRS(snapshot)
		if err == nil {
			result = r
			obligationFlag = r.Reportable
		}
	case models.RuleTypeZakat:
		var r *models.ZakatResult
		r, err = s.EvaluateZakat(snapshot)
		if err == nil {
			result = r
			obligationFlag = r.NisabMet
			amountDue = r.ZakatDue
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuleType, ruleType)
	}
	if err != nil {
		return nil, err
	}

	obligation := &models.ComplianceObligation{
		ID:             uuid.New(),
		TenantID:       snapshot.TenantID,
		SubjectID:      snapshot.SubjectID,
		RuleType:       ruleType,
		ObligationFlag: obligationFlag,
		AmountDue:      amountDue,
		ComputedAt:     time.Now(),
	}

	inputsJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := json.Unmarshal(inputsJSON, &obligation.Inputs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resultJSON, &obligation.Result); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO compliance_obligations (
			id, tenant_id, subject_id, rule_type, inputs, result,
			obligation_flag, amount_due, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		obligation.ID, obligation.TenantID, obligation.SubjectID, obligation.RuleType,
		inputsJSON, resultJSON, obligation.ObligationFlag, obligation.AmountDue,
		obligation.ComputedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record obligation: %w", err)
	}

	logger.L.Info("compliance obligation recorded",
		"rule_type", ruleType, "subject_id", snapshot.SubjectID,
		"obligation_flag", obligationFlag, "amount_due", amountDue.String())

	return obligation, nil
}

// maxAggregateBalance walks every account's balance series and returns the
// largest sum observed at any point, carrying each account's last known
// balance forward between observations.
func maxAggregateBalance(accounts []models.AccountSnapshot) decimal.Decimal {
	dateSet := make(map[time.Time]bool)
	for _, account := range accounts {
		for _, point := range account.Balances {
			dateSet[point.Date] = true
		}
	}

	if len(dateSet) == 0 {
		// No series: fall back to current balances.
		var total decimal.Decimal
		for _, account := range accounts {
			total = total.Add(account.Balance)
		}
		return total
	}

	dates := make([]time.Time, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var max decimal.Decimal
	for _, date := range dates {
		var aggregate decimal.Decimal
		for _, account := range accounts {
			aggregate = aggregate.Add(balanceAsOf(account, date))
		}
		if aggregate.GreaterThan(max) {
			max = aggregate
		}
	}
	return max
}

// balanceAsOf returns the account's last observed balance at or before the
// given date, or zero if the series starts later.
func balanceAsOf(account models.AccountSnapshot, date time.Time) decimal.Decimal {
	var balance decimal.Decimal
	for _, point := range account.Balances {
		if !point.Date.After(date) {
			balance = point.Balance
		}
	}
	return balance
}
