package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComplianceRuleType identifies which rule set an obligation was computed
// under.
type ComplianceRuleType string

const (
	RuleTypeFATCA ComplianceRuleType = "FATCA"
	RuleTypeCRS   ComplianceRuleType = "CRS"
	RuleTypeZakat ComplianceRuleType = "ZAKAT"
)

// BalancePoint is one observation in an account's balance time series.
// FATCA's FBAR test needs the maximum aggregate balance at any point in the
// year, so evaluators receive series rather than point snapshots.
type BalancePoint struct {
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// AccountSnapshot describes one financial account held by the subject.
type AccountSnapshot struct {
	AccountID    string          `json:"account_id"`
	Jurisdiction string          `json:"jurisdiction"` // ISO country where the account is held
	Balances     []BalancePoint  `json:"balances"`
	Balance      decimal.Decimal `json:"balance"` // Current balance
}

// SubjectSnapshot is the point-in-time view of an account holder that a
// compliance evaluation is derived from. Evaluations never mutate it.
type SubjectSnapshot struct {
	SubjectID uuid.UUID `json:"subject_id"`
	TenantID  uuid.UUID `json:"tenant_id"`

	// FATCA inputs
	Citizenships []string `json:"citizenships"` // ISO country codes
	BirthCountry string   `json:"birth_country"`
	USIndicia    bool     `json:"us_indicia"` // US address, phone, standing transfer...

	// CRS inputs
	TaxResidencies      []string `json:"tax_residencies"`
	HoldingJurisdiction string   `json:"holding_jurisdiction"` // Where the reporting institution sits

	Accounts []AccountSnapshot `json:"accounts"`

	// Zakat inputs, by asset/liability category
	ZakatableAssets       map[string]decimal.Decimal `json:"zakatable_assets"`
	DeductibleLiabilities map[string]decimal.Decimal `json:"deductible_liabilities"`
	HeldFullLunarYear     bool                       `json:"held_full_lunar_year"`

	AsOf time.Time `json:"as_of"`
}

// FATCAResult is the outcome of a FATCA evaluation.
type FATCAResult struct {
	IsUSPerson          bool            `json:"is_us_person"`
	RequiresFBAR        bool            `json:"requires_fbar"`
	MaxAggregateBalance decimal.Decimal `json:"max_aggregate_balance"`
	Threshold           decimal.Decimal `json:"threshold"`
}

// CRSCountryReport is the aggregate reportable balance for one residency
// country.
type CRSCountryReport struct {
	Country      string          `json:"country"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	AccountCount int             `json:"account_count"`
}

// CRSResult is the outcome of a CRS evaluation.
type CRSResult struct {
	Reportable bool               `json:"reportable"`
	Reports    []CRSCountryReport `json:"reports"`
}

// ZakatResult is the outcome of a Zakat evaluation.
type ZakatResult struct {
	NetZakatableWealth decimal.Decimal `json:"net_zakatable_wealth"`
	NisabThreshold     decimal.Decimal `json:"nisab_threshold"`
	NisabMet           bool            `json:"nisab_met"`
	HeldFullLunarYear  bool            `json:"held_full_lunar_year"`
	ZakatDue           decimal.Decimal `json:"zakat_due"`
}

// ComplianceObligation is the persisted, immutable result of one
// evaluation, tied to the snapshot it was derived from. Recomputation
// appends a new row; nothing is updated in place.
type ComplianceObligation struct {
	ID        uuid.UUID          `json:"id" db:"id"`
	TenantID  uuid.UUID          `json:"tenant_id" db:"tenant_id"`
	SubjectID uuid.UUID          `json:"subject_id" db:"subject_id"`
	RuleType  ComplianceRuleType `json:"rule_type" db:"rule_type"`

	// Inputs snapshot and structured result, stored for audit
	Inputs map[string]interface{} `json:"inputs" db:"inputs"`
	Result map[string]interface{} `json:"result" db:"result"`

	// Denormalized headline numbers for querying
	ObligationFlag bool            `json:"obligation_flag" db:"obligation_flag"` // FBAR required / CRS reportable / nisab met
	AmountDue      decimal.Decimal `json:"amount_due" db:"amount_due"`           // Zakat due; zero for boolean rules

	ComputedAt time.Time `json:"computed_at" db:"computed_at"`
}
