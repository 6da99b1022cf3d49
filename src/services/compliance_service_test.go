package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestEvaluateZakat(t *testing.T) {
	service := NewComplianceEvaluatorService(nil, nil, nil)

	tests := []struct {
		name        string
		assets      map[string]decimal.Decimal
		liabilities map[string]decimal.Decimal
		heldYear    bool
		expectedNet decimal.Decimal
		nisabMet    bool
		expectedDue decimal.Decimal
	}{
		{
			name: "Nisab met, full lunar year",
			assets: map[string]decimal.Decimal{
				"cash":        dec("67000"),
				"investments": dec("200000"),
			},
			liabilities: map[string]decimal.Decimal{
				"short_term_debt": dec("17000"),
			},
			heldYear:    true,
			expectedNet: dec("250000"),
			nisabMet:    true,
			expectedDue: dec("6250.00"), // 2.5% of 250000
		},
		{
			name: "Below nisab",
			assets: map[string]decimal.Decimal{
				"cash": dec("5000"),
			},
			heldYear:    true,
			expectedNet: dec("5000"),
			nisabMet:    false,
			expectedDue: decimal.Zero,
		},
		{
			name: "Nisab met but not held a full lunar year",
			assets: map[string]decimal.Decimal{
				"cash": dec("100000"),
			},
			heldYear:    false,
			expectedNet: dec("100000"),
			nisabMet:    true,
			expectedDue: decimal.Zero,
		},
		{
			name: "Liabilities exceed assets",
			assets: map[string]decimal.Decimal{
				"cash": dec("10000"),
			},
			liabilities: map[string]decimal.Decimal{
				"debt": dec("25000"),
			},
			heldYear:    true,
			expectedNet: decimal.Zero,
			nisabMet:    false,
			expectedDue: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &models.SubjectSnapshot{
				ZakatableAssets:       tt.assets,
				DeductibleLiabilities: tt.liabilities,
				HeldFullLunarYear:     tt.heldYear,
			}

			result, err := service.EvaluateZakat(snapshot)
			if err != nil {
				t.Fatalf("EvaluateZakat() error = %v", err)
			}
			if !result.NetZakatableWealth.Equal(tt.expectedNet) {
				t.Errorf("NetZakatableWealth = %v, want %v", result.NetZakatableWealth, tt.expectedNet)
			}
			if result.NisabMet != tt.nisabMet {
				t.Errorf("NisabMet = %v, want %v", result.NisabMet, tt.nisabMet)
			}
			if !result.ZakatDue.Equal(tt.expectedDue) {
				t.Errorf("ZakatDue = %v, want %v", result.ZakatDue, tt.expectedDue)
			}
		})
	}
}

func TestEvaluateZakatRequiresAssets(t *testing.T) {
	service := NewComplianceEvaluatorService(nil, nil, nil)

	_, err := service.EvaluateZakat(&models.SubjectSnapshot{})
	if !errors.Is(err, ErrIncompleteSnapshot) {
		t.Errorf("Expected ErrIncompleteSnapshot, got %v", err)
	}
}

func TestEvaluateFATCA(t *testing.T) {
	service := NewComplianceEvaluatorService(nil, nil, nil)

	tests := []struct {
		name         string
		snapshot     *models.SubjectSnapshot
		isUSPerson   bool
		requiresFBAR bool
		maxAggregate decimal.Decimal
	}{
		{
			name: "US citizen over threshold at a single point",
			snapshot: &models.SubjectSnapshot{
				Citizenships: []string{"US", "AE"},
				Accounts: []models.AccountSnapshot{
					{
						AccountID: "acc-1",
						Balances: []models.BalancePoint{
							{Date: day(1), Balance: dec("4000")},
							{Date: day(15), Balance: dec("6000")},
							{Date: day(30), Balance: dec("3000")},
						},
					},
					{
						AccountID: "acc-2",
						Balances: []models.BalancePoint{
							{Date: day(1), Balance: dec("3000")},
							{Date: day(15), Balance: dec("5000")},
							{Date: day(30), Balance: dec("2000")},
						},
					},
				},
			},
			isUSPerson:   true,
			requiresFBAR: true, // 6000 + 5000 on day 15
			maxAggregate: dec("11000"),
		},
		{
			name: "US person never over threshold",
			snapshot: &models.SubjectSnapshot{
				BirthCountry: "US",
				Accounts: []models.AccountSnapshot{
					{
						AccountID: "acc-1",
						Balances: []models.BalancePoint{
							{Date: day(1), Balance: dec("4000")},
							{Date: day(30), Balance: dec("5000")},
						},
					},
				},
			},
			isUSPerson:   true,
			requiresFBAR: false,
			maxAggregate: dec("5000"),
		},
		{
			name: "Non-US person over threshold",
			snapshot: &models.SubjectSnapshot{
				Citizenships: []string{"AE"},
				Accounts: []models.AccountSnapshot{
					{
						AccountID: "acc-1",
						Balances: []models.BalancePoint{
							{Date: day(1), Balance: dec("50000")},
						},
					},
				},
			},
			isUSPerson:   false,
			requiresFBAR: false,
			maxAggregate: dec("50000"),
		},
		{
			name: "US indicia alone flags US person",
			snapshot: &models.SubjectSnapshot{
				Citizenships: []string{"SA"},
				USIndicia:    true,
			},
			isUSPerson:   true,
			requiresFBAR: false,
			maxAggregate: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.EvaluateFATCA(tt.snapshot)
			if err != nil {
				t.Fatalf("EvaluateFATCA() error = %v", err)
			}
			if result.IsUSPerson != tt.isUSPerson {
				t.Errorf("IsUSPerson = %v, want %v", result.IsUSPerson, tt.isUSPerson)
			}
			if result.RequiresFBAR != tt.requiresFBAR {
				t.Errorf("RequiresFBAR = %v, want %v", result.RequiresFBAR, tt.requiresFBAR)
			}
			if !result.MaxAggregateBalance.Equal(tt.maxAggregate) {
				t.Errorf("MaxAggregateBalance = %v, want %v", result.MaxAggregateBalance, tt.maxAggregate)
			}
		})
	}
}

func TestEvaluateCRS(t *testing.T) {
	service := NewComplianceEvaluatorService(nil, nil, nil)

	accounts := []models.AccountSnapshot{
		{AccountID: "acc-1", Balance: dec("100000")},
		{AccountID: "acc-2", Balance: dec("50000")},
	}

	t.Run("Foreign tax residency is reportable", func(t *testing.T) {
		result, err := service.EvaluateCRS(&models.SubjectSnapshot{
			TaxResidencies:      []string{"DE", "AE"},
			HoldingJurisdiction: "AE",
			Accounts:            accounts,
		})
		if err != nil {
			t.Fatalf("EvaluateCRS() error = %v", err)
		}
		if !result.Reportable {
			t.Error("Expected subject to be reportable")
		}
		if len(result.Reports) != 1 {
			t.Fatalf("Expected 1 report, got %d", len(result.Reports))
		}
		report := result.Reports[0]
		if report.Country != "DE" {
			t.Errorf("Report country = %s, want DE", report.Country)
		}
		if !report.TotalBalance.Equal(dec("150000")) {
			t.Errorf("TotalBalance = %v, want 150000", report.TotalBalance)
		}
		if report.AccountCount != 2 {
			t.Errorf("AccountCount = %d, want 2", report.AccountCount)
		}
	})

	t.Run("Resident only where accounts are held", func(t *testing.T) {
		result, err := service.EvaluateCRS(&models.SubjectSnapshot{
			TaxResidencies:      []string{"AE"},
			HoldingJurisdiction: "AE",
			Accounts:            accounts,
		})
		if err != nil {
			t.Fatalf("EvaluateCRS() error = %v", err)
		}
		if result.Reportable {
			t.Error("Expected subject not to be reportable")
		}
	})

	t.Run("Missing holding jurisdiction", func(t *testing.T) {
		_, err := service.EvaluateCRS(&models.SubjectSnapshot{
			TaxResidencies: []string{"DE"},
		})
		if !errors.Is(err, ErrIncompleteSnapshot) {
			t.Errorf("Expected ErrIncompleteSnapshot, got %v", err)
		}
	})

	t.Run("Non-participating residency is not reportable", func(t *testing.T) {
		result, err := service.EvaluateCRS(&models.SubjectSnapshot{
			TaxResidencies:      []string{"XX"},
			HoldingJurisdiction: "AE",
			Accounts:            accounts,
		})
		if err != nil {
			t.Fatalf("EvaluateCRS() error = %v", err)
		}
		if result.Reportable {
			t.Error("Expected non-participating residency not to be reportable")
		}
		if len(result.Reports) != 0 {
			t.Errorf("Expected 0 reports, got %d", len(result.Reports))
		}
	})
}

func TestEvaluateCRSConfiguredJurisdictions(t *testing.T) {
	service := NewComplianceEvaluatorService(nil, nil, []string{"DE", "FR"})

	result, err := service.EvaluateCRS(&models.SubjectSnapshot{
		TaxResidencies:      []string{"DE", "GB"},
		HoldingJurisdiction: "AE",
		Accounts:            []models.AccountSnapshot{{AccountID: "acc-1", Balance: dec("1000")}},
	})
	if err != nil {
		t.Fatalf("EvaluateCRS() error = %v", err)
	}
	if len(result.Reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(result.Reports))
	}
	if result.Reports[0].Country != "DE" {
		t.Errorf("Report country = %s, want DE", result.Reports[0].Country)
	}
}

func TestEvaluateZakatNisabTracksGoldPrice(t *testing.T) {
	price := dec("60")
	service := NewComplianceEvaluatorService(nil, func() decimal.Decimal { return price }, nil)

	snapshot := &models.SubjectSnapshot{
		ZakatableAssets:   map[string]decimal.Decimal{"cash": dec("5200")},
		HeldFullLunarYear: true,
	}

	// 60 x 85 = 5100: 5200 clears the floor.
	result, err := service.EvaluateZakat(snapshot)
	if err != nil {
		t.Fatalf("EvaluateZakat() error = %v", err)
	}
	if !result.NisabThreshold.Equal(dec("5100")) {
		t.Errorf("NisabThreshold = %v, want 5100", result.NisabThreshold)
	}
	if !result.NisabMet {
		t.Error("Expected nisab to be met at 5200 against a 5100 threshold")
	}
	if !result.ZakatDue.Equal(dec("130.00")) {
		t.Errorf("ZakatDue = %v, want 130.00", result.ZakatDue)
	}

	// The gold price moves between evaluations; the threshold must follow.
	price = dec("70")
	result, err = service.EvaluateZakat(snapshot)
	if err != nil {
		t.Fatalf("EvaluateZakat() error = %v", err)
	}
	if !result.NisabThreshold.Equal(dec("5950")) {
		t.Errorf("NisabThreshold = %v, want 5950", result.NisabThreshold)
	}
	if result.NisabMet {
		t.Error("Expected nisab not to be met at 5200 against a 5950 threshold")
	}
	if !result.ZakatDue.Equal(decimal.Zero) {
		t.Errorf("ZakatDue = %v, want 0", result.ZakatDue)
	}
}
