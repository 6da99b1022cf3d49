package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/config"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/services"
)

// Closes one billing period for a tenant: rolls captured charges and the
// recurring revenue component into a revenue record and emits the invoice.
// Intended to run from cron shortly after month end.
func main() {
	var (
		tenantFlag = flag.String("tenant", "", "tenant id (uuid)")
		monthFlag  = flag.Int("month", 0, "billing month (1-12), defaults to previous month")
		yearFlag   = flag.Int("year", 0, "billing year, defaults to previous month's year")
		aumFlag    = flag.String("aum", "0", "tenant AUM snapshot for the period")
	)
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	tenantID, err := uuid.Parse(*tenantFlag)
	if err != nil {
		logger.L.Error("A valid -tenant uuid is required", "error", err)
		os.Exit(1)
	}

	totalAUM, err := decimal.NewFromString(*aumFlag)
	if err != nil {
		logger.L.Error("Invalid -aum value", "error", err)
		os.Exit(1)
	}

	month, year := *monthFlag, *yearFlag
	if month == 0 || year == 0 {
		prev := time.Now().AddDate(0, -1, 0)
		month, year = int(prev.Month()), prev.Year()
	}

	db, err := sql.Open("postgres", config.Cfg.DatabaseURL)
	if err != nil {
		logger.L.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	catalog := services.NewRateCatalogService(services.NewPostgresCatalogStore(db), config.Cfg.CatalogCacheTTL)
	ledger := services.NewRevenueLedgerService(services.NewPostgresRevenueStore(db), catalog, config.Cfg.InvoiceDueDays)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	invoice, err := ledger.AggregatePeriod(ctx, tenantID, month, year, totalAUM)
	if err != nil {
		logger.L.Error("Revenue rollup failed",
			"tenant_id", tenantID, "month", month, "year", year, "error", err)
		os.Exit(1)
	}

	logger.L.Info("Revenue rollup complete",
		"tenant_id", tenantID,
		"invoice_number", invoice.InvoiceNumber,
		"total_amount", invoice.TotalAmount.String(),
		"due_date", invoice.DueDate.Format("2006-01-02"))
}
