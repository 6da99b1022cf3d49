package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/services"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/utils"
)

// RevenueHandler handles revenue aggregation requests.
type RevenueHandler struct {
	ledger *services.RevenueLedgerService
}

// NewRevenueHandler creates a new instance of RevenueHandler.
func NewRevenueHandler(ledger *services.RevenueLedgerService) *RevenueHandler {
	return &RevenueHandler{ledger: ledger}
}

type aggregateRequest struct {
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	TotalAUM decimal.Decimal `json:"total_aum"`
}

// HandleAggregatePeriod closes a billing period for the tenant and returns
// the emitted invoice.
func (h *RevenueHandler) HandleAggregatePeriod(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	logger.L.Info("Handling revenue aggregation",
		"tenant_id", tenantID, "month", req.Month, "year", req.Year)

	invoice, err := h.ledger.AggregatePeriod(r.Context(), tenantID, req.Month, req.Year, req.TotalAUM)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPeriod):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrUnknownTenant):
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, services.ErrTenantInactive):
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
		default:
			utils.SendJSONError(w, fmt.Sprintf("Error aggregating revenue: %v", err), http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, invoice, http.StatusOK)
}
