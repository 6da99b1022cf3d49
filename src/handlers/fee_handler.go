package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/services"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/utils"
)

// FeeHandler holds the services needed to handle fee calculation and
// charging requests.
type FeeHandler struct {
	catalog      *services.RateCatalogService
	calculator   *services.FeeCalculatorService
	orchestrator *services.ChargeOrchestratorService
}

// NewFeeHandler creates a new instance of FeeHandler.
func NewFeeHandler(catalog *services.RateCatalogService, calculator *services.FeeCalculatorService, orchestrator *services.ChargeOrchestratorService) *FeeHandler {
	return &FeeHandler{
		catalog:      catalog,
		calculator:   calculator,
		orchestrator: orchestrator,
	}
}

// tenantIDFromRequest reads the tenant scope from the X-Tenant-ID header.
func tenantIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Tenant-ID")
	if raw == "" {
		return uuid.Nil, errors.New("X-Tenant-ID header is required")
	}
	return uuid.Parse(raw)
}

type calculateFeeRequest struct {
	FeeCode    string          `json:"fee_code"`
	Quantity   int64           `json:"quantity"`
	BaseAmount decimal.Decimal `json:"base_amount"`
}

// HandleCalculateFee prices a fee for a tenant without charging it.
func (h *FeeHandler) HandleCalculateFee(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req calculateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	fee, err := h.catalog.GetFeeDefinition(r.Context(), tenantID, req.FeeCode)
	if err != nil {
		utils.SendJSONError(w, err.Error(), catalogErrorStatus(err))
		return
	}

	calc, err := h.calculator.Calculate(fee, req.Quantity, req.BaseAmount)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	utils.SendJSON(w, calc, http.StatusOK)
}

type chargeFeeRequest struct {
	IdempotencyKey   string          `json:"idempotency_key"`
	FeeCode          string          `json:"fee_code"`
	Quantity         int64           `json:"quantity"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	PaymentMethodRef string          `json:"payment_method_ref"`
	AcceptOptional   bool            `json:"accept_optional"`
	ReferenceType    *string         `json:"reference_type,omitempty"`
	ReferenceID      *uuid.UUID      `json:"reference_id,omitempty"`
}

// HandleChargeFee executes an idempotent charge for a tenant.
func (h *FeeHandler) HandleChargeFee(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req chargeFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.IdempotencyKey == "" {
		utils.SendJSONError(w, "idempotency_key is required", http.StatusBadRequest)
		return
	}

	logger.L.Info("Handling charge request",
		"tenant_id", tenantID, "fee_code", req.FeeCode, "idempotency_key", req.IdempotencyKey)

	charge, err := h.orchestrator.Charge(r.Context(), services.ChargeRequest{
		IdempotencyKey:   req.IdempotencyKey,
		TenantID:         tenantID,
		FeeCode:          req.FeeCode,
		Quantity:         req.Quantity,
		BaseAmount:       req.BaseAmount,
		PaymentMethodRef: req.PaymentMethodRef,
		AcceptOptional:   req.AcceptOptional,
		ReferenceType:    req.ReferenceType,
		ReferenceID:      req.ReferenceID,
	})
	if err != nil {
		status := chargeErrorStatus(err)
		// A declined or unavailable outcome still has a charge record worth
		// returning alongside the error.
		if charge != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":  err.Error(),
				"charge": charge,
			})
			return
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}

	utils.SendJSON(w, charge, http.StatusOK)
}

// HandleGetCharge retrieves one charge by idempotency key.
func (h *FeeHandler) HandleGetCharge(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	charge, err := h.orchestrator.GetCharge(r.Context(), chi.URLParam(r, "chargeID"))
	if err != nil {
		if errors.Is(err, services.ErrChargeNotFound) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving charge: %v", err), http.StatusInternalServerError)
		return
	}
	if charge.TenantID != tenantID {
		utils.SendJSONError(w, "charge not found", http.StatusNotFound)
		return
	}

	utils.SendJSON(w, charge, http.StatusOK)
}

// HandleListCharges returns the tenant's recent charge history.
func (h *FeeHandler) HandleListCharges(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	charges, err := h.orchestrator.ListCharges(r.Context(), tenantID, limit)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error listing charges: %v", err), http.StatusInternalServerError)
		return
	}
	if charges == nil {
		charges = []*models.Charge{}
	}

	utils.SendJSON(w, charges, http.StatusOK)
}

func catalogErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownTenant), errors.Is(err, services.ErrUnknownFeeCode):
		return http.StatusNotFound
	case errors.Is(err, services.ErrFeeInactive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func chargeErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownTenant), errors.Is(err, services.ErrUnknownFeeCode):
		return http.StatusNotFound
	case errors.Is(err, services.ErrFeeInactive), errors.Is(err, services.ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrOptionalFeeDeclined):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrNegativeBaseAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrPaymentUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
