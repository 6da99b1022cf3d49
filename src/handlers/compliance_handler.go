package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/logger"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/models"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/services"
	"github.com/JSR2406/GCC-WEALTH-INVESTMENT-PLATFORM/src/utils"
)

// ComplianceHandler handles compliance evaluation requests.
type ComplianceHandler struct {
	evaluator *services.ComplianceEvaluatorService
}

// NewComplianceHandler creates a new instance of ComplianceHandler.
func NewComplianceHandler(evaluator *services.ComplianceEvaluatorService) *ComplianceHandler {
	return &ComplianceHandler{evaluator: evaluator}
}

type evaluateRequest struct {
	RuleType models.ComplianceRuleType `json:"rule_type"`
	Snapshot models.SubjectSnapshot    `json:"snapshot"`
}

// HandleEvaluate runs one compliance rule against a subject snapshot and
// records the resulting obligation.
func (h *ComplianceHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromRequest(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Snapshot.TenantID = tenantID

	logger.L.Info("Handling compliance evaluation",
		"tenant_id", tenantID, "rule_type", req.RuleType, "subject_id", req.Snapshot.SubjectID)

	obligation, err := h.evaluator.EvaluateAndRecord(r.Context(), req.RuleType, &req.Snapshot)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownRuleType):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrIncompleteSnapshot):
			utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			utils.SendJSONError(w, fmt.Sprintf("Error evaluating compliance rule: %v", err), http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, obligation, http.StatusOK)
}
