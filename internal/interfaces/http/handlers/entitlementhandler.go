package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traino/internal/application/allocation/usecases"
	entitlementUC "traino/internal/application/entitlement/usecases"
	"traino/internal/shared/logger"
	"traino/internal/shared/utils"
)

// EntitlementHandler handles HTTP requests for trainer capacity reads.
type EntitlementHandler struct {
	resolveEntitlementUC *entitlementUC.ResolveEntitlementUseCase
	listEventsUC         *usecases.ListAllocationEventsUseCase
	logger               logger.Interface
}

// NewEntitlementHandler creates a new entitlement handler
func NewEntitlementHandler(
	resolveEntitlementUC *entitlementUC.ResolveEntitlementUseCase,
	listEventsUC *usecases.ListAllocationEventsUseCase,
	logger logger.Interface,
) *EntitlementHandler {
	return &EntitlementHandler{
		resolveEntitlementUC: resolveEntitlementUC,
		listEventsUC:         listEventsUC,
		logger:               logger,
	}
}

// GetEntitlement handles GET /trainers/:trainer_id/entitlement
// Returns the capacity snapshot powering trainer dashboards.
func (h *EntitlementHandler) GetEntitlement(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.resolveEntitlementUC.Execute(c.Request.Context(), entitlementUC.ResolveEntitlementQuery{
		TrainerID: trainerID,
	})
	if err != nil {
		h.logger.Errorw("failed to resolve entitlement", "error", err, "trainer_id", trainerID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"trainer_id":       result.TrainerID,
		"capacity":         result.Capacity,
		"consumed":         result.Consumed,
		"available":        result.Available,
		"plan_slots":       result.PlanSlots,
		"tokens_available": result.TokensAvailable,
		"tokens_consumed":  result.TokensConsumed,
		"plan_id":          result.PlanSID,
		"is_expired":       result.IsExpired,
	})
}

// ListEvents handles GET /trainers/:trainer_id/events
// Returns the trainer's allocation audit trail, newest first.
// Query parameters:
//   - limit: maximum number of events to return
func (h *EntitlementHandler) ListEvents(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	limit, err := utils.ParseLimitQuery(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	query := usecases.ListAllocationEventsQuery{TrainerID: trainerID, Limit: limit}

	events, err := h.listEventsUC.Execute(c.Request.Context(), query)
	if err != nil {
		h.logger.Errorw("failed to list allocation events", "error", err, "trainer_id", trainerID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"events": toEventResponses(events),
	})
}
