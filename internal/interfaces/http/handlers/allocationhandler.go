package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traino/internal/application/allocation/usecases"
	"traino/internal/shared/id"
	"traino/internal/shared/logger"
	"traino/internal/shared/utils"
)

// AllocationHandler handles HTTP requests for consumer slot allocation.
type AllocationHandler struct {
	allocateSlotUC *usecases.AllocateSlotUseCase
	releaseSlotUC  *usecases.ReleaseSlotUseCase
	logger         logger.Interface
}

func NewAllocationHandler(
	allocateSlotUC *usecases.AllocateSlotUseCase,
	releaseSlotUC *usecases.ReleaseSlotUseCase,
	logger logger.Interface,
) *AllocationHandler {
	return &AllocationHandler{
		allocateSlotUC: allocateSlotUC,
		releaseSlotUC:  releaseSlotUC,
		logger:         logger,
	}
}

// AllocateRequest identifies the consumer to bind. Exactly one of the two
// fields is expected; the prefixed ID wins when both are present.
type AllocateRequest struct {
	ConsumerID  uint   `json:"consumer_id"`
	ConsumerSID string `json:"consumer_sid"`
}

// Allocate handles POST /trainers/:trainer_id/allocations
// Binds a consumer to plan or token capacity. Safe to retry: a consumer that
// already holds a binding gets it back unchanged.
func (h *AllocationHandler) Allocate(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for allocate", "error", err, "trainer_id", trainerID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.AllocateSlotCommand{
		TrainerID:   trainerID,
		ConsumerID:  req.ConsumerID,
		ConsumerSID: req.ConsumerSID,
	}

	result, err := h.allocateSlotUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	payload := gin.H{
		"bound":         result.Bound,
		"already_bound": result.AlreadyBound,
		"source":        string(result.Source),
		"resource_id":   result.ResourceID,
		"valid_until":   result.ValidUntil,
	}

	if result.AlreadyBound {
		utils.SuccessResponse(c, http.StatusOK, "Consumer already holds a slot", payload)
		return
	}

	utils.CreatedResponse(c, payload, "Slot allocated successfully")
}

// ReleaseConsumer handles DELETE /trainers/:trainer_id/consumers/:id
// Deletes a consumer; a token backing it goes back to the available pool
// unless it has already expired.
func (h *AllocationHandler) ReleaseConsumer(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	consumerSID, err := utils.ParseSIDParam(c, "id", id.PrefixConsumer, "consumer")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.ReleaseSlotCommand{
		TrainerID:   trainerID,
		ConsumerSID: consumerSID,
	}

	result, err := h.releaseSlotUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Consumer released successfully", gin.H{
		"released":       result.Released,
		"token_returned": result.TokenReturned,
	})
}
