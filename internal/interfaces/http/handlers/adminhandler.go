package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminUC "traino/internal/application/admin/usecases"
	tokenUC "traino/internal/application/token/usecases"
	"traino/internal/shared/constants"
	"traino/internal/shared/errors"
	"traino/internal/shared/id"
	"traino/internal/shared/logger"
	"traino/internal/shared/utils"
)

// AdminHandler handles administrative capacity overrides: plan assignment,
// plan revocation, and token grants.
type AdminHandler struct {
	assignPlanUC   *adminUC.AssignPlanUseCase
	revokePlanUC   *adminUC.RevokePlanUseCase
	createTokensUC *tokenUC.CreateTokensUseCase
	releaseTokenUC *tokenUC.ReleaseTokenUseCase
	logger         logger.Interface
}

func NewAdminHandler(
	assignPlanUC *adminUC.AssignPlanUseCase,
	revokePlanUC *adminUC.RevokePlanUseCase,
	createTokensUC *tokenUC.CreateTokensUseCase,
	releaseTokenUC *tokenUC.ReleaseTokenUseCase,
	logger logger.Interface,
) *AdminHandler {
	return &AdminHandler{
		assignPlanUC:   assignPlanUC,
		revokePlanUC:   revokePlanUC,
		createTokensUC: createTokensUC,
		releaseTokenUC: releaseTokenUC,
		logger:         logger,
	}
}

type AssignPlanRequest struct {
	PlanID               string `json:"plan_id" binding:"required"`
	DurationOverrideDays int    `json:"duration_override_days" binding:"omitempty,min=1"`
	Reason               string `json:"reason"`
}

type AddTokensRequest struct {
	QuantityEach   uint   `json:"quantity_each" binding:"required,min=1"`
	Count          int    `json:"count" binding:"required,min=1,max=100"`
	ExpirationDays int    `json:"expiration_days" binding:"required,expirationdays"`
	Reason         string `json:"reason"`
}

// AssignPlan handles POST /admin/trainers/:trainer_id/plan
// Creates a plan assignment for the trainer, superseding any prior active one.
func (h *AdminHandler) AssignPlan(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	adminID, err := adminIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for assign plan", "error", err, "trainer_id", trainerID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := adminUC.AssignPlanCommand{
		TrainerID:            trainerID,
		PlanSID:              req.PlanID,
		AdminID:              adminID,
		DurationOverrideDays: req.DurationOverrideDays,
		Reason:               req.Reason,
	}

	result, err := h.assignPlanUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"assignment": toAssignmentResponse(result.Assignment),
		"superseded": result.Superseded,
	}, "Plan assigned successfully")
}

// RevokePlan handles DELETE /admin/trainers/:trainer_id/plan
// Deactivates the trainer's active assignment and cascades: every consumer
// bound via that plan goes inactive with its plan binding cleared.
func (h *AdminHandler) RevokePlan(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	adminID, err := adminIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := adminUC.RevokePlanCommand{
		TrainerID: trainerID,
		AdminID:   adminID,
	}

	result, err := h.revokePlanUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Plan revoked successfully", gin.H{
		"assignment_id":         result.AssignmentID,
		"consumers_deactivated": result.ConsumersDeactivated,
	})
}

// AddTokens handles POST /admin/trainers/:trainer_id/tokens
// Grants a batch of standalone capacity tokens to the trainer.
func (h *AdminHandler) AddTokens(c *gin.Context) {
	trainerID, err := parseTrainerID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	adminID, err := adminIDFromContext(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AddTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for add tokens", "error", err, "trainer_id", trainerID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := tokenUC.CreateTokensCommand{
		TrainerID:      trainerID,
		QuantityEach:   req.QuantityEach,
		Count:          req.Count,
		ExpirationDays: req.ExpirationDays,
		AdminID:        adminID,
		Reason:         req.Reason,
	}

	result, err := h.createTokensUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"tokens": toTokenResponses(result.Tokens),
	}, "Tokens created successfully")
}

// ReleaseToken handles POST /admin/tokens/:id/release
// Clears a token's binding so it returns to the available pool. Fails with a
// conflict if the token has already expired.
func (h *AdminHandler) ReleaseToken(c *gin.Context) {
	tokenSID, err := utils.ParseSIDParam(c, "id", id.PrefixToken, "token")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	token, err := h.releaseTokenUC.Execute(c.Request.Context(), tokenUC.ReleaseTokenCommand{
		TokenSID: tokenSID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Token released successfully", toTokenResponse(token))
}

func adminIDFromContext(c *gin.Context) (uint, error) {
	adminID, exists := c.Get(constants.ContextKeyAdminID)
	if !exists {
		return 0, errors.NewUnauthorizedError("admin identity is required")
	}

	aid, ok := adminID.(uint)
	if !ok || aid == 0 {
		return 0, errors.NewUnauthorizedError("invalid admin identity")
	}

	return aid, nil
}
