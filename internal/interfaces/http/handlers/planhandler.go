package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traino/internal/application/catalog/usecases"
	"traino/internal/domain/catalog"
	"traino/internal/shared/errors"
	"traino/internal/shared/id"
	"traino/internal/shared/logger"
	"traino/internal/shared/utils"
)

type PlanHandler struct {
	createPlanUC     *usecases.CreatePlanUseCase
	updatePlanUC     *usecases.UpdatePlanUseCase
	getPlanUC        *usecases.GetPlanUseCase
	listPlansUC      *usecases.ListPlansUseCase
	deactivatePlanUC *usecases.DeactivatePlanUseCase
	logger           logger.Interface
}

func NewPlanHandler(
	createPlanUC *usecases.CreatePlanUseCase,
	updatePlanUC *usecases.UpdatePlanUseCase,
	getPlanUC *usecases.GetPlanUseCase,
	listPlansUC *usecases.ListPlansUseCase,
	deactivatePlanUC *usecases.DeactivatePlanUseCase,
	logger logger.Interface,
) *PlanHandler {
	return &PlanHandler{
		createPlanUC:     createPlanUC,
		updatePlanUC:     updatePlanUC,
		getPlanUC:        getPlanUC,
		listPlansUC:      listPlansUC,
		deactivatePlanUC: deactivatePlanUC,
		logger:           logger,
	}
}

type CreatePlanRequest struct {
	Name         string `json:"name" binding:"required"`
	Slug         string `json:"slug" binding:"required"`
	Description  string `json:"description"`
	SlotLimit    uint   `json:"slot_limit" binding:"required,min=1"`
	PriceCents   uint64 `json:"price_cents"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"duration_days" binding:"required,min=1"`
}

type UpdatePlanRequest struct {
	Description *string `json:"description"`
	SlotLimit   *uint   `json:"slot_limit" binding:"omitempty,min=1"`
	PriceCents  *uint64 `json:"price_cents"`
	Currency    *string `json:"currency"`
	SortOrder   *int    `json:"sort_order"`
}

func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create plan", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.CreatePlanCommand{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		SlotLimit:    req.SlotLimit,
		PriceCents:   req.PriceCents,
		Currency:     req.Currency,
		DurationDays: req.DurationDays,
	}

	plan, err := h.createPlanUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, toPlanResponse(plan), "Plan created successfully")
}

func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	planSID, err := parsePlanSID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for update plan",
			"plan_id", planSID,
			"error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.UpdatePlanCommand{
		PlanSID:     planSID,
		Description: req.Description,
		SlotLimit:   req.SlotLimit,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		SortOrder:   req.SortOrder,
	}

	plan, err := h.updatePlanUC.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Plan updated successfully", toPlanResponse(plan))
}

func (h *PlanHandler) GetPlan(c *gin.Context) {
	planSID, err := parsePlanSID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	plan, err := h.getPlanUC.Execute(c.Request.Context(), usecases.GetPlanQuery{PlanSID: planSID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", toPlanResponse(plan))
}

func (h *PlanHandler) ListPlans(c *gin.Context) {
	query, err := parseListPlansQuery(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.listPlansUC.Execute(c.Request.Context(), *query)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, toPlanResponses(result.Plans), result.Total, query.Page, query.PageSize)
}

// DeactivatePlan handles DELETE /admin/plans/:id
// Plans are retired, never hard-deleted; assignments already issued keep
// running to their own expiration.
func (h *PlanHandler) DeactivatePlan(c *gin.Context) {
	planSID, err := parsePlanSID(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	plan, err := h.deactivatePlanUC.Execute(c.Request.Context(), usecases.DeactivatePlanCommand{PlanSID: planSID})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Plan deactivated successfully", toPlanResponse(plan))
}

func parsePlanSID(c *gin.Context) (string, error) {
	return utils.ParseSIDParam(c, "id", id.PrefixPlan, "plan")
}

func parseListPlansQuery(c *gin.Context) (*usecases.ListPlansQuery, error) {
	page, err := utils.ParsePageQuery(c)
	if err != nil {
		return nil, err
	}

	query := &usecases.ListPlansQuery{
		Page:     page.Page,
		PageSize: page.PageSize,
	}

	if status := c.Query("status"); status != "" {
		if status != string(catalog.PlanStatusActive) && status != string(catalog.PlanStatusInactive) {
			return nil, errors.NewValidationError("Invalid status parameter")
		}
		query.Status = &status
	}

	return query, nil
}
