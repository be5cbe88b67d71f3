package usecases

import (
	"context"
	"fmt"

	"traino/internal/domain/catalog"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type ListPlansQuery struct {
	Status   *string
	Page     int
	PageSize int
}

type ListPlansResult struct {
	Plans []*catalog.Plan
	Total int64
}

type ListPlansUseCase struct {
	planRepo catalog.PlanRepository
	logger   logger.Interface
}

func NewListPlansUseCase(planRepo catalog.PlanRepository, logger logger.Interface) *ListPlansUseCase {
	return &ListPlansUseCase{
		planRepo: planRepo,
		logger:   logger,
	}
}

func (uc *ListPlansUseCase) Execute(ctx context.Context, query ListPlansQuery) (*ListPlansResult, error) {
	plans, total, err := uc.planRepo.List(ctx, catalog.PlanFilter{
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		uc.logger.Errorw("failed to list plans", "error", err)
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	return &ListPlansResult{Plans: plans, Total: total}, nil
}

type GetPlanQuery struct {
	PlanID  uint
	PlanSID string
}

type GetPlanUseCase struct {
	planRepo catalog.PlanRepository
	logger   logger.Interface
}

func NewGetPlanUseCase(planRepo catalog.PlanRepository, logger logger.Interface) *GetPlanUseCase {
	return &GetPlanUseCase{
		planRepo: planRepo,
		logger:   logger,
	}
}

func (uc *GetPlanUseCase) Execute(ctx context.Context, query GetPlanQuery) (*catalog.Plan, error) {
	var plan *catalog.Plan
	var err error

	if query.PlanSID != "" {
		plan, err = uc.planRepo.GetBySID(ctx, query.PlanSID)
	} else {
		plan, err = uc.planRepo.GetByID(ctx, query.PlanID)
	}
	if err != nil {
		uc.logger.Errorw("failed to get plan", "error", err, "plan_id", query.PlanID, "plan_sid", query.PlanSID)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewNotFoundError("plan not found")
	}

	return plan, nil
}
