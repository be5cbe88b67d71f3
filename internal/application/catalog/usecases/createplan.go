package usecases

import (
	"context"
	"fmt"

	"traino/internal/domain/catalog"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type CreatePlanCommand struct {
	Name         string
	Slug         string
	Description  string
	SlotLimit    uint
	PriceCents   uint64
	Currency     string
	DurationDays int
}

type CreatePlanUseCase struct {
	planRepo catalog.PlanRepository
	logger   logger.Interface
}

func NewCreatePlanUseCase(planRepo catalog.PlanRepository, logger logger.Interface) *CreatePlanUseCase {
	return &CreatePlanUseCase{
		planRepo: planRepo,
		logger:   logger,
	}
}

func (uc *CreatePlanUseCase) Execute(ctx context.Context, cmd CreatePlanCommand) (*catalog.Plan, error) {
	exists, err := uc.planRepo.ExistsBySlug(ctx, cmd.Slug)
	if err != nil {
		uc.logger.Errorw("failed to check plan slug", "error", err, "slug", cmd.Slug)
		return nil, fmt.Errorf("failed to check plan slug: %w", err)
	}
	if exists {
		return nil, apperrors.NewConflictError("plan slug already exists")
	}

	plan, err := catalog.NewPlan(cmd.Name, cmd.Slug, cmd.Description, cmd.SlotLimit,
		cmd.PriceCents, cmd.Currency, cmd.DurationDays)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.planRepo.Create(ctx, plan); err != nil {
		uc.logger.Errorw("failed to create plan", "error", err, "slug", cmd.Slug)
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	return plan, nil
}
