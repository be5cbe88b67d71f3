package usecases

import (
	"context"
	"fmt"

	"traino/internal/domain/catalog"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type DeactivatePlanCommand struct {
	PlanID  uint
	PlanSID string
}

// DeactivatePlanUseCase retires a catalog tier. The row is never deleted;
// assignments already issued against it continue to their own expiration.
type DeactivatePlanUseCase struct {
	planRepo catalog.PlanRepository
	logger   logger.Interface
}

func NewDeactivatePlanUseCase(planRepo catalog.PlanRepository, logger logger.Interface) *DeactivatePlanUseCase {
	return &DeactivatePlanUseCase{
		planRepo: planRepo,
		logger:   logger,
	}
}

func (uc *DeactivatePlanUseCase) Execute(ctx context.Context, cmd DeactivatePlanCommand) (*catalog.Plan, error) {
	var plan *catalog.Plan
	var err error

	if cmd.PlanSID != "" {
		plan, err = uc.planRepo.GetBySID(ctx, cmd.PlanSID)
	} else {
		plan, err = uc.planRepo.GetByID(ctx, cmd.PlanID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, apperrors.NewNotFoundError("plan not found")
	}

	// Already retired; deactivation is idempotent.
	if !plan.IsActive() {
		return plan, nil
	}

	if err := plan.Deactivate(); err != nil {
		return nil, fmt.Errorf("failed to deactivate plan: %w", err)
	}

	if err := uc.planRepo.Update(ctx, plan); err != nil {
		uc.logger.Errorw("failed to persist plan deactivation", "error", err, "plan_id", plan.ID())
		return nil, fmt.Errorf("failed to persist plan deactivation: %w", err)
	}

	uc.logger.Infow("plan deactivated", "plan_id", plan.ID(), "slug", plan.Slug())
	return plan, nil
}
