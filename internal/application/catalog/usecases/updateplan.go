package usecases

import (
	"context"
	"fmt"

	"traino/internal/domain/catalog"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type UpdatePlanCommand struct {
	PlanID      uint
	PlanSID     string
	Description *string
	SlotLimit   *uint
	PriceCents  *uint64
	Currency    *string
	SortOrder   *int
}

// UpdatePlanUseCase edits a catalog tier. Slot-limit changes only affect
// assignments issued after the edit; existing assignments keep the limit they
// snapshotted.
type UpdatePlanUseCase struct {
	planRepo catalog.PlanRepository
	logger   logger.Interface
}

func NewUpdatePlanUseCase(planRepo catalog.PlanRepository, logger logger.Interface) *UpdatePlanUseCase {
	return &UpdatePlanUseCase{
		planRepo: planRepo,
		logger:   logger,
	}
}

func (uc *UpdatePlanUseCase) Execute(ctx context.Context, cmd UpdatePlanCommand) (*catalog.Plan, error) {
	plan, err := uc.resolvePlan(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if cmd.Description != nil {
		plan.UpdateDescription(*cmd.Description)
	}
	if cmd.SlotLimit != nil {
		plan.UpdateSlotLimit(*cmd.SlotLimit)
	}
	if cmd.PriceCents != nil || cmd.Currency != nil {
		price := plan.PriceCents()
		currency := plan.Currency()
		if cmd.PriceCents != nil {
			price = *cmd.PriceCents
		}
		if cmd.Currency != nil {
			currency = *cmd.Currency
		}
		if err := plan.UpdatePrice(price, currency); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
	}
	if cmd.SortOrder != nil {
		plan.SetSortOrder(*cmd.SortOrder)
	}

	// Nothing changed, nothing to write.
	if plan.Version() == plan.BaseVersion() {
		return plan, nil
	}

	if err := uc.planRepo.Update(ctx, plan); err != nil {
		uc.logger.Errorw("failed to update plan", "error", err, "plan_id", plan.ID())
		return nil, fmt.Errorf("failed to update plan: %w", err)
	}

	return plan, nil
}

func (uc *UpdatePlanUseCase) resolvePlan(ctx context.Context, cmd UpdatePlanCommand) (*catalog.Plan, error) {
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
	return plan, nil
}
