package usecases

import (
	"context"
	"errors"
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type RevokePlanCommand struct {
	TrainerID uint
	AdminID   uint
}

type RevokePlanResult struct {
	AssignmentID         uint
	ConsumersDeactivated int
}

// RevokePlanUseCase administratively revokes a trainer's active plan
// assignment. Every consumer bound via that plan is deactivated with its plan
// binding cleared. This cascade is the one case where a binding is cleared
// without deleting the consumer, because the backing plan itself is being
// pulled rather than expiring naturally.
type RevokePlanUseCase struct {
	assignmentRepo capacity.PlanAssignmentRepository
	consumerRepo   consumer.Repository
	eventRepo      capacity.AllocationEventRepository
	txManager      *db.TransactionManager
	cache          cache.EntitlementCache // optional
	logger         logger.Interface
}

func NewRevokePlanUseCase(
	assignmentRepo capacity.PlanAssignmentRepository,
	consumerRepo consumer.Repository,
	eventRepo capacity.AllocationEventRepository,
	txManager *db.TransactionManager,
	logger logger.Interface,
) *RevokePlanUseCase {
	return &RevokePlanUseCase{
		assignmentRepo: assignmentRepo,
		consumerRepo:   consumerRepo,
		eventRepo:      eventRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *RevokePlanUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *RevokePlanUseCase) Execute(ctx context.Context, cmd RevokePlanCommand) (*RevokePlanResult, error) {
	if cmd.TrainerID == 0 {
		return nil, apperrors.NewValidationError("trainer ID is required")
	}

	result := &RevokePlanResult{}

	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		assignment, txErr := uc.assignmentRepo.GetLatestActiveByTrainerID(txCtx, cmd.TrainerID)
		if txErr != nil {
			return fmt.Errorf("failed to load plan assignment: %w", txErr)
		}
		if assignment == nil {
			return apperrors.NewNotFoundError("trainer has no active plan assignment")
		}
		result.AssignmentID = assignment.ID()

		bound, txErr := uc.consumerRepo.ListBoundByAssignmentID(txCtx, assignment.ID())
		if txErr != nil {
			return fmt.Errorf("failed to list plan-bound consumers: %w", txErr)
		}

		for _, c := range bound {
			c.Revoke()
			if txErr := uc.consumerRepo.Update(txCtx, c); txErr != nil {
				return fmt.Errorf("failed to deactivate consumer %d: %w", c.ID(), txErr)
			}
		}
		result.ConsumersDeactivated = len(bound)

		assignment.Deactivate()
		if txErr := uc.assignmentRepo.Update(txCtx, assignment); txErr != nil {
			return fmt.Errorf("failed to deactivate plan assignment: %w", txErr)
		}

		var adminID *uint
		if cmd.AdminID != 0 {
			adminID = &cmd.AdminID
		}

		event, txErr := capacity.NewAllocationEvent(cmd.TrainerID, capacity.EventTypePlanRevoked)
		if txErr != nil {
			return fmt.Errorf("failed to build revocation event: %w", txErr)
		}
		event.WithSource(capacity.SourcePlan).
			WithPlanAssignment(assignment.ID()).
			WithActor(adminID).
			WithMeta("consumers_deactivated", len(bound))
		if txErr := uc.eventRepo.Create(txCtx, event); txErr != nil {
			return fmt.Errorf("failed to record revocation event: %w", txErr)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, capacity.ErrConcurrentUpdate) {
			uc.logger.Warnw("plan revocation conflicted", "trainer_id", cmd.TrainerID)
			return nil, apperrors.NewConcurrentModificationError("plan revocation conflicted with a concurrent change")
		}
		if apperrors.GetAppError(err) == nil {
			uc.logger.Errorw("failed to revoke plan", "error", err, "trainer_id", cmd.TrainerID)
		}
		return nil, err
	}

	if uc.cache != nil {
		if cacheErr := uc.cache.Invalidate(ctx, cmd.TrainerID); cacheErr != nil {
			uc.logger.Warnw("failed to invalidate entitlement cache", "error", cacheErr, "trainer_id", cmd.TrainerID)
		}
	}

	uc.logger.Infow("plan revoked",
		"trainer_id", cmd.TrainerID,
		"assignment_id", result.AssignmentID,
		"consumers_deactivated", result.ConsumersDeactivated,
		"admin_id", cmd.AdminID,
	)

	return result, nil
}
