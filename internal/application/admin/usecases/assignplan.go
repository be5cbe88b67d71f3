package usecases

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"traino/internal/domain/capacity"
	"traino/internal/domain/catalog"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/biztime"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type AssignPlanCommand struct {
	TrainerID            uint
	PlanID               uint   // Internal plan ID (used if PlanSID is empty)
	PlanSID              string // Stripe-style plan SID (takes precedence over PlanID)
	AdminID              uint
	DurationOverrideDays int // Optional: overrides the plan's duration when > 0
	Reason               string
}

type AssignPlanResult struct {
	Assignment *capacity.PlanAssignment
	Superseded int64 // Prior active assignments deactivated by this one
}

// AssignPlanUseCase creates a trainer's plan assignment, atomically
// superseding any prior active assignment. The slot limit is snapshotted from
// the plan so later catalog edits never shrink live capacity.
type AssignPlanUseCase struct {
	planRepo       catalog.PlanRepository
	assignmentRepo capacity.PlanAssignmentRepository
	eventRepo      capacity.AllocationEventRepository
	txManager      *db.TransactionManager
	cache          cache.EntitlementCache // optional
	sanitizer      *bluemonday.Policy
	logger         logger.Interface
}

func NewAssignPlanUseCase(
	planRepo catalog.PlanRepository,
	assignmentRepo capacity.PlanAssignmentRepository,
	eventRepo capacity.AllocationEventRepository,
	txManager *db.TransactionManager,
	logger logger.Interface,
) *AssignPlanUseCase {
	return &AssignPlanUseCase{
		planRepo:       planRepo,
		assignmentRepo: assignmentRepo,
		eventRepo:      eventRepo,
		txManager:      txManager,
		sanitizer:      bluemonday.StrictPolicy(),
		logger:         logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *AssignPlanUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *AssignPlanUseCase) Execute(ctx context.Context, cmd AssignPlanCommand) (*AssignPlanResult, error) {
	if cmd.TrainerID == 0 {
		return nil, apperrors.NewValidationError("trainer ID is required")
	}

	plan, err := uc.resolvePlan(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive() {
		return nil, apperrors.NewValidationError("plan is not active")
	}

	durationDays := plan.DurationDays()
	if cmd.DurationOverrideDays > 0 {
		durationDays = cmd.DurationOverrideDays
	}

	var adminID *uint
	if cmd.AdminID != 0 {
		adminID = &cmd.AdminID
	}
	var reason *string
	if cmd.Reason != "" {
		cleaned := uc.sanitizer.Sanitize(cmd.Reason)
		reason = &cleaned
	}

	now := biztime.NowUTC()
	expiresAt := biztime.AddDaysUTC(now, durationDays)

	assignment, err := capacity.NewPlanAssignment(cmd.TrainerID, plan.ID(), plan.SlotLimit(),
		now, expiresAt, adminID, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to build plan assignment: %w", err)
	}

	result := &AssignPlanResult{Assignment: assignment}

	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		// Supersession: the old assignment stays as history, only its active
		// flag flips. Exactly one active assignment survives the transaction.
		superseded, txErr := uc.assignmentRepo.DeactivateByTrainerID(txCtx, cmd.TrainerID)
		if txErr != nil {
			return txErr
		}
		result.Superseded = superseded

		if txErr := uc.assignmentRepo.Create(txCtx, assignment); txErr != nil {
			return txErr
		}

		event, txErr := capacity.NewAllocationEvent(cmd.TrainerID, capacity.EventTypePlanAssigned)
		if txErr != nil {
			return fmt.Errorf("failed to build assignment event: %w", txErr)
		}
		event.WithSource(capacity.SourcePlan).
			WithPlanAssignment(assignment.ID()).
			WithValidUntil(expiresAt).
			WithActor(adminID).
			WithMeta("plan_sid", plan.SID()).
			WithMeta("slot_limit", plan.SlotLimit())
		if txErr := uc.eventRepo.Create(txCtx, event); txErr != nil {
			return fmt.Errorf("failed to record assignment event: %w", txErr)
		}

		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to assign plan",
			"error", err, "trainer_id", cmd.TrainerID, "plan_id", plan.ID())
		return nil, fmt.Errorf("failed to assign plan: %w", err)
	}

	if uc.cache != nil {
		if cacheErr := uc.cache.Invalidate(ctx, cmd.TrainerID); cacheErr != nil {
			uc.logger.Warnw("failed to invalidate entitlement cache", "error", cacheErr, "trainer_id", cmd.TrainerID)
		}
	}

	uc.logger.Infow("plan assigned",
		"trainer_id", cmd.TrainerID,
		"plan_id", plan.ID(),
		"slot_limit", plan.SlotLimit(),
		"expires_at", expiresAt,
		"superseded", result.Superseded,
		"admin_id", cmd.AdminID,
	)

	return result, nil
}

func (uc *AssignPlanUseCase) resolvePlan(ctx context.Context, cmd AssignPlanCommand) (*catalog.Plan, error) {
	var plan *catalog.Plan
	var err error

	if cmd.PlanSID != "" {
		plan, err = uc.planRepo.GetBySID(ctx, cmd.PlanSID)
		if err != nil {
			uc.logger.Errorw("failed to get plan by SID", "error", err, "plan_sid", cmd.PlanSID)
			return nil, fmt.Errorf("failed to get plan: %w", err)
		}
	} else {
		plan, err = uc.planRepo.GetByID(ctx, cmd.PlanID)
		if err != nil {
			uc.logger.Errorw("failed to get plan", "error", err, "plan_id", cmd.PlanID)
			return nil, fmt.Errorf("failed to get plan: %w", err)
		}
	}
	if plan == nil {
		return nil, apperrors.NewNotFoundError("plan not found")
	}
	return plan, nil
}
