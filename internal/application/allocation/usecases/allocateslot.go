package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/biztime"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type AllocateSlotCommand struct {
	TrainerID   uint
	ConsumerID  uint   // Internal consumer ID (used if ConsumerSID is empty)
	ConsumerSID string // Stripe-style consumer SID (takes precedence over ConsumerID)
}

type AllocateSlotResult struct {
	Bound        bool
	AlreadyBound bool // True when the idempotency short-circuit returned an existing binding
	Source       capacity.BindingSource
	ResourceID   uint
	ValidUntil   time.Time
}

// AllocateSlotUseCase binds one consumer to a capacity source. Plan slots are
// preferred over tokens; token selection takes the soonest-expiring available
// token; larger tokens are split so quantity is conserved. The capacity check
// and binding write run in one transaction with conditional updates, retried a
// bounded number of times before surfacing a concurrent modification.
type AllocateSlotUseCase struct {
	consumerRepo   consumer.Repository
	assignmentRepo capacity.PlanAssignmentRepository
	tokenRepo      capacity.TokenRepository
	eventRepo      capacity.AllocationEventRepository
	txManager      *db.TransactionManager
	cache          cache.EntitlementCache // optional
	maxRetries     int
	logger         logger.Interface
}

func NewAllocateSlotUseCase(
	consumerRepo consumer.Repository,
	assignmentRepo capacity.PlanAssignmentRepository,
	tokenRepo capacity.TokenRepository,
	eventRepo capacity.AllocationEventRepository,
	txManager *db.TransactionManager,
	maxRetries int,
	logger logger.Interface,
) *AllocateSlotUseCase {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &AllocateSlotUseCase{
		consumerRepo:   consumerRepo,
		assignmentRepo: assignmentRepo,
		tokenRepo:      tokenRepo,
		eventRepo:      eventRepo,
		txManager:      txManager,
		maxRetries:     maxRetries,
		logger:         logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *AllocateSlotUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *AllocateSlotUseCase) Execute(ctx context.Context, cmd AllocateSlotCommand) (*AllocateSlotResult, error) {
	target, err := uc.resolveConsumer(ctx, cmd)
	if err != nil {
		return nil, err
	}

	// Idempotency short-circuit: an already-bound consumer gets its existing
	// binding back and no resource is touched.
	if binding := target.Binding(); binding != nil {
		return resultFromBinding(binding, true), nil
	}

	var result *AllocateSlotResult
	for attempt := 0; attempt < uc.maxRetries; attempt++ {
		result = nil
		err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
			r, txErr := uc.allocateOnce(txCtx, cmd.TrainerID, target.ID())
			if txErr != nil {
				return txErr
			}
			result = r
			return nil
		})
		if err == nil {
			break
		}
		if !errors.Is(err, capacity.ErrConcurrentUpdate) {
			return nil, err
		}
		uc.logger.Debugw("allocation conflicted, retrying",
			"trainer_id", cmd.TrainerID, "consumer_id", target.ID(), "attempt", attempt+1)
	}
	if err != nil {
		uc.logger.Warnw("allocation retries exhausted",
			"trainer_id", cmd.TrainerID, "consumer_id", target.ID())
		return nil, apperrors.NewConcurrentModificationError("slot allocation conflicted repeatedly")
	}

	uc.invalidateCache(ctx, cmd.TrainerID)

	if !result.AlreadyBound {
		uc.logger.Infow("consumer slot allocated",
			"trainer_id", cmd.TrainerID,
			"consumer_id", target.ID(),
			"source", result.Source,
			"resource_id", result.ResourceID,
			"valid_until", result.ValidUntil,
		)
	}

	return result, nil
}

// allocateOnce performs one allocation attempt inside a transaction. It
// returns capacity.ErrConcurrentUpdate when a conditional write lost a race,
// which rolls the transaction back and lets the caller retry.
func (uc *AllocateSlotUseCase) allocateOnce(ctx context.Context, trainerID, consumerID uint) (*AllocateSlotResult, error) {
	now := biztime.NowUTC()

	// Plan slots are always tried before tokens.
	assignment, err := uc.assignmentRepo.GetCurrentByTrainerID(ctx, trainerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load current plan assignment: %w", err)
	}

	if assignment != nil {
		boundCount, err := uc.consumerRepo.CountBoundByAssignmentID(ctx, assignment.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to count plan-bound consumers: %w", err)
		}
		if boundCount < int64(assignment.SlotLimit()) {
			return uc.bindViaPlan(ctx, assignment, consumerID)
		}
	}

	token, err := uc.tokenRepo.FindSoonestAvailable(ctx, trainerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to search for available token: %w", err)
	}
	if token == nil {
		return nil, uc.insufficientCapacity(ctx, trainerID, now)
	}

	return uc.bindViaToken(ctx, token, consumerID, now)
}

func (uc *AllocateSlotUseCase) bindViaPlan(ctx context.Context, assignment *capacity.PlanAssignment, consumerID uint) (*AllocateSlotResult, error) {
	assignmentID := assignment.ID()
	binding := consumer.ResourceBinding{
		Source:           capacity.SourcePlan,
		PlanAssignmentID: &assignmentID,
		ValidUntil:       assignment.ExpiresAt(),
	}

	bound, err := uc.consumerRepo.BindIfUnbound(ctx, consumerID, binding)
	if err != nil {
		return nil, fmt.Errorf("failed to write plan binding: %w", err)
	}
	if !bound {
		return uc.resolveLostBindingRace(ctx, consumerID)
	}

	// Recount inside the transaction: two concurrent allocations may both have
	// seen a free slot. The loser rolls back and retries against the truth.
	boundCount, err := uc.consumerRepo.CountBoundByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to recount plan-bound consumers: %w", err)
	}
	if boundCount > int64(assignment.SlotLimit()) {
		return nil, capacity.ErrConcurrentUpdate
	}

	if err := uc.recordEvent(ctx, assignment.TrainerID(), capacity.SourcePlan, assignmentID, 0, consumerID, assignment.ExpiresAt()); err != nil {
		return nil, err
	}

	return &AllocateSlotResult{
		Bound:      true,
		Source:     capacity.SourcePlan,
		ResourceID: assignmentID,
		ValidUntil: assignment.ExpiresAt(),
	}, nil
}

func (uc *AllocateSlotUseCase) bindViaToken(ctx context.Context, token *capacity.Token, consumerID uint, now time.Time) (*AllocateSlotResult, error) {
	var boundTokenID uint
	validUntil := token.ExpiresAt()

	if token.Quantity() == 1 {
		ok, err := uc.tokenRepo.BindIfAvailable(ctx, token.ID(), consumerID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to bind token: %w", err)
		}
		if !ok {
			return nil, capacity.ErrConcurrentUpdate
		}
		boundTokenID = token.ID()
	} else {
		// Split: carve a quantity-1 piece off the larger token, pre-bound to
		// the consumer and keeping the original expiration. Quantity is
		// conserved because the decrement and the new row commit together.
		ok, err := uc.tokenRepo.DecrementIfAvailable(ctx, token.ID(), 1, now)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement token quantity: %w", err)
		}
		if !ok {
			return nil, capacity.ErrConcurrentUpdate
		}

		piece, err := token.SplitOff(1, consumerID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to split token: %w", err)
		}
		if err := uc.tokenRepo.Create(ctx, piece); err != nil {
			return nil, fmt.Errorf("failed to persist split token: %w", err)
		}
		boundTokenID = piece.ID()
	}

	binding := consumer.ResourceBinding{
		Source:     capacity.SourceToken,
		TokenID:    &boundTokenID,
		ValidUntil: validUntil,
	}
	bound, err := uc.consumerRepo.BindIfUnbound(ctx, consumerID, binding)
	if err != nil {
		return nil, fmt.Errorf("failed to write token binding: %w", err)
	}
	if !bound {
		// The token mutation above rolls back with the transaction.
		return nil, capacity.ErrConcurrentUpdate
	}

	if err := uc.recordEvent(ctx, token.TrainerID(), capacity.SourceToken, 0, boundTokenID, consumerID, validUntil); err != nil {
		return nil, err
	}

	return &AllocateSlotResult{
		Bound:      true,
		Source:     capacity.SourceToken,
		ResourceID: boundTokenID,
		ValidUntil: validUntil,
	}, nil
}

// resolveLostBindingRace handles a conditional bind that matched no row: if a
// concurrent caller bound the consumer first, allocation is idempotent and the
// existing binding is the answer.
func (uc *AllocateSlotUseCase) resolveLostBindingRace(ctx context.Context, consumerID uint) (*AllocateSlotResult, error) {
	current, err := uc.consumerRepo.GetByID(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload consumer: %w", err)
	}
	if current != nil && current.Binding() != nil {
		return resultFromBinding(current.Binding(), true), nil
	}
	return nil, capacity.ErrConcurrentUpdate
}

func (uc *AllocateSlotUseCase) insufficientCapacity(ctx context.Context, trainerID uint, now time.Time) error {
	var planSlots int64
	assignment, err := uc.assignmentRepo.GetCurrentByTrainerID(ctx, trainerID, now)
	if err != nil {
		uc.logger.Errorw("failed to load plan assignment for capacity diagnostics", "error", err, "trainer_id", trainerID)
	} else if assignment != nil {
		planSlots = int64(assignment.SlotLimit())
	}
	tokensAvailable, err := uc.tokenRepo.SumAvailableQuantity(ctx, trainerID, now)
	if err != nil {
		uc.logger.Errorw("failed to sum available tokens for capacity diagnostics", "error", err, "trainer_id", trainerID)
	}
	tokensConsumed, err := uc.tokenRepo.SumConsumedQuantity(ctx, trainerID)
	if err != nil {
		uc.logger.Errorw("failed to sum consumed tokens for capacity diagnostics", "error", err, "trainer_id", trainerID)
	}
	boundConsumers, err := uc.consumerRepo.CountBoundByTrainerID(ctx, trainerID, now)
	if err != nil {
		uc.logger.Errorw("failed to count bound consumers for capacity diagnostics", "error", err, "trainer_id", trainerID)
	}

	capacityTotal := planSlots + tokensAvailable + tokensConsumed
	return apperrors.NewInsufficientCapacityError(capacityTotal, boundConsumers, capacityTotal-boundConsumers)
}

func (uc *AllocateSlotUseCase) recordEvent(ctx context.Context, trainerID uint, source capacity.BindingSource,
	assignmentID, tokenID, consumerID uint, validUntil time.Time) error {

	event, err := capacity.NewAllocationEvent(trainerID, capacity.EventTypeSlotBound)
	if err != nil {
		return fmt.Errorf("failed to build allocation event: %w", err)
	}
	event.WithSource(source).WithConsumer(consumerID).WithValidUntil(validUntil)
	if assignmentID != 0 {
		event.WithPlanAssignment(assignmentID)
	}
	if tokenID != 0 {
		event.WithToken(tokenID)
	}

	if err := uc.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record allocation event: %w", err)
	}
	return nil
}

func (uc *AllocateSlotUseCase) resolveConsumer(ctx context.Context, cmd AllocateSlotCommand) (*consumer.Consumer, error) {
	var target *consumer.Consumer
	var err error

	if cmd.ConsumerSID != "" {
		target, err = uc.consumerRepo.GetBySID(ctx, cmd.ConsumerSID)
		if err != nil {
			uc.logger.Errorw("failed to get consumer by SID", "error", err, "consumer_sid", cmd.ConsumerSID)
			return nil, fmt.Errorf("failed to get consumer: %w", err)
		}
	} else {
		target, err = uc.consumerRepo.GetByID(ctx, cmd.ConsumerID)
		if err != nil {
			uc.logger.Errorw("failed to get consumer", "error", err, "consumer_id", cmd.ConsumerID)
			return nil, fmt.Errorf("failed to get consumer: %w", err)
		}
	}

	// A consumer belonging to a different trainer is reported as not found.
	if target == nil || target.TrainerID() != cmd.TrainerID {
		return nil, apperrors.NewNotFoundError("consumer not found")
	}

	return target, nil
}

func (uc *AllocateSlotUseCase) invalidateCache(ctx context.Context, trainerID uint) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, trainerID); err != nil {
		uc.logger.Warnw("failed to invalidate entitlement cache", "error", err, "trainer_id", trainerID)
	}
}

func resultFromBinding(binding *consumer.ResourceBinding, alreadyBound bool) *AllocateSlotResult {
	result := &AllocateSlotResult{
		Bound:        true,
		AlreadyBound: alreadyBound,
		Source:       binding.Source,
		ValidUntil:   binding.ValidUntil,
	}
	switch binding.Source {
	case capacity.SourcePlan:
		if binding.PlanAssignmentID != nil {
			result.ResourceID = *binding.PlanAssignmentID
		}
	case capacity.SourceToken:
		if binding.TokenID != nil {
			result.ResourceID = *binding.TokenID
		}
	}
	return result
}
