package usecases

import (
	"context"
	"errors"
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/biztime"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type ReleaseSlotCommand struct {
	TrainerID   uint
	ConsumerID  uint   // Internal consumer ID (used if ConsumerSID is empty)
	ConsumerSID string // Stripe-style consumer SID (takes precedence over ConsumerID)
}

type ReleaseSlotResult struct {
	Released      bool
	TokenReturned bool // True when a backing token went back to the available pool
}

// ReleaseSlotUseCase deletes a consumer and frees its capacity. A backing
// token returns to the available pool unless it has expired in the meantime;
// plan slots need no explicit release because plan consumption is always
// derived from live consumer rows.
type ReleaseSlotUseCase struct {
	consumerRepo consumer.Repository
	tokenRepo    capacity.TokenRepository
	eventRepo    capacity.AllocationEventRepository
	txManager    *db.TransactionManager
	cache        cache.EntitlementCache // optional
	logger       logger.Interface
}

func NewReleaseSlotUseCase(
	consumerRepo consumer.Repository,
	tokenRepo capacity.TokenRepository,
	eventRepo capacity.AllocationEventRepository,
	txManager *db.TransactionManager,
	logger logger.Interface,
) *ReleaseSlotUseCase {
	return &ReleaseSlotUseCase{
		consumerRepo: consumerRepo,
		tokenRepo:    tokenRepo,
		eventRepo:    eventRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *ReleaseSlotUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *ReleaseSlotUseCase) Execute(ctx context.Context, cmd ReleaseSlotCommand) (*ReleaseSlotResult, error) {
	var target *consumer.Consumer
	var err error

	if cmd.ConsumerSID != "" {
		target, err = uc.consumerRepo.GetBySID(ctx, cmd.ConsumerSID)
	} else {
		target, err = uc.consumerRepo.GetByID(ctx, cmd.ConsumerID)
	}
	if err != nil {
		uc.logger.Errorw("failed to get consumer", "error", err, "consumer_id", cmd.ConsumerID, "consumer_sid", cmd.ConsumerSID)
		return nil, fmt.Errorf("failed to get consumer: %w", err)
	}
	if target == nil || target.TrainerID() != cmd.TrainerID {
		return nil, apperrors.NewNotFoundError("consumer not found")
	}

	result := &ReleaseSlotResult{}

	err = uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		binding := target.Binding()

		if binding != nil && binding.Source == capacity.SourceToken && binding.TokenID != nil {
			returned, txErr := uc.returnToken(txCtx, *binding.TokenID)
			if txErr != nil {
				return txErr
			}
			result.TokenReturned = returned
		}

		if binding != nil {
			event, txErr := capacity.NewAllocationEvent(target.TrainerID(), capacity.EventTypeSlotReleased)
			if txErr != nil {
				return fmt.Errorf("failed to build release event: %w", txErr)
			}
			event.WithSource(binding.Source).WithConsumer(target.ID()).WithValidUntil(binding.ValidUntil)
			if binding.PlanAssignmentID != nil {
				event.WithPlanAssignment(*binding.PlanAssignmentID)
			}
			if binding.TokenID != nil {
				event.WithToken(*binding.TokenID)
			}
			if txErr := uc.eventRepo.Create(txCtx, event); txErr != nil {
				return fmt.Errorf("failed to record release event: %w", txErr)
			}
		}

		if txErr := uc.consumerRepo.Delete(txCtx, target.ID()); txErr != nil {
			return fmt.Errorf("failed to delete consumer: %w", txErr)
		}

		result.Released = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if cacheErr := uc.cache.Invalidate(ctx, cmd.TrainerID); cacheErr != nil {
			uc.logger.Warnw("failed to invalidate entitlement cache", "error", cacheErr, "trainer_id", cmd.TrainerID)
		}
	}

	uc.logger.Infow("consumer slot released",
		"trainer_id", cmd.TrainerID,
		"consumer_id", target.ID(),
		"token_returned", result.TokenReturned,
	)

	return result, nil
}

// returnToken puts the backing token back in the available pool. An expired
// token cannot become available again; it is deactivated instead.
func (uc *ReleaseSlotUseCase) returnToken(ctx context.Context, tokenID uint) (bool, error) {
	token, err := uc.tokenRepo.GetByID(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("failed to load backing token: %w", err)
	}
	if token == nil {
		// Token already swept away; nothing to return.
		return false, nil
	}

	now := biztime.NowUTC()
	if err := token.Release(now); err != nil {
		if errors.Is(err, capacity.ErrTokenExpired) {
			if deactivateErr := uc.tokenRepo.DeactivateByID(ctx, tokenID, now); deactivateErr != nil {
				return false, fmt.Errorf("failed to deactivate expired token: %w", deactivateErr)
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to release token: %w", err)
	}

	// No version bump means the token was already available: skip the write.
	// MySQL reports zero changed rows for a no-change UPDATE, which is
	// indistinguishable from a version conflict.
	if token.Version() == token.BaseVersion() {
		return true, nil
	}

	if err := uc.tokenRepo.Update(ctx, token); err != nil {
		return false, fmt.Errorf("failed to persist token release: %w", err)
	}
	return true, nil
}
