package usecases

import (
	"context"
	"errors"
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/biztime"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type ReleaseTokenCommand struct {
	TokenID  uint   // Internal token ID (used if TokenSID is empty)
	TokenSID string // Stripe-style token SID (takes precedence over TokenID)
}

// ReleaseTokenUseCase clears a token's binding so it returns to the available
// pool. A token past its window cannot come back as available: the call
// deactivates it and fails with a token-expired conflict.
type ReleaseTokenUseCase struct {
	tokenRepo capacity.TokenRepository
	cache     cache.EntitlementCache // optional
	logger    logger.Interface
}

func NewReleaseTokenUseCase(tokenRepo capacity.TokenRepository, logger logger.Interface) *ReleaseTokenUseCase {
	return &ReleaseTokenUseCase{
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *ReleaseTokenUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *ReleaseTokenUseCase) Execute(ctx context.Context, cmd ReleaseTokenCommand) (*capacity.Token, error) {
	var token *capacity.Token
	var err error

	if cmd.TokenSID != "" {
		token, err = uc.tokenRepo.GetBySID(ctx, cmd.TokenSID)
	} else {
		token, err = uc.tokenRepo.GetByID(ctx, cmd.TokenID)
	}
	if err != nil {
		uc.logger.Errorw("failed to get token", "error", err, "token_id", cmd.TokenID, "token_sid", cmd.TokenSID)
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token == nil {
		return nil, apperrors.NewNotFoundError("token not found")
	}

	now := biztime.NowUTC()
	if err := token.Release(now); err != nil {
		if errors.Is(err, capacity.ErrTokenExpired) {
			// Release already flipped the aggregate to inactive; persist that.
			// An already-swept token has no version bump and needs no write:
			// MySQL reports zero changed rows for a no-change UPDATE, which is
			// indistinguishable from a version conflict.
			if token.Version() != token.BaseVersion() {
				if updateErr := uc.tokenRepo.Update(ctx, token); updateErr != nil {
					uc.logger.Errorw("failed to persist expired token", "error", updateErr, "token_id", token.ID())
					return nil, fmt.Errorf("failed to persist expired token: %w", updateErr)
				}
				uc.invalidateCache(ctx, token.TrainerID())
			}
			return nil, apperrors.NewConflictError("token has expired and cannot be released")
		}
		return nil, fmt.Errorf("failed to release token: %w", err)
	}

	// Releasing an already-available token is a no-op on the aggregate.
	if token.Version() == token.BaseVersion() {
		return token, nil
	}

	if err := uc.tokenRepo.Update(ctx, token); err != nil {
		uc.logger.Errorw("failed to persist token release", "error", err, "token_id", token.ID())
		return nil, fmt.Errorf("failed to persist token release: %w", err)
	}

	uc.invalidateCache(ctx, token.TrainerID())

	uc.logger.Infow("token released to available pool",
		"token_id", token.ID(), "trainer_id", token.TrainerID())

	return token, nil
}

func (uc *ReleaseTokenUseCase) invalidateCache(ctx context.Context, trainerID uint) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, trainerID); err != nil {
		uc.logger.Warnw("failed to invalidate entitlement cache", "error", err, "trainer_id", trainerID)
	}
}
