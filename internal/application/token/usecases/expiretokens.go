package usecases

import (
	"context"
	"fmt"
	"time"

	"traino/internal/domain/capacity"
	"traino/internal/shared/logger"
)

// ExpireTokensUseCase deactivates every token whose window has passed and
// clears its binding reference. The underlying update is conditional on the
// expiration comparison, so re-running is a no-op on already-expired rows.
type ExpireTokensUseCase struct {
	tokenRepo capacity.TokenRepository
	logger    logger.Interface
}

func NewExpireTokensUseCase(tokenRepo capacity.TokenRepository, logger logger.Interface) *ExpireTokensUseCase {
	return &ExpireTokensUseCase{
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

func (uc *ExpireTokensUseCase) Execute(ctx context.Context, now time.Time) (int64, error) {
	expired, err := uc.tokenRepo.ExpireDue(ctx, now)
	if err != nil {
		uc.logger.Errorw("failed to expire due tokens", "error", err)
		return 0, fmt.Errorf("failed to expire due tokens: %w", err)
	}

	if expired > 0 {
		uc.logger.Infow("tokens expired", "count", expired)
	}

	return expired, nil
}
