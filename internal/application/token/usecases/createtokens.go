package usecases

import (
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/cache"
	"traino/internal/shared/biztime"
	"traino/internal/shared/constants"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type CreateTokensCommand struct {
	TrainerID      uint
	QuantityEach   uint
	Count          int
	ExpirationDays int
	AdminID        uint
	Reason         string
}

type CreateTokensResult struct {
	Tokens []*capacity.Token
}

// CreateTokensUseCase creates a batch of independent capacity tokens, each
// carrying the same quantity and expiration, attributed to the issuing admin.
type CreateTokensUseCase struct {
	tokenRepo capacity.TokenRepository
	eventRepo capacity.AllocationEventRepository
	txManager *db.TransactionManager
	cache     cache.EntitlementCache // optional
	sanitizer *bluemonday.Policy
	logger    logger.Interface
}

func NewCreateTokensUseCase(
	tokenRepo capacity.TokenRepository,
	eventRepo capacity.AllocationEventRepository,
	txManager *db.TransactionManager,
	logger logger.Interface,
) *CreateTokensUseCase {
	return &CreateTokensUseCase{
		tokenRepo: tokenRepo,
		eventRepo: eventRepo,
		txManager: txManager,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// SetCache sets the entitlement snapshot cache (optional).
func (uc *CreateTokensUseCase) SetCache(c cache.EntitlementCache) {
	uc.cache = c
}

func (uc *CreateTokensUseCase) Execute(ctx context.Context, cmd CreateTokensCommand) (*CreateTokensResult, error) {
	if cmd.TrainerID == 0 {
		return nil, apperrors.NewValidationError("trainer ID is required")
	}
	if cmd.Count < 1 || cmd.Count > constants.MaxTokenBatchCount {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("token count must be between 1 and %d", constants.MaxTokenBatchCount))
	}
	if cmd.QuantityEach < 1 {
		return nil, apperrors.NewValidationError("token quantity must be at least 1")
	}
	if cmd.ExpirationDays < 1 {
		return nil, apperrors.NewValidationError("expiration must be at least one day")
	}

	now := biztime.NowUTC()
	expiresAt := biztime.AddDaysUTC(now, cmd.ExpirationDays)

	var adminID *uint
	if cmd.AdminID != 0 {
		adminID = &cmd.AdminID
	}
	var reason *string
	if cmd.Reason != "" {
		cleaned := uc.sanitizer.Sanitize(cmd.Reason)
		reason = &cleaned
	}

	tokens := make([]*capacity.Token, 0, cmd.Count)
	for i := 0; i < cmd.Count; i++ {
		token, err := capacity.NewToken(cmd.TrainerID, cmd.QuantityEach, expiresAt, adminID, reason)
		if err != nil {
			return nil, fmt.Errorf("failed to create token: %w", err)
		}
		tokens = append(tokens, token)
	}

	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if txErr := uc.tokenRepo.CreateBatch(txCtx, tokens); txErr != nil {
			return txErr
		}

		event, txErr := capacity.NewAllocationEvent(cmd.TrainerID, capacity.EventTypeTokensAdded)
		if txErr != nil {
			return fmt.Errorf("failed to build token event: %w", txErr)
		}
		event.WithActor(adminID).WithValidUntil(expiresAt).
			WithMeta("count", cmd.Count).
			WithMeta("quantity_each", cmd.QuantityEach)
		if txErr := uc.eventRepo.Create(txCtx, event); txErr != nil {
			return fmt.Errorf("failed to record token event: %w", txErr)
		}

		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to create token batch",
			"error", err, "trainer_id", cmd.TrainerID, "count", cmd.Count)
		return nil, fmt.Errorf("failed to create tokens: %w", err)
	}

	if uc.cache != nil {
		if cacheErr := uc.cache.Invalidate(ctx, cmd.TrainerID); cacheErr != nil {
			uc.logger.Warnw("failed to invalidate entitlement cache", "error", cacheErr, "trainer_id", cmd.TrainerID)
		}
	}

	uc.logger.Infow("capacity tokens created",
		"trainer_id", cmd.TrainerID,
		"count", cmd.Count,
		"quantity_each", cmd.QuantityEach,
		"expires_at", expiresAt,
		"admin_id", cmd.AdminID,
	)

	return &CreateTokensResult{Tokens: tokens}, nil
}
