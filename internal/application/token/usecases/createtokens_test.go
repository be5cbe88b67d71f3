package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/infrastructure/repository"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type tokenTestEnv struct {
	tokenRepo    capacity.TokenRepository
	eventRepo    capacity.AllocationEventRepository
	createTokens *CreateTokensUseCase
	releaseToken *ReleaseTokenUseCase
	expireTokens *ExpireTokensUseCase
}

func setupTokenTest(t *testing.T) *tokenTestEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.PlanModel{},
		&models.PlanAssignmentModel{},
		&models.CapacityTokenModel{},
		&models.ConsumerModel{},
		&models.AllocationEventModel{},
	))

	log := logger.NewLogger()
	env := &tokenTestEnv{
		tokenRepo: repository.NewCapacityTokenRepository(gdb, log),
		eventRepo: repository.NewAllocationEventRepository(gdb, log),
	}
	txManager := db.NewTransactionManager(gdb)
	env.createTokens = NewCreateTokensUseCase(env.tokenRepo, env.eventRepo, txManager, log)
	env.releaseToken = NewReleaseTokenUseCase(env.tokenRepo, log)
	env.expireTokens = NewExpireTokensUseCase(env.tokenRepo, log)
	return env
}

func TestCreateTokens(t *testing.T) {
	env := setupTokenTest(t)
	ctx := context.Background()

	t.Run("creates a batch attributed to the admin", func(t *testing.T) {
		result, err := env.createTokens.Execute(ctx, CreateTokensCommand{
			TrainerID:      1,
			QuantityEach:   2,
			Count:          3,
			ExpirationDays: 30,
			AdminID:        7,
			Reason:         "goodwill credit",
		})
		require.NoError(t, err)
		require.Len(t, result.Tokens, 3)

		for _, token := range result.Tokens {
			assert.NotZero(t, token.ID())
			assert.Equal(t, uint(2), token.Quantity())
			require.NotNil(t, token.CreatedBy())
			assert.Equal(t, uint(7), *token.CreatedBy())
		}

		available, err := env.tokenRepo.SumAvailableQuantity(ctx, 1, time.Now().UTC())
		require.NoError(t, err)
		assert.Equal(t, int64(6), available)

		events, err := env.eventRepo.ListByTrainerID(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, capacity.EventTypeTokensAdded, events[0].EventType())
	})

	t.Run("validation", func(t *testing.T) {
		cases := []struct {
			name string
			cmd  CreateTokensCommand
		}{
			{"missing trainer", CreateTokensCommand{QuantityEach: 1, Count: 1, ExpirationDays: 30}},
			{"zero count", CreateTokensCommand{TrainerID: 1, QuantityEach: 1, ExpirationDays: 30}},
			{"count over batch limit", CreateTokensCommand{TrainerID: 1, QuantityEach: 1, Count: 101, ExpirationDays: 30}},
			{"zero quantity", CreateTokensCommand{TrainerID: 1, Count: 1, ExpirationDays: 30}},
			{"zero expiration", CreateTokensCommand{TrainerID: 1, QuantityEach: 1, Count: 1}},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := env.createTokens.Execute(ctx, tc.cmd)
				require.Error(t, err)
				appErr := apperrors.GetAppError(err)
				require.NotNil(t, appErr)
				assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			})
		}
	})
}

func TestExpireTokens(t *testing.T) {
	env := setupTokenTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due, err := capacity.NewToken(1, 1, now.Add(time.Minute), nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.tokenRepo.Create(ctx, due))

	keep, err := capacity.NewToken(1, 1, now.Add(24*time.Hour), nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.tokenRepo.Create(ctx, keep))

	count, err := env.expireTokens.Execute(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = env.expireTokens.Execute(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
}
