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
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/infrastructure/repository"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type allocTestEnv struct {
	consumerRepo   consumer.Repository
	assignmentRepo capacity.PlanAssignmentRepository
	tokenRepo      capacity.TokenRepository
	eventRepo      capacity.AllocationEventRepository
	allocate       *AllocateSlotUseCase
	release        *ReleaseSlotUseCase
}

func setupAllocTest(t *testing.T) *allocTestEnv {
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
	env := &allocTestEnv{
		consumerRepo:   repository.NewConsumerRepository(gdb, log),
		assignmentRepo: repository.NewPlanAssignmentRepository(gdb, log),
		tokenRepo:      repository.NewCapacityTokenRepository(gdb, log),
		eventRepo:      repository.NewAllocationEventRepository(gdb, log),
	}
	txManager := db.NewTransactionManager(gdb)
	env.allocate = NewAllocateSlotUseCase(env.consumerRepo, env.assignmentRepo, env.tokenRepo, env.eventRepo, txManager, 3, log)
	env.release = NewReleaseSlotUseCase(env.consumerRepo, env.tokenRepo, env.eventRepo, txManager, log)
	return env
}

func (env *allocTestEnv) newConsumer(t *testing.T, trainerID uint, name string) *consumer.Consumer {
	t.Helper()
	c, err := consumer.NewConsumer(trainerID, name)
	require.NoError(t, err)
	require.NoError(t, env.consumerRepo.Create(context.Background(), c))
	return c
}

func (env *allocTestEnv) newAssignment(t *testing.T, trainerID uint, slotLimit uint, expiresAt time.Time) *capacity.PlanAssignment {
	t.Helper()
	assignment, err := capacity.NewPlanAssignment(trainerID, 1, slotLimit, time.Now().UTC().Add(-time.Minute), expiresAt, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.assignmentRepo.Create(context.Background(), assignment))
	return assignment
}

func (env *allocTestEnv) newToken(t *testing.T, trainerID, quantity uint, expiresAt time.Time) *capacity.Token {
	t.Helper()
	token, err := capacity.NewToken(trainerID, quantity, expiresAt, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.tokenRepo.Create(context.Background(), token))
	return token
}

func TestAllocateSlot_PlanBacked(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(30 * 24 * time.Hour)

	assignment := env.newAssignment(t, 1, 2, expiresAt)
	alice := env.newConsumer(t, 1, "Alice")
	bob := env.newConsumer(t, 1, "Bob")
	carol := env.newConsumer(t, 1, "Carol")

	t.Run("fills plan slots up to the limit", func(t *testing.T) {
		for _, c := range []*consumer.Consumer{alice, bob} {
			result, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: c.ID()})
			require.NoError(t, err)
			assert.True(t, result.Bound)
			assert.False(t, result.AlreadyBound)
			assert.Equal(t, capacity.SourcePlan, result.Source)
			assert.Equal(t, assignment.ID(), result.ResourceID)
			assert.Equal(t, assignment.ExpiresAt().Unix(), result.ValidUntil.Unix())
		}
	})

	t.Run("fails with capacity figures once full", func(t *testing.T) {
		_, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: carol.ID()})
		require.Error(t, err)
		assert.True(t, apperrors.IsInsufficientCapacityError(err))
	})

	t.Run("records one event per binding", func(t *testing.T) {
		events, err := env.eventRepo.ListByTrainerID(ctx, 1, 0)
		require.NoError(t, err)
		bound := 0
		for _, e := range events {
			if e.EventType() == capacity.EventTypeSlotBound {
				bound++
			}
		}
		assert.Equal(t, 2, bound)
	})
}

func TestAllocateSlot_Idempotent(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(30 * 24 * time.Hour)

	env.newAssignment(t, 1, 5, expiresAt)
	alice := env.newConsumer(t, 1, "Alice")

	first, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: alice.ID()})
	require.NoError(t, err)
	require.False(t, first.AlreadyBound)

	second, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: alice.ID()})
	require.NoError(t, err)
	assert.True(t, second.AlreadyBound)
	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, first.ResourceID, second.ResourceID)

	// The short-circuit touches no counters and writes no event.
	count, err := env.consumerRepo.CountBoundByTrainerID(ctx, 1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	events, err := env.eventRepo.ListByTrainerID(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestAllocateSlot_SingleSlotPlan(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(30 * 24 * time.Hour)

	env.newAssignment(t, 1, 1, expiresAt)
	alice := env.newConsumer(t, 1, "Alice")
	bob := env.newConsumer(t, 1, "Bob")

	result, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: alice.ID()})
	require.NoError(t, err)
	assert.True(t, result.Bound)

	_, err = env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: bob.ID()})
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientCapacityError(err))
}

func TestAllocateSlot_TokenBacked(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("picks the soonest-expiring token", func(t *testing.T) {
		env.newToken(t, 1, 1, now.Add(60*24*time.Hour))
		soon := env.newToken(t, 1, 1, now.Add(7*24*time.Hour))
		alice := env.newConsumer(t, 1, "Alice")

		result, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: alice.ID()})
		require.NoError(t, err)
		assert.Equal(t, capacity.SourceToken, result.Source)
		assert.Equal(t, soon.ID(), result.ResourceID)
		assert.Equal(t, soon.ExpiresAt().Unix(), result.ValidUntil.Unix())
	})

	t.Run("plan slots are preferred over tokens", func(t *testing.T) {
		env.newAssignment(t, 2, 1, now.Add(30*24*time.Hour))
		env.newToken(t, 2, 1, now.Add(7*24*time.Hour))
		bob := env.newConsumer(t, 2, "Bob")

		result, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 2, ConsumerID: bob.ID()})
		require.NoError(t, err)
		assert.Equal(t, capacity.SourcePlan, result.Source)
	})
}

func TestAllocateSlot_TokenSplit(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()
	now := time.Now().UTC()
	expiresAt := now.Add(30 * 24 * time.Hour)

	original := env.newToken(t, 1, 3, expiresAt)

	t.Run("one token of quantity three backs three consumers", func(t *testing.T) {
		for _, name := range []string{"Alice", "Bob", "Carol"} {
			c := env.newConsumer(t, 1, name)
			result, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: c.ID()})
			require.NoError(t, err)
			assert.Equal(t, capacity.SourceToken, result.Source)
			assert.Equal(t, expiresAt.Unix(), result.ValidUntil.Unix())
		}

		_, err := env.allocate.Execute(ctx, AllocateSlotCommand{
			TrainerID: 1, ConsumerID: env.newConsumer(t, 1, "Dave").ID(),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInsufficientCapacityError(err))
	})

	t.Run("quantity is conserved across splits", func(t *testing.T) {
		tokens, err := env.tokenRepo.ListByTrainerID(ctx, 1)
		require.NoError(t, err)

		var total uint
		consumed := 0
		for _, token := range tokens {
			total += token.Quantity()
			if token.IsConsumed() {
				consumed++
			}
		}
		assert.Equal(t, original.Quantity(), total)
		assert.Equal(t, 3, consumed)
	})

	t.Run("split pieces keep the original expiration", func(t *testing.T) {
		tokens, err := env.tokenRepo.ListByTrainerID(ctx, 1)
		require.NoError(t, err)
		for _, token := range tokens {
			assert.Equal(t, expiresAt.Unix(), token.ExpiresAt().Unix())
		}
	})
}

func TestAllocateSlot_ConsumerResolution(t *testing.T) {
	env := setupAllocTest(t)
	ctx := context.Background()

	alice := env.newConsumer(t, 1, "Alice")

	t.Run("unknown consumer is not found", func(t *testing.T) {
		_, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerID: 99999})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
	})

	t.Run("a consumer of another trainer is not found", func(t *testing.T) {
		_, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 2, ConsumerID: alice.ID()})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
	})

	t.Run("resolves by SID", func(t *testing.T) {
		env.newToken(t, 1, 1, time.Now().UTC().Add(24*time.Hour))
		result, err := env.allocate.Execute(ctx, AllocateSlotCommand{TrainerID: 1, ConsumerSID: alice.SID()})
		require.NoError(t, err)
		assert.True(t, result.Bound)
	})
}
