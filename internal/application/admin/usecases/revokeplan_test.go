package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

func TestRevokePlan(t *testing.T) {
	env := setupAdminTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	plan := env.newPlan(t, "Pro", "pro", 5, 30)

	assignResult, err := env.assignPlan.Execute(ctx, AssignPlanCommand{TrainerID: 1, PlanID: plan.ID(), AdminID: 7})
	require.NoError(t, err)
	assignmentID := assignResult.Assignment.ID()

	// Two consumers on the plan, one on a token, one unbound.
	bindConsumer := func(name string, binding consumer.ResourceBinding) *consumer.Consumer {
		c, err := consumer.NewConsumer(1, name)
		require.NoError(t, err)
		require.NoError(t, env.consumerRepo.Create(ctx, c))
		ok, err := env.consumerRepo.BindIfUnbound(ctx, c.ID(), binding)
		require.NoError(t, err)
		require.True(t, ok)
		return c
	}

	validUntil := now.Add(30 * 24 * time.Hour)
	alice := bindConsumer("Alice", consumer.ResourceBinding{
		Source: capacity.SourcePlan, PlanAssignmentID: &assignmentID, ValidUntil: validUntil,
	})
	bob := bindConsumer("Bob", consumer.ResourceBinding{
		Source: capacity.SourcePlan, PlanAssignmentID: &assignmentID, ValidUntil: validUntil,
	})

	token, err := capacity.NewToken(1, 1, validUntil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, env.tokenRepo.Create(ctx, token))
	tokenID := token.ID()
	carol := bindConsumer("Carol", consumer.ResourceBinding{
		Source: capacity.SourceToken, TokenID: &tokenID, ValidUntil: validUntil,
	})

	dave, err := consumer.NewConsumer(1, "Dave")
	require.NoError(t, err)
	require.NoError(t, env.consumerRepo.Create(ctx, dave))

	t.Run("cascades over plan-bound consumers only", func(t *testing.T) {
		result, err := env.revokePlan.Execute(ctx, RevokePlanCommand{TrainerID: 1, AdminID: 7})
		require.NoError(t, err)
		assert.Equal(t, assignmentID, result.AssignmentID)
		assert.Equal(t, 2, result.ConsumersDeactivated)

		for _, id := range []uint{alice.ID(), bob.ID()} {
			revoked, err := env.consumerRepo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, consumer.StatusInactive, revoked.Status())
			assert.Nil(t, revoked.Binding())
		}

		// Token-bound and unbound consumers are untouched.
		untouched, err := env.consumerRepo.GetByID(ctx, carol.ID())
		require.NoError(t, err)
		assert.Equal(t, consumer.StatusActive, untouched.Status())
		require.NotNil(t, untouched.Binding())

		unbound, err := env.consumerRepo.GetByID(ctx, dave.ID())
		require.NoError(t, err)
		assert.Equal(t, consumer.StatusActive, unbound.Status())
	})

	t.Run("assignment goes inactive", func(t *testing.T) {
		latest, err := env.assignmentRepo.GetLatestActiveByTrainerID(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("only token capacity remains bound", func(t *testing.T) {
		count, err := env.consumerRepo.CountBoundByTrainerID(ctx, 1, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("revoking again reports no active assignment", func(t *testing.T) {
		_, err := env.revokePlan.Execute(ctx, RevokePlanCommand{TrainerID: 1, AdminID: 7})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
	})

	t.Run("revocation event carries the cascade size", func(t *testing.T) {
		events, err := env.eventRepo.ListByTrainerID(ctx, 1, 0)
		require.NoError(t, err)

		var revoked *capacity.AllocationEvent
		for _, e := range events {
			if e.EventType() == capacity.EventTypePlanRevoked {
				revoked = e
				break
			}
		}
		require.NotNil(t, revoked)
		require.NotNil(t, revoked.ActorID())
		assert.Equal(t, uint(7), *revoked.ActorID())
	})
}

// staleConsumerRepo makes every Update lose the optimistic-lock race.
type staleConsumerRepo struct {
	consumer.Repository
}

func (r *staleConsumerRepo) Update(ctx context.Context, c *consumer.Consumer) error {
	return capacity.ErrConcurrentUpdate
}

func TestRevokePlan_CascadeConflict(t *testing.T) {
	env := setupAdminTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	plan := env.newPlan(t, "Pro", "pro", 5, 30)
	assignResult, err := env.assignPlan.Execute(ctx, AssignPlanCommand{TrainerID: 1, PlanID: plan.ID(), AdminID: 7})
	require.NoError(t, err)
	assignmentID := assignResult.Assignment.ID()

	alice, err := consumer.NewConsumer(1, "Alice")
	require.NoError(t, err)
	require.NoError(t, env.consumerRepo.Create(ctx, alice))
	ok, err := env.consumerRepo.BindIfUnbound(ctx, alice.ID(), consumer.ResourceBinding{
		Source: capacity.SourcePlan, PlanAssignmentID: &assignmentID, ValidUntil: now.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, ok)

	revoke := NewRevokePlanUseCase(env.assignmentRepo, &staleConsumerRepo{env.consumerRepo},
		env.eventRepo, env.txManager, logger.NewLogger())

	// A lost race inside the cascade surfaces as a retryable conflict, not an
	// internal failure.
	_, err = revoke.Execute(ctx, RevokePlanCommand{TrainerID: 1, AdminID: 7})
	require.Error(t, err)
	assert.True(t, apperrors.IsConcurrentModificationError(err))

	// The transaction rolled back, so nothing was revoked.
	untouched, err := env.consumerRepo.GetByID(ctx, alice.ID())
	require.NoError(t, err)
	assert.Equal(t, consumer.StatusActive, untouched.Status())
	require.NotNil(t, untouched.Binding())
}
