package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/shared/logger"
)

func createTestConsumer(t *testing.T, repo consumer.Repository, trainerID uint, name string) *consumer.Consumer {
	t.Helper()

	c, err := consumer.NewConsumer(trainerID, name)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	require.NotZero(t, c.ID())
	return c
}

func planTestBinding(assignmentID uint, validUntil time.Time) consumer.ResourceBinding {
	return consumer.ResourceBinding{
		Source:           capacity.SourcePlan,
		PlanAssignmentID: &assignmentID,
		ValidUntil:       validUntil,
	}
}

func tokenTestBinding(tokenID uint, validUntil time.Time) consumer.ResourceBinding {
	return consumer.ResourceBinding{
		Source:     capacity.SourceToken,
		TokenID:    &tokenID,
		ValidUntil: validUntil,
	}
}

func TestConsumerRepository_CreateAndGet(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewConsumerRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	t.Run("round-trips a consumer", func(t *testing.T) {
		c := createTestConsumer(t, repo, 1, "Alice")

		found, err := repo.GetByID(ctx, c.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Alice", found.Name())
		assert.Equal(t, consumer.StatusActive, found.Status())
		assert.Nil(t, found.Binding())

		bySID, err := repo.GetBySID(ctx, c.SID())
		require.NoError(t, err)
		require.NotNil(t, bySID)
		assert.Equal(t, c.ID(), bySID.ID())
	})

	t.Run("returns nil for missing consumer", func(t *testing.T) {
		found, err := repo.GetByID(ctx, 99999)
		assert.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestConsumerRepository_BindIfUnbound(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewConsumerRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	validUntil := time.Now().UTC().Add(30 * 24 * time.Hour)

	t.Run("binds an unbound consumer once", func(t *testing.T) {
		c := createTestConsumer(t, repo, 1, "Alice")

		ok, err := repo.BindIfUnbound(ctx, c.ID(), planTestBinding(10, validUntil))
		require.NoError(t, err)
		assert.True(t, ok)

		// Already bound, so the conditional write must not apply.
		ok, err = repo.BindIfUnbound(ctx, c.ID(), tokenTestBinding(20, validUntil))
		require.NoError(t, err)
		assert.False(t, ok)

		found, err := repo.GetByID(ctx, c.ID())
		require.NoError(t, err)
		require.NotNil(t, found.Binding())
		assert.Equal(t, capacity.SourcePlan, found.Binding().Source)
		require.NotNil(t, found.Binding().PlanAssignmentID)
		assert.Equal(t, uint(10), *found.Binding().PlanAssignmentID)
	})

	t.Run("rejects an invalid binding", func(t *testing.T) {
		c := createTestConsumer(t, repo, 1, "Bob")

		_, err := repo.BindIfUnbound(ctx, c.ID(), consumer.ResourceBinding{Source: "bogus"})
		assert.Error(t, err)
	})
}

func TestConsumerRepository_CountBoundByTrainerID(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewConsumerRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()
	validUntil := now.Add(30 * 24 * time.Hour)

	alice := createTestConsumer(t, repo, 1, "Alice")
	bob := createTestConsumer(t, repo, 1, "Bob")
	createTestConsumer(t, repo, 1, "Carol") // never bound
	other := createTestConsumer(t, repo, 2, "Dave")

	for _, c := range []*consumer.Consumer{alice, bob, other} {
		ok, err := repo.BindIfUnbound(ctx, c.ID(), tokenTestBinding(c.ID(), validUntil))
		require.NoError(t, err)
		require.True(t, ok)
	}

	count, err := repo.CountBoundByTrainerID(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	t.Run("deactivated consumers keep occupying capacity", func(t *testing.T) {
		bound, err := repo.GetByID(ctx, bob.ID())
		require.NoError(t, err)
		bound.Deactivate()
		require.NoError(t, repo.Update(ctx, bound))

		count, err := repo.CountBoundByTrainerID(ctx, 1, now)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("lapsed bindings consume nothing", func(t *testing.T) {
		count, err := repo.CountBoundByTrainerID(ctx, 1, validUntil.Add(time.Minute))
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("deletion frees the slot", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, bob.ID()))

		count, err := repo.CountBoundByTrainerID(ctx, 1, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		found, err := repo.GetByID(ctx, bob.ID())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestConsumerRepository_ByAssignment(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewConsumerRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	validUntil := time.Now().UTC().Add(30 * 24 * time.Hour)

	alice := createTestConsumer(t, repo, 1, "Alice")
	bob := createTestConsumer(t, repo, 1, "Bob")
	carol := createTestConsumer(t, repo, 1, "Carol")

	for _, c := range []*consumer.Consumer{alice, bob} {
		ok, err := repo.BindIfUnbound(ctx, c.ID(), planTestBinding(10, validUntil))
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := repo.BindIfUnbound(ctx, carol.ID(), planTestBinding(11, validUntil))
	require.NoError(t, err)
	require.True(t, ok)

	count, err := repo.CountBoundByAssignmentID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	bound, err := repo.ListBoundByAssignmentID(ctx, 10)
	require.NoError(t, err)
	require.Len(t, bound, 2)
	assert.Equal(t, alice.ID(), bound[0].ID())
	assert.Equal(t, bob.ID(), bound[1].ID())
}

func TestConsumerRepository_FindActiveWithLapsedBinding(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewConsumerRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	lapsed := createTestConsumer(t, repo, 1, "Alice")
	current := createTestConsumer(t, repo, 1, "Bob")
	lapsedInactive := createTestConsumer(t, repo, 1, "Carol")

	ok, err := repo.BindIfUnbound(ctx, lapsed.ID(), tokenTestBinding(1, now.Add(-time.Hour)))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.BindIfUnbound(ctx, current.ID(), tokenTestBinding(2, now.Add(time.Hour)))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.BindIfUnbound(ctx, lapsedInactive.ID(), tokenTestBinding(3, now.Add(-time.Hour)))
	require.NoError(t, err)
	require.True(t, ok)

	bound, err := repo.GetByID(ctx, lapsedInactive.ID())
	require.NoError(t, err)
	bound.Deactivate()
	require.NoError(t, repo.Update(ctx, bound))

	found, err := repo.FindActiveWithLapsedBinding(ctx, now)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, lapsed.ID(), found[0].ID())
}

func TestConsumerRepository_OptimisticUpdate(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewConsumerRepository(gdb, logger.NewLogger())
	ctx := context.Background()

	c := createTestConsumer(t, repo, 1, "Alice")

	t.Run("persists a version-bumped aggregate", func(t *testing.T) {
		c.Deactivate()
		require.NoError(t, repo.Update(ctx, c))

		found, err := repo.GetByID(ctx, c.ID())
		require.NoError(t, err)
		assert.Equal(t, consumer.StatusInactive, found.Status())
		assert.Equal(t, c.Version(), found.Version())
	})

	t.Run("rejects a stale aggregate", func(t *testing.T) {
		stale, err := repo.GetByID(ctx, c.ID())
		require.NoError(t, err)
		stale.Activate()

		fresh, err := repo.GetByID(ctx, c.ID())
		require.NoError(t, err)
		fresh.Activate()
		require.NoError(t, repo.Update(ctx, fresh))

		err = repo.Update(ctx, stale)
		assert.ErrorIs(t, err, capacity.ErrConcurrentUpdate)
	})
}
