package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traino/internal/domain/capacity"
	"traino/internal/shared/logger"
)

func createTestAssignment(t *testing.T, repo capacity.PlanAssignmentRepository, trainerID, planID uint, startAt, expiresAt time.Time) *capacity.PlanAssignment {
	t.Helper()

	assignment, err := capacity.NewPlanAssignment(trainerID, planID, 5, startAt, expiresAt, nil, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), assignment))
	require.NotZero(t, assignment.ID())
	return assignment
}

func TestPlanAssignmentRepository_CreateAndGet(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanAssignmentRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("round-trips an assignment", func(t *testing.T) {
		assignment := createTestAssignment(t, repo, 1, 10, now, now.Add(30*24*time.Hour))

		found, err := repo.GetByID(ctx, assignment.ID())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, uint(10), found.PlanID())
		assert.Equal(t, uint(5), found.SlotLimit())
		assert.True(t, found.Active())
	})

	t.Run("returns nil for missing assignment", func(t *testing.T) {
		found, err := repo.GetByID(ctx, 99999)
		assert.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPlanAssignmentRepository_CurrentVsLatestActive(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanAssignmentRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	// Past-due but still flagged active: the sweep has not run yet.
	lapsed := createTestAssignment(t, repo, 1, 10, now.Add(-48*time.Hour), now.Add(-time.Hour))

	t.Run("current excludes past-due assignments", func(t *testing.T) {
		current, err := repo.GetCurrentByTrainerID(ctx, 1, now)
		require.NoError(t, err)
		assert.Nil(t, current)
	})

	t.Run("latest active still sees them", func(t *testing.T) {
		latest, err := repo.GetLatestActiveByTrainerID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, lapsed.ID(), latest.ID())
	})

	t.Run("newer assignment wins", func(t *testing.T) {
		fresh := createTestAssignment(t, repo, 1, 11, now, now.Add(30*24*time.Hour))

		current, err := repo.GetCurrentByTrainerID(ctx, 1, now)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, fresh.ID(), current.ID())

		latest, err := repo.GetLatestActiveByTrainerID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, fresh.ID(), latest.ID())
	})
}

func TestPlanAssignmentRepository_DeactivateByTrainerID(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanAssignmentRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	createTestAssignment(t, repo, 1, 10, now.Add(-48*time.Hour), now.Add(-time.Hour))
	createTestAssignment(t, repo, 1, 11, now, now.Add(30*24*time.Hour))
	other := createTestAssignment(t, repo, 2, 10, now, now.Add(30*24*time.Hour))

	count, err := repo.DeactivateByTrainerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	latest, err := repo.GetLatestActiveByTrainerID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, latest)

	untouched, err := repo.GetByID(ctx, other.ID())
	require.NoError(t, err)
	assert.True(t, untouched.Active())

	// Nothing left to deactivate.
	count, err = repo.DeactivateByTrainerID(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPlanAssignmentRepository_ExpireDue(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanAssignmentRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	due := createTestAssignment(t, repo, 1, 10, now.Add(-48*time.Hour), now.Add(-time.Hour))
	keep := createTestAssignment(t, repo, 2, 10, now, now.Add(30*24*time.Hour))

	count, err := repo.ExpireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	expired, err := repo.GetByID(ctx, due.ID())
	require.NoError(t, err)
	assert.False(t, expired.Active())

	alive, err := repo.GetByID(ctx, keep.ID())
	require.NoError(t, err)
	assert.True(t, alive.Active())
}

func TestPlanAssignmentRepository_OptimisticUpdate(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewPlanAssignmentRepository(gdb, logger.NewLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	assignment := createTestAssignment(t, repo, 1, 10, now, now.Add(30*24*time.Hour))

	stale, err := repo.GetByID(ctx, assignment.ID())
	require.NoError(t, err)

	t.Run("persists a version-bumped aggregate", func(t *testing.T) {
		assignment.Deactivate()
		require.NoError(t, repo.Update(ctx, assignment))

		found, err := repo.GetByID(ctx, assignment.ID())
		require.NoError(t, err)
		assert.False(t, found.Active())
		assert.Equal(t, assignment.Version(), found.Version())
	})

	t.Run("rejects a stale aggregate", func(t *testing.T) {
		stale.Deactivate()
		err := repo.Update(ctx, stale)
		assert.ErrorIs(t, err, capacity.ErrConcurrentUpdate)
	})
}
