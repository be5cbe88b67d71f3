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
	"traino/internal/domain/catalog"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/infrastructure/repository"
	"traino/internal/shared/db"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

type adminTestEnv struct {
	planRepo       catalog.PlanRepository
	assignmentRepo capacity.PlanAssignmentRepository
	consumerRepo   consumer.Repository
	tokenRepo      capacity.TokenRepository
	eventRepo      capacity.AllocationEventRepository
	txManager      *db.TransactionManager
	assignPlan     *AssignPlanUseCase
	revokePlan     *RevokePlanUseCase
}

func setupAdminTest(t *testing.T) *adminTestEnv {
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
	env := &adminTestEnv{
		planRepo:       repository.NewPlanRepository(gdb, log),
		assignmentRepo: repository.NewPlanAssignmentRepository(gdb, log),
		consumerRepo:   repository.NewConsumerRepository(gdb, log),
		tokenRepo:      repository.NewCapacityTokenRepository(gdb, log),
		eventRepo:      repository.NewAllocationEventRepository(gdb, log),
	}
	env.txManager = db.NewTransactionManager(gdb)
	env.assignPlan = NewAssignPlanUseCase(env.planRepo, env.assignmentRepo, env.eventRepo, env.txManager, log)
	env.revokePlan = NewRevokePlanUseCase(env.assignmentRepo, env.consumerRepo, env.eventRepo, env.txManager, log)
	return env
}

func (env *adminTestEnv) newPlan(t *testing.T, name, slug string, slotLimit uint, durationDays int) *catalog.Plan {
	t.Helper()
	plan, err := catalog.NewPlan(name, slug, "", slotLimit, 4990, "BRL", durationDays)
	require.NoError(t, err)
	require.NoError(t, env.planRepo.Create(context.Background(), plan))
	return plan
}

func TestAssignPlan(t *testing.T) {
	env := setupAdminTest(t)
	ctx := context.Background()

	plan := env.newPlan(t, "Pro", "pro", 10, 30)

	t.Run("creates an assignment snapshotting the plan", func(t *testing.T) {
		result, err := env.assignPlan.Execute(ctx, AssignPlanCommand{
			TrainerID: 1, PlanID: plan.ID(), AdminID: 7, Reason: "manual upgrade",
		})
		require.NoError(t, err)
		require.NotNil(t, result.Assignment)
		assert.Zero(t, result.Superseded)
		assert.Equal(t, plan.ID(), result.Assignment.PlanID())
		assert.Equal(t, uint(10), result.Assignment.SlotLimit())
		require.NotNil(t, result.Assignment.AssignedBy())
		assert.Equal(t, uint(7), *result.Assignment.AssignedBy())

		wantExpiry := time.Now().UTC().AddDate(0, 0, 30)
		assert.WithinDuration(t, wantExpiry, result.Assignment.ExpiresAt(), time.Minute)
	})

	t.Run("supersedes the prior assignment", func(t *testing.T) {
		result, err := env.assignPlan.Execute(ctx, AssignPlanCommand{
			TrainerID: 1, PlanID: plan.ID(), AdminID: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Superseded)

		latest, err := env.assignmentRepo.GetLatestActiveByTrainerID(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, result.Assignment.ID(), latest.ID())
	})

	t.Run("honors a duration override", func(t *testing.T) {
		result, err := env.assignPlan.Execute(ctx, AssignPlanCommand{
			TrainerID: 2, PlanID: plan.ID(), AdminID: 7, DurationOverrideDays: 90,
		})
		require.NoError(t, err)

		wantExpiry := time.Now().UTC().AddDate(0, 0, 90)
		assert.WithinDuration(t, wantExpiry, result.Assignment.ExpiresAt(), time.Minute)
	})

	t.Run("resolves the plan by SID", func(t *testing.T) {
		result, err := env.assignPlan.Execute(ctx, AssignPlanCommand{
			TrainerID: 3, PlanSID: plan.SID(), AdminID: 7,
		})
		require.NoError(t, err)
		assert.Equal(t, plan.ID(), result.Assignment.PlanID())
	})

	t.Run("rejects a missing plan", func(t *testing.T) {
		_, err := env.assignPlan.Execute(ctx, AssignPlanCommand{TrainerID: 4, PlanID: 99999, AdminID: 7})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
	})

	t.Run("rejects an inactive plan", func(t *testing.T) {
		retired := env.newPlan(t, "Legacy", "legacy", 5, 30)
		require.NoError(t, retired.Deactivate())
		require.NoError(t, env.planRepo.Update(ctx, retired))

		_, err := env.assignPlan.Execute(ctx, AssignPlanCommand{TrainerID: 4, PlanID: retired.ID(), AdminID: 7})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	})
}
