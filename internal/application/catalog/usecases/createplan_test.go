package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"traino/internal/domain/catalog"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/infrastructure/repository"
	apperrors "traino/internal/shared/errors"
	"traino/internal/shared/logger"
)

func setupCatalogTest(t *testing.T) catalog.PlanRepository {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.PlanModel{}))

	return repository.NewPlanRepository(gdb, logger.NewLogger())
}

func TestCreatePlan(t *testing.T) {
	planRepo := setupCatalogTest(t)
	uc := NewCreatePlanUseCase(planRepo, logger.NewLogger())
	ctx := context.Background()

	t.Run("creates an active plan", func(t *testing.T) {
		plan, err := uc.Execute(ctx, CreatePlanCommand{
			Name: "Pro", Slug: "pro", SlotLimit: 10,
			PriceCents: 9900, Currency: "BRL", DurationDays: 30,
		})
		require.NoError(t, err)
		assert.NotZero(t, plan.ID())
		assert.Equal(t, catalog.PlanStatusActive, plan.Status())
	})

	t.Run("free plans are allowed", func(t *testing.T) {
		plan, err := uc.Execute(ctx, CreatePlanCommand{
			Name: "Free", Slug: "free", SlotLimit: 1,
			Currency: "BRL", DurationDays: 30,
		})
		require.NoError(t, err)
		assert.Zero(t, plan.PriceCents())
	})

	t.Run("rejects a duplicate slug", func(t *testing.T) {
		_, err := uc.Execute(ctx, CreatePlanCommand{
			Name: "Pro Again", Slug: "pro", SlotLimit: 10,
			Currency: "BRL", DurationDays: 30,
		})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeConflict, appErr.Type)
	})

	t.Run("rejects an unknown currency", func(t *testing.T) {
		_, err := uc.Execute(ctx, CreatePlanCommand{
			Name: "Odd", Slug: "odd", SlotLimit: 10,
			Currency: "XYZ", DurationDays: 30,
		})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	})
}

func TestUpdatePlan(t *testing.T) {
	planRepo := setupCatalogTest(t)
	createUC := NewCreatePlanUseCase(planRepo, logger.NewLogger())
	updateUC := NewUpdatePlanUseCase(planRepo, logger.NewLogger())
	ctx := context.Background()

	plan, err := createUC.Execute(ctx, CreatePlanCommand{
		Name: "Pro", Slug: "pro", SlotLimit: 10,
		PriceCents: 9900, Currency: "BRL", DurationDays: 30,
	})
	require.NoError(t, err)

	t.Run("applies several edits in one write", func(t *testing.T) {
		slotLimit := uint(20)
		price := uint64(12900)
		description := "twenty seats"

		updated, err := updateUC.Execute(ctx, UpdatePlanCommand{
			PlanID:      plan.ID(),
			SlotLimit:   &slotLimit,
			PriceCents:  &price,
			Description: &description,
		})
		require.NoError(t, err)

		found, err := planRepo.GetByID(ctx, plan.ID())
		require.NoError(t, err)
		assert.Equal(t, uint(20), found.SlotLimit())
		assert.Equal(t, uint64(12900), found.PriceCents())
		assert.Equal(t, "twenty seats", found.Description())
		assert.Equal(t, updated.Version(), found.Version())
	})

	t.Run("an empty edit writes nothing", func(t *testing.T) {
		before, err := planRepo.GetByID(ctx, plan.ID())
		require.NoError(t, err)

		_, err = updateUC.Execute(ctx, UpdatePlanCommand{PlanID: plan.ID()})
		require.NoError(t, err)

		after, err := planRepo.GetByID(ctx, plan.ID())
		require.NoError(t, err)
		assert.Equal(t, before.Version(), after.Version())
	})

	t.Run("rejects an invalid currency change", func(t *testing.T) {
		currency := "XYZ"
		_, err := updateUC.Execute(ctx, UpdatePlanCommand{PlanID: plan.ID(), Currency: &currency})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
	})

	t.Run("unknown plan is not found", func(t *testing.T) {
		_, err := updateUC.Execute(ctx, UpdatePlanCommand{PlanID: 99999})
		require.Error(t, err)
		appErr := apperrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperrors.ErrorTypeNotFound, appErr.Type)
	})
}

func TestDeactivatePlan(t *testing.T) {
	planRepo := setupCatalogTest(t)
	createUC := NewCreatePlanUseCase(planRepo, logger.NewLogger())
	deactivateUC := NewDeactivatePlanUseCase(planRepo, logger.NewLogger())
	ctx := context.Background()

	plan, err := createUC.Execute(ctx, CreatePlanCommand{
		Name: "Pro", Slug: "pro", SlotLimit: 10,
		Currency: "BRL", DurationDays: 30,
	})
	require.NoError(t, err)

	t.Run("retires the plan", func(t *testing.T) {
		retired, err := deactivateUC.Execute(ctx, DeactivatePlanCommand{PlanID: plan.ID()})
		require.NoError(t, err)
		assert.Equal(t, catalog.PlanStatusInactive, retired.Status())
	})

	t.Run("retiring again is idempotent", func(t *testing.T) {
		retired, err := deactivateUC.Execute(ctx, DeactivatePlanCommand{PlanID: plan.ID()})
		require.NoError(t, err)
		assert.Equal(t, catalog.PlanStatusInactive, retired.Status())
	})

	t.Run("unknown plan is not found", func(t *testing.T) {
		_, err := deactivateUC.Execute(ctx, DeactivatePlanCommand{PlanID: 99999})
		require.Error(t, err)
	})
}

func TestListPlans(t *testing.T) {
	planRepo := setupCatalogTest(t)
	createUC := NewCreatePlanUseCase(planRepo, logger.NewLogger())
	listUC := NewListPlansUseCase(planRepo, logger.NewLogger())
	getUC := NewGetPlanUseCase(planRepo, logger.NewLogger())
	deactivateUC := NewDeactivatePlanUseCase(planRepo, logger.NewLogger())
	ctx := context.Background()

	for _, spec := range []struct {
		name, slug string
		slots      uint
	}{{"Starter", "starter", 3}, {"Pro", "pro", 10}, {"Legacy", "legacy", 5}} {
		_, err := createUC.Execute(ctx, CreatePlanCommand{
			Name: spec.name, Slug: spec.slug, SlotLimit: spec.slots,
			Currency: "BRL", DurationDays: 30,
		})
		require.NoError(t, err)
	}
	legacy, err := planRepo.GetBySlug(ctx, "legacy")
	require.NoError(t, err)
	_, err = deactivateUC.Execute(ctx, DeactivatePlanCommand{PlanID: legacy.ID()})
	require.NoError(t, err)

	t.Run("lists everything by default", func(t *testing.T) {
		result, err := listUC.Execute(ctx, ListPlansQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Total)
	})

	t.Run("filters by status", func(t *testing.T) {
		status := string(catalog.PlanStatusActive)
		result, err := listUC.Execute(ctx, ListPlansQuery{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Total)
	})

	t.Run("gets one plan by SID", func(t *testing.T) {
		plan, err := getUC.Execute(ctx, GetPlanQuery{PlanSID: legacy.SID()})
		require.NoError(t, err)
		assert.Equal(t, legacy.ID(), plan.ID())
	})
}
