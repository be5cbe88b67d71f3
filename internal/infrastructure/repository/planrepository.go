package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"traino/internal/domain/catalog"
	"traino/internal/infrastructure/persistence/mappers"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/shared/db"
	"traino/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanMapper
	logger logger.Interface
}

func NewPlanRepository(gdb *gorm.DB, log logger.Interface) catalog.PlanRepository {
	return &PlanRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewPlanMapper(),
		logger: log,
	}
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *catalog.Plan) error {
	model, err := r.mapper.ToModel(plan)
	if err != nil {
		return fmt.Errorf("failed to convert plan to model: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan", "error", err, "slug", plan.Slug())
		return fmt.Errorf("failed to create plan: %w", err)
	}

	if err := plan.SetID(model.ID); err != nil {
		return err
	}

	r.logger.Infow("plan created", "plan_id", model.ID, "slug", plan.Slug())
	return nil
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*catalog.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by ID", "error", err, "plan_id", id)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) GetBySID(ctx context.Context, sid string) (*catalog.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by SID", "error", err, "sid", sid)
		return nil, fmt.Errorf("failed to get plan by SID: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*catalog.Plan, error) {
	var model models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).Where("slug = ?", slug).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by slug", "error", err, "slug", slug)
		return nil, fmt.Errorf("failed to get plan by slug: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, plan *catalog.Plan) error {
	model, err := r.mapper.ToModel(plan)
	if err != nil {
		return fmt.Errorf("failed to convert plan to model: %w", err)
	}

	// Optimistic locking: the update applies only against the version the
	// aggregate was loaded with.
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("id = ? AND version = ?", plan.ID(), plan.BaseVersion()).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"description":   model.Description,
			"slot_limit":    model.SlotLimit,
			"price_cents":   model.PriceCents,
			"currency":      model.Currency,
			"duration_days": model.DurationDays,
			"status":        model.Status,
			"sort_order":    model.SortOrder,
			"metadata":      model.Metadata,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan", "error", result.Error, "plan_id", plan.ID())
		return fmt.Errorf("failed to update plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("plan %d was modified concurrently", plan.ID())
	}

	return nil
}

func (r *PlanRepositoryImpl) ListActive(ctx context.Context) ([]*catalog.Plan, error) {
	var planModels []*models.PlanModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ?", string(catalog.PlanStatusActive)).
		Order("sort_order ASC, id ASC").
		Find(&planModels).Error; err != nil {
		r.logger.Errorw("failed to list active plans", "error", err)
		return nil, fmt.Errorf("failed to list active plans: %w", err)
	}

	return r.mapper.ToEntities(planModels)
}

func (r *PlanRepositoryImpl) List(ctx context.Context, filter catalog.PlanFilter) ([]*catalog.Plan, int64, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count plans: %w", err)
	}

	sortBy := "sort_order ASC, id ASC"
	if filter.SortBy != "" {
		sortBy = filter.SortBy
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var planModels []*models.PlanModel
	if err := query.Order(sortBy).Find(&planModels).Error; err != nil {
		r.logger.Errorw("failed to list plans", "error", err)
		return nil, 0, fmt.Errorf("failed to list plans: %w", err)
	}

	entities, err := r.mapper.ToEntities(planModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

func (r *PlanRepositoryImpl) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).Model(&models.PlanModel{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check plan slug existence: %w", err)
	}
	return count > 0, nil
}
