package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/persistence/mappers"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/shared/db"
	"traino/internal/shared/logger"
)

type PlanAssignmentRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PlanAssignmentMapper
	logger logger.Interface
}

func NewPlanAssignmentRepository(gdb *gorm.DB, log logger.Interface) capacity.PlanAssignmentRepository {
	return &PlanAssignmentRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewPlanAssignmentMapper(),
		logger: log,
	}
}

func (r *PlanAssignmentRepositoryImpl) Create(ctx context.Context, assignment *capacity.PlanAssignment) error {
	model, err := r.mapper.ToModel(assignment)
	if err != nil {
		return fmt.Errorf("failed to convert plan assignment to model: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create plan assignment", "error", err, "trainer_id", assignment.TrainerID())
		return fmt.Errorf("failed to create plan assignment: %w", err)
	}

	if err := assignment.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

func (r *PlanAssignmentRepositoryImpl) GetByID(ctx context.Context, id uint) (*capacity.PlanAssignment, error) {
	var model models.PlanAssignmentModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan assignment by ID", "error", err, "assignment_id", id)
		return nil, fmt.Errorf("failed to get plan assignment: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanAssignmentRepositoryImpl) Update(ctx context.Context, assignment *capacity.PlanAssignment) error {
	model, err := r.mapper.ToModel(assignment)
	if err != nil {
		return fmt.Errorf("failed to convert plan assignment to model: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanAssignmentModel{}).
		Where("id = ? AND version = ?", assignment.ID(), assignment.BaseVersion()).
		Updates(map[string]interface{}{
			"active":     model.Active,
			"expires_at": model.ExpiresAt,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update plan assignment", "error", result.Error, "assignment_id", assignment.ID())
		return fmt.Errorf("failed to update plan assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return capacity.ErrConcurrentUpdate
	}

	return nil
}

func (r *PlanAssignmentRepositoryImpl) GetCurrentByTrainerID(ctx context.Context, trainerID uint, now time.Time) (*capacity.PlanAssignment, error) {
	var model models.PlanAssignmentModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ? AND active = ? AND expires_at > ?", trainerID, true, now).
		Order("created_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get current plan assignment", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to get current plan assignment: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanAssignmentRepositoryImpl) GetLatestActiveByTrainerID(ctx context.Context, trainerID uint) (*capacity.PlanAssignment, error) {
	var model models.PlanAssignmentModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ? AND active = ?", trainerID, true).
		Order("created_at DESC, id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get latest active plan assignment", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to get latest active plan assignment: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *PlanAssignmentRepositoryImpl) ListByTrainerID(ctx context.Context, trainerID uint) ([]*capacity.PlanAssignment, error) {
	var assignmentModels []*models.PlanAssignmentModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ?", trainerID).
		Order("created_at DESC, id DESC").
		Find(&assignmentModels).Error; err != nil {
		r.logger.Errorw("failed to list plan assignments", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to list plan assignments: %w", err)
	}

	return r.mapper.ToEntities(assignmentModels)
}

func (r *PlanAssignmentRepositoryImpl) DeactivateByTrainerID(ctx context.Context, trainerID uint) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanAssignmentModel{}).
		Where("trainer_id = ? AND active = ?", trainerID, true).
		Updates(map[string]interface{}{
			"active":     false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to deactivate plan assignments", "error", result.Error, "trainer_id", trainerID)
		return 0, fmt.Errorf("failed to deactivate plan assignments: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *PlanAssignmentRepositoryImpl) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PlanAssignmentModel{}).
		Where("active = ? AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{
			"active":     false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to expire plan assignments", "error", result.Error)
		return 0, fmt.Errorf("failed to expire plan assignments: %w", result.Error)
	}

	return result.RowsAffected, nil
}
