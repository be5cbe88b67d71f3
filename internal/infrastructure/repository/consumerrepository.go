package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/persistence/mappers"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/shared/db"
	"traino/internal/shared/logger"
)

type ConsumerRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.ConsumerMapper
	logger logger.Interface
}

func NewConsumerRepository(gdb *gorm.DB, log logger.Interface) consumer.Repository {
	return &ConsumerRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewConsumerMapper(),
		logger: log,
	}
}

func (r *ConsumerRepositoryImpl) Create(ctx context.Context, c *consumer.Consumer) error {
	model, err := r.mapper.ToModel(c)
	if err != nil {
		return fmt.Errorf("failed to convert consumer to model: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create consumer", "error", err, "trainer_id", c.TrainerID())
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if err := c.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

func (r *ConsumerRepositoryImpl) GetByID(ctx context.Context, id uint) (*consumer.Consumer, error) {
	var model models.ConsumerModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get consumer by ID", "error", err, "consumer_id", id)
		return nil, fmt.Errorf("failed to get consumer: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *ConsumerRepositoryImpl) GetBySID(ctx context.Context, sid string) (*consumer.Consumer, error) {
	var model models.ConsumerModel
	if err := db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get consumer by SID", "error", err, "sid", sid)
		return nil, fmt.Errorf("failed to get consumer by SID: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *ConsumerRepositoryImpl) Update(ctx context.Context, c *consumer.Consumer) error {
	model, err := r.mapper.ToModel(c)
	if err != nil {
		return fmt.Errorf("failed to convert consumer to model: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).Model(&models.ConsumerModel{}).
		Where("id = ? AND version = ?", c.ID(), c.BaseVersion()).
		Updates(map[string]interface{}{
			"name":                model.Name,
			"status":              model.Status,
			"binding_source":      model.BindingSource,
			"plan_assignment_id":  model.PlanAssignmentID,
			"token_id":            model.TokenID,
			"binding_valid_until": model.BindingValidUntil,
			"version":             model.Version,
			"updated_at":          model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update consumer", "error", result.Error, "consumer_id", c.ID())
		return fmt.Errorf("failed to update consumer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return capacity.ErrConcurrentUpdate
	}

	return nil
}

func (r *ConsumerRepositoryImpl) Delete(ctx context.Context, id uint) error {
	if err := db.GetTxFromContext(ctx, r.db).Delete(&models.ConsumerModel{}, id).Error; err != nil {
		r.logger.Errorw("failed to delete consumer", "error", err, "consumer_id", id)
		return fmt.Errorf("failed to delete consumer: %w", err)
	}

	return nil
}

func (r *ConsumerRepositoryImpl) ListByTrainerID(ctx context.Context, trainerID uint) ([]*consumer.Consumer, error) {
	var consumerModels []*models.ConsumerModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ?", trainerID).
		Order("created_at ASC, id ASC").
		Find(&consumerModels).Error; err != nil {
		r.logger.Errorw("failed to list consumers", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to list consumers: %w", err)
	}

	return r.mapper.ToEntities(consumerModels)
}

func (r *ConsumerRepositoryImpl) CountBoundByTrainerID(ctx context.Context, trainerID uint, now time.Time) (int64, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.ConsumerModel{}).
		Where("trainer_id = ? AND binding_source IS NOT NULL AND binding_valid_until > ?", trainerID, now).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count bound consumers", "error", err, "trainer_id", trainerID)
		return 0, fmt.Errorf("failed to count bound consumers: %w", err)
	}

	return count, nil
}

func (r *ConsumerRepositoryImpl) CountBoundByAssignmentID(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.ConsumerModel{}).
		Where("plan_assignment_id = ?", assignmentID).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count consumers on assignment", "error", err, "assignment_id", assignmentID)
		return 0, fmt.Errorf("failed to count consumers on assignment: %w", err)
	}

	return count, nil
}

func (r *ConsumerRepositoryImpl) ListBoundByAssignmentID(ctx context.Context, assignmentID uint) ([]*consumer.Consumer, error) {
	var consumerModels []*models.ConsumerModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("plan_assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&consumerModels).Error; err != nil {
		r.logger.Errorw("failed to list consumers on assignment", "error", err, "assignment_id", assignmentID)
		return nil, fmt.Errorf("failed to list consumers on assignment: %w", err)
	}

	return r.mapper.ToEntities(consumerModels)
}

func (r *ConsumerRepositoryImpl) BindIfUnbound(ctx context.Context, consumerID uint, binding consumer.ResourceBinding) (bool, error) {
	if err := binding.Validate(); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	source := string(binding.Source)
	validUntil := binding.ValidUntil.UTC()

	result := db.GetTxFromContext(ctx, r.db).Model(&models.ConsumerModel{}).
		Where("id = ? AND binding_source IS NULL", consumerID).
		Updates(map[string]interface{}{
			"binding_source":      source,
			"plan_assignment_id":  binding.PlanAssignmentID,
			"token_id":            binding.TokenID,
			"binding_valid_until": validUntil,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          now,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to bind consumer", "error", result.Error, "consumer_id", consumerID)
		return false, fmt.Errorf("failed to bind consumer: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *ConsumerRepositoryImpl) FindActiveWithLapsedBinding(ctx context.Context, now time.Time) ([]*consumer.Consumer, error) {
	var consumerModels []*models.ConsumerModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND binding_source IS NOT NULL AND binding_valid_until <= ?", string(consumer.StatusActive), now).
		Order("id ASC").
		Find(&consumerModels).Error; err != nil {
		r.logger.Errorw("failed to find consumers with lapsed bindings", "error", err)
		return nil, fmt.Errorf("failed to find consumers with lapsed bindings: %w", err)
	}

	return r.mapper.ToEntities(consumerModels)
}
