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

type CapacityTokenRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.CapacityTokenMapper
	logger logger.Interface
}

func NewCapacityTokenRepository(gdb *gorm.DB, log logger.Interface) capacity.TokenRepository {
	return &CapacityTokenRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewCapacityTokenMapper(),
		logger: log,
	}
}

func (r *CapacityTokenRepositoryImpl) Create(ctx context.Context, token *capacity.Token) error {
	model, err := r.mapper.ToModel(token)
	if err != nil {
		return fmt.Errorf("failed to convert token to model: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create capacity token", "error", err, "trainer_id", token.TrainerID())
		return fmt.Errorf("failed to create capacity token: %w", err)
	}

	if err := token.SetID(model.ID); err != nil {
		return err
	}

	return nil
}

func (r *CapacityTokenRepositoryImpl) CreateBatch(ctx context.Context, tokens []*capacity.Token) error {
	if len(tokens) == 0 {
		return nil
	}

	tokenModels := make([]*models.CapacityTokenModel, 0, len(tokens))
	for i, token := range tokens {
		model, err := r.mapper.ToModel(token)
		if err != nil {
			return fmt.Errorf("failed to convert token at index %d: %w", i, err)
		}
		tokenModels = append(tokenModels, model)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(&tokenModels).Error; err != nil {
		r.logger.Errorw("failed to create token batch", "error", err, "count", len(tokens))
		return fmt.Errorf("failed to create token batch: %w", err)
	}

	for i, model := range tokenModels {
		if err := tokens[i].SetID(model.ID); err != nil {
			return err
		}
	}

	return nil
}

func (r *CapacityTokenRepositoryImpl) GetByID(ctx context.Context, id uint) (*capacity.Token, error) {
	var model models.CapacityTokenModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get token by ID", "error", err, "token_id", id)
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *CapacityTokenRepositoryImpl) GetBySID(ctx context.Context, sid string) (*capacity.Token, error) {
	var model models.CapacityTokenModel
	if err := db.GetTxFromContext(ctx, r.db).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get token by SID", "error", err, "sid", sid)
		return nil, fmt.Errorf("failed to get token by SID: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *CapacityTokenRepositoryImpl) Update(ctx context.Context, token *capacity.Token) error {
	model, err := r.mapper.ToModel(token)
	if err != nil {
		return fmt.Errorf("failed to convert token to model: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("id = ? AND version = ?", token.ID(), token.BaseVersion()).
		Updates(map[string]interface{}{
			"quantity":          model.Quantity,
			"active":            model.Active,
			"bound_consumer_id": model.BoundConsumerID,
			"bound_at":          model.BoundAt,
			"version":           model.Version,
			"updated_at":        model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update token", "error", result.Error, "token_id", token.ID())
		return fmt.Errorf("failed to update token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return capacity.ErrConcurrentUpdate
	}

	return nil
}

func (r *CapacityTokenRepositoryImpl) ListByTrainerID(ctx context.Context, trainerID uint) ([]*capacity.Token, error) {
	var tokenModels []*models.CapacityTokenModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ?", trainerID).
		Order("expires_at ASC, id ASC").
		Find(&tokenModels).Error; err != nil {
		r.logger.Errorw("failed to list tokens", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	return r.mapper.ToEntities(tokenModels)
}

func (r *CapacityTokenRepositoryImpl) SumAvailableQuantity(ctx context.Context, trainerID uint, now time.Time) (int64, error) {
	var total int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("trainer_id = ? AND active = ? AND bound_consumer_id IS NULL AND expires_at > ?", trainerID, true, now).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		r.logger.Errorw("failed to sum available token quantity", "error", err, "trainer_id", trainerID)
		return 0, fmt.Errorf("failed to sum available token quantity: %w", err)
	}

	return total, nil
}

func (r *CapacityTokenRepositoryImpl) SumConsumedQuantity(ctx context.Context, trainerID uint) (int64, error) {
	var total int64
	err := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("trainer_id = ? AND active = ? AND bound_consumer_id IS NOT NULL", trainerID, true).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		r.logger.Errorw("failed to sum consumed token quantity", "error", err, "trainer_id", trainerID)
		return 0, fmt.Errorf("failed to sum consumed token quantity: %w", err)
	}

	return total, nil
}

func (r *CapacityTokenRepositoryImpl) FindSoonestAvailable(ctx context.Context, trainerID uint, now time.Time) (*capacity.Token, error) {
	var model models.CapacityTokenModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ? AND active = ? AND bound_consumer_id IS NULL AND expires_at > ?", trainerID, true, now).
		Order("expires_at ASC, id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to find available token", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to find available token: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *CapacityTokenRepositoryImpl) BindIfAvailable(ctx context.Context, tokenID, consumerID uint, now time.Time) (bool, error) {
	boundAt := now.UTC()
	result := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("id = ? AND active = ? AND bound_consumer_id IS NULL AND expires_at > ?", tokenID, true, now).
		Updates(map[string]interface{}{
			"bound_consumer_id": consumerID,
			"bound_at":          boundAt,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        boundAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to bind token", "error", result.Error, "token_id", tokenID, "consumer_id", consumerID)
		return false, fmt.Errorf("failed to bind token: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *CapacityTokenRepositoryImpl) DecrementIfAvailable(ctx context.Context, tokenID uint, amount uint, now time.Time) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("id = ? AND active = ? AND bound_consumer_id IS NULL AND expires_at > ? AND quantity > ?", tokenID, true, now, amount).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", amount),
			"version":    gorm.Expr("version + 1"),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to decrement token quantity", "error", result.Error, "token_id", tokenID)
		return false, fmt.Errorf("failed to decrement token quantity: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

func (r *CapacityTokenRepositoryImpl) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("active = ? AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{
			"active":            false,
			"bound_consumer_id": nil,
			"bound_at":          nil,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        now.UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to expire tokens", "error", result.Error)
		return 0, fmt.Errorf("failed to expire tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (r *CapacityTokenRepositoryImpl) DeactivateByID(ctx context.Context, tokenID uint, now time.Time) error {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.CapacityTokenModel{}).
		Where("id = ? AND active = ?", tokenID, true).
		Updates(map[string]interface{}{
			"active":            false,
			"bound_consumer_id": nil,
			"bound_at":          nil,
			"version":           gorm.Expr("version + 1"),
			"updated_at":        now.UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to deactivate token", "error", result.Error, "token_id", tokenID)
		return fmt.Errorf("failed to deactivate token: %w", result.Error)
	}

	return nil
}
