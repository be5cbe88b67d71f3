package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/persistence/mappers"
	"traino/internal/infrastructure/persistence/models"
	"traino/internal/shared/db"
	"traino/internal/shared/logger"
)

type AllocationEventRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.AllocationEventMapper
	logger logger.Interface
}

func NewAllocationEventRepository(gdb *gorm.DB, log logger.Interface) capacity.AllocationEventRepository {
	return &AllocationEventRepositoryImpl{
		db:     gdb,
		mapper: mappers.NewAllocationEventMapper(),
		logger: log,
	}
}

func (r *AllocationEventRepositoryImpl) Create(ctx context.Context, event *capacity.AllocationEvent) error {
	model, err := r.mapper.ToModel(event)
	if err != nil {
		return fmt.Errorf("failed to convert allocation event to model: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to record allocation event", "error", err,
			"trainer_id", event.TrainerID(), "event_type", event.EventType())
		return fmt.Errorf("failed to record allocation event: %w", err)
	}

	event.SetID(model.ID)
	return nil
}

func (r *AllocationEventRepositoryImpl) ListByTrainerID(ctx context.Context, trainerID uint, limit int) ([]*capacity.AllocationEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var eventModels []*models.AllocationEventModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("trainer_id = ?", trainerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		r.logger.Errorw("failed to list allocation events", "error", err, "trainer_id", trainerID)
		return nil, fmt.Errorf("failed to list allocation events: %w", err)
	}

	return r.mapper.ToEntities(eventModels)
}
