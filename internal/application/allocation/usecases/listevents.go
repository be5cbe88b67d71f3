package usecases

import (
	"context"
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/shared/logger"
)

type ListAllocationEventsQuery struct {
	TrainerID uint
	Limit     int
}

// ListAllocationEventsUseCase reads a trainer's capacity audit trail, newest
// first.
type ListAllocationEventsUseCase struct {
	eventRepo capacity.AllocationEventRepository
	logger    logger.Interface
}

func NewListAllocationEventsUseCase(eventRepo capacity.AllocationEventRepository, logger logger.Interface) *ListAllocationEventsUseCase {
	return &ListAllocationEventsUseCase{
		eventRepo: eventRepo,
		logger:    logger,
	}
}

func (uc *ListAllocationEventsUseCase) Execute(ctx context.Context, query ListAllocationEventsQuery) ([]*capacity.AllocationEvent, error) {
	events, err := uc.eventRepo.ListByTrainerID(ctx, query.TrainerID, query.Limit)
	if err != nil {
		uc.logger.Errorw("failed to list allocation events", "error", err, "trainer_id", query.TrainerID)
		return nil, fmt.Errorf("failed to list allocation events: %w", err)
	}
	return events, nil
}
