package mappers

import (
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/persistence/models"
)

// PlanAssignmentMapper handles the conversion between domain entities and persistence models
type PlanAssignmentMapper interface {
	ToEntity(model *models.PlanAssignmentModel) (*capacity.PlanAssignment, error)
	ToModel(entity *capacity.PlanAssignment) (*models.PlanAssignmentModel, error)
	ToEntities(models []*models.PlanAssignmentModel) ([]*capacity.PlanAssignment, error)
}

type planAssignmentMapper struct{}

// NewPlanAssignmentMapper creates a new plan assignment mapper
func NewPlanAssignmentMapper() PlanAssignmentMapper {
	return &planAssignmentMapper{}
}

func (m *planAssignmentMapper) ToEntity(model *models.PlanAssignmentModel) (*capacity.PlanAssignment, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := capacity.ReconstructPlanAssignment(
		model.ID,
		model.SID,
		model.TrainerID,
		model.PlanID,
		model.SlotLimit,
		model.StartAt,
		model.ExpiresAt,
		model.Active,
		model.AssignedBy,
		model.Reason,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan assignment entity: %w", err)
	}

	return entity, nil
}

func (m *planAssignmentMapper) ToModel(entity *capacity.PlanAssignment) (*models.PlanAssignmentModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.PlanAssignmentModel{
		ID:         entity.ID(),
		SID:        entity.SID(),
		TrainerID:  entity.TrainerID(),
		PlanID:     entity.PlanID(),
		SlotLimit:  entity.SlotLimit(),
		StartAt:    entity.StartAt(),
		ExpiresAt:  entity.ExpiresAt(),
		Active:     entity.Active(),
		AssignedBy: entity.AssignedBy(),
		Reason:     entity.Reason(),
		Version:    entity.Version(),
		CreatedAt:  entity.CreatedAt(),
		UpdatedAt:  entity.UpdatedAt(),
	}, nil
}

func (m *planAssignmentMapper) ToEntities(assignmentModels []*models.PlanAssignmentModel) ([]*capacity.PlanAssignment, error) {
	entities := make([]*capacity.PlanAssignment, 0, len(assignmentModels))

	for i, model := range assignmentModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map model at index %d (ID %d): %w", i, model.ID, err)
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}

	return entities, nil
}
