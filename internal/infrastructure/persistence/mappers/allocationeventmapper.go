package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/persistence/models"
)

// AllocationEventMapper handles the conversion between domain entities and persistence models
type AllocationEventMapper interface {
	ToEntity(model *models.AllocationEventModel) (*capacity.AllocationEvent, error)
	ToModel(entity *capacity.AllocationEvent) (*models.AllocationEventModel, error)
	ToEntities(models []*models.AllocationEventModel) ([]*capacity.AllocationEvent, error)
}

type allocationEventMapper struct{}

// NewAllocationEventMapper creates a new allocation event mapper
func NewAllocationEventMapper() AllocationEventMapper {
	return &allocationEventMapper{}
}

func (m *allocationEventMapper) ToEntity(model *models.AllocationEventModel) (*capacity.AllocationEvent, error) {
	if model == nil {
		return nil, nil
	}

	var source *capacity.BindingSource
	if model.Source != nil {
		s := capacity.BindingSource(*model.Source)
		source = &s
	}

	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	entity, err := capacity.ReconstructAllocationEvent(
		model.ID,
		model.TrainerID,
		model.EventType,
		source,
		model.PlanAssignmentID,
		model.TokenID,
		model.ConsumerID,
		model.ValidUntil,
		model.ActorID,
		metadata,
		model.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct allocation event entity: %w", err)
	}

	return entity, nil
}

func (m *allocationEventMapper) ToModel(entity *capacity.AllocationEvent) (*models.AllocationEventModel, error) {
	if entity == nil {
		return nil, nil
	}

	var source *string
	if s := entity.Source(); s != nil {
		str := s.String()
		source = &str
	}

	var metadataJSON datatypes.JSON
	if metadata := entity.Metadata(); len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.AllocationEventModel{
		ID:               entity.ID(),
		TrainerID:        entity.TrainerID(),
		EventType:        entity.EventType(),
		Source:           source,
		PlanAssignmentID: entity.PlanAssignmentID(),
		TokenID:          entity.TokenID(),
		ConsumerID:       entity.ConsumerID(),
		ValidUntil:       entity.ValidUntil(),
		ActorID:          entity.ActorID(),
		Metadata:         metadataJSON,
		CreatedAt:        entity.CreatedAt(),
	}, nil
}

func (m *allocationEventMapper) ToEntities(eventModels []*models.AllocationEventModel) ([]*capacity.AllocationEvent, error) {
	entities := make([]*capacity.AllocationEvent, 0, len(eventModels))

	for i, model := range eventModels {
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
