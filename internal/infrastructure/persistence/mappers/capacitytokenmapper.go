package mappers

import (
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/infrastructure/persistence/models"
)

// CapacityTokenMapper handles the conversion between domain entities and persistence models
type CapacityTokenMapper interface {
	ToEntity(model *models.CapacityTokenModel) (*capacity.Token, error)
	ToModel(entity *capacity.Token) (*models.CapacityTokenModel, error)
	ToEntities(models []*models.CapacityTokenModel) ([]*capacity.Token, error)
}

type capacityTokenMapper struct{}

// NewCapacityTokenMapper creates a new capacity token mapper
func NewCapacityTokenMapper() CapacityTokenMapper {
	return &capacityTokenMapper{}
}

func (m *capacityTokenMapper) ToEntity(model *models.CapacityTokenModel) (*capacity.Token, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := capacity.ReconstructToken(
		model.ID,
		model.SID,
		model.TrainerID,
		model.Quantity,
		model.ExpiresAt,
		model.Active,
		model.BoundConsumerID,
		model.BoundAt,
		model.CreatedBy,
		model.Reason,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct token entity: %w", err)
	}

	return entity, nil
}

func (m *capacityTokenMapper) ToModel(entity *capacity.Token) (*models.CapacityTokenModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.CapacityTokenModel{
		ID:              entity.ID(),
		SID:             entity.SID(),
		TrainerID:       entity.TrainerID(),
		Quantity:        entity.Quantity(),
		ExpiresAt:       entity.ExpiresAt(),
		Active:          entity.Active(),
		BoundConsumerID: entity.BoundConsumerID(),
		BoundAt:         entity.BoundAt(),
		CreatedBy:       entity.CreatedBy(),
		Reason:          entity.Reason(),
		Version:         entity.Version(),
		CreatedAt:       entity.CreatedAt(),
		UpdatedAt:       entity.UpdatedAt(),
	}, nil
}

func (m *capacityTokenMapper) ToEntities(tokenModels []*models.CapacityTokenModel) ([]*capacity.Token, error) {
	entities := make([]*capacity.Token, 0, len(tokenModels))

	for i, model := range tokenModels {
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
