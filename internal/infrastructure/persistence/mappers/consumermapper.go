package mappers

import (
	"fmt"

	"traino/internal/domain/capacity"
	"traino/internal/domain/consumer"
	"traino/internal/infrastructure/persistence/models"
)

// ConsumerMapper handles the conversion between domain entities and persistence models
type ConsumerMapper interface {
	ToEntity(model *models.ConsumerModel) (*consumer.Consumer, error)
	ToModel(entity *consumer.Consumer) (*models.ConsumerModel, error)
	ToEntities(models []*models.ConsumerModel) ([]*consumer.Consumer, error)
}

type consumerMapper struct{}

// NewConsumerMapper creates a new consumer mapper
func NewConsumerMapper() ConsumerMapper {
	return &consumerMapper{}
}

func (m *consumerMapper) ToEntity(model *models.ConsumerModel) (*consumer.Consumer, error) {
	if model == nil {
		return nil, nil
	}

	var binding *consumer.ResourceBinding
	if model.BindingSource != nil {
		if model.BindingValidUntil == nil {
			return nil, fmt.Errorf("consumer %d has a binding source without valid-until", model.ID)
		}
		binding = &consumer.ResourceBinding{
			Source:           capacity.BindingSource(*model.BindingSource),
			PlanAssignmentID: model.PlanAssignmentID,
			TokenID:          model.TokenID,
			ValidUntil:       *model.BindingValidUntil,
		}
	}

	entity, err := consumer.ReconstructConsumer(
		model.ID,
		model.SID,
		model.TrainerID,
		model.Name,
		model.Status,
		binding,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct consumer entity: %w", err)
	}

	return entity, nil
}

func (m *consumerMapper) ToModel(entity *consumer.Consumer) (*models.ConsumerModel, error) {
	if entity == nil {
		return nil, nil
	}

	model := &models.ConsumerModel{
		ID:        entity.ID(),
		SID:       entity.SID(),
		TrainerID: entity.TrainerID(),
		Name:      entity.Name(),
		Status:    string(entity.Status()),
		Version:   entity.Version(),
		CreatedAt: entity.CreatedAt(),
		UpdatedAt: entity.UpdatedAt(),
	}

	if binding := entity.Binding(); binding != nil {
		source := binding.Source.String()
		validUntil := binding.ValidUntil
		model.BindingSource = &source
		model.PlanAssignmentID = binding.PlanAssignmentID
		model.TokenID = binding.TokenID
		model.BindingValidUntil = &validUntil
	}

	return model, nil
}

func (m *consumerMapper) ToEntities(consumerModels []*models.ConsumerModel) ([]*consumer.Consumer, error) {
	entities := make([]*consumer.Consumer, 0, len(consumerModels))

	for i, model := range consumerModels {
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
