package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"traino/internal/domain/catalog"
	"traino/internal/infrastructure/persistence/models"
)

// PlanMapper handles the conversion between domain entities and persistence models
type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*catalog.Plan, error)
	ToModel(entity *catalog.Plan) (*models.PlanModel, error)
	ToEntities(models []*models.PlanModel) ([]*catalog.Plan, error)
}

type planMapper struct{}

// NewPlanMapper creates a new plan mapper
func NewPlanMapper() PlanMapper {
	return &planMapper{}
}

func (m *planMapper) ToEntity(model *models.PlanModel) (*catalog.Plan, error) {
	if model == nil {
		return nil, nil
	}

	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	entity, err := catalog.ReconstructPlan(
		model.ID,
		model.SID,
		model.Name,
		model.Slug,
		model.Description,
		model.SlotLimit,
		model.PriceCents,
		model.Currency,
		model.DurationDays,
		model.Status,
		model.SortOrder,
		metadata,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct plan entity: %w", err)
	}

	return entity, nil
}

func (m *planMapper) ToModel(entity *catalog.Plan) (*models.PlanModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if metadata := entity.Metadata(); len(metadata) > 0 {
		data, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = data
	}

	return &models.PlanModel{
		ID:           entity.ID(),
		SID:          entity.SID(),
		Name:         entity.Name(),
		Slug:         entity.Slug(),
		Description:  entity.Description(),
		SlotLimit:    entity.SlotLimit(),
		PriceCents:   entity.PriceCents(),
		Currency:     entity.Currency(),
		DurationDays: entity.DurationDays(),
		Status:       string(entity.Status()),
		SortOrder:    entity.SortOrder(),
		Metadata:     metadataJSON,
		Version:      entity.Version(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}, nil
}

func (m *planMapper) ToEntities(planModels []*models.PlanModel) ([]*catalog.Plan, error) {
	entities := make([]*catalog.Plan, 0, len(planModels))

	for i, model := range planModels {
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
