package migration

import (
	"traino/internal/infrastructure/persistence/models"
)

func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.PlanModel{},
		&models.PlanAssignmentModel{},
		&models.CapacityTokenModel{},
		&models.ConsumerModel{},
		&models.AllocationEventModel{},
	}
}
