package models

import (
	"time"

	"gorm.io/datatypes"

	"traino/internal/shared/constants"
)

// AllocationEventModel represents the append-only audit trail of capacity
// mutations. Rows are never updated or deleted.
type AllocationEventModel struct {
	ID               uint    `gorm:"primarykey"`
	TrainerID        uint    `gorm:"not null;index"`
	EventType        string  `gorm:"not null;size:30;index"`
	Source           *string `gorm:"size:10"`
	PlanAssignmentID *uint
	TokenID          *uint
	ConsumerID       *uint `gorm:"index"`
	ValidUntil       *time.Time
	ActorID          *uint
	Metadata         datatypes.JSON
	CreatedAt        time.Time `gorm:"index"`
}

// TableName specifies the table name for GORM
func (AllocationEventModel) TableName() string {
	return constants.TableAllocationEvents
}
