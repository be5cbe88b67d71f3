package models

import (
	"time"

	"traino/internal/shared/constants"
)

// PlanAssignmentModel represents the database persistence model for a
// trainer's subscription instance. Superseded assignments stay as rows with
// active=false; history is never deleted.
type PlanAssignmentModel struct {
	ID         uint      `gorm:"primarykey"`
	SID        string    `gorm:"column:sid;uniqueIndex;not null;size:20"`
	TrainerID  uint      `gorm:"not null;index:idx_assignment_trainer_active"`
	PlanID     uint      `gorm:"not null;index"`
	SlotLimit  uint      `gorm:"not null;default:0"`
	StartAt    time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	Active     bool      `gorm:"not null;default:true;index:idx_assignment_trainer_active"`
	AssignedBy *uint
	Reason     *string `gorm:"size:500"`
	Version    int     `gorm:"not null;default:1"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (PlanAssignmentModel) TableName() string {
	return constants.TablePlanAssignments
}
