package models

import (
	"time"

	"gorm.io/gorm"

	"traino/internal/shared/constants"
)

// ConsumerModel represents the database persistence model for a trainer's
// student. The binding descriptor is flattened into nullable columns; a NULL
// binding_source means the consumer is unbound.
type ConsumerModel struct {
	ID                uint   `gorm:"primarykey"`
	SID               string `gorm:"column:sid;uniqueIndex;not null;size:20"`
	TrainerID         uint   `gorm:"not null;index"`
	Name              string `gorm:"not null;size:150"`
	Status            string `gorm:"not null;size:20;default:active;index"`
	BindingSource     *string `gorm:"size:10;index"`
	PlanAssignmentID  *uint   `gorm:"index"`
	TokenID           *uint   `gorm:"index"`
	BindingValidUntil *time.Time
	Version           int `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (ConsumerModel) TableName() string {
	return constants.TableConsumers
}

// BeforeCreate hook for GORM
func (c *ConsumerModel) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = constants.ConsumerStatusActive
	}
	return nil
}
