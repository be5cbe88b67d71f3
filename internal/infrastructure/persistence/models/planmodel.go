package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"traino/internal/domain/catalog"
	"traino/internal/shared/constants"
)

// PlanModel represents the database persistence model for catalog plans.
// This is the anti-corruption layer between domain and database.
type PlanModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"column:sid;uniqueIndex;not null;size:20"`
	Name         string `gorm:"not null;size:100"`
	Slug         string `gorm:"uniqueIndex;not null;size:100"`
	Description  string `gorm:"size:500"`
	SlotLimit    uint   `gorm:"not null;default:0"`
	PriceCents   uint64 `gorm:"not null;default:0"`
	Currency     string `gorm:"not null;size:3"`
	DurationDays int    `gorm:"not null;default:30"`
	Status       string `gorm:"not null;size:20;default:active;index"`
	SortOrder    int    `gorm:"default:0"`
	Metadata     datatypes.JSON
	Version      int `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}

// BeforeCreate hook for GORM
func (p *PlanModel) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = string(catalog.PlanStatusActive)
	}
	if p.Currency == "" {
		p.Currency = constants.DefaultCurrency
	}
	return nil
}
