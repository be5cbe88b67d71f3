package models

import (
	"time"

	"traino/internal/shared/constants"
)

// CapacityTokenModel represents the database persistence model for purchased
// capacity tokens. A NULL bound_consumer_id means the token is unconsumed.
type CapacityTokenModel struct {
	ID              uint      `gorm:"primarykey"`
	SID             string    `gorm:"column:sid;uniqueIndex;not null;size:20"`
	TrainerID       uint      `gorm:"not null;index:idx_token_trainer_active"`
	Quantity        uint      `gorm:"not null;default:1"`
	ExpiresAt       time.Time `gorm:"not null;index"`
	Active          bool      `gorm:"not null;default:true;index:idx_token_trainer_active"`
	BoundConsumerID *uint     `gorm:"index"`
	BoundAt         *time.Time
	CreatedBy       *uint
	Reason          *string `gorm:"size:500"`
	Version         int     `gorm:"not null;default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName specifies the table name for GORM
func (CapacityTokenModel) TableName() string {
	return constants.TableCapacityTokens
}
