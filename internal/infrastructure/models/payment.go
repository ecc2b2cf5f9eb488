package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Email            string    `gorm:"type:varchar(255);not null"`
	Amount           int64     `gorm:"not null"`
	Currency         string    `gorm:"type:varchar(3);not null"`
	Plan             string    `gorm:"type:varchar(16);not null"`
	GatewayOrderID   *string   `gorm:"type:varchar(64);uniqueIndex"`
	GatewayPaymentID *string   `gorm:"type:varchar(64)"`
	Status           string    `gorm:"type:varchar(16);not null;index"`
	FailureReason    *string   `gorm:"type:text"`
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
