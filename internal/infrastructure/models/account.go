package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email           string     `gorm:"type:varchar(255);not null"`
	EmailNormalized string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name            string     `gorm:"type:varchar(100);not null"`
	Phone           string     `gorm:"type:varchar(32);not null"`
	CredentialHash  string     `gorm:"type:varchar(255);not null"`
	Role            string     `gorm:"type:varchar(16);not null;default:'user';index"`
	Plan            string     `gorm:"type:varchar(16);not null;default:'free'"`
	Currency        *string    `gorm:"type:varchar(3)"`
	Status          string     `gorm:"type:varchar(16);not null;default:'active'"`
	DisabledReason  *string    `gorm:"type:text"`
	SignupOrigin    string     `gorm:"type:text"`
	LastLoginOrigin *string    `gorm:"type:text"`
	LastLoginAt     *time.Time
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccountLock is a named row taken with SELECT ... FOR UPDATE to serialize
// rare cross-row decisions such as the first admin grant.
type AccountLock struct {
	Name      string `gorm:"type:varchar(64);primaryKey"`
	UpdatedAt time.Time
}

func (AccountLock) TableName() string {
	return "account_locks"
}
