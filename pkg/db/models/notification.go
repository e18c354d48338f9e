package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/labfunds-backend/pkg/enums"
)

// Notification stores in-app notification payloads addressed to one person.
type Notification struct {
	ID           uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	Recipient    string                 `gorm:"type:text;not null" json:"recipient"`
	LaboratoryID *uuid.UUID             `gorm:"type:uuid" json:"laboratory_id,omitempty"`
	Type         enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Title        string                 `gorm:"type:text;not null" json:"title"`
	Message      string                 `gorm:"type:text;not null" json:"message"`
	ReadAt       *time.Time             `json:"read_at,omitempty"`
	CreatedAt    time.Time              `gorm:"autoCreateTime" json:"created_at"`
}
