package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/labfunds-backend/pkg/enums"
)

// Laboratory is the read model of a lab owned by a professor.
type Laboratory struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Name      string             `gorm:"column:name;not null"`
	CreatorID string             `gorm:"column:creator_id;not null"`
	Members   []LaboratoryMember `gorm:"foreignKey:LaboratoryID;references:ID"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// LaboratoryMember links a person to a laboratory.
type LaboratoryMember struct {
	LaboratoryID uuid.UUID        `gorm:"column:laboratory_id;type:uuid;primaryKey"`
	UserID       string           `gorm:"column:user_id;primaryKey"`
	Role         enums.MemberRole `gorm:"column:role;not null"`
	JoinedAt     time.Time        `gorm:"column:joined_at;autoCreateTime"`
}
