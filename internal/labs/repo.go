package labs

import (
	"context"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes read-only laboratory lookups.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a laboratory repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a laboratory with its members.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Laboratory, error) {
	var lab models.Laboratory
	if err := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		First(&lab, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lab, nil
}
