package ledger

import (
	"context"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

// EntryFilter narrows ledger reads. Zero values mean "any".
type EntryFilter struct {
	LaboratoryID       uuid.UUID
	Kind               enums.LedgerEntryKind
	Categories         []enums.LedgerCategory
	SalaryAssignmentID *uuid.UUID
	SalaryPeriod       string
	// UnlinkedOnly keeps entries that carry no salary assignment link.
	UnlinkedOnly bool
	// PostedFrom is inclusive, PostedBefore exclusive.
	PostedFrom   *time.Time
	PostedBefore *time.Time
	// After and Limit page the result; zero Limit loads every match.
	After *pagination.Cursor
	Limit int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// List returns matching entries most-recent-first, ties broken by id.
func (r *repository) List(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("laboratory_id = ?", filter.LaboratoryID)
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if filter.SalaryAssignmentID != nil {
		query = query.Where("salary_assignment_id = ?", *filter.SalaryAssignmentID)
	}
	if filter.SalaryPeriod != "" {
		query = query.Where("salary_period = ?", filter.SalaryPeriod)
	}
	if filter.UnlinkedOnly {
		query = query.Where("salary_assignment_id IS NULL")
	}
	if filter.PostedFrom != nil {
		query = query.Where("posted_at >= ?", filter.PostedFrom.UTC())
	}
	if filter.PostedBefore != nil {
		query = query.Where("posted_at < ?", filter.PostedBefore.UTC())
	}
	if filter.After != nil {
		clause, args := filter.After.Keyset("posted_at", "id")
		query = query.Where(clause, args...)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.LedgerEntry
	if err := query.
		Order("posted_at DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.LedgerEntry{})
	return result.RowsAffected, result.Error
}
