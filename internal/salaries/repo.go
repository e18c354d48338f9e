package salaries

import (
	"context"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists salary assignments, one per (person, laboratory).
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.SalaryAssignment) error
	FindByPersonAndLab(ctx context.Context, labID uuid.UUID, personID string) (*models.SalaryAssignment, error)
	ListByLaboratory(ctx context.Context, labID uuid.UUID) ([]models.SalaryAssignment, error)
	UpdateAmount(ctx context.Context, assignment *models.SalaryAssignment) error
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.SalaryStatus) (int64, error)
	ListDue(ctx context.Context, asOf time.Time) ([]models.SalaryAssignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a salary repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.SalaryAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindByPersonAndLab(ctx context.Context, labID uuid.UUID, personID string) (*models.SalaryAssignment, error) {
	var assignment models.SalaryAssignment
	if err := r.db.WithContext(ctx).
		Where("laboratory_id = ? AND person_id = ?", labID, personID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListByLaboratory(ctx context.Context, labID uuid.UUID) ([]models.SalaryAssignment, error) {
	var rows []models.SalaryAssignment
	if err := r.db.WithContext(ctx).
		Where("laboratory_id = ?", labID).
		Order("person_name ASC").
		Order("person_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateAmount(ctx context.Context, assignment *models.SalaryAssignment) error {
	return r.db.WithContext(ctx).
		Model(&models.SalaryAssignment{}).
		Where("id = ?", assignment.ID).
		Updates(map[string]any{
			"amount":         assignment.Amount,
			"person_name":    assignment.PersonName,
			"effective_date": assignment.EffectiveDate,
			"payment_date":   assignment.PaymentDate,
			"status":         assignment.Status,
		}).Error
}

func (r *repository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SalaryAssignment{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.SalaryStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SalaryAssignment{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// ListDue returns pending assignments whose payment date is on or before asOf.
func (r *repository) ListDue(ctx context.Context, asOf time.Time) ([]models.SalaryAssignment, error) {
	var rows []models.SalaryAssignment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND payment_date <= ?", enums.SalaryStatusPending, asOf).
		Order("laboratory_id ASC").
		Order("payment_date ASC").
		Order("person_name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
