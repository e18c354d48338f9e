package expenses

import (
	"context"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists expense requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ExpenseRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ExpenseRequest, error)
	List(ctx context.Context, query listQuery) ([]models.ExpenseRequest, error)
	UpdateReview(ctx context.Context, request *models.ExpenseRequest) (int64, error)
	DeletePending(ctx context.Context, id uuid.UUID, requesterID string) (int64, error)
}

type listQuery struct {
	laboratoryID uuid.UUID
	status       enums.ExpenseRequestStatus
	requesterID  string
	after        *pagination.Cursor
	limit        int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an expense request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ExpenseRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ExpenseRequest, error) {
	var request models.ExpenseRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests newest first, ties broken by id.
func (r *repository) List(ctx context.Context, query listQuery) ([]models.ExpenseRequest, error) {
	q := r.db.WithContext(ctx).Model(&models.ExpenseRequest{}).Where("laboratory_id = ?", query.laboratoryID)
	if query.status != "" {
		q = q.Where("status = ?", query.status)
	}
	if query.requesterID != "" {
		q = q.Where("requester_id = ?", query.requesterID)
	}
	if query.after != nil {
		clause, args := query.after.Keyset("requested_at", "id")
		q = q.Where(clause, args...)
	}
	if query.limit > 0 {
		q = q.Limit(query.limit)
	}

	var rows []models.ExpenseRequest
	if err := q.Order("requested_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateReview writes the review outcome only while the row is still pending.
func (r *repository) UpdateReview(ctx context.Context, request *models.ExpenseRequest) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExpenseRequest{}).
		Where("id = ? AND status = ?", request.ID, enums.ExpenseRequestStatusPending).
		Updates(map[string]any{
			"status":       request.Status,
			"reviewed_at":  request.ReviewedAt,
			"reviewer_id":  request.ReviewerID,
			"review_notes": request.ReviewNotes,
		})
	return result.RowsAffected, result.Error
}

// DeletePending removes the request only when owned by requesterID and still pending.
func (r *repository) DeletePending(ctx context.Context, id uuid.UUID, requesterID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND requester_id = ? AND status = ?", id, requesterID, enums.ExpenseRequestStatusPending).
		Delete(&models.ExpenseRequest{})
	return result.RowsAffected, result.Error
}

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	WithTx(tx *gorm.DB) AttachmentRepository
	Create(ctx context.Context, attachment *models.ExpenseAttachment) error
	FindByID(ctx context.Context, requestID, id uuid.UUID) (*models.ExpenseAttachment, error)
	ListByRequestIDs(ctx context.Context, requestIDs []uuid.UUID) ([]models.ExpenseAttachment, error)
	DeleteByRequestID(ctx context.Context, requestID uuid.UUID) (int64, error)
}

type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository builds an attachment repository bound to the provided DB.
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) WithTx(tx *gorm.DB) AttachmentRepository {
	if tx == nil {
		return r
	}
	return &attachmentRepository{db: tx}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.ExpenseAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepository) FindByID(ctx context.Context, requestID, id uuid.UUID) (*models.ExpenseAttachment, error) {
	var attachment models.ExpenseAttachment
	if err := r.db.WithContext(ctx).
		Where("id = ? AND expense_request_id = ?", id, requestID).
		First(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByRequestIDs(ctx context.Context, requestIDs []uuid.UUID) ([]models.ExpenseAttachment, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	var rows []models.ExpenseAttachment
	if err := r.db.WithContext(ctx).
		Where("expense_request_id IN ?", requestIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attachmentRepository) DeleteByRequestID(ctx context.Context, requestID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expense_request_id = ?", requestID).
		Delete(&models.ExpenseAttachment{})
	return result.RowsAffected, result.Error
}
