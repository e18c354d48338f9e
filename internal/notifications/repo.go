package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores in-app notification rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter Filter, page pagination.Page) ([]models.Notification, error)
	Find(ctx context.Context, recipient string, notificationID uuid.UUID) (*models.Notification, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID, now time.Time) error
	MarkAllRead(ctx context.Context, filter Filter, now time.Time) (int64, error)
	UnreadCounts(ctx context.Context, filter Filter) (map[enums.NotificationType]int64, error)
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Filter scopes inbox reads and bulk updates to one recipient. LaboratoryID
// and Types narrow it further when set.
type Filter struct {
	Recipient    string
	LaboratoryID *uuid.UUID
	Types        []enums.NotificationType
	UnreadOnly   bool
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) scoped(ctx context.Context, filter Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient = ?", filter.Recipient)
	if filter.LaboratoryID != nil {
		q = q.Where("laboratory_id = ?", *filter.LaboratoryID)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if filter.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	return q
}

// List returns up to page.Fetch() rows newest first.
func (r *repository) List(ctx context.Context, filter Filter, page pagination.Page) ([]models.Notification, error) {
	q := r.scoped(ctx, filter)
	if page.After != nil {
		clause, args := page.After.Keyset("created_at", "id")
		q = q.Where(clause, args...)
	}
	var rows []models.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Limit(page.Fetch()).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Find(ctx context.Context, recipient string, notificationID uuid.UUID) (*models.Notification, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND recipient = ?", notificationID, recipient).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkRead stamps read_at once; a second call leaves the first stamp.
func (r *repository) MarkRead(ctx context.Context, notificationID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now).Error
}

func (r *repository) MarkAllRead(ctx context.Context, filter Filter, now time.Time) (int64, error) {
	filter.UnreadOnly = true
	result := r.scoped(ctx, filter).UpdateColumn("read_at", now)
	return result.RowsAffected, result.Error
}

func (r *repository) UnreadCounts(ctx context.Context, filter Filter) (map[enums.NotificationType]int64, error) {
	filter.UnreadOnly = true
	var rows []struct {
		Type  enums.NotificationType
		Total int64
	}
	if err := r.scoped(ctx, filter).
		Select("type, COUNT(*) AS total").
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[enums.NotificationType]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Total
	}
	return counts, nil
}

// DeleteReadOlderThan purges notifications that were read before cutoff. Unread rows are kept.
func (r *repository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
