package notifications

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service is the signed-in person's inbox.
type Service interface {
	List(ctx context.Context, query Query) (*ListResult, error)
	MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, filter Filter) (int64, error)
	UnreadCount(ctx context.Context, filter Filter) (*UnreadSummary, error)
}

// Query is one inbox page request.
type Query struct {
	Filter
	Page pagination.Request
}

// ListResult is one inbox page. Cursor is empty on the last page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// UnreadSummary is the unread badge: a total plus a breakdown by type.
type UnreadSummary struct {
	Total  int64                            `json:"total"`
	ByType map[enums.NotificationType]int64 `json:"by_type"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, query Query) (*ListResult, error) {
	filter, err := normalize(query.Filter)
	if err != nil {
		return nil, err
	}
	page, err := query.Page.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	items, next := pagination.Trim(rows, page, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{At: n.CreatedAt, ID: n.ID}
	})
	if items == nil {
		items = []models.Notification{}
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

// MarkRead is idempotent; notifications of other people read as not found.
func (s *service) MarkRead(ctx context.Context, recipient string, notificationID uuid.UUID) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	row, err := s.repo.Find(ctx, recipient, notificationID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup notification")
	}
	if row.ReadAt != nil {
		return nil
	}
	if err := s.repo.MarkRead(ctx, row.ID, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, filter Filter) (int64, error) {
	filter, err := normalize(filter)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.MarkAllRead(ctx, filter, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) UnreadCount(ctx context.Context, filter Filter) (*UnreadSummary, error) {
	filter, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.UnreadCounts(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	summary := &UnreadSummary{ByType: counts}
	if summary.ByType == nil {
		summary.ByType = map[enums.NotificationType]int64{}
	}
	for _, n := range summary.ByType {
		summary.Total += n
	}
	return summary, nil
}

func normalize(filter Filter) (Filter, error) {
	filter.Recipient = strings.TrimSpace(filter.Recipient)
	if filter.Recipient == "" {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if filter.LaboratoryID != nil && *filter.LaboratoryID == uuid.Nil {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id cannot be empty")
	}
	for _, t := range filter.Types {
		if !t.IsValid() {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type").
				WithDetails(map[string]any{"type": string(t)})
		}
	}
	return filter, nil
}
