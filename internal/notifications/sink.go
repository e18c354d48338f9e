package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/google/uuid"
)

// Message is one notification addressed to a person.
type Message struct {
	LaboratoryID uuid.UUID
	Type         enums.NotificationType
	Title        string
	Body         string
}

// Notifier delivers messages without reporting failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, recipient string, msg Message)
}

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Sink persists notifications as in-app rows. Delivery failures are logged.
type Sink struct {
	repo creator
	logg *logger.Logger
}

// NewSink builds a notification sink backed by the provided repository.
func NewSink(repo creator, logg *logger.Logger) (*Sink, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Sink{repo: repo, logg: logg}, nil
}

func (s *Sink) Notify(ctx context.Context, recipient string, msg Message) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		s.logg.Warn(ctx, "notification dropped: empty recipient")
		return
	}
	if !msg.Type.IsValid() {
		s.logg.Warn(s.logg.WithField(ctx, "notification_type", string(msg.Type)), "notification dropped: unknown type")
		return
	}

	row := &models.Notification{
		Recipient: recipient,
		Type:      msg.Type,
		Title:     msg.Title,
		Message:   msg.Body,
	}
	if msg.LaboratoryID != uuid.Nil {
		labID := msg.LaboratoryID
		row.LaboratoryID = &labID
	}

	if err := s.repo.Create(ctx, row); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"recipient":         recipient,
			"notification_type": string(msg.Type),
		})
		s.logg.Error(logCtx, "failed to persist notification", err)
	}
}
