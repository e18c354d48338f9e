package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
)

// Event is the payload relayed to external channels such as email or chat bridges.
type Event struct {
	Recipient    string                 `json:"recipient"`
	LaboratoryID *uuid.UUID             `json:"laboratory_id,omitempty"`
	Type         enums.NotificationType `json:"type"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body"`
	OccurredAt   time.Time              `json:"occurred_at"`
}

type publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Relay delivers to the wrapped notifier first, then publishes the message as
// an Event keyed by recipient. Publish failures are logged.
type Relay struct {
	next Notifier
	pub  publisher
	logg *logger.Logger
	now  func() time.Time
}

// NewRelay wraps next with an event publisher.
func NewRelay(next Notifier, pub publisher, logg *logger.Logger) (*Relay, error) {
	if next == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if pub == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Relay{next: next, pub: pub, logg: logg, now: time.Now}, nil
}

func (r *Relay) Notify(ctx context.Context, recipient string, msg Message) {
	r.next.Notify(ctx, recipient, msg)

	recipient = strings.TrimSpace(recipient)
	if recipient == "" || !msg.Type.IsValid() {
		return
	}
	event := Event{
		Recipient:  recipient,
		Type:       msg.Type,
		Title:      msg.Title,
		Body:       msg.Body,
		OccurredAt: r.now().UTC(),
	}
	if msg.LaboratoryID != uuid.Nil {
		labID := msg.LaboratoryID
		event.LaboratoryID = &labID
	}
	if err := r.pub.Publish(ctx, recipient, event); err != nil {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"recipient":         recipient,
			"notification_type": string(msg.Type),
		})
		r.logg.Error(logCtx, "failed to relay notification", err)
	}
}
