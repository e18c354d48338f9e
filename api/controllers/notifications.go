package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/labfunds-backend/api/middleware"
	"github.com/angelmondragon/labfunds-backend/api/responses"
	"github.com/angelmondragon/labfunds-backend/api/validators"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
)

// ListNotifications returns one page of the actor's inbox, optionally narrowed
// by laboratory, type and read state.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		filter, ok := inboxFilter(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.UnreadOnly, err = validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), notifications.Query{
			Filter: filter,
			Page:   pagination.Request{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// UnreadNotificationCount returns the actor's unread total and per-type counts.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		filter, ok := inboxFilter(w, r, logg)
		if !ok {
			return
		}
		summary, err := svc.UnreadCount(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// MarkNotificationRead marks one of the actor's notifications as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		recipient, ok := actor(w, r, logg)
		if !ok {
			return
		}
		notificationID, err := validators.PathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), recipient, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllNotificationsRead marks the actor's unread notifications as read,
// honoring the same labId and type filters as the listing.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		filter, ok := inboxFilter(w, r, logg)
		if !ok {
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}

func actor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	actorID := middleware.ActorIDFromContext(r.Context())
	if actorID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
		return "", false
	}
	return actorID, true
}

// inboxFilter reads labId and a comma-separated type list from the query.
func inboxFilter(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (notifications.Filter, bool) {
	recipient, ok := actor(w, r, logg)
	if !ok {
		return notifications.Filter{}, false
	}
	filter := notifications.Filter{Recipient: recipient}

	if raw := strings.TrimSpace(r.URL.Query().Get("labId")); raw != "" {
		labID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid labId").
				WithDetails(map[string]any{"field": "labId"}))
			return notifications.Filter{}, false
		}
		filter.LaboratoryID = &labID
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			kind, err := enums.ParseNotificationType(part)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type").
					WithDetails(map[string]any{"field": "type"}))
				return notifications.Filter{}, false
			}
			filter.Types = append(filter.Types, kind)
		}
	}
	return filter, true
}
