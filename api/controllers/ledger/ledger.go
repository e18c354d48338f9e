package ledger

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/labfunds-backend/api/middleware"
	"github.com/angelmondragon/labfunds-backend/api/responses"
	"github.com/angelmondragon/labfunds-backend/api/validators"
	internalledger "github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
)

type postRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"required,max=500"`
	Category    string          `json:"category" validate:"max=64"`
}

type updateRequest struct {
	Description *string    `json:"description" validate:"omitempty,max=500"`
	Category    *string    `json:"category" validate:"omitempty,max=64"`
	PostedAt    *time.Time `json:"posted_at"`
}

// List pages through the laboratory's ledger entries, most recent first, with
// optional kind, category and posted-at filters.
func List(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab := middleware.LabFromContext(r.Context())
		if svc == nil || lab == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := internalledger.EntryFilter{LaboratoryID: lab.ID}
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			kind, err := enums.ParseLedgerEntryKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind"))
				return
			}
			filter.Kind = kind
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					filter.Categories = append(filter.Categories, enums.NormalizeLedgerCategory(part))
				}
			}
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		before, err := validators.ParseQueryTime(r, "before")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.PostedFrom = from
		filter.PostedBefore = before

		page, err := svc.Browse(r.Context(), filter, pagination.Request{Limit: limit, Cursor: r.URL.Query().Get("cursor")})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Summary returns income, expense and balance totals.
func Summary(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab := middleware.LabFromContext(r.Context())
		if svc == nil || lab == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		summary, err := svc.Summary(r.Context(), lab.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// PostIncome records a manual income under the laboratory lock.
func PostIncome(svc internalledger.Service, locker lock.Locker, logg *logger.Logger) http.HandlerFunc {
	return post(svc, locker, logg, enums.LedgerEntryKindIncome)
}

// PostExpense records a manual expense under the laboratory lock.
func PostExpense(svc internalledger.Service, locker lock.Locker, logg *logger.Logger) http.HandlerFunc {
	return post(svc, locker, logg, enums.LedgerEntryKindExpense)
}

func post(svc internalledger.Service, locker lock.Locker, logg *logger.Logger, kind enums.LedgerEntryKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab := middleware.LabFromContext(r.Context())
		if svc == nil || locker == nil || lab == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var body postRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalledger.PostInput{
			LaboratoryID: lab.ID,
			Amount:       body.Amount,
			Description:  body.Description,
			Category:     enums.LedgerCategory(body.Category),
			ActorID:      middleware.ActorIDFromContext(r.Context()),
		}
		unlock, err := labLock(r.Context(), locker, lab.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer unlock()

		var entry *models.LedgerEntry
		if kind == enums.LedgerEntryKindIncome {
			entry, err = svc.PostIncome(r.Context(), input)
		} else {
			entry, err = svc.PostExpense(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// UpdateEntry corrects the description, category or posting date of an entry.
func UpdateEntry(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := entryInLab(svc, logg, w, r)
		if !ok {
			return
		}

		var body updateRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalledger.UpdateDetailsInput{
			Description: body.Description,
			PostedAt:    body.PostedAt,
		}
		if body.Category != nil {
			category := enums.LedgerCategory(*body.Category)
			input.Category = &category
		}

		entry, err := svc.UpdateDetails(r.Context(), entryID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// DeleteEntry removes a mistaken posting under the laboratory lock.
func DeleteEntry(svc internalledger.Service, locker lock.Locker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if locker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		entryID, ok := entryInLab(svc, logg, w, r)
		if !ok {
			return
		}
		unlock, err := labLock(r.Context(), locker, middleware.LabFromContext(r.Context()).ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer unlock()

		if err := svc.Delete(r.Context(), entryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// labLock takes the same key salary and expense postings hold, so manual
// postings never interleave with a balance check.
func labLock(ctx context.Context, locker lock.Locker, labID uuid.UUID) (lock.Unlock, error) {
	unlock, err := locker.Lock(ctx, lock.LabKey(labID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire laboratory lock")
	}
	return unlock, nil
}

// entryInLab resolves {entryId} and hides entries of other laboratories.
func entryInLab(svc internalledger.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	lab := middleware.LabFromContext(r.Context())
	if svc == nil || lab == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
		return uuid.Nil, false
	}
	entryID, err := validators.PathUUID(r, "entryId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	entry, err := svc.Entry(r.Context(), entryID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	if entry.LaboratoryID != lab.ID {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found"))
		return uuid.Nil, false
	}
	return entryID, true
}
