package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/labfunds-backend/api/responses"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
)

// LabParam is the chi URL parameter holding the laboratory id.
const LabParam = "labId"

type labDirectory interface {
	GetLaboratory(ctx context.Context, labID uuid.UUID) (*labs.Laboratory, error)
}

// LabContext resolves {labId} and admits only members of that laboratory.
func LabContext(dir labDirectory, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			labID, err := uuid.Parse(chi.URLParam(r, LabParam))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid laboratory id"))
				return
			}

			lab, err := dir.GetLaboratory(r.Context(), labID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !lab.IsMember(ActorIDFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this laboratory"))
				return
			}

			ctx := WithLab(r.Context(), lab)
			if logg != nil {
				ctx = logg.WithLabID(ctx, lab.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireProfessor admits only the laboratory creator.
func RequireProfessor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lab := LabFromContext(r.Context())
			if lab == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "laboratory context missing"))
				return
			}
			if !lab.IsCreator(ActorIDFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "professor role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
