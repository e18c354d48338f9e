package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/labfunds-backend/internal/labs"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
)

type stubLabDirectory struct {
	lab *labs.Laboratory
}

func (s stubLabDirectory) GetLaboratory(ctx context.Context, labID uuid.UUID) (*labs.Laboratory, error) {
	if s.lab == nil || s.lab.ID != labID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "laboratory not found")
	}
	return s.lab, nil
}

func labRouter(dir labDirectory, professorOnly bool) http.Handler {
	r := chi.NewRouter()
	r.Use(Actor(nil))
	r.Route("/labs/{labId}", func(r chi.Router) {
		r.Use(LabContext(dir, nil))
		if professorOnly {
			r.Use(RequireProfessor(nil))
		}
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			if LabFromContext(r.Context()) == nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func TestLabContext(t *testing.T) {
	lab := &labs.Laboratory{ID: uuid.New(), CreatorID: "profA", Members: []string{"s1"}}
	dir := stubLabDirectory{lab: lab}

	tests := []struct {
		name      string
		path      string
		actor     string
		professor bool
		want      int
	}{
		{"missing actor", "/labs/" + lab.ID.String() + "/", "", false, http.StatusUnauthorized},
		{"bad lab id", "/labs/not-a-uuid/", "s1", false, http.StatusBadRequest},
		{"unknown lab", "/labs/" + uuid.NewString() + "/", "s1", false, http.StatusNotFound},
		{"outsider", "/labs/" + lab.ID.String() + "/", "stranger", false, http.StatusForbidden},
		{"member", "/labs/" + lab.ID.String() + "/", "s1", false, http.StatusNoContent},
		{"member on professor route", "/labs/" + lab.ID.String() + "/", "s1", true, http.StatusForbidden},
		{"professor", "/labs/" + lab.ID.String() + "/", "profA", true, http.StatusNoContent},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.actor != "" {
			req.Header.Set(ActorHeader, tt.actor)
		}
		resp := httptest.NewRecorder()
		labRouter(dir, tt.professor).ServeHTTP(resp, req)
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
	}
}
