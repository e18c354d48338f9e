package salaries

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/labfunds-backend/api/middleware"
	"github.com/angelmondragon/labfunds-backend/api/responses"
	"github.com/angelmondragon/labfunds-backend/api/validators"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	internalsalaries "github.com/angelmondragon/labfunds-backend/internal/salaries"
	"github.com/angelmondragon/labfunds-backend/internal/users"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
)

// PersonDirectory resolves display names for salary descriptions.
type PersonDirectory interface {
	GetPerson(ctx context.Context, personID string) (*users.Person, error)
}

type setSalaryRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	PersonName string          `json:"person_name" validate:"max=200"`
}

type monthlyRecordResponse struct {
	PersonID  string `json:"person_id"`
	HasRecord bool   `json:"has_record"`
}

// List returns every salary assignment of the laboratory.
func List(svc internalsalaries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab := middleware.LabFromContext(r.Context())
		if svc == nil || lab == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "salary service unavailable"))
			return
		}
		assignments, err := svc.Salaries(r.Context(), lab.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignments)
	}
}

// Set creates or changes a member's monthly salary and reconciles the ledger.
func Set(svc internalsalaries.Service, people PersonDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, personID, ok := labMember(svc, logg, w, r)
		if !ok {
			return
		}

		var body setSalaryRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		name := strings.TrimSpace(body.PersonName)
		if name == "" {
			resolved, err := personName(r.Context(), people, personID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			name = resolved
		}

		result, err := svc.SetSalary(r.Context(), internalsalaries.SetSalaryInput{
			LaboratoryID: lab.ID,
			PersonID:     personID,
			PersonName:   name,
			Amount:       body.Amount,
			ActorID:      middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// History lists salary and adjustment postings for one member.
func History(svc internalsalaries.Service, people PersonDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, personID, ok := labMember(svc, logg, w, r)
		if !ok {
			return
		}
		name, err := assignedName(r.Context(), svc, people, lab.ID, personID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.SalaryAdjustmentHistory(r.Context(), lab.ID, name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// MonthlyRecord reports whether this month's base salary is already posted.
func MonthlyRecord(svc internalsalaries.Service, people PersonDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, personID, ok := labMember(svc, logg, w, r)
		if !ok {
			return
		}
		// the assignment's own name is used when the person is unknown to the directory
		name, _ := personName(r.Context(), people, personID)
		has, err := svc.HasMonthlySalaryRecord(r.Context(), lab.ID, personID, name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, monthlyRecordResponse{PersonID: personID, HasRecord: has})
	}
}

// MarkPaid moves a pending salary to paid.
func MarkPaid(svc internalsalaries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, personID, ok := labMember(svc, logg, w, r)
		if !ok {
			return
		}
		assignment, err := svc.MarkPaid(r.Context(), lab.ID, personID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assignment)
	}
}

// labMember resolves {personId} and requires that person to belong to the laboratory.
func labMember(svc internalsalaries.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) (*labs.Laboratory, string, bool) {
	lab := middleware.LabFromContext(r.Context())
	if svc == nil || lab == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "salary service unavailable"))
		return nil, "", false
	}
	personID := strings.TrimSpace(chi.URLParam(r, "personId"))
	if personID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "person id is required"))
		return nil, "", false
	}
	if !lab.IsMember(personID) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "person is not a member of this laboratory"))
		return nil, "", false
	}
	return lab, personID, true
}

// assignedName returns the name recorded on the person's assignment, falling
// back to the directory.
func assignedName(ctx context.Context, svc internalsalaries.Service, people PersonDirectory, labID uuid.UUID, personID string) (string, error) {
	assignments, err := svc.Salaries(ctx, labID)
	if err != nil {
		return "", err
	}
	for _, assignment := range assignments {
		if assignment.PersonID == personID {
			return assignment.PersonName, nil
		}
	}
	return personName(ctx, people, personID)
}

func personName(ctx context.Context, people PersonDirectory, personID string) (string, error) {
	if people == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "person directory unavailable")
	}
	person, err := people.GetPerson(ctx, personID)
	if err != nil {
		return "", err
	}
	return person.Name, nil
}
