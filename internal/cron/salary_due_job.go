package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const dueDateLayout = "2006-01-02"

type dueSalaryLister interface {
	ListDue(ctx context.Context, asOf time.Time) ([]models.SalaryAssignment, error)
}

type labLookup interface {
	GetLaboratory(ctx context.Context, labID uuid.UUID) (*labs.Laboratory, error)
}

type SalaryDueJobParams struct {
	Logger   *logger.Logger
	Salaries dueSalaryLister
	Labs     labLookup
	Notifier notifications.Notifier
	Money    money.Formatter
	Now      func() time.Time
}

// SalaryDueJob reminds each laboratory creator about pending salaries whose
// payment date has passed. One message is sent per laboratory per run.
type SalaryDueJob struct {
	logg     *logger.Logger
	salaries dueSalaryLister
	labs     labLookup
	notifier notifications.Notifier
	money    money.Formatter
	now      func() time.Time
}

func NewSalaryDueJob(params SalaryDueJobParams) (*SalaryDueJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Salaries == nil {
		return nil, fmt.Errorf("salary repository required")
	}
	if params.Labs == nil {
		return nil, fmt.Errorf("laboratory directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &SalaryDueJob{
		logg:     params.Logger,
		salaries: params.Salaries,
		labs:     params.Labs,
		notifier: params.Notifier,
		money:    params.Money,
		now:      now,
	}, nil
}

func (j *SalaryDueJob) Name() string { return "salary-due" }

func (j *SalaryDueJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	due, err := j.salaries.ListDue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("list due salaries: %w", err)
	}

	order := []uuid.UUID{}
	byLab := map[uuid.UUID][]models.SalaryAssignment{}
	for _, assignment := range due {
		if _, seen := byLab[assignment.LaboratoryID]; !seen {
			order = append(order, assignment.LaboratoryID)
		}
		byLab[assignment.LaboratoryID] = append(byLab[assignment.LaboratoryID], assignment)
	}

	var errs error
	reminded := 0
	for _, labID := range order {
		labCtx := j.logg.WithLabID(ctx, labID.String())
		lab, err := j.labs.GetLaboratory(labCtx, labID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				j.logg.Warn(labCtx, "salary reminder skipped: laboratory not found")
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("lookup laboratory %s: %w", labID, err))
			continue
		}
		j.notifier.Notify(labCtx, lab.CreatorID, j.message(lab, byLab[labID]))
		reminded++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":        asOf,
		"due_salaries": len(due),
		"laboratories": reminded,
	})
	j.logg.Info(logCtx, "salary reminders sent")
	return errs
}

func (j *SalaryDueJob) message(lab *labs.Laboratory, due []models.SalaryAssignment) notifications.Message {
	lines := make([]string, 0, len(due))
	for _, assignment := range due {
		lines = append(lines, fmt.Sprintf("%s: %s (due %s)",
			assignment.PersonName,
			j.money.Format(assignment.Amount),
			assignment.PaymentDate.UTC().Format(dueDateLayout),
		))
	}
	noun := "payment is"
	if len(due) != 1 {
		noun = "payments are"
	}
	return notifications.Message{
		LaboratoryID: lab.ID,
		Type:         enums.NotificationTypeSalaryDue,
		Title:        "Salary payment due",
		Body:         fmt.Sprintf("%d salary %s due in %s. %s", len(due), noun, lab.Name, strings.Join(lines, "; ")),
	}
}
