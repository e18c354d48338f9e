package salaries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/metrics"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/angelmondragon/labfunds-backend/pkg/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	periodLayout      = "2006-01"
	defaultPaymentDay = 5
)

// Reconciliation actions reported in SetSalaryResult.Action.
const (
	ActionCreated   = "created"
	ActionIncrease  = "increase"
	ActionDecrease  = "decrease"
	ActionRepost    = "repost"
	ActionUnchanged = "unchanged"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service assigns salaries and reconciles them against the laboratory ledger.
type Service interface {
	SetSalary(ctx context.Context, input SetSalaryInput) (*SetSalaryResult, error)
	Salaries(ctx context.Context, labID uuid.UUID) ([]models.SalaryAssignment, error)
	HasMonthlySalaryRecord(ctx context.Context, labID uuid.UUID, personID, personName string) (bool, error)
	SalaryAdjustmentHistory(ctx context.Context, labID uuid.UUID, personName string) ([]models.LedgerEntry, error)
	MarkPaid(ctx context.Context, labID uuid.UUID, personID string) (*models.SalaryAssignment, error)
}

// SetSalaryInput names the person, laboratory and new monthly amount.
type SetSalaryInput struct {
	LaboratoryID uuid.UUID       `json:"laboratory_id" validate:"required"`
	PersonID     string          `json:"person_id" validate:"required"`
	PersonName   string          `json:"person_name" validate:"required"`
	Amount       decimal.Decimal `json:"amount" validate:"gt=0"`
	ActorID      string          `json:"actor_id" validate:"required"`
}

// SetSalaryResult reports the assignment after reconciliation and the ledger
// entries it produced.
type SetSalaryResult struct {
	Assignment *models.SalaryAssignment `json:"assignment"`
	Postings   []models.LedgerEntry     `json:"postings"`
	Created    bool                     `json:"created"`
	Action     string                   `json:"action"`
}

// ServiceParams wires salary dependencies.
type ServiceParams struct {
	DB         txRunner
	Repository Repository
	Ledger     ledger.Service
	Locker     lock.Locker
	Notifier   notifications.Notifier
	Logger     *logger.Logger
	Metrics    *metrics.FinanceMetrics
	Money      money.Formatter
	PaymentDay int
	Now        func() time.Time
}

type service struct {
	db         txRunner
	repo       Repository
	ledger     ledger.Service
	locker     lock.Locker
	notifier   notifications.Notifier
	logg       *logger.Logger
	metrics    *metrics.FinanceMetrics
	money      money.Formatter
	paymentDay int
	now        func() time.Time
}

// NewService builds a salary service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("salary repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	paymentDay := params.PaymentDay
	if paymentDay < 1 || paymentDay > 28 {
		paymentDay = defaultPaymentDay
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:         params.DB,
		repo:       params.Repository,
		ledger:     params.Ledger,
		locker:     params.Locker,
		notifier:   params.Notifier,
		logg:       params.Logger,
		metrics:    params.Metrics,
		money:      params.Money,
		paymentDay: paymentDay,
		now:        now,
	}, nil
}

func (s *service) SetSalary(ctx context.Context, input SetSalaryInput) (*SetSalaryResult, error) {
	ctx = s.logg.WithOperation(ctx, "salary.set")
	input.PersonID = strings.TrimSpace(input.PersonID)
	input.PersonName = strings.TrimSpace(input.PersonName)
	if err := validation.Struct(&input); err != nil {
		return nil, err
	}

	unlockPerson, err := s.locker.Lock(ctx, lock.PersonKey(input.LaboratoryID, input.PersonID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire salary lock")
	}
	defer unlockPerson()
	unlockLab, err := s.locker.Lock(ctx, lock.LabKey(input.LaboratoryID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire laboratory lock")
	}
	defer unlockLab()

	now := s.now().UTC()
	var result *SetSalaryResult
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.reconcile(ctx, s.repo.WithTx(tx), s.ledger.WithTx(tx), input, now)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncSalaryChange(result.Action)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lab_id":    input.LaboratoryID.String(),
		"person_id": input.PersonID,
		"action":    result.Action,
		"postings":  len(result.Postings),
		"amount":    input.Amount.String(),
	})
	s.logg.Info(logCtx, "salary reconciled")

	if result.Action != ActionUnchanged {
		s.notifier.Notify(ctx, input.PersonID, notifications.Message{
			LaboratoryID: input.LaboratoryID,
			Type:         enums.NotificationTypeSalaryUpdated,
			Title:        "Salary updated",
			Body: fmt.Sprintf("Your monthly salary is now %s, payable on %s.",
				s.money.Format(result.Assignment.Amount), result.Assignment.PaymentDate.Format("2006-01-02")),
		})
	}
	return result, nil
}

func (s *service) reconcile(ctx context.Context, repo Repository, ledgerSvc ledger.Service, input SetSalaryInput, now time.Time) (*SetSalaryResult, error) {
	existing, err := repo.FindByPersonAndLab(ctx, input.LaboratoryID, input.PersonID)
	if err != nil && !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup salary assignment")
	}

	if existing == nil {
		assignment := &models.SalaryAssignment{
			ID:            uuid.New(),
			LaboratoryID:  input.LaboratoryID,
			PersonID:      input.PersonID,
			PersonName:    input.PersonName,
			Amount:        input.Amount,
			EffectiveDate: now,
			PaymentDate:   s.paymentDate(now),
			Status:        enums.SalaryStatusPending,
			CreatedBy:     input.ActorID,
		}
		if err := repo.Create(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "salary assignment already exists")
			}
			return nil, pkgerrors.FromStore(err, "create salary assignment")
		}

		result := &SetSalaryResult{Assignment: assignment, Created: true, Action: ActionCreated}
		exists, err := s.monthlyRecordExists(ctx, ledgerSvc, assignment, now)
		if err != nil {
			return nil, err
		}
		if !exists {
			entry, err := s.postBase(ctx, ledgerSvc, assignment, input.ActorID, now)
			if err != nil {
				return nil, err
			}
			result.Postings = append(result.Postings, *entry)
		}
		return result, nil
	}

	if existing.Amount.Equal(input.Amount) {
		if err := repo.Touch(ctx, existing.ID, now); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch salary assignment")
		}
		existing.UpdatedAt = now
		return &SetSalaryResult{Assignment: existing, Action: ActionUnchanged}, nil
	}

	difference := input.Amount.Sub(existing.Amount)
	existing.Amount = input.Amount
	existing.PersonName = input.PersonName
	existing.EffectiveDate = now
	existing.PaymentDate = s.paymentDate(now)
	existing.Status = enums.SalaryStatusPending
	if err := repo.UpdateAmount(ctx, existing); err != nil {
		return nil, pkgerrors.FromStore(err, "update salary assignment")
	}

	exists, err := s.monthlyRecordExists(ctx, ledgerSvc, existing, now)
	if err != nil {
		return nil, err
	}

	result := &SetSalaryResult{Assignment: existing}
	var entry *models.LedgerEntry
	switch {
	case !exists:
		result.Action = ActionRepost
		entry, err = s.postBase(ctx, ledgerSvc, existing, input.ActorID, now)
	case difference.IsPositive():
		result.Action = ActionIncrease
		entry, err = ledgerSvc.PostExpense(ctx, s.postInput(existing, input.ActorID, now, difference,
			enums.LedgerCategorySalary, "salary increase adjustment"))
	default:
		result.Action = ActionDecrease
		entry, err = ledgerSvc.PostIncome(ctx, s.postInput(existing, input.ActorID, now, difference.Abs(),
			enums.LedgerCategorySalaryAdjustment, "salary decrease refund"))
	}
	if err != nil {
		return nil, err
	}
	result.Postings = append(result.Postings, *entry)
	return result, nil
}

func (s *service) postBase(ctx context.Context, ledgerSvc ledger.Service, assignment *models.SalaryAssignment, actorID string, now time.Time) (*models.LedgerEntry, error) {
	return ledgerSvc.PostExpense(ctx, s.postInput(assignment, actorID, now, assignment.Amount, enums.LedgerCategorySalary, "salary"))
}

func (s *service) postInput(assignment *models.SalaryAssignment, actorID string, now time.Time, amount decimal.Decimal, category enums.LedgerCategory, label string) ledger.PostInput {
	period := now.Format(periodLayout)
	assignmentID := assignment.ID
	return ledger.PostInput{
		LaboratoryID:       assignment.LaboratoryID,
		Amount:             amount,
		Description:        fmt.Sprintf("%s %s for %s (person %s)", assignment.PersonName, label, period, assignment.PersonID),
		Category:           category,
		ActorID:            actorID,
		SalaryAssignmentID: &assignmentID,
		SalaryPeriod:       period,
	}
}

// monthlyRecordExists reports whether a base salary expense was already posted
// for the assignment in the month of now. Entries without an assignment link
// fall back to matching the person name and posting month.
func (s *service) monthlyRecordExists(ctx context.Context, ledgerSvc ledger.Service, assignment *models.SalaryAssignment, now time.Time) (bool, error) {
	period := now.Format(periodLayout)
	assignmentID := assignment.ID
	linked, err := ledgerSvc.Search(ctx, ledger.EntryFilter{
		LaboratoryID:       assignment.LaboratoryID,
		Kind:               enums.LedgerEntryKindExpense,
		Categories:         []enums.LedgerCategory{enums.LedgerCategorySalary},
		SalaryAssignmentID: &assignmentID,
		SalaryPeriod:       period,
	})
	if err != nil {
		return false, err
	}
	if len(linked) > 0 {
		return true, nil
	}
	return s.legacyRecordExists(ctx, ledgerSvc, assignment.LaboratoryID, assignment.PersonName, now)
}

func (s *service) legacyRecordExists(ctx context.Context, ledgerSvc ledger.Service, labID uuid.UUID, personName string, now time.Time) (bool, error) {
	if personName == "" {
		return false, nil
	}
	from, before := monthBounds(now)
	unlinked, err := ledgerSvc.Search(ctx, ledger.EntryFilter{
		LaboratoryID: labID,
		Kind:         enums.LedgerEntryKindExpense,
		Categories:   []enums.LedgerCategory{enums.LedgerCategorySalary},
		UnlinkedOnly: true,
		PostedFrom:   &from,
		PostedBefore: &before,
	})
	if err != nil {
		return false, err
	}
	for _, entry := range unlinked {
		if strings.Contains(entry.Description, personName) {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) Salaries(ctx context.Context, labID uuid.UUID) ([]models.SalaryAssignment, error) {
	if labID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}
	rows, err := s.repo.ListByLaboratory(ctx, labID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list salary assignments")
	}
	return rows, nil
}

func (s *service) HasMonthlySalaryRecord(ctx context.Context, labID uuid.UUID, personID, personName string) (bool, error) {
	if labID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}
	personID = strings.TrimSpace(personID)
	personName = strings.TrimSpace(personName)
	now := s.now().UTC()

	assignment, err := s.repo.FindByPersonAndLab(ctx, labID, personID)
	switch {
	case err == nil:
		if personName == "" {
			personName = assignment.PersonName
		}
		assignment.PersonName = personName
		return s.monthlyRecordExists(ctx, s.ledger, assignment, now)
	case db.IsNotFound(err):
		return s.legacyRecordExists(ctx, s.ledger, labID, personName, now)
	default:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup salary assignment")
	}
}

func (s *service) SalaryAdjustmentHistory(ctx context.Context, labID uuid.UUID, personName string) ([]models.LedgerEntry, error) {
	personName = strings.TrimSpace(personName)
	if personName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "person name is required")
	}
	entries, err := s.ledger.Search(ctx, ledger.EntryFilter{
		LaboratoryID: labID,
		Categories:   []enums.LedgerCategory{enums.LedgerCategorySalary, enums.LedgerCategorySalaryAdjustment},
	})
	if err != nil {
		return nil, err
	}
	history := make([]models.LedgerEntry, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry.Description, personName) {
			history = append(history, entry)
		}
	}
	return history, nil
}

func (s *service) MarkPaid(ctx context.Context, labID uuid.UUID, personID string) (*models.SalaryAssignment, error) {
	ctx = s.logg.WithOperation(ctx, "salary.mark_paid")
	if labID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}
	assignment, err := s.repo.FindByPersonAndLab(ctx, labID, strings.TrimSpace(personID))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "salary assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup salary assignment")
	}
	if assignment.Status != enums.SalaryStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "salary already paid").WithDetails(map[string]any{
			"status": assignment.Status,
		})
	}

	rows, err := s.repo.UpdateStatus(ctx, assignment.ID, enums.SalaryStatusPending, enums.SalaryStatusPaid)
	if err != nil {
		return nil, pkgerrors.FromStore(err, "update salary status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "salary status changed concurrently")
	}
	assignment.Status = enums.SalaryStatusPaid
	return assignment, nil
}

// paymentDate is the configured day of the month following effective.
func (s *service) paymentDate(effective time.Time) time.Time {
	return time.Date(effective.Year(), effective.Month()+1, s.paymentDay, 0, 0, 0, 0, time.UTC)
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
