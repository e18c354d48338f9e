package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/metrics"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service posts ledger entries and derives laboratory totals from them.
type Service interface {
	WithTx(tx *gorm.DB) Service
	PostIncome(ctx context.Context, input PostInput) (*models.LedgerEntry, error)
	PostExpense(ctx context.Context, input PostInput) (*models.LedgerEntry, error)
	TotalIncome(ctx context.Context, labID uuid.UUID) (decimal.Decimal, error)
	TotalExpense(ctx context.Context, labID uuid.UUID) (decimal.Decimal, error)
	Balance(ctx context.Context, labID uuid.UUID) (decimal.Decimal, error)
	Entries(ctx context.Context, labID uuid.UUID) ([]models.LedgerEntry, error)
	Entry(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error)
	Summary(ctx context.Context, labID uuid.UUID) (*Summary, error)
	Search(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, error)
	Browse(ctx context.Context, filter EntryFilter, req pagination.Request) (*EntryPage, error)
	UpdateDetails(ctx context.Context, entryID uuid.UUID, input UpdateDetailsInput) (*models.LedgerEntry, error)
	Delete(ctx context.Context, entryID uuid.UUID) error
}

// PostInput carries the data of one posting. Amount must be positive; callers
// validate it before posting.
type PostInput struct {
	LaboratoryID       uuid.UUID
	Amount             decimal.Decimal
	Description        string
	Category           enums.LedgerCategory
	ActorID            string
	SalaryAssignmentID *uuid.UUID
	SalaryPeriod       string
}

// UpdateDetailsInput is the correction path. Nil fields stay untouched; kind
// and amount can never change.
type UpdateDetailsInput struct {
	Description *string
	Category    *enums.LedgerCategory
	PostedAt    *time.Time
}

// Summary is the income, expense and balance of one laboratory.
type Summary struct {
	LaboratoryID uuid.UUID       `json:"laboratory_id"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
	EntryCount   int             `json:"entry_count"`
}

// EntryPage is one page of a ledger listing. Cursor is empty on the last page.
type EntryPage struct {
	Items  []models.LedgerEntry `json:"items"`
	Cursor string               `json:"cursor"`
}

// ServiceParams wires ledger dependencies.
type ServiceParams struct {
	Repository Repository
	Logger     *logger.Logger
	Metrics    *metrics.FinanceMetrics
	Now        func() time.Time
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.FinanceMetrics
	now     func() time.Time
}

// NewService wires a ledger service with the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repository,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	return &clone
}

func (s *service) PostIncome(ctx context.Context, input PostInput) (*models.LedgerEntry, error) {
	return s.post(ctx, enums.LedgerEntryKindIncome, input)
}

func (s *service) PostExpense(ctx context.Context, input PostInput) (*models.LedgerEntry, error) {
	return s.post(ctx, enums.LedgerEntryKindExpense, input)
}

func (s *service) post(ctx context.Context, kind enums.LedgerEntryKind, input PostInput) (*models.LedgerEntry, error) {
	ctx = s.logg.WithOperation(ctx, "ledger.post")
	if input.LaboratoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}

	entry := &models.LedgerEntry{
		ID:                 uuid.New(),
		LaboratoryID:       input.LaboratoryID,
		Kind:               kind,
		Amount:             input.Amount,
		Description:        strings.TrimSpace(input.Description),
		Category:           enums.NormalizeLedgerCategory(string(input.Category)),
		PostedAt:           s.now().UTC(),
		CreatedBy:          input.ActorID,
		SalaryAssignmentID: input.SalaryAssignmentID,
		SalaryPeriod:       input.SalaryPeriod,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.FromStore(err, "create ledger entry")
	}

	s.metrics.ObservePosting(string(kind), string(entry.Category), entry.Amount.InexactFloat64())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lab_id":   entry.LaboratoryID.String(),
		"entry_id": entry.ID.String(),
		"kind":     string(kind),
		"category": string(entry.Category),
		"amount":   entry.Amount.String(),
	})
	s.logg.Debug(logCtx, "ledger entry posted")
	return entry, nil
}

func (s *service) TotalIncome(ctx context.Context, labID uuid.UUID) (decimal.Decimal, error) {
	return s.total(ctx, labID, enums.LedgerEntryKindIncome)
}

func (s *service) TotalExpense(ctx context.Context, labID uuid.UUID) (decimal.Decimal, error) {
	return s.total(ctx, labID, enums.LedgerEntryKindExpense)
}

func (s *service) total(ctx context.Context, labID uuid.UUID, kind enums.LedgerEntryKind) (decimal.Decimal, error) {
	entries, err := s.repo.List(ctx, EntryFilter{LaboratoryID: labID, Kind: kind})
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Amount)
	}
	return sum, nil
}

// Balance recomputes income minus expense from every entry of the laboratory.
func (s *service) Balance(ctx context.Context, labID uuid.UUID) (decimal.Decimal, error) {
	summary, err := s.Summary(ctx, labID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.Balance, nil
}

func (s *service) Entries(ctx context.Context, labID uuid.UUID) ([]models.LedgerEntry, error) {
	entries, err := s.repo.List(ctx, EntryFilter{LaboratoryID: labID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}

func (s *service) Summary(ctx context.Context, labID uuid.UUID) (*Summary, error) {
	entries, err := s.Entries(ctx, labID)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		LaboratoryID: labID,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		EntryCount:   len(entries),
	}
	for _, entry := range entries {
		switch entry.Kind {
		case enums.LedgerEntryKindIncome:
			summary.TotalIncome = summary.TotalIncome.Add(entry.Amount)
		case enums.LedgerEntryKindExpense:
			summary.TotalExpense = summary.TotalExpense.Add(entry.Amount)
		}
	}
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return summary, nil
}

func (s *service) Search(ctx context.Context, filter EntryFilter) ([]models.LedgerEntry, error) {
	if filter.LaboratoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search ledger entries")
	}
	return entries, nil
}

func (s *service) Browse(ctx context.Context, filter EntryFilter, req pagination.Request) (*EntryPage, error) {
	page, err := req.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.After = page.After
	filter.Limit = page.Fetch()
	entries, err := s.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	items, next := pagination.Trim(entries, page, func(e models.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{At: e.PostedAt, ID: e.ID}
	})
	if items == nil {
		items = []models.LedgerEntry{}
	}
	return &EntryPage{Items: items, Cursor: next}, nil
}

func (s *service) Entry(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	return s.find(ctx, entryID)
}

func (s *service) UpdateDetails(ctx context.Context, entryID uuid.UUID, input UpdateDetailsInput) (*models.LedgerEntry, error) {
	entry, err := s.find(ctx, entryID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		fields["description"] = description
		entry.Description = description
	}
	if input.Category != nil {
		category := enums.NormalizeLedgerCategory(string(*input.Category))
		fields["category"] = category
		entry.Category = category
	}
	if input.PostedAt != nil {
		if input.PostedAt.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "posted_at cannot be zero")
		}
		postedAt := input.PostedAt.UTC()
		fields["posted_at"] = postedAt
		entry.PostedAt = postedAt
	}
	if len(fields) == 0 {
		return entry, nil
	}

	if err := s.repo.UpdateDetails(ctx, entryID, fields); err != nil {
		return nil, pkgerrors.FromStore(err, "update ledger entry")
	}
	return entry, nil
}

func (s *service) Delete(ctx context.Context, entryID uuid.UUID) error {
	ctx = s.logg.WithOperation(ctx, "ledger.delete")
	if entryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	rows, err := s.repo.Delete(ctx, entryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ledger entry")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	s.logg.Warn(s.logg.WithField(ctx, "entry_id", entryID.String()), "ledger entry deleted")
	return nil
}

func (s *service) find(ctx context.Context, entryID uuid.UUID) (*models.LedgerEntry, error) {
	if entryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup ledger entry")
	}
	return entry, nil
}
