package expenses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/internal/users"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/metrics"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
	"github.com/angelmondragon/labfunds-backend/pkg/storage/blob"
	"github.com/angelmondragon/labfunds-backend/pkg/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type labDirectory interface {
	GetLaboratory(ctx context.Context, labID uuid.UUID) (*labs.Laboratory, error)
}

type personDirectory interface {
	GetPerson(ctx context.Context, personID string) (*users.Person, error)
}

type blobStore interface {
	Save(ctx context.Context, data []byte, meta blob.Metadata) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Service runs the reimbursement workflow: submit, review against the
// laboratory balance, withdraw.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Review(ctx context.Context, input ReviewInput) (*models.ExpenseRequest, error)
	Delete(ctx context.Context, requestID uuid.UUID, requesterID string) (bool, error)
	DeleteStrict(ctx context.Context, requestID uuid.UUID, requesterID string) error
	ByLaboratory(ctx context.Context, labID uuid.UUID) ([]models.ExpenseRequest, error)
	Pending(ctx context.Context, labID uuid.UUID) ([]models.ExpenseRequest, error)
	ByRequester(ctx context.Context, labID uuid.UUID, requesterID string) ([]models.ExpenseRequest, error)
	Browse(ctx context.Context, input BrowseInput) (*RequestPage, error)
	WithAttachments(ctx context.Context, requestID uuid.UUID) (*models.ExpenseRequest, error)
	OpenAttachment(ctx context.Context, requestID, attachmentID uuid.UUID) (*models.ExpenseAttachment, io.ReadCloser, error)
}

// CreateInput is a reimbursement submission.
type CreateInput struct {
	LaboratoryID  uuid.UUID          `json:"laboratory_id" validate:"required"`
	RequesterID   string             `json:"requester_id" validate:"required"`
	RequesterName string             `json:"requester_name" validate:"required"`
	Amount        decimal.Decimal    `json:"amount" validate:"gt=0"`
	InvoiceNumber string             `json:"invoice_number" validate:"max=64"`
	Category      string             `json:"category" validate:"required,max=64"`
	Description   string             `json:"description" validate:"max=2000"`
	Purpose       string             `json:"purpose" validate:"max=2000"`
	Attachments   []AttachmentUpload `json:"-"`
}

// CreateResult carries the stored request and any attachments that were skipped.
type CreateResult struct {
	Request *models.ExpenseRequest `json:"request"`
	Skipped []SkippedAttachment    `json:"skipped_attachments"`
}

// ReviewInput records a reviewer's decision.
type ReviewInput struct {
	RequestID   uuid.UUID `json:"request_id" validate:"required"`
	ReviewerID  string    `json:"reviewer_id" validate:"required"`
	Approved    bool      `json:"approved"`
	ReviewNotes string    `json:"review_notes" validate:"max=2000"`
}

// BrowseInput pages a laboratory's requests. Empty RequesterID and Status
// match every request.
type BrowseInput struct {
	LaboratoryID uuid.UUID
	RequesterID  string
	Status       enums.ExpenseRequestStatus
	Page         pagination.Request
}

// RequestPage is one page of requests. Cursor is empty on the last page.
type RequestPage struct {
	Items  []models.ExpenseRequest `json:"items"`
	Cursor string                  `json:"cursor"`
}

// InsufficientFundsDetails is attached to INSUFFICIENT_FUNDS errors.
type InsufficientFundsDetails struct {
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Currency  string          `json:"currency,omitempty"`
}

// ServiceParams wires expense workflow dependencies.
type ServiceParams struct {
	DB                  txRunner
	Repository          Repository
	Attachments         AttachmentRepository
	Blobs               blobStore
	Ledger              ledger.Service
	Locker              lock.Locker
	Labs                labDirectory
	People              personDirectory
	Notifier            notifications.Notifier
	Logger              *logger.Logger
	Metrics             *metrics.FinanceMetrics
	Money               money.Formatter
	MaxAttachmentBytes  int64
	AttachmentMimeTypes []string
	Now                 func() time.Time
}

type service struct {
	db          txRunner
	repo        Repository
	attachments AttachmentRepository
	blobs       blobStore
	ledger      ledger.Service
	locker      lock.Locker
	labs        labDirectory
	people      personDirectory
	notifier    notifications.Notifier
	logg        *logger.Logger
	metrics     *metrics.FinanceMetrics
	money       money.Formatter
	policy      attachmentPolicy
	now         func() time.Time
}

// NewService builds the expense approval service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("expense repository required")
	case params.Attachments == nil:
		return nil, fmt.Errorf("attachment repository required")
	case params.Blobs == nil:
		return nil, fmt.Errorf("blob store required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case params.Labs == nil:
		return nil, fmt.Errorf("laboratory directory required")
	case params.People == nil:
		return nil, fmt.Errorf("person directory required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		repo:        params.Repository,
		attachments: params.Attachments,
		blobs:       params.Blobs,
		ledger:      params.Ledger,
		locker:      params.Locker,
		labs:        params.Labs,
		people:      params.People,
		notifier:    params.Notifier,
		logg:        params.Logger,
		metrics:     params.Metrics,
		money:       params.Money,
		policy:      newAttachmentPolicy(params.MaxAttachmentBytes, params.AttachmentMimeTypes),
		now:         now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	ctx = s.logg.WithOperation(ctx, "expense.create")
	input.RequesterID = strings.TrimSpace(input.RequesterID)
	input.RequesterName = strings.TrimSpace(input.RequesterName)
	input.Category = strings.TrimSpace(input.Category)
	if err := validation.Struct(&input); err != nil {
		return nil, err
	}

	accepted, skipped := s.policy.partition(input.Attachments)
	now := s.now().UTC()
	request := &models.ExpenseRequest{
		ID:            uuid.New(),
		LaboratoryID:  input.LaboratoryID,
		RequesterID:   input.RequesterID,
		RequesterName: input.RequesterName,
		Amount:        input.Amount,
		InvoiceNumber: strings.TrimSpace(input.InvoiceNumber),
		Category:      input.Category,
		Description:   strings.TrimSpace(input.Description),
		Purpose:       strings.TrimSpace(input.Purpose),
		Status:        enums.ExpenseRequestStatusPending,
		RequestedAt:   now,
	}

	stored, err := s.saveBlobs(ctx, request.ID, accepted)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			return pkgerrors.FromStore(err, "create expense request")
		}
		attachmentRepo := s.attachments.WithTx(tx)
		for i := range stored {
			if err := attachmentRepo.Create(ctx, &stored[i]); err != nil {
				return pkgerrors.FromStore(err, "create expense attachment")
			}
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, stored)
		return nil, err
	}
	request.Attachments = stored

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lab_id":      request.LaboratoryID.String(),
		"request_id":  request.ID.String(),
		"attachments": len(stored),
		"skipped":     len(skipped),
	})
	if len(skipped) > 0 {
		s.logg.Warn(logCtx, "expense request stored with skipped attachments")
	} else {
		s.logg.Info(logCtx, "expense request submitted")
	}

	s.notifyProfessor(ctx, request.LaboratoryID, notifications.Message{
		LaboratoryID: request.LaboratoryID,
		Type:         enums.NotificationTypeExpenseSubmitted,
		Title:        "New expense request",
		Body: fmt.Sprintf("%s submitted a %s expense request for %s.",
			request.RequesterName, request.Category, s.money.Format(request.Amount)),
	})

	return &CreateResult{Request: request, Skipped: skipped}, nil
}

func (s *service) saveBlobs(ctx context.Context, requestID uuid.UUID, accepted []acceptedAttachment) ([]models.ExpenseAttachment, error) {
	stored := make([]models.ExpenseAttachment, 0, len(accepted))
	for _, file := range accepted {
		key, err := s.blobs.Save(ctx, file.upload.Data, blob.Metadata{
			FileName:    file.upload.FileName,
			ContentType: file.contentType,
			Extension:   extensionFor(file.contentType, file.upload.FileName),
		})
		if err != nil {
			s.discardBlobs(ctx, stored)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store attachment")
		}
		stored = append(stored, models.ExpenseAttachment{
			ID:               uuid.New(),
			ExpenseRequestID: requestID,
			FileName:         file.upload.FileName,
			ContentType:      file.contentType,
			SizeBytes:        int64(len(file.upload.Data)),
			StoragePath:      key,
		})
	}
	return stored, nil
}

// discardBlobs removes stored bytes whose metadata never committed or was deleted.
func (s *service) discardBlobs(ctx context.Context, attachments []models.ExpenseAttachment) {
	var errs error
	for _, attachment := range attachments {
		errs = multierr.Append(errs, s.blobs.Delete(ctx, attachment.StoragePath))
	}
	if errs != nil {
		logCtx := s.logg.WithField(ctx, "failed_blobs", len(multierr.Errors(errs)))
		s.logg.Error(logCtx, "failed to delete attachment blobs", errs)
	}
}

func (s *service) Review(ctx context.Context, input ReviewInput) (*models.ExpenseRequest, error) {
	ctx = s.logg.WithOperation(ctx, "expense.review")
	input.ReviewerID = strings.TrimSpace(input.ReviewerID)
	if err := validation.Struct(&input); err != nil {
		return nil, err
	}

	request, err := s.find(ctx, s.repo, input.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != enums.ExpenseRequestStatusPending {
		return nil, stateConflict(request.Status)
	}

	unlock, err := s.locker.Lock(ctx, lock.LabKey(request.LaboratoryID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire laboratory lock")
	}
	defer unlock()

	var shortfall *InsufficientFundsDetails
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.find(ctx, repo, input.RequestID)
		if err != nil {
			return err
		}
		if current.Status != enums.ExpenseRequestStatusPending {
			return stateConflict(current.Status)
		}
		request = current

		ledgerSvc := s.ledger.WithTx(tx)
		if input.Approved {
			balance, err := ledgerSvc.Balance(ctx, request.LaboratoryID)
			if err != nil {
				return err
			}
			if request.Amount.GreaterThan(balance) {
				shortfall = &InsufficientFundsDetails{
					Amount:    request.Amount,
					Balance:   balance,
					Shortfall: request.Amount.Sub(balance),
					Currency:  s.money.Currency(),
				}
				return s.insufficientFunds(shortfall)
			}
		}

		reviewedAt := s.now().UTC()
		reviewerID := input.ReviewerID
		request.ReviewedAt = &reviewedAt
		request.ReviewerID = &reviewerID
		if notes := strings.TrimSpace(input.ReviewNotes); notes != "" {
			request.ReviewNotes = &notes
		}
		request.Status = enums.ExpenseRequestStatusRejected
		if input.Approved {
			request.Status = enums.ExpenseRequestStatusApproved
		}

		rows, err := repo.UpdateReview(ctx, request)
		if err != nil {
			return pkgerrors.FromStore(err, "update expense request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "expense request is no longer pending")
		}

		if input.Approved {
			if _, err := ledgerSvc.PostExpense(ctx, ledger.PostInput{
				LaboratoryID: request.LaboratoryID,
				Amount:       request.Amount,
				Description:  fmt.Sprintf("Reimbursement to %s: %s", request.RequesterName, request.Category),
				Category:     enums.LedgerCategoryExpenseReimbursement,
				ActorID:      reviewerID,
			}); err != nil {
				return err
			}
		}
		return nil
	})

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lab_id":      request.LaboratoryID.String(),
		"request_id":  request.ID.String(),
		"reviewer_id": input.ReviewerID,
		"approved":    input.Approved,
	})

	if shortfall != nil {
		s.metrics.IncReview(metrics.OutcomeInsufficientFunds)
		s.logg.Warn(logCtx, "expense approval refused: insufficient funds")
		s.notifyProfessor(ctx, request.LaboratoryID, notifications.Message{
			LaboratoryID: request.LaboratoryID,
			Type:         enums.NotificationTypeInsufficientFunds,
			Title:        "Insufficient funds",
			Body: fmt.Sprintf("Cannot approve %s's request for %s: balance is %s (short by %s).",
				request.RequesterName, s.money.Format(shortfall.Amount),
				s.money.Format(shortfall.Balance), s.money.Format(shortfall.Shortfall)),
		})
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeRejected
	if input.Approved {
		outcome = metrics.OutcomeApproved
	}
	s.metrics.IncReview(outcome)
	s.logg.Info(logCtx, "expense request reviewed")
	s.notifyRequester(ctx, request)

	// The review is committed; a failed attachment read must not report it as failed.
	if err := s.hydrate(ctx, []*models.ExpenseRequest{request}); err != nil {
		s.logg.Error(logCtx, "reviewed request returned without attachments", err)
		request.Attachments = []models.ExpenseAttachment{}
	}
	return request, nil
}

func (s *service) insufficientFunds(details *InsufficientFundsDetails) error {
	message := fmt.Sprintf("insufficient funds: requested %s, available %s",
		s.money.Format(details.Amount), s.money.Format(details.Balance))
	return pkgerrors.New(pkgerrors.CodeInsufficient, message).WithDetails(details)
}

func stateConflict(status enums.ExpenseRequestStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "expense request is not pending").WithDetails(map[string]any{
		"status": status,
	})
}

// Delete withdraws a pending request owned by requesterID. Every domain
// refusal reports false without an error; infrastructure failures are returned.
func (s *service) Delete(ctx context.Context, requestID uuid.UUID, requesterID string) (bool, error) {
	err := s.DeleteStrict(ctx, requestID, requesterID)
	if err == nil {
		return true, nil
	}
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() != pkgerrors.CodeDependency && typed.Code() != pkgerrors.CodeInternal {
		return false, nil
	}
	return false, err
}

// DeleteStrict behaves like Delete but reports why a withdrawal was refused.
func (s *service) DeleteStrict(ctx context.Context, requestID uuid.UUID, requesterID string) error {
	ctx = s.logg.WithOperation(ctx, "expense.withdraw")
	requesterID = strings.TrimSpace(requesterID)
	if requestID == uuid.Nil || requesterID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id and requester id are required")
	}

	request, err := s.find(ctx, s.repo, requestID)
	if err != nil {
		return err
	}
	if request.RequesterID != requesterID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can withdraw an expense request")
	}
	if request.Status != enums.ExpenseRequestStatusPending {
		return stateConflict(request.Status)
	}

	var removed []models.ExpenseAttachment
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		attachmentRepo := s.attachments.WithTx(tx)
		rows, err := attachmentRepo.ListByRequestIDs(ctx, []uuid.UUID{requestID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expense attachments")
		}
		if _, err := attachmentRepo.DeleteByRequestID(ctx, requestID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expense attachments")
		}
		deleted, err := s.repo.WithTx(tx).DeletePending(ctx, requestID, requesterID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expense request")
		}
		if deleted == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "expense request is no longer pending")
		}
		removed = rows
		return nil
	})
	if err != nil {
		return err
	}

	s.discardBlobs(ctx, removed)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"lab_id":      request.LaboratoryID.String(),
		"request_id":  requestID.String(),
		"attachments": len(removed),
	})
	s.logg.Info(logCtx, "expense request withdrawn")
	return nil
}

func (s *service) ByLaboratory(ctx context.Context, labID uuid.UUID) ([]models.ExpenseRequest, error) {
	return s.list(ctx, listQuery{laboratoryID: labID})
}

func (s *service) Pending(ctx context.Context, labID uuid.UUID) ([]models.ExpenseRequest, error) {
	return s.list(ctx, listQuery{laboratoryID: labID, status: enums.ExpenseRequestStatusPending})
}

func (s *service) ByRequester(ctx context.Context, labID uuid.UUID, requesterID string) ([]models.ExpenseRequest, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id is required")
	}
	return s.list(ctx, listQuery{laboratoryID: labID, requesterID: requesterID})
}

func (s *service) Browse(ctx context.Context, input BrowseInput) (*RequestPage, error) {
	page, err := input.Page.Decode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.list(ctx, listQuery{
		laboratoryID: input.LaboratoryID,
		status:       input.Status,
		requesterID:  strings.TrimSpace(input.RequesterID),
		after:        page.After,
		limit:        page.Fetch(),
	})
	if err != nil {
		return nil, err
	}
	items, next := pagination.Trim(rows, page, func(r models.ExpenseRequest) pagination.Cursor {
		return pagination.Cursor{At: r.RequestedAt, ID: r.ID}
	})
	if items == nil {
		items = []models.ExpenseRequest{}
	}
	return &RequestPage{Items: items, Cursor: next}, nil
}

func (s *service) WithAttachments(ctx context.Context, requestID uuid.UUID) (*models.ExpenseRequest, error) {
	request, err := s.find(ctx, s.repo, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*models.ExpenseRequest{request}); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) OpenAttachment(ctx context.Context, requestID, attachmentID uuid.UUID) (*models.ExpenseAttachment, io.ReadCloser, error) {
	attachment, err := s.attachments.FindByID(ctx, requestID, attachmentID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup attachment")
	}
	reader, err := s.blobs.Open(ctx, attachment.StoragePath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "attachment content missing")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open attachment")
	}
	return attachment, reader, nil
}

func (s *service) list(ctx context.Context, query listQuery) ([]models.ExpenseRequest, error) {
	if query.laboratoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laboratory id is required")
	}
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expense requests")
	}
	refs := make([]*models.ExpenseRequest, len(rows))
	for i := range rows {
		refs[i] = &rows[i]
	}
	if err := s.hydrate(ctx, refs); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *service) hydrate(ctx context.Context, requests []*models.ExpenseRequest) error {
	if len(requests) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(requests))
	for i, request := range requests {
		ids[i] = request.ID
	}
	rows, err := s.attachments.ListByRequestIDs(ctx, ids)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expense attachments")
	}
	byRequest := make(map[uuid.UUID][]models.ExpenseAttachment, len(requests))
	for _, row := range rows {
		byRequest[row.ExpenseRequestID] = append(byRequest[row.ExpenseRequestID], row)
	}
	for _, request := range requests {
		request.Attachments = byRequest[request.ID]
		if request.Attachments == nil {
			request.Attachments = []models.ExpenseAttachment{}
		}
	}
	return nil
}

func (s *service) find(ctx context.Context, repo Repository, requestID uuid.UUID) (*models.ExpenseRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	request, err := repo.FindByID(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "expense request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup expense request")
	}
	return request, nil
}

func (s *service) notifyProfessor(ctx context.Context, labID uuid.UUID, msg notifications.Message) {
	lab, err := s.labs.GetLaboratory(ctx, labID)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "lab_id", labID.String()), "resolve laboratory professor", err)
		return
	}
	s.notifier.Notify(ctx, lab.CreatorID, msg)
}

func (s *service) notifyRequester(ctx context.Context, request *models.ExpenseRequest) {
	name := request.RequesterName
	if person, err := s.people.GetPerson(ctx, request.RequesterID); err == nil && person.Name != "" {
		name = person.Name
	} else if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "requester_id", request.RequesterID), "requester lookup failed")
	}

	verb := "rejected"
	if request.Status == enums.ExpenseRequestStatusApproved {
		verb = "approved"
	}
	body := fmt.Sprintf("Hi %s, your %s expense request for %s was %s.",
		name, request.Category, s.money.Format(request.Amount), verb)
	if request.ReviewNotes != nil {
		body += " Notes: " + *request.ReviewNotes
	}
	s.notifier.Notify(ctx, request.RequesterID, notifications.Message{
		LaboratoryID: request.LaboratoryID,
		Type:         enums.NotificationTypeExpenseReviewed,
		Title:        "Expense request " + verb,
		Body:         body,
	})
}
