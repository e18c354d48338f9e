package expenses

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/labfunds-backend/api/middleware"
	"github.com/angelmondragon/labfunds-backend/api/responses"
	"github.com/angelmondragon/labfunds-backend/api/validators"
	internalexpenses "github.com/angelmondragon/labfunds-backend/internal/expenses"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/users"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/pagination"
)

const (
	attachmentsField   = "attachments"
	multipartMemory    = 8 << 20
	maxAttachmentFiles = 10
)

// PersonDirectory resolves the requester's display name.
type PersonDirectory interface {
	GetPerson(ctx context.Context, personID string) (*users.Person, error)
}

type createRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	InvoiceNumber string          `json:"invoice_number" validate:"max=64"`
	Category      string          `json:"category" validate:"required,max=64"`
	Description   string          `json:"description" validate:"max=2000"`
	Purpose       string          `json:"purpose" validate:"max=2000"`
}

type reviewRequest struct {
	Approved    *bool  `json:"approved" validate:"required"`
	ReviewNotes string `json:"review_notes" validate:"max=2000"`
}

// List pages through every request of the laboratory for the professor, and
// only their own requests for other members. An optional status narrows it.
func List(svc internalexpenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, actorID, ok := scope(svc, logg, w, r)
		if !ok {
			return
		}
		mine, err := validators.ParseQueryBool(r, "mine")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalexpenses.BrowseInput{
			LaboratoryID: lab.ID,
			Page:         pagination.Request{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		}
		if !lab.IsCreator(actorID) || mine {
			input.RequesterID = actorID
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseExpenseRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			input.Status = status
		}

		page, err := svc.Browse(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Pending returns the review queue.
func Pending(svc internalexpenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, _, ok := scope(svc, logg, w, r)
		if !ok {
			return
		}
		requests, err := svc.Pending(r.Context(), lab.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests)
	}
}

// Create accepts a JSON body or a multipart form with files under "attachments".
func Create(svc internalexpenses.Service, people PersonDirectory, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lab, actorID, ok := scope(svc, logg, w, r)
		if !ok {
			return
		}

		var (
			body    createRequest
			uploads []internalexpenses.AttachmentUpload
			err     error
		)
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			body, uploads, err = parseMultipart(w, r, maxBodyBytes)
		} else {
			err = validators.DecodeJSONBody(w, r, &body)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		name := actorID
		if people != nil {
			if person, lookupErr := people.GetPerson(r.Context(), actorID); lookupErr == nil && person.Name != "" {
				name = person.Name
			}
		}

		result, err := svc.Create(r.Context(), internalexpenses.CreateInput{
			LaboratoryID:  lab.ID,
			RequesterID:   actorID,
			RequesterName: name,
			Amount:        body.Amount,
			InvoiceNumber: body.InvoiceNumber,
			Category:      body.Category,
			Description:   body.Description,
			Purpose:       body.Purpose,
			Attachments:   uploads,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// Detail returns one request with its attachments.
func Detail(svc internalexpenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, ok := visibleRequest(svc, logg, w, r)
		if !ok {
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// Review approves or rejects a pending request.
func Review(svc internalexpenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, ok := visibleRequest(svc, logg, w, r)
		if !ok {
			return
		}
		var body reviewRequest
		if err := validators.DecodeJSONBody(w, r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reviewed, err := svc.Review(r.Context(), internalexpenses.ReviewInput{
			RequestID:   request.ID,
			ReviewerID:  middleware.ActorIDFromContext(r.Context()),
			Approved:    *body.Approved,
			ReviewNotes: body.ReviewNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reviewed)
	}
}

// Delete withdraws the caller's own pending request.
func Delete(svc internalexpenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, ok := visibleRequest(svc, logg, w, r)
		if !ok {
			return
		}
		if err := svc.DeleteStrict(r.Context(), request.ID, middleware.ActorIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// Attachment streams one stored attachment.
func Attachment(svc internalexpenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, ok := visibleRequest(svc, logg, w, r)
		if !ok {
			return
		}
		attachmentID, err := validators.PathUUID(r, "attachmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attachment, reader, err := svc.OpenAttachment(r.Context(), request.ID, attachmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer reader.Close()

		w.Header().Set("Content-Type", attachment.ContentType)
		w.Header().Set("Content-Length", fmt.Sprintf("%d", attachment.SizeBytes))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": attachment.FileName}))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, reader); err != nil && logg != nil {
			logg.Error(logg.WithField(r.Context(), "attachment_id", attachmentID.String()), "stream attachment", err)
		}
	}
}

func scope(svc internalexpenses.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) (*labs.Laboratory, string, bool) {
	lab := middleware.LabFromContext(r.Context())
	actorID := middleware.ActorIDFromContext(r.Context())
	if svc == nil || lab == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "expense service unavailable"))
		return nil, "", false
	}
	if actorID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing"))
		return nil, "", false
	}
	return lab, actorID, true
}

// visibleRequest loads {requestId} when it belongs to the laboratory and the
// caller is its requester or the professor.
func visibleRequest(svc internalexpenses.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) (*models.ExpenseRequest, bool) {
	lab, actorID, ok := scope(svc, logg, w, r)
	if !ok {
		return nil, false
	}
	requestID, err := validators.PathUUID(r, "requestId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	request, err := svc.WithAttachments(r.Context(), requestID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	if request.LaboratoryID != lab.ID {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "expense request not found"))
		return nil, false
	}
	if request.RequesterID != actorID && !lab.IsCreator(actorID) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "expense request belongs to another member"))
		return nil, false
	}
	return request, true
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBodyBytes int64) (createRequest, []internalexpenses.AttachmentUpload, error) {
	var body createRequest
	if maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return body, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		return body, nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"amount": "must be a decimal number"})
	}
	body = createRequest{
		Amount:        amount,
		InvoiceNumber: r.FormValue("invoice_number"),
		Category:      r.FormValue("category"),
		Description:   r.FormValue("description"),
		Purpose:       r.FormValue("purpose"),
	}

	files := r.MultipartForm.File[attachmentsField]
	if len(files) > maxAttachmentFiles {
		return body, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d attachments per request", maxAttachmentFiles))
	}
	uploads := make([]internalexpenses.AttachmentUpload, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return body, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read attachment")
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return body, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read attachment")
		}
		uploads = append(uploads, internalexpenses.AttachmentUpload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return body, uploads, nil
}
