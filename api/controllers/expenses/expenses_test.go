package expenses

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/labfunds-backend/api/middleware"
	internalexpenses "github.com/angelmondragon/labfunds-backend/internal/expenses"
	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/internal/users"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/angelmondragon/labfunds-backend/pkg/storage/blob"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

type stubLabs struct{ lab *labs.Laboratory }

func (s stubLabs) GetLaboratory(context.Context, uuid.UUID) (*labs.Laboratory, error) {
	return s.lab, nil
}

type stubPeople map[string]string

func (s stubPeople) GetPerson(ctx context.Context, personID string) (*users.Person, error) {
	name, ok := s[personID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "person not found")
	}
	return &users.Person{ID: personID, Name: name}, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, string, notifications.Message) {}

type fixture struct {
	router http.Handler
	ledger ledger.Service
	lab    *labs.Laboratory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	lab := &labs.Laboratory{ID: uuid.New(), CreatorID: "profA", Members: []string{"s1", "s2"}}
	people := stubPeople{"s1": "Sam", "s2": "Kim"}

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{Repository: ledger.NewRepository(conn), Logger: logg})
	require.NoError(t, err)
	store, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)

	svc, err := internalexpenses.NewService(internalexpenses.ServiceParams{
		DB:          db.Wrap(conn),
		Repository:  internalexpenses.NewRepository(conn),
		Attachments: internalexpenses.NewAttachmentRepository(conn),
		Blobs:       store,
		Ledger:      ledgerSvc,
		Locker:      lock.NewLocal(),
		Labs:        stubLabs{lab: lab},
		People:      people,
		Notifier:    discardNotifier{},
		Logger:      logg,
		Money:       money.NewFormatter("USD"),
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithActorID(req.Context(), req.Header.Get(middleware.ActorHeader))
			next.ServeHTTP(w, req.WithContext(middleware.WithLab(ctx, lab)))
		})
	})
	r.Get("/expenses", List(svc, logg))
	r.Get("/expenses/pending", Pending(svc, logg))
	r.Post("/expenses", Create(svc, people, 10<<20, logg))
	r.Get("/expenses/{requestId}", Detail(svc, logg))
	r.Post("/expenses/{requestId}/review", Review(svc, logg))
	r.Delete("/expenses/{requestId}", Delete(svc, logg))
	r.Get("/expenses/{requestId}/attachments/{attachmentId}", Attachment(svc, logg))

	return &fixture{router: r, ledger: ledgerSvc, lab: lab}
}

func (f *fixture) do(t *testing.T, actor, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(middleware.ActorHeader, actor)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func multipartBody(t *testing.T, amount string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	require.NoError(t, writer.WriteField("amount", amount))
	require.NoError(t, writer.WriteField("category", "equipment"))
	require.NoError(t, writer.WriteField("description", "bench oscilloscope"))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="attachments"; filename="receipt.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(pdfBytes)
	require.NoError(t, err)

	txt, err := writer.CreateFormFile("attachments", "notes.txt")
	require.NoError(t, err)
	_, err = txt.Write([]byte("plain text"))
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	return buf, writer.FormDataContentType()
}

type createdResponse struct {
	Data struct {
		Request struct {
			ID          uuid.UUID `json:"id"`
			RequesterID string    `json:"requester_id"`
			Attachments []struct {
				ID       uuid.UUID `json:"id"`
				FileName string    `json:"file_name"`
			} `json:"attachments"`
		} `json:"request"`
		Skipped []internalexpenses.SkippedAttachment `json:"skipped_attachments"`
	} `json:"data"`
}

func TestExpenseLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.PostIncome(context.Background(), ledger.PostInput{
		LaboratoryID: f.lab.ID,
		Amount:       decimal.NewFromInt(5000),
		Description:  "grant",
	})
	require.NoError(t, err)

	body, contentType := multipartBody(t, "3000")
	resp := f.do(t, "s1", http.MethodPost, "/expenses", contentType, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created createdResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Len(t, created.Data.Request.Attachments, 1)
	require.Len(t, created.Data.Skipped, 1)
	assert.Equal(t, "notes.txt", created.Data.Skipped[0].FileName)
	requestPath := "/expenses/" + created.Data.Request.ID.String()

	resp = f.do(t, "s2", http.MethodGet, requestPath, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	attachmentPath := requestPath + "/attachments/" + created.Data.Request.Attachments[0].ID.String()
	resp = f.do(t, "profA", http.MethodGet, attachmentPath, "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, pdfBytes, resp.Body.Bytes())

	resp = f.do(t, "profA", http.MethodGet, "/expenses/pending", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), created.Data.Request.ID.String())

	resp = f.do(t, "profA", http.MethodPost, requestPath+"/review", "application/json", bytes.NewBufferString(`{"approved":true}`))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"status":"approved"`)

	balance, err := f.ledger.Balance(context.Background(), f.lab.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(2000)))

	resp = f.do(t, "s1", http.MethodDelete, requestPath, "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestExpenseInsufficientFundsOverHTTP(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, "s1", http.MethodPost, "/expenses", "application/json",
		bytes.NewBufferString(`{"amount":"6000","category":"travel","description":"conference"}`))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var created createdResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	resp = f.do(t, "profA", http.MethodPost, "/expenses/"+created.Data.Request.ID.String()+"/review", "application/json",
		bytes.NewBufferString(`{"approved":true}`))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), string(pkgerrors.CodeInsufficient))
	assert.Contains(t, resp.Body.String(), `"shortfall":"6000"`)

	resp = f.do(t, "profA", http.MethodPost, "/expenses/"+created.Data.Request.ID.String()+"/review", "application/json",
		bytes.NewBufferString(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExpenseListingAndWithdrawal(t *testing.T) {
	f := newFixture(t)

	for _, actor := range []string{"s1", "s2"} {
		resp := f.do(t, actor, http.MethodPost, "/expenses", "application/json",
			bytes.NewBufferString(`{"amount":"10","category":"supplies"}`))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	listed := f.list(t, "profA", "/expenses")
	assert.Len(t, listed.Items, 2)
	assert.Empty(t, listed.Cursor)

	listed = f.list(t, "s1", "/expenses")
	require.Len(t, listed.Items, 1)
	assert.Equal(t, "s1", listed.Items[0].RequesterID)

	path := "/expenses/" + listed.Items[0].ID.String()
	resp := f.do(t, "profA", http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, "s1", http.MethodDelete, path, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = f.do(t, "s1", http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), string(pkgerrors.CodeNotFound)))
}

type requestPage struct {
	Items []struct {
		ID          uuid.UUID `json:"id"`
		RequesterID string    `json:"requester_id"`
		Status      string    `json:"status"`
	} `json:"items"`
	Cursor string `json:"cursor"`
}

func (f *fixture) list(t *testing.T, actor, path string) requestPage {
	t.Helper()
	resp := f.do(t, actor, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var envelope struct {
		Data requestPage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestExpenseListPagesAndFiltersByStatus(t *testing.T) {
	f := newFixture(t)

	var firstID string
	for i := 0; i < 3; i++ {
		resp := f.do(t, "s1", http.MethodPost, "/expenses", "application/json",
			bytes.NewBufferString(`{"amount":"10","category":"supplies"}`))
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		if i == 0 {
			var created createdResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
			firstID = created.Data.Request.ID.String()
		}
	}
	resp := f.do(t, "profA", http.MethodPost, "/expenses/"+firstID+"/review", "application/json",
		bytes.NewBufferString(`{"approved":false}`))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	first := f.list(t, "profA", "/expenses?limit=2")
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.Cursor)
	second := f.list(t, "profA", "/expenses?limit=2&cursor="+first.Cursor)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.Cursor)
	seen := map[uuid.UUID]bool{first.Items[0].ID: true, first.Items[1].ID: true}
	assert.False(t, seen[second.Items[0].ID])

	rejected := f.list(t, "profA", "/expenses?status=rejected")
	require.Len(t, rejected.Items, 1)
	assert.Equal(t, firstID, rejected.Items[0].ID.String())

	pending := f.list(t, "s1", "/expenses?status=pending")
	assert.Len(t, pending.Items, 2)

	resp = f.do(t, "profA", http.MethodGet, "/expenses?status=archived", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = f.do(t, "profA", http.MethodGet, "/expenses?cursor=garbage!", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
