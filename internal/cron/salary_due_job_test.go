package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/labfunds-backend/internal/labs"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDueSalaries struct {
	rows []models.SalaryAssignment
	err  error
	asOf time.Time
}

func (s *stubDueSalaries) ListDue(_ context.Context, asOf time.Time) ([]models.SalaryAssignment, error) {
	s.asOf = asOf
	return s.rows, s.err
}

type stubLabs map[uuid.UUID]*labs.Laboratory

func (s stubLabs) GetLaboratory(_ context.Context, labID uuid.UUID) (*labs.Laboratory, error) {
	lab, ok := s[labID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "laboratory not found")
	}
	if lab == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lookup laboratory")
	}
	return lab, nil
}

type sentMessage struct {
	recipient string
	msg       notifications.Message
}

type capturingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (c *capturingNotifier) Notify(_ context.Context, recipient string, msg notifications.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{recipient: recipient, msg: msg})
}

func dueAssignment(labID uuid.UUID, name string, amount int64, paymentDate time.Time) models.SalaryAssignment {
	return models.SalaryAssignment{
		ID:           uuid.New(),
		LaboratoryID: labID,
		PersonID:     name,
		PersonName:   name,
		Amount:       decimal.NewFromInt(amount),
		PaymentDate:  paymentDate,
		Status:       enums.SalaryStatusPending,
	}
}

func TestSalaryDueJobNotifiesCreatorOncePerLab(t *testing.T) {
	now := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)
	paymentDate := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)
	labA := &labs.Laboratory{ID: uuid.New(), Name: "Optics", CreatorID: "profA"}
	labB := &labs.Laboratory{ID: uuid.New(), Name: "Robotics", CreatorID: "profB"}

	salaries := &stubDueSalaries{rows: []models.SalaryAssignment{
		dueAssignment(labA.ID, "Alice", 30000, paymentDate),
		dueAssignment(labA.ID, "Bob", 12000, paymentDate),
		dueAssignment(labB.ID, "Carol", 8000, paymentDate),
	}}
	notifier := &capturingNotifier{}
	formatter := money.NewFormatter("USD")

	job, err := NewSalaryDueJob(SalaryDueJobParams{
		Logger:   testLogger(),
		Salaries: salaries,
		Labs:     stubLabs{labA.ID: labA, labB.ID: labB},
		Notifier: notifier,
		Money:    formatter,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now, salaries.asOf)
	require.Len(t, notifier.sent, 2)

	first := notifier.sent[0]
	assert.Equal(t, "profA", first.recipient)
	assert.Equal(t, enums.NotificationTypeSalaryDue, first.msg.Type)
	assert.Equal(t, labA.ID, first.msg.LaboratoryID)
	assert.Contains(t, first.msg.Body, "2 salary payments are due in Optics")
	assert.Contains(t, first.msg.Body, "Alice: "+formatter.Format(decimal.NewFromInt(30000))+" (due 2026-04-05)")
	assert.Contains(t, first.msg.Body, "Bob: ")

	second := notifier.sent[1]
	assert.Equal(t, "profB", second.recipient)
	assert.Contains(t, second.msg.Body, "1 salary payment is due in Robotics")
}

func TestSalaryDueJobSkipsMissingLabsAndReportsLookupFailures(t *testing.T) {
	paymentDate := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)
	present := &labs.Laboratory{ID: uuid.New(), Name: "Optics", CreatorID: "profA"}
	missing := uuid.New()
	broken := uuid.New()

	notifier := &capturingNotifier{}
	job, err := NewSalaryDueJob(SalaryDueJobParams{
		Logger: testLogger(),
		Salaries: &stubDueSalaries{rows: []models.SalaryAssignment{
			dueAssignment(missing, "Ghost", 100, paymentDate),
			dueAssignment(broken, "Dave", 100, paymentDate),
			dueAssignment(present.ID, "Alice", 100, paymentDate),
		}},
		Labs:     stubLabs{present.ID: present, broken: nil},
		Notifier: notifier,
		Money:    money.NewFormatter("USD"),
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken.String())
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "profA", notifier.sent[0].recipient)
}

func TestSalaryDueJobPropagatesListErrors(t *testing.T) {
	job, err := NewSalaryDueJob(SalaryDueJobParams{
		Logger:   testLogger(),
		Salaries: &stubDueSalaries{err: errors.New("db down")},
		Labs:     stubLabs{},
		Notifier: &capturingNotifier{},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

func TestNewSalaryDueJobRequiresDependencies(t *testing.T) {
	_, err := NewSalaryDueJob(SalaryDueJobParams{Logger: testLogger()})
	assert.Error(t, err)
}
