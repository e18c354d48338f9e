package salaries

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/labfunds-backend/internal/ledger"
	"github.com/angelmondragon/labfunds-backend/internal/notifications"
	"github.com/angelmondragon/labfunds-backend/pkg/db"
	"github.com/angelmondragon/labfunds-backend/pkg/db/dbtest"
	"github.com/angelmondragon/labfunds-backend/pkg/db/models"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/angelmondragon/labfunds-backend/pkg/lock"
	"github.com/angelmondragon/labfunds-backend/pkg/logger"
	"github.com/angelmondragon/labfunds-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][]notifications.Message
}

func (n *recordingNotifier) Notify(ctx context.Context, recipient string, msg notifications.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = map[string][]notifications.Message{}
	}
	n.messages[recipient] = append(n.messages[recipient], msg)
}

func (n *recordingNotifier) count(recipient string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages[recipient])
}

type harness struct {
	svc      Service
	ledger   ledger.Service
	conn     *gorm.DB
	clock    *testClock
	notifier *recordingNotifier
	labID    uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	clock := &testClock{current: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repository: ledger.NewRepository(conn),
		Logger:     logg,
		Now:        clock.Now,
	})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		DB:         db.Wrap(conn),
		Repository: NewRepository(conn),
		Ledger:     ledgerSvc,
		Locker:     lock.NewLocal(),
		Notifier:   notifier,
		Logger:     logg,
		Money:      money.NewFormatter("USD"),
		Now:        clock.Now,
	})
	require.NoError(t, err)

	return &harness{
		svc:      svc,
		ledger:   ledgerSvc,
		conn:     conn,
		clock:    clock,
		notifier: notifier,
		labID:    uuid.New(),
	}
}

func (h *harness) set(t *testing.T, personID, name, value string) *SetSalaryResult {
	t.Helper()
	result, err := h.svc.SetSalary(context.Background(), SetSalaryInput{
		LaboratoryID: h.labID,
		PersonID:     personID,
		PersonName:   name,
		Amount:       decimal.RequireFromString(value),
		ActorID:      "profA",
	})
	require.NoError(t, err)
	return result
}

func (h *harness) entries(t *testing.T) []models.LedgerEntry {
	t.Helper()
	entries, err := h.ledger.Entries(context.Background(), h.labID)
	require.NoError(t, err)
	return entries
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestSetSalary_FirstAssignmentThenIncrease(t *testing.T) {
	h := newHarness(t)

	first := h.set(t, "u1", "Alice", "30000")
	assert.True(t, first.Created)
	assert.Equal(t, ActionCreated, first.Action)
	assert.True(t, first.Assignment.Amount.Equal(decimal.NewFromInt(30000)))
	assert.Equal(t, enums.SalaryStatusPending, first.Assignment.Status)
	assert.Equal(t, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), first.Assignment.PaymentDate)
	require.Len(t, first.Postings, 1)
	assert.Equal(t, enums.LedgerEntryKindExpense, first.Postings[0].Kind)
	assert.Equal(t, enums.LedgerCategorySalary, first.Postings[0].Category)
	assert.Contains(t, first.Postings[0].Description, "Alice")
	assert.Contains(t, first.Postings[0].Description, "2026-03")
	assert.Contains(t, first.Postings[0].Description, "u1")

	second := h.set(t, "u1", "Alice", "35000")
	assert.False(t, second.Created)
	assert.Equal(t, ActionIncrease, second.Action)
	require.Len(t, second.Postings, 1)
	assert.Equal(t, enums.LedgerEntryKindExpense, second.Postings[0].Kind)
	assert.True(t, second.Postings[0].Amount.Equal(decimal.NewFromInt(5000)))
	assert.Contains(t, second.Postings[0].Description, "increase")

	rows, err := h.svc.Salaries(context.Background(), h.labID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(35000)))

	assert.Len(t, h.entries(t), 2)
	expense, err := h.ledger.TotalExpense(context.Background(), h.labID)
	require.NoError(t, err)
	assert.True(t, expense.Equal(decimal.NewFromInt(35000)))
	assert.Equal(t, 2, h.notifier.count("u1"))
}

func TestSetSalary_DecreasePostsRefund(t *testing.T) {
	h := newHarness(t)
	h.set(t, "u1", "Alice", "30000")

	result := h.set(t, "u1", "Alice", "28000")
	assert.Equal(t, ActionDecrease, result.Action)
	require.Len(t, result.Postings, 1)
	refund := result.Postings[0]
	assert.Equal(t, enums.LedgerEntryKindIncome, refund.Kind)
	assert.Equal(t, enums.LedgerCategorySalaryAdjustment, refund.Category)
	assert.True(t, refund.Amount.Equal(decimal.NewFromInt(2000)))
	assert.Contains(t, refund.Description, "decrease refund")

	balance, err := h.ledger.Balance(context.Background(), h.labID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(-28000)), balance.String())
}

func TestSetSalary_SameAmountIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.set(t, "u1", "Alice", "30000")

	result := h.set(t, "u1", "Alice", "30000")
	assert.Equal(t, ActionUnchanged, result.Action)
	assert.Empty(t, result.Postings)
	assert.Len(t, h.entries(t), 1)
	assert.Equal(t, 1, h.notifier.count("u1"))
}

func TestSetSalary_NewMonthPostsFullAmount(t *testing.T) {
	h := newHarness(t)
	h.set(t, "u1", "Alice", "30000")

	h.clock.Set(time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	result := h.set(t, "u1", "Alice", "32000")
	assert.Equal(t, ActionRepost, result.Action)
	require.Len(t, result.Postings, 1)
	assert.True(t, result.Postings[0].Amount.Equal(decimal.NewFromInt(32000)))
	assert.Equal(t, "2026-04", result.Postings[0].SalaryPeriod)
	assert.Equal(t, time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), result.Assignment.PaymentDate)
}

func TestSetSalary_LegacyMonthlyRecordSuppressesBasePosting(t *testing.T) {
	h := newHarness(t)
	_, err := h.ledger.PostExpense(context.Background(), ledger.PostInput{
		LaboratoryID: h.labID,
		Amount:       decimal.NewFromInt(30000),
		Description:  "Monthly salary - Alice 2026-03",
		Category:     enums.LedgerCategorySalary,
		ActorID:      "profA",
	})
	require.NoError(t, err)

	result := h.set(t, "u1", "Alice", "30000")
	assert.True(t, result.Created)
	assert.Empty(t, result.Postings)
	assert.Len(t, h.entries(t), 1)

	has, err := h.svc.HasMonthlySalaryRecord(context.Background(), h.labID, "u1", "Alice")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSetSalary_RejectsNonPositiveAmount(t *testing.T) {
	h := newHarness(t)
	for _, value := range []string{"0", "-10"} {
		_, err := h.svc.SetSalary(context.Background(), SetSalaryInput{
			LaboratoryID: h.labID,
			PersonID:     "u1",
			PersonName:   "Alice",
			Amount:       decimal.RequireFromString(value),
			ActorID:      "profA",
		})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), value)
	}
	assert.Empty(t, h.entries(t))

	rows, err := h.svc.Salaries(context.Background(), h.labID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSetSalary_ConcurrentCallsPostOnce(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.SetSalary(context.Background(), SetSalaryInput{
				LaboratoryID: h.labID,
				PersonID:     "u1",
				PersonName:   "Alice",
				Amount:       decimal.NewFromInt(30000),
				ActorID:      "profA",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, h.entries(t), 1)
}

func TestHasMonthlySalaryRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	has, err := h.svc.HasMonthlySalaryRecord(ctx, h.labID, "u1", "Alice")
	require.NoError(t, err)
	assert.False(t, has)

	h.set(t, "u1", "Alice", "30000")
	has, err = h.svc.HasMonthlySalaryRecord(ctx, h.labID, "u1", "")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = h.svc.HasMonthlySalaryRecord(ctx, h.labID, "u2", "Bob")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSalaryAdjustmentHistory(t *testing.T) {
	h := newHarness(t)
	h.set(t, "u1", "Alice", "30000")
	h.set(t, "u2", "Bob", "20000")
	h.set(t, "u1", "Alice", "25000")

	history, err := h.svc.SalaryAdjustmentHistory(context.Background(), h.labID, "Alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, enums.LedgerCategorySalaryAdjustment, history[0].Category)
	assert.Equal(t, enums.LedgerCategorySalary, history[1].Category)

	_, err = h.svc.SalaryAdjustmentHistory(context.Background(), h.labID, " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkPaid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.MarkPaid(ctx, h.labID, "u1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	h.set(t, "u1", "Alice", "30000")
	paid, err := h.svc.MarkPaid(ctx, h.labID, "u1")
	require.NoError(t, err)
	assert.Equal(t, enums.SalaryStatusPaid, paid.Status)

	_, err = h.svc.MarkPaid(ctx, h.labID, "u1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	changed := h.set(t, "u1", "Alice", "31000")
	assert.Equal(t, enums.SalaryStatusPending, changed.Assignment.Status)
}
