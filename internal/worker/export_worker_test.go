package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outgo/internal/amqp"
	"outgo/internal/core"
	"outgo/internal/export/memory"
)

type stubLoader struct {
	expenses map[string]core.Expense
	err      error
}

func (s *stubLoader) GetExpense(_ context.Context, _, id string) (core.Expense, error) {
	if s.err != nil {
		return core.Expense{}, s.err
	}
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func testExpense(id string) core.Expense {
	return core.Expense{
		ID:     id,
		UserID: "owner-1",
		Name:   "Lunch",
		Amount: core.Money{Cents: 1250},
		Date:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandleEventCreated(t *testing.T) {
	exp := memory.New()
	w := NewExportWorker(&stubLoader{expenses: map[string]core.Expense{
		"e-1": testExpense("e-1"),
	}}, exp)

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionCreated))
	require.NoError(t, err)

	rows := exp.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "e-1", rows[0].ID)
}

func TestHandleEventUpdatedReplacesRow(t *testing.T) {
	exp := memory.New()
	loader := &stubLoader{expenses: map[string]core.Expense{"e-1": testExpense("e-1")}}
	w := NewExportWorker(loader, exp)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionCreated)))

	updated := testExpense("e-1")
	updated.Name = "Dinner"
	loader.expenses["e-1"] = updated

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionUpdated)))

	rows := exp.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Dinner", rows[0].Name)
}

func TestHandleEventDeleted(t *testing.T) {
	exp := memory.New()
	loader := &stubLoader{expenses: map[string]core.Expense{"e-1": testExpense("e-1")}}
	w := NewExportWorker(loader, exp)

	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionCreated)))
	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionDeleted)))
	assert.Empty(t, exp.Rows())
}

func TestHandleEventMissingRowIsDropped(t *testing.T) {
	w := NewExportWorker(&stubLoader{}, memory.New())

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent("gone", "owner-1", amqp.ActionCreated))
	assert.NoError(t, err, "missing rows must not requeue the event")
}

func TestHandleEventLoaderFailureRequeues(t *testing.T) {
	w := NewExportWorker(&stubLoader{err: errors.New("db locked")}, memory.New())

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionCreated))
	assert.Error(t, err)
}

func TestHandleEventExportFailureRequeues(t *testing.T) {
	exp := memory.New()
	exp.AppendErr = errors.New("quota exceeded")
	w := NewExportWorker(&stubLoader{expenses: map[string]core.Expense{"e-1": testExpense("e-1")}}, exp)

	err := w.HandleEvent(context.Background(), amqp.NewExpenseEvent("e-1", "owner-1", amqp.ActionCreated))
	assert.Error(t, err)
}

func TestHandleEventUnknownActionIsDropped(t *testing.T) {
	w := NewExportWorker(&stubLoader{}, memory.New())

	ev := amqp.NewExpenseEvent("e-1", "owner-1", "archived")
	assert.NoError(t, w.HandleEvent(context.Background(), ev))
}
