package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outgo/internal/amqp"
	"outgo/internal/core"
)

type stubStore struct {
	created   []core.Expense
	deleted   []string
	list      []core.Expense
	listTotal int
	err       error
}

func (s *stubStore) CreateExpense(_ context.Context, owner string, e core.Expense) (core.Expense, error) {
	if s.err != nil {
		return core.Expense{}, s.err
	}
	e.ID = "11111111-1111-1111-1111-111111111111"
	e.UserID = owner
	s.created = append(s.created, e)
	return e, nil
}

func (s *stubStore) GetExpense(_ context.Context, _, _ string) (core.Expense, error) {
	if s.err != nil {
		return core.Expense{}, s.err
	}
	if len(s.list) == 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return s.list[0], nil
}

func (s *stubStore) UpdateExpense(_ context.Context, _, id string, _ core.ExpensePatch) (core.Expense, error) {
	if s.err != nil {
		return core.Expense{}, s.err
	}
	return core.Expense{ID: id}, nil
}

func (s *stubStore) DeleteExpense(_ context.Context, _, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubStore) ListExpenses(_ context.Context, _ string, _ core.ListQuery) ([]core.Expense, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.list, s.listTotal, nil
}

type stubPublisher struct {
	events []*amqp.ExpenseEvent
	err    error
}

func (p *stubPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

type stubInvalidator struct {
	owners []string
}

func (i *stubInvalidator) Invalidate(owner string) { i.owners = append(i.owners, owner) }

func validCreateInput() core.CreateExpenseInput {
	return core.CreateExpenseInput{
		Name:   "Groceries",
		Amount: decimal.RequireFromString("42.50"),
		Date:   "2026-08-15T00:00:00Z",
	}
}

func TestCreatePublishesEventAndInvalidates(t *testing.T) {
	store := &stubStore{}
	pub := &stubPublisher{}
	inv := &stubInvalidator{}
	svc := NewExpenseService(store, pub, inv)

	created, err := svc.Create(context.Background(), "owner-1", validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, "Groceries", created.Name)
	assert.Equal(t, int64(4250), created.Amount.Cents)

	require.Len(t, pub.events, 1)
	assert.Equal(t, amqp.ActionCreated, pub.events[0].Action)
	assert.Equal(t, created.ID, pub.events[0].ExpenseID)
	assert.Equal(t, "owner-1", pub.events[0].UserID)
	assert.Equal(t, []string{"owner-1"}, inv.owners)
}

func TestCreateValidationFailureSkipsStore(t *testing.T) {
	store := &stubStore{}
	svc := NewExpenseService(store, nil, nil)

	in := validCreateInput()
	in.Name = ""
	_, err := svc.Create(context.Background(), "owner-1", in)

	var fieldErrs core.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Empty(t, store.created)
}

func TestCreateSucceedsWhenPublishFails(t *testing.T) {
	store := &stubStore{}
	pub := &stubPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub, nil)

	_, err := svc.Create(context.Background(), "owner-1", validCreateInput())
	require.NoError(t, err)
	require.Len(t, store.created, 1)
}

func TestDeleteWrapsStorageErrors(t *testing.T) {
	store := &stubStore{err: errors.New("disk full")}
	svc := NewExpenseService(store, nil, nil)

	err := svc.Delete(context.Background(), "owner-1", "some-id")
	var storageErr *core.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "delete expense", storageErr.Op)
}

func TestDeleteNotFoundPassesThrough(t *testing.T) {
	store := &stubStore{err: core.ErrNotFound}
	svc := NewExpenseService(store, nil, nil)

	err := svc.Delete(context.Background(), "owner-1", "some-id")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListComputesPagination(t *testing.T) {
	store := &stubStore{
		list:      []core.Expense{{ID: "a", Date: time.Now()}},
		listTotal: 25,
	}
	svc := NewExpenseService(store, nil, nil)

	res, err := svc.List(context.Background(), "owner-1", core.ListQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Pagination.TotalItems)
	assert.Equal(t, 2, res.Pagination.Page)
	assert.Equal(t, 10, res.Pagination.Limit)
	assert.Equal(t, 3, res.Pagination.TotalPages)
}

func TestListResultWireShape(t *testing.T) {
	store := &stubStore{
		list:      []core.Expense{{ID: "a", Date: time.Now()}},
		listTotal: 1,
	}
	svc := NewExpenseService(store, nil, nil)

	res, err := svc.List(context.Background(), "owner-1", core.ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &envelope))
	require.Contains(t, envelope, "data")
	require.Contains(t, envelope, "pagination")

	var pagination map[string]int
	require.NoError(t, json.Unmarshal(envelope["pagination"], &pagination))
	assert.Equal(t, map[string]int{
		"page":        1,
		"limit":       10,
		"total_items": 1,
		"total_pages": 1,
	}, pagination)
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc := NewExpenseService(&stubStore{}, nil, nil)

	res, err := svc.List(context.Background(), "owner-1", core.ListQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.NotNil(t, res.Data)
	assert.Equal(t, 0, res.Pagination.TotalPages)
}
