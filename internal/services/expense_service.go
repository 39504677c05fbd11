// Package services orchestrates expense operations across storage, the event
// bus and the dashboard cache.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"outgo/internal/amqp"
	"outgo/internal/core"
	"outgo/internal/log"
)

// ExpenseStore is the subset of the repository the expense service needs.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, owner string, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, owner, id string) (core.Expense, error)
	UpdateExpense(ctx context.Context, owner, id string, patch core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, owner, id string) error
	ListExpenses(ctx context.Context, owner string, q core.ListQuery) ([]core.Expense, int, error)
}

// EventPublisher publishes expense mutation events for downstream consumers.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// Invalidator drops cached derived data for one owner after a mutation.
type Invalidator interface {
	Invalidate(owner string)
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ListResult is one page of expenses with pagination metadata.
type ListResult struct {
	Data       []core.Expense `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// ExpenseService owns the expense lifecycle. Mutations are committed to
// storage first; event publishing and cache invalidation never fail the
// request.
type ExpenseService struct {
	store     ExpenseStore
	events    EventPublisher
	overviews Invalidator
}

func NewExpenseService(store ExpenseStore, events EventPublisher, overviews Invalidator) *ExpenseService {
	return &ExpenseService{
		store:     store,
		events:    events,
		overviews: overviews,
	}
}

func (s *ExpenseService) Create(ctx context.Context, owner string, in core.CreateExpenseInput) (core.Expense, error) {
	e, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, owner, e)
	if err != nil {
		return core.Expense{}, core.NewStorageError("create expense", err)
	}

	s.afterMutation(ctx, created.ID, owner, amqp.ActionCreated)
	return created, nil
}

func (s *ExpenseService) Get(ctx context.Context, owner, id string) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, owner, id)
	if err != nil {
		return core.Expense{}, core.NewStorageError("get expense", err)
	}
	return e, nil
}

func (s *ExpenseService) Update(ctx context.Context, owner, id string, in core.UpdateExpenseInput) (core.Expense, error) {
	patch, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, owner, id, patch)
	if err != nil {
		return core.Expense{}, core.NewStorageError("update expense", err)
	}

	s.afterMutation(ctx, id, owner, amqp.ActionUpdated)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.DeleteExpense(ctx, owner, id); err != nil {
		return core.NewStorageError("delete expense", err)
	}

	s.afterMutation(ctx, id, owner, amqp.ActionDeleted)
	return nil
}

func (s *ExpenseService) List(ctx context.Context, owner string, q core.ListQuery) (ListResult, error) {
	expenses, total, err := s.store.ListExpenses(ctx, owner, q)
	if err != nil {
		return ListResult{}, core.NewStorageError("list expenses", err)
	}

	if expenses == nil {
		expenses = []core.Expense{}
	}

	return ListResult{
		Data: expenses,
		Pagination: Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			TotalItems: total,
			TotalPages: totalPages(total, q.Limit),
		},
	}, nil
}

func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// afterMutation publishes the event and invalidates the owner's dashboard.
// Failures are logged only; the storage write already succeeded.
func (s *ExpenseService) afterMutation(ctx context.Context, expenseID, owner, action string) {
	if s.overviews != nil {
		s.overviews.Invalidate(owner)
	}

	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping expense event",
			log.FieldExpenseID, expenseID, "action", action)
		return
	}

	ev := amqp.NewExpenseEvent(expenseID, owner, action)
	if err := s.events.PublishExpenseEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldExpenseID, expenseID, "action", action, log.FieldError, err)
	}
}

// Close releases resources held by closeable collaborators.
func (s *ExpenseService) Close() error {
	var errs []error

	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.events.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("events: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %v", errs)
	}
	return nil
}
