// Package export defines the outbound ports the worker mirrors expense rows
// through.
package export

import (
	"context"

	"outgo/internal/core"
)

type (
	// RowAppender writes one expense as a new row and returns a backend
	// reference for it.
	RowAppender interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	// RowRemover deletes the row previously written for an expense id.
	// Removing an id that was never exported is not an error.
	RowRemover interface {
		RemoveExpense(ctx context.Context, expenseID string) error
	}

	// Exporter is the full surface the worker needs.
	Exporter interface {
		RowAppender
		RowRemover
	}
)
