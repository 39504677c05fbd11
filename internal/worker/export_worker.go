// Package worker consumes expense events and mirrors the affected rows into
// the configured export target.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"outgo/internal/amqp"
	"outgo/internal/core"
	"outgo/internal/export"
	"outgo/internal/log"
)

// ExpenseLoader reloads the current row for an event. Events carry only ids,
// so the export always reflects the latest stored state.
type ExpenseLoader interface {
	GetExpense(ctx context.Context, owner, id string) (core.Expense, error)
}

type ExportWorker struct {
	store    ExpenseLoader
	exporter export.Exporter
}

func NewExportWorker(store ExpenseLoader, exporter export.Exporter) *ExportWorker {
	return &ExportWorker{store: store, exporter: exporter}
}

// HandleEvent processes one expense event. Returning an error requeues the
// event, so unrecoverable conditions are logged and swallowed instead.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		log.FieldExpenseID, ev.ExpenseID,
		"action", ev.Action)

	switch ev.Action {
	case amqp.ActionCreated:
		return w.exportRow(ctx, ev)
	case amqp.ActionUpdated:
		// replace the exported row with the current state
		if err := w.exporter.RemoveExpense(ctx, ev.ExpenseID); err != nil {
			return fmt.Errorf("remove stale export row: %w", err)
		}
		return w.exportRow(ctx, ev)
	case amqp.ActionDeleted:
		if err := w.exporter.RemoveExpense(ctx, ev.ExpenseID); err != nil {
			return fmt.Errorf("remove export row: %w", err)
		}
		slog.InfoContext(ctx, "Removed exported expense", log.FieldExpenseID, ev.ExpenseID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown expense event action, dropping",
			log.FieldExpenseID, ev.ExpenseID, "action", ev.Action)
		return nil
	}
}

func (w *ExportWorker) exportRow(ctx context.Context, ev *amqp.ExpenseEvent) error {
	e, err := w.store.GetExpense(ctx, ev.UserID, ev.ExpenseID)
	if errors.Is(err, core.ErrNotFound) {
		// the row was deleted before this event was consumed
		slog.WarnContext(ctx, "Expense no longer exists, skipping export",
			log.FieldExpenseID, ev.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load expense: %w", err)
	}

	ref, err := w.exporter.AppendExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("append export row: %w", err)
	}

	slog.InfoContext(ctx, "Exported expense",
		log.FieldExpenseID, e.ID,
		log.FieldSheetRef, ref,
		log.FieldAmountCents, e.Amount.Cents)
	return nil
}
