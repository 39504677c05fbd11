// Package memory provides an in-memory Exporter used in tests and local
// development where no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"outgo/internal/core"
	"outgo/internal/export"
)

type Exporter struct {
	mu   sync.Mutex
	rows []core.Expense

	// AppendErr and RemoveErr, when set, are returned by the respective
	// methods so failure handling can be exercised.
	AppendErr error
	RemoveErr error
}

var _ export.Exporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

func (m *Exporter) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return "", m.AppendErr
	}
	m.rows = append(m.rows, e)
	return fmt.Sprintf("memory!A%d", len(m.rows)), nil
}

func (m *Exporter) RemoveExpense(_ context.Context, expenseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	for i, row := range m.rows {
		if row.ID == expenseID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the exported rows in append order.
func (m *Exporter) Rows() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Expense, len(m.rows))
	copy(out, m.rows)
	return out
}
