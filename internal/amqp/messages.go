package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actions an ExpenseEvent can describe.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEvent is the lightweight message published after a successful
// mutation. It carries identifiers only; the worker reloads the row before
// exporting, so stale payloads can never overwrite fresher data.
type ExpenseEvent struct {
	ExpenseID string    `json:"expense_id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event stamped with the current time.
func NewExpenseEvent(expenseID, userID, action string) *ExpenseEvent {
	return &ExpenseEvent{
		ExpenseID: expenseID,
		UserID:    userID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}

// Validate rejects events with missing identifiers or unknown actions.
func (e *ExpenseEvent) Validate() error {
	if e.ExpenseID == "" {
		return fmt.Errorf("expense event missing expense_id")
	}
	if e.UserID == "" {
		return fmt.Errorf("expense event missing user_id")
	}
	switch e.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return nil
	default:
		return fmt.Errorf("unknown expense event action %q", e.Action)
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON creates an event from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
