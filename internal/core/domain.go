package core

import (
	"strings"
	"time"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

type (
	// Expense is the persisted record. UserID is the owning identity and is
	// never serialized to API clients.
	Expense struct {
		ID          string    `json:"id"`
		UserID      string    `json:"-"`
		Name        string    `json:"name"`
		Amount      Money     `json:"amount"`
		Date        time.Time `json:"date"`
		Description *string   `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// User is an account that owns expenses. The password hash never leaves
	// the auth and storage layers.
	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		PasswordHash []byte    `json:"-"`
		CreatedAt    time.Time `json:"-"`
	}
)

func (e Expense) Validate() error {
	var errs FieldErrors
	if err := e.Amount.Validate(); err != nil {
		errs = errs.Add("amount", err.Error())
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		errs = errs.Add("name", "name cannot be empty")
	} else if len(name) > MaxNameLength {
		errs = errs.Add("name", "name must not exceed 100 characters")
	}
	if e.Date.IsZero() {
		errs = errs.Add("date", "date cannot be zero")
	}
	if e.Description != nil && len(*e.Description) > MaxDescriptionLength {
		errs = errs.Add("description", "description must not exceed 500 characters")
	}
	return errs.OrNil()
}
