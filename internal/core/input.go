package core

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sort fields and orders accepted by the list operation.
type (
	SortField string
	SortOrder string
)

const (
	SortByDate   SortField = "date"
	SortByAmount SortField = "amount"

	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"

	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// CreateExpenseInput is the decoded body of a create request. Validate turns
// it into a normalized Expense (without identifiers) or a FieldErrors list.
type CreateExpenseInput struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description *string         `json:"description"`
}

func (in CreateExpenseInput) Validate() (Expense, error) {
	var errs FieldErrors

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		errs = errs.Add("amount", err.Error())
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs = errs.Add("name", "name cannot be empty")
	} else if utf8.RuneCountInString(name) > MaxNameLength {
		errs = errs.Add("name", "name must not exceed 100 characters")
	}

	date, err := parseTimestamp(in.Date)
	if err != nil {
		errs = errs.Add("date", err.Error())
	}

	desc, err := normalizeDescription(in.Description)
	if err != nil {
		errs = errs.Add("description", err.Error())
	}

	if err := errs.OrNil(); err != nil {
		return Expense{}, err
	}
	return Expense{Name: name, Amount: amount, Date: date, Description: desc}, nil
}

// UpdateExpenseInput is the decoded body of a partial update. Description is
// kept raw so "absent" and "null" stay distinguishable.
type UpdateExpenseInput struct {
	Name        *string          `json:"name"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        *string          `json:"date"`
	Description json.RawMessage  `json:"description"`
}

// ExpensePatch carries only the fields a valid update actually sets.
type ExpensePatch struct {
	Name           *string
	Amount         *Money
	Date           *time.Time
	Description    *string
	DescriptionSet bool
}

func (p ExpensePatch) IsEmpty() bool {
	return p.Name == nil && p.Amount == nil && p.Date == nil && !p.DescriptionSet
}

func (in UpdateExpenseInput) Validate() (ExpensePatch, error) {
	var (
		errs  FieldErrors
		patch ExpensePatch
	)

	if in.Amount != nil {
		amount, err := ParseAmount(*in.Amount)
		if err != nil {
			errs = errs.Add("amount", err.Error())
		} else {
			patch.Amount = &amount
		}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			errs = errs.Add("name", "name cannot be empty")
		} else if utf8.RuneCountInString(name) > MaxNameLength {
			errs = errs.Add("name", "name must not exceed 100 characters")
		} else {
			patch.Name = &name
		}
	}

	if in.Date != nil {
		date, err := parseTimestamp(*in.Date)
		if err != nil {
			errs = errs.Add("date", err.Error())
		} else {
			patch.Date = &date
		}
	}

	if len(in.Description) > 0 && string(in.Description) != "null" {
		var raw string
		if err := json.Unmarshal(in.Description, &raw); err != nil {
			errs = errs.Add("description", "description must be a string")
		} else {
			desc, err := normalizeDescription(&raw)
			if err != nil {
				errs = errs.Add("description", err.Error())
			} else {
				patch.Description = desc
				patch.DescriptionSet = true
			}
		}
	} else if string(in.Description) == "null" {
		patch.DescriptionSet = true
	}

	if err := errs.OrNil(); err != nil {
		return ExpensePatch{}, err
	}
	if patch.IsEmpty() {
		return ExpensePatch{}, FieldErrors{}.Add("body", "at least one field must be provided for update")
	}
	return patch, nil
}

// ListQuery holds validated list parameters with defaults applied. Date
// bounds are UTC midnights and inclusive on both ends.
type ListQuery struct {
	Page      int
	Limit     int
	SortBy    SortField
	Order     SortOrder
	StartDate *time.Time
	EndDate   *time.Time
}

// ParseListQuery parses raw query parameters into a ListQuery, applying
// defaults (page=1, limit=10, sort by date descending).
func ParseListQuery(params url.Values) (ListQuery, error) {
	var errs FieldErrors
	q := ListQuery{Page: DefaultPage, Limit: DefaultLimit, SortBy: SortByDate, Order: OrderDesc}

	if v := strings.TrimSpace(params.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			errs = errs.Add("page", "page must be a positive integer")
		} else {
			q.Page = page
		}
	}

	if v := strings.TrimSpace(params.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		switch {
		case err != nil || limit < 1:
			errs = errs.Add("limit", "limit must be a positive integer")
		case limit > MaxLimit:
			errs = errs.Add("limit", "limit must not exceed 100")
		default:
			q.Limit = limit
		}
	}

	if v := strings.TrimSpace(params.Get("sort_by")); v != "" {
		switch SortField(v) {
		case SortByDate, SortByAmount:
			q.SortBy = SortField(v)
		default:
			errs = errs.Add("sort_by", `sort_by must be either "date" or "amount"`)
		}
	}

	if v := strings.TrimSpace(params.Get("order")); v != "" {
		switch SortOrder(v) {
		case OrderAsc, OrderDesc:
			q.Order = SortOrder(v)
		default:
			errs = errs.Add("order", `order must be either "asc" or "desc"`)
		}
	}

	if v := strings.TrimSpace(params.Get("start_date")); v != "" {
		d, err := parseDateOnly(v)
		if err != nil {
			errs = errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		} else {
			q.StartDate = &d
		}
	}

	if v := strings.TrimSpace(params.Get("end_date")); v != "" {
		d, err := parseDateOnly(v)
		if err != nil {
			errs = errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		} else {
			q.EndDate = &d
		}
	}

	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		errs = errs.Add("start_date", "start_date must be before or equal to end_date")
	}

	if err := errs.OrNil(); err != nil {
		return ListQuery{}, err
	}
	return q, nil
}

// ParseID validates an opaque record identifier and returns its canonical
// form.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid identifier: must be a valid UUID")
	}
	return id.String(), nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be a valid RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

func parseDateOnly(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeDescription(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*s)
	if utf8.RuneCountInString(trimmed) > MaxDescriptionLength {
		return nil, fmt.Errorf("description must not exceed 500 characters")
	}
	return &trimmed, nil
}
