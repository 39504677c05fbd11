// Package client is a Go consumer for the expense tracker API. It wraps the
// JSON endpoints and offers a stateful list view with optimistic deletes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is the wire representation of a stored expense.
type Expense struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExpenseInput is the payload for creating an expense.
type ExpenseInput struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description *string         `json:"description,omitempty"`
}

// ExpensePatch is a partial update; nil fields are left unchanged.
type ExpensePatch struct {
	Name        *string          `json:"name,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Description json.RawMessage  `json:"description,omitempty"`
}

// Pagination is the page window attached to list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// Page is one page of list results.
type Page struct {
	Data       []Expense  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Dashboard mirrors the aggregate overview payload.
type Dashboard struct {
	TotalExpenses        decimal.Decimal `json:"total_expenses"`
	CurrentMonthExpenses decimal.Decimal `json:"current_month_expenses"`
	TopExpenses          []TopExpense    `json:"top_5_expenses"`
	MonthlySummary       []MonthTotal    `json:"monthly_summary"`
}

type TopExpense struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// FieldDetail is one field-level validation failure.
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Message string
	Details []FieldDetail
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Client talks to one API server. It is safe for concurrent use once
// configured; SetToken is not synchronized with in-flight requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

// Register creates an account. The returned token from a follow-up Login is
// needed before calling expense endpoints.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, nil)
}

// Login exchanges credentials for a bearer token and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var res struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &res); err != nil {
		return err
	}
	c.token = res.Token
	return nil
}

func (c *Client) CreateExpense(ctx context.Context, in ExpenseInput) (Expense, error) {
	var e Expense
	err := c.do(ctx, http.MethodPost, "/api/expenses", nil, in, &e)
	return e, err
}

func (c *Client) GetExpense(ctx context.Context, id string) (Expense, error) {
	var e Expense
	err := c.do(ctx, http.MethodGet, "/api/expenses/"+url.PathEscape(id), nil, nil, &e)
	return e, err
}

func (c *Client) UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (Expense, error) {
	var e Expense
	err := c.do(ctx, http.MethodPatch, "/api/expenses/"+url.PathEscape(id), nil, patch, &e)
	return e, err
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListExpenses(ctx context.Context, params ListParams) (Page, error) {
	var page Page
	err := c.do(ctx, http.MethodGet, "/api/expenses", params.values(), nil, &page)
	return page, err
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, nil, &d)
	return d, err
}

// ListParams selects filter, sort and page for list requests. Zero values
// fall back to server defaults.
type ListParams struct {
	Page      int
	Limit     int
	SortBy    string
	Order     string
	StartDate *time.Time
	EndDate   *time.Time
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	if p.Order != "" {
		v.Set("order", p.Order)
	}
	// Date filters are plain calendar days, not timestamps.
	if p.StartDate != nil {
		v.Set("start_date", p.StartDate.UTC().Format("2006-01-02"))
	}
	if p.EndDate != nil {
		v.Set("end_date", p.EndDate.UTC().Format("2006-01-02"))
	}
	return v
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}

	var envelope struct {
		Error   string        `json:"error"`
		Details []FieldDetail `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Details = envelope.Details
	}
	return apiErr
}
