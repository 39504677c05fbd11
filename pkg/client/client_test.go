package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outgo/internal/core"
)

func newFakeAPI(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithToken("test-token"), WithHTTPClient(srv.Client())), srv
}

func TestLoginStoresToken(t *testing.T) {
	c, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@example.com", body["email"])
		json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
	})

	require.NoError(t, c.Login(context.Background(), "a@example.com", "hunter2hunter2"))
	assert.Equal(t, "fresh-token", c.token)
}

func TestCreateExpenseSendsBearerToken(t *testing.T) {
	c, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Expense{ID: "e-1", Name: "Coffee", Amount: decimal.RequireFromString("3.50")})
	})

	e, err := c.CreateExpense(context.Background(), ExpenseInput{
		Name:   "Coffee",
		Amount: decimal.RequireFromString("3.50"),
		Date:   time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "e-1", e.ID)
	assert.True(t, e.Amount.Equal(decimal.RequireFromString("3.5")))
}

func TestAPIErrorDecoding(t *testing.T) {
	c, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": "Validation failed",
			"details": []map[string]string{
				{"field": "amount", "message": "amount must be positive"},
			},
		})
	})

	_, err := c.CreateExpense(context.Background(), ExpenseInput{Name: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	require.Len(t, apiErr.Details, 1)
	assert.Equal(t, "amount", apiErr.Details[0].Field)
}

func TestListParamsEncoding(t *testing.T) {
	var gotQuery string
	c, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(Page{Data: []Expense{}})
	})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)
	_, err := c.ListExpenses(context.Background(), ListParams{
		Page:      2,
		Limit:     25,
		SortBy:    "amount",
		Order:     "asc",
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "limit=25")
	assert.Contains(t, gotQuery, "sort_by=amount")
	assert.Contains(t, gotQuery, "order=asc")
	assert.Contains(t, gotQuery, "start_date=2026-01-01")
	assert.Contains(t, gotQuery, "end_date=2026-01-31")
}

func TestListParamsDatesAcceptedByServerParser(t *testing.T) {
	start := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	values := ListParams{StartDate: &start, EndDate: &end}.values()

	q, err := core.ParseListQuery(values)
	require.NoError(t, err)
	require.NotNil(t, q.StartDate)
	require.NotNil(t, q.EndDate)
	assert.Equal(t, "2026-03-01", q.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-03-31", q.EndDate.Format("2006-01-02"))
}

func TestDashboardDecoding(t *testing.T) {
	c, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/dashboard", r.URL.Path)
		w.Write([]byte(`{
			"total_expenses": 120.50,
			"current_month_expenses": 20.00,
			"top_5_expenses": [{"id":"a","name":"Rent","amount":90.00,"date":"2026-08-01T00:00:00Z"}],
			"monthly_summary": [{"month":"2026-08","total":120.50}]
		}`))
	})

	d, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.True(t, d.TotalExpenses.Equal(decimal.RequireFromString("120.5")))
	require.Len(t, d.TopExpenses, 1)
	assert.Equal(t, "2026-08", d.MonthlySummary[0].Month)
}
