package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outgo/internal/auth"
	"outgo/internal/core"
	"outgo/internal/services"
)

const testOwner = "22222222-2222-2222-2222-222222222222"

type fakeExpenseAPI struct {
	expense core.Expense
	list    services.ListResult
	err     error

	lastOwner string
	lastID    string
	lastQuery core.ListQuery
	deleted   []string
}

func (f *fakeExpenseAPI) Create(_ context.Context, owner string, in core.CreateExpenseInput) (core.Expense, error) {
	f.lastOwner = owner
	if f.err != nil {
		return core.Expense{}, f.err
	}
	e, err := in.Validate()
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = "33333333-3333-3333-3333-333333333333"
	return e, nil
}

func (f *fakeExpenseAPI) Get(_ context.Context, owner, id string) (core.Expense, error) {
	f.lastOwner, f.lastID = owner, id
	if f.err != nil {
		return core.Expense{}, f.err
	}
	return f.expense, nil
}

func (f *fakeExpenseAPI) Update(_ context.Context, owner, id string, in core.UpdateExpenseInput) (core.Expense, error) {
	f.lastOwner, f.lastID = owner, id
	if _, err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	if f.err != nil {
		return core.Expense{}, f.err
	}
	return f.expense, nil
}

func (f *fakeExpenseAPI) Delete(_ context.Context, owner, id string) error {
	f.lastOwner, f.lastID = owner, id
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeExpenseAPI) List(_ context.Context, owner string, q core.ListQuery) (services.ListResult, error) {
	f.lastOwner = owner
	f.lastQuery = q
	if f.err != nil {
		return services.ListResult{}, f.err
	}
	res := f.list
	res.Pagination.Page, res.Pagination.Limit = q.Page, q.Limit
	return res, nil
}

type fakeDashboardAPI struct {
	dashboard core.Dashboard
	err       error
}

func (f *fakeDashboardAPI) Overview(context.Context, string) (core.Dashboard, error) {
	return f.dashboard, f.err
}

type fakeAuthAPI struct {
	user  core.User
	token string
	err   error
}

func (f *fakeAuthAPI) Register(_ context.Context, email, _ string) (core.User, error) {
	if f.err != nil {
		return core.User{}, f.err
	}
	u := f.user
	u.Email = email
	return u, nil
}

func (f *fakeAuthAPI) Login(context.Context, string, string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthAPI) ChangePassword(context.Context, string, string, string) error {
	return f.err
}

type testEnv struct {
	server    *Server
	expenses  *fakeExpenseAPI
	dashboard *fakeDashboardAPI
	accounts  *fakeAuthAPI
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	issuer := auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	token, err := issuer.Issue(core.User{ID: testOwner, Email: "a@example.com"})
	require.NoError(t, err)

	env := &testEnv{
		expenses:  &fakeExpenseAPI{},
		dashboard: &fakeDashboardAPI{},
		accounts:  &fakeAuthAPI{token: "issued-token"},
		token:     token,
	}
	env.server = NewServer("127.0.0.1:0", env.expenses, env.dashboard, env.accounts, issuer, nil)
	t.Cleanup(func() { _ = env.server.Shutdown(context.Background()) })
	return env
}

func (env *testEnv) do(t *testing.T, method, target, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "203.0.113.1:1234"
	if authed {
		req.Header.Set("Authorization", "Bearer "+env.token)
	}
	rec := httptest.NewRecorder()
	env.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpense(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/expenses",
		`{"name":"Coffee","amount":3.50,"date":"2026-08-20T00:00:00Z"}`, true)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, testOwner, env.expenses.lastOwner)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Coffee", got["name"])
	assert.EqualValues(t, 3.5, got["amount"])
}

func TestCreateExpenseValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/expenses",
		`{"name":"","amount":-1,"date":"2026-08-20T00:00:00Z"}`, true)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Error   string            `json:"error"`
		Details []core.FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Error)
	assert.NotEmpty(t, body.Details)
}

func TestCreateExpenseMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/expenses", `{"name": "Coffee", "amount": "3.x50"`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExpenseInvalidID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/expenses/not-a-uuid", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExpenseNotFound(t *testing.T) {
	env := newTestEnv(t)
	env.expenses.err = core.ErrNotFound

	rec := env.do(t, "GET", "/api/expenses/33333333-3333-3333-3333-333333333333", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageFailureIsOpaque(t *testing.T) {
	env := newTestEnv(t)
	env.expenses.err = core.NewStorageError("get expense", errors.New("database is locked"))

	rec := env.do(t, "GET", "/api/expenses/33333333-3333-3333-3333-333333333333", "", true)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestDeleteExpense(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "DELETE", "/api/expenses/33333333-3333-3333-3333-333333333333", "", true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"33333333-3333-3333-3333-333333333333"}, env.expenses.deleted)
}

func TestListExpensesDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.expenses.list = services.ListResult{Data: []core.Expense{}}

	rec := env.do(t, "GET", "/api/expenses", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var res services.ListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Pagination.Page)
	assert.Equal(t, 10, res.Pagination.Limit)
}

func TestListExpensesEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.expenses.list = services.ListResult{
		Data:       []core.Expense{{ID: "33333333-3333-3333-3333-333333333333", Name: "Rent", Date: time.Now().UTC()}},
		Pagination: services.Pagination{TotalItems: 11, TotalPages: 2},
	}

	rec := env.do(t, "GET", "/api/expenses?start_date=2026-03-01&end_date=2026-03-31", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, env.expenses.lastQuery.StartDate)
	require.NotNil(t, env.expenses.lastQuery.EndDate)
	assert.Equal(t, "2026-03-01", env.expenses.lastQuery.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-03-31", env.expenses.lastQuery.EndDate.Format("2006-01-02"))

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Contains(t, got, "data")
	require.Contains(t, got, "pagination")

	var pagination map[string]any
	require.NoError(t, json.Unmarshal(got["pagination"], &pagination))
	assert.EqualValues(t, 11, pagination["total_items"])
	assert.EqualValues(t, 2, pagination["total_pages"])
	assert.EqualValues(t, 1, pagination["page"])
	assert.EqualValues(t, 10, pagination["limit"])
}

func TestListExpensesBadQuery(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/api/expenses?page=0&sort_by=mood", "", true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.dashboard.dashboard = core.Dashboard{
		TotalExpenses:        core.Money{Cents: 1000},
		TopExpenses:          []core.TopExpense{},
		MonthlySummary:       []core.MonthTotal{{Month: "2026-08", Total: core.Money{Cents: 1000}}},
		CurrentMonthExpenses: core.Money{Cents: 1000},
	}

	rec := env.do(t, "GET", "/api/dashboard", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got, "top_5_expenses")
	assert.Contains(t, got, "monthly_summary")
	assert.EqualValues(t, 10, got["total_expenses"])
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/api/expenses", "/api/dashboard"} {
		rec := env.do(t, "GET", target, "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.user = core.User{ID: testOwner}

	rec := env.do(t, "POST", "/api/auth/register",
		`{"email":"new@example.com","password":"hunter2hunter2"}`, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, "POST", "/api/auth/login",
		`{"email":"new@example.com","password":"hunter2hunter2"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"issued-token"}`, rec.Body.String())
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.err = core.ErrInvalidCredentials

	rec := env.do(t, "POST", "/api/auth/login",
		`{"email":"new@example.com","password":"wrong"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/api/auth/password",
		`{"current_password":"oldoldold","new_password":"newnewnew"}`, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, "POST", "/api/auth/password", `{}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/healthz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/readyz", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/healthz", "", false)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
