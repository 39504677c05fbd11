package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"outgo/internal/auth"
	"outgo/internal/core"
	"outgo/internal/middleware/ratelimit"
	"outgo/internal/middleware/security"
	"outgo/internal/middleware/trace"
	"outgo/internal/services"
)

// ExpenseAPI is what the handlers need from the expense service.
type ExpenseAPI interface {
	Create(ctx context.Context, owner string, in core.CreateExpenseInput) (core.Expense, error)
	Get(ctx context.Context, owner, id string) (core.Expense, error)
	Update(ctx context.Context, owner, id string, in core.UpdateExpenseInput) (core.Expense, error)
	Delete(ctx context.Context, owner, id string) error
	List(ctx context.Context, owner string, q core.ListQuery) (services.ListResult, error)
}

// DashboardAPI serves the aggregate overview.
type DashboardAPI interface {
	Overview(ctx context.Context, owner string) (core.Dashboard, error)
}

// AuthAPI handles account lifecycle and credentials.
type AuthAPI interface {
	Register(ctx context.Context, email, password string) (core.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// ReadyChecker reports whether a dependency can serve traffic.
type ReadyChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server

	expenses  ExpenseAPI
	dashboard DashboardAPI
	accounts  AuthAPI
	ready     ReadyChecker

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain. The chain runs
// trace -> security headers -> rate limit on everything; API routes
// additionally require a bearer token.
func NewServer(addr string, expenses ExpenseAPI, dashboard DashboardAPI, accounts AuthAPI, tokens *auth.TokenIssuer, ready ReadyChecker) *Server {
	s := &Server{
		expenses:  expenses,
		dashboard: dashboard,
		accounts:  accounts,
		ready:     ready,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	authed := tokens.Middleware
	mux.Handle("POST /api/auth/password", authed(http.HandlerFunc(s.handleChangePassword)))

	mux.Handle("POST /api/expenses", authed(http.HandlerFunc(s.handleCreateExpense)))
	mux.Handle("GET /api/expenses", authed(http.HandlerFunc(s.handleListExpenses)))
	mux.Handle("GET /api/expenses/{id}", authed(http.HandlerFunc(s.handleGetExpense)))
	mux.Handle("PATCH /api/expenses/{id}", authed(http.HandlerFunc(s.handleUpdateExpense)))
	mux.Handle("DELETE /api/expenses/{id}", authed(http.HandlerFunc(s.handleDeleteExpense)))

	mux.Handle("GET /api/dashboard", authed(http.HandlerFunc(s.handleDashboard)))

	resolver := security.NewClientIPResolver()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(resolver.ClientIP)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(resolver.ClientIP)(handler)
	handler = headers.Handler(handler)
	handler = tracer.Handler(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Shutdown stops background goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
