package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/trace"
	"budget/internal/period"
	"budget/internal/services"
)

// Pinger reports whether a dependency is reachable. The SQLite repository
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators a Server routes requests to.
type Dependencies struct {
	Balances *services.BalanceService
	Incomes  *services.IncomeService
	Expenses *services.ExpenseService
	// StorageRecords serves /api/v1/storage.
	StorageRecords *services.StorageService
	Period         *period.BudgetPeriod
	Logger         *applog.Logger
	// Storage is checked by /readyz when set.
	Storage Pinger
	// RateLimitPerMinute bounds mutating requests per client. Zero uses the
	// limiter default.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	deps        Dependencies
	rateLimiter *ratelimit.Limiter
	trace       *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer builds the JSON API server listening on addr.
func NewServer(addr string, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		deps: deps,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
		trace:   trace.NewMiddleware(extractClientIP),
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/v1/balance", s.handleBalance)
	mux.HandleFunc("/api/v1/balance/interval", s.handleBalanceInterval)
	mux.HandleFunc("/api/v1/balance/expected-expense", s.handleExpectedExpense)

	mux.HandleFunc("/api/v1/income-sources", s.handleIncomeSources)

	mux.HandleFunc("/api/v1/expenses", s.handleExpenses)
	mux.HandleFunc("/api/v1/expenses/interval", s.handleExpenseInterval)
	mux.HandleFunc("/api/v1/expenses/regular-buckets", s.handleRegularBuckets)

	mux.HandleFunc("/api/v1/storage", s.handleStorage)
	mux.HandleFunc("/api/v1/storage/interval", s.handleStorageInterval)

	mux.HandleFunc("/api/v1/budget-period", s.handleBudgetPeriod)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
	})(handler)
	handler = withSecurityHeaders(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(deps.Logger.WithComponent(applog.ComponentHTTP))(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Shutdown stops the background limiter cleanup and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.rateLimiter.Stop)
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks storage and reports the request counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.deps.Storage != nil {
		if err := s.deps.Storage.Ping(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "in_memory"
	}

	traceMetrics := s.trace.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()
	checks["requests"] = map[string]any{
		"total":         traceMetrics.TotalRequests,
		"server_errors": traceMetrics.ServerErrors,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": limitMetrics.ClientCount,
		"rejected":       limitMetrics.Rejected,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleBudgetPeriod(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	start, end := s.deps.Period.Bounds()
	writeJSON(w, http.StatusOK, periodResponse{StartDate: start.String(), EndDate: end.String()})
}
