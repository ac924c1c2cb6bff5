package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
	applog "budget/internal/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Unknown errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateDate), errors.Is(err, core.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrOutOfBudgetPeriod),
		errors.Is(err, core.ErrReversedDateOrder),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrInvalidAccrualDay),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrNoBalanceItems),
		errors.Is(err, core.ErrDuplicateItemName),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrNoStorageItems),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// requireMethod writes 405 and returns false when r.Method is not allowed.
func requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("empty request body")
		}
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get("id"))
	if v == "" {
		return 0, badRequest("missing id parameter")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", v)
	}
	return id, nil
}

func parseDateParam(r *http.Request, name string) (core.Date, error) {
	v := r.URL.Query().Get(name)
	if strings.TrimSpace(v) == "" {
		return core.Date{}, badRequest("missing %s parameter", name)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("%s: %v", name, err)
	}
	return d, nil
}

// parseDateField parses a required body date.
func parseDateField(name, v string) (core.Date, error) {
	if strings.TrimSpace(v) == "" {
		return core.Date{}, badRequest("missing %s", name)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("%s: %v", name, err)
	}
	return d, nil
}

// parseInterval reads dateFrom and dateTo from the query string.
func parseInterval(r *http.Request) (core.Date, core.Date, error) {
	from, err := parseDateParam(r, "dateFrom")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	to, err := parseDateParam(r, "dateTo")
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	return from, to, nil
}

// parseYearMonth extracts year and month from query parameters, defaulting
// to the current month.
func parseYearMonth(r *http.Request) (core.Date, error) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return core.Date{}, badRequest("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.Date{}, badRequest("invalid month %q", v)
		}
		month = m
	}
	return core.NewDate(year, month, 1), nil
}

// parseAmountField accepts an empty string as zero.
func parseAmountField(name, v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, nil
	}
	amount, err := core.ParseAmount(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return amount, nil
}
