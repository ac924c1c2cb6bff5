package http

import (
	"net/http"
)

func (s *Server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		e, err := s.deps.Expenses.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toExpenseDTO(e))

	case http.MethodPost:
		var req expenseDTO
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e, err := req.toDomain()
		if err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := s.deps.Expenses.Save(r.Context(), e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toExpenseDTO(saved))

	case http.MethodPut:
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req expenseDTO
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e, err := req.toDomain()
		if err != nil {
			writeError(w, r, err)
			return
		}
		updated, err := s.deps.Expenses.Update(r.Context(), id, e)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toExpenseDTO(updated))

	case http.MethodDelete:
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.deps.Expenses.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleExpenseInterval(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	from, to, err := parseInterval(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.deps.Expenses.FindAllInInterval(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseDTO, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRegularBuckets sums the regular expenses of ?year=&month= per bucket.
func (s *Server) handleRegularBuckets(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	buckets, err := s.deps.Expenses.RegularBucketsForMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Month string `json:"month"`
		expectedExpenseDTO
	}{
		Month:              month.Format("2006-01"),
		expectedExpenseDTO: toExpectedExpenseDTO(buckets),
	})
}
