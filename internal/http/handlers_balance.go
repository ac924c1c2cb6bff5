package http

import (
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetBalance(w, r)
	case http.MethodPost:
		s.handleCreateBalance(w, r)
	case http.MethodDelete:
		s.handleDeleteBalance(w, r)
	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleGetBalance returns the snapshot with ?id=N, or the latest one.
func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("id") {
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		rec, err := s.deps.Balances.Get(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toEstimatedResponse(rec))
		return
	}

	rec, ok, err := s.deps.Balances.GetLatest(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no balance records yet"})
		return
	}
	writeJSON(w, http.StatusOK, toEstimatedResponse(rec))
}

func (s *Server) handleCreateBalance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.deps.Balances.Save(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Balance record created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldBalanceID, saved.ID,
		applog.FieldBalanceDate, saved.Date.String())
	writeJSON(w, http.StatusCreated, toBalanceResponse(saved, nil))
}

func (s *Server) handleDeleteBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Balances.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBalanceInterval(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	from, to, err := parseInterval(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.deps.Balances.FindAllInInterval(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, estimatedList(records))
}

func (s *Server) handleExpectedExpense(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expectedExpenseDTO
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	expected, err := req.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.deps.Balances.UpdateExpectedExpense(r.Context(), id, expected)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpectedExpenseDTO(saved))
}

func estimatedList(records []core.EstimatedBalanceRecord) []balanceResponse {
	out := make([]balanceResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toEstimatedResponse(rec))
	}
	return out
}
