package http

import (
	"net/http"
)

func (s *Server) handleIncomeSources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sources, err := s.deps.Incomes.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]incomeSourceDTO, 0, len(sources))
		for _, src := range sources {
			out = append(out, toIncomeSourceDTO(src))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req incomeSourceDTO
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		src, err := req.toDomain()
		if err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := s.deps.Incomes.Save(r.Context(), src)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusCreated
		if req.ID != 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, toIncomeSourceDTO(saved))

	case http.MethodDelete:
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.deps.Incomes.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}
