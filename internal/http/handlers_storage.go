package http

import (
	"net/http"
)

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rec, ok, err := s.deps.StorageRecords.GetLatest(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "there are no storage records"})
			return
		}
		writeJSON(w, http.StatusOK, toStorageRecordDTO(rec))

	case http.MethodPost:
		var req storageRecordDTO
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		rec, err := req.toDomain()
		if err != nil {
			writeError(w, r, err)
			return
		}
		saved, err := s.deps.StorageRecords.Save(r.Context(), rec)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, toStorageRecordDTO(saved))

	case http.MethodDelete:
		id, err := parseID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.deps.StorageRecords.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		requireMethod(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (s *Server) handleStorageInterval(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	from, to, err := parseInterval(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.deps.StorageRecords.FindAllInInterval(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]storageRecordDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toStorageRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
