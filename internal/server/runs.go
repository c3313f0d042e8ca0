package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lawnchairsociety/tiledwfc/internal/logger"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
)

const maxListedRuns = 500

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// runStore returns the store, answering 404 itself when persistence is off.
func (s *Server) runStore(w http.ResponseWriter) *store.Store {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run storage is disabled")
	}
	return s.store
}

// handleListRuns serves GET /runs?tileset=&limit=, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	st := s.runStore(w)
	if st == nil {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListedRuns)
	}

	runs, err := st.ListRuns(r.URL.Query().Get("tileset"), limit)
	if err != nil {
		logger.Error("Failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st := s.runStore(w)
	if st == nil {
		return
	}
	id, ok := runID(w, r)
	if !ok {
		return
	}

	run, err := st.GetRun(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		logger.Error("Failed to load run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load run")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	st := s.runStore(w)
	if st == nil {
		return
	}
	id, ok := runID(w, r)
	if !ok {
		return
	}

	err := st.DeleteRun(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		logger.Error("Failed to delete run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete run")
	default:
		logger.Info("Run deleted", "id", id, "remote_addr", r.RemoteAddr)
		w.WriteHeader(http.StatusNoContent)
	}
}

func runID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "run id must be a positive integer")
		return 0, false
	}
	return id, true
}
