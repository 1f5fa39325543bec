package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook ingests one provider event. The response is 200 whether or
// not the event was usable, so providers do not retry junk.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result := s.engine.ProcessEvent(r.Context(), payload)
	respondJSON(w, http.StatusOK, result)
}

// handleQuery returns the current state for an order. Unknown orders get
// the pending view, never a 404.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["order"]
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing order key")
		return
	}

	respondJSON(w, http.StatusOK, s.engine.QueryState(r.Context(), key))
}

// handleMock injects a status as if a webhook had delivered it.
func (s *Server) handleMock(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["order"]
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing order key")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "missing status")
		return
	}

	st, err := s.engine.MockEvent(r.Context(), key, req.Status)
	if err != nil {
		s.log.Error("mock injection failed", zap.String("order", key), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "mock injection failed")
		return
	}

	respondJSON(w, http.StatusOK, st)
}
