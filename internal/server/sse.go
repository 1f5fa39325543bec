package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// handleEvents streams live order updates as server-sent events, one JSON
// object per data frame. The first frame is always the connection-time
// snapshot; comment frames keep idle connections alive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	key := mux.Vars(r)["order"]
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing order key")
		return
	}

	sub, err := s.engine.Subscribe(r.Context(), key)
	if err != nil {
		s.log.Error("subscribe failed", zap.String("order", key), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "subscribe failed")
		return
	}
	defer s.engine.Unsubscribe(sub)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeatEvery())
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-sub.Done():
			return

		case u := <-sub.Updates():
			data, err := json.Marshal(u)
			if err != nil {
				s.log.Error("marshal update", zap.String("order", key), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
