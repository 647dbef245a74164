package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tinkerloft/formpilot/internal/model"
)

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial status immediately.
	if s.pushStatusEvent(w, flusher, r, id) {
		return
	}

	ticker := time.NewTicker(s.opts.EventInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if s.pushStatusEvent(w, flusher, r, id) {
				return
			}
		}
	}
}

// pushStatusEvent writes one status event and reports whether the session
// has finished.
func (s *Server) pushStatusEvent(w http.ResponseWriter, flusher http.Flusher, r *http.Request, id string) bool {
	status, err := s.client.GetSessionStatus(r.Context(), id)
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
		flusher.Flush()
		return false
	}
	data, _ := json.Marshal(status)
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
	flusher.Flush()

	switch status.Phase {
	case model.SessionPhaseCompleted, model.SessionPhaseCancelled, model.SessionPhaseFailed:
		fmt.Fprintf(w, "event: done\ndata: {\"phase\":%q}\n\n", status.Phase)
		flusher.Flush()
		return true
	}
	return false
}
