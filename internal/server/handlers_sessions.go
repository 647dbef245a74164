package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tinkerloft/formpilot/internal/model"
)

// SessionSummary is the API representation of a session for list/inbox responses.
type SessionSummary struct {
	SessionID string                `json:"session_id"`
	Phase     model.SessionPhase    `json:"phase,omitempty"`
	StartTime string                `json:"start_time"`
	Current   int                   `json:"current"`
	Total     int                   `json:"total"`
	Pending   *model.QuestionResult `json:"pending,omitempty"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	workflows, err := s.client.ListSessions(r.Context(), statusFilter, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sessions := make([]SessionSummary, 0, len(workflows))
	for _, wf := range workflows {
		item := SessionSummary{SessionID: wf.WorkflowID, StartTime: wf.StartTime}
		if status, err := s.client.GetSessionStatus(r.Context(), wf.WorkflowID); err == nil {
			item.Phase = status.Phase
			item.Current = status.Current
			item.Total = status.Total
		}
		sessions = append(sessions, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// handleGetInbox lists running sessions that are waiting on a human.
func (s *Server) handleGetInbox(w http.ResponseWriter, r *http.Request) {
	running, err := s.client.ListSessions(r.Context(), "Running", 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := []SessionSummary{}
	for _, wf := range running {
		status, err := s.client.GetSessionStatus(r.Context(), wf.WorkflowID)
		if err != nil || status.Phase != model.SessionPhaseAwaitingAnswer {
			continue
		}
		items = append(items, SessionSummary{
			SessionID: wf.WorkflowID,
			Phase:     status.Phase,
			StartTime: wf.StartTime,
			Current:   status.Current,
			Total:     status.Total,
			Pending:   status.Pending,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type startRequest struct {
	SessionID     string                `json:"session_id"`
	Questions     []model.QuestionInput `json:"questions"`
	SlackChannel  string                `json:"slack_channel"`
	AnswerTimeout string                `json:"answer_timeout"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "questions are required")
		return
	}
	input := model.SessionInput{
		SessionID:    req.SessionID,
		Questions:    req.Questions,
		SlackChannel: req.SlackChannel,
	}
	if input.SlackChannel == "" {
		input.SlackChannel = s.opts.SlackChannel
	}
	if req.AnswerTimeout != "" {
		d, err := time.ParseDuration(req.AnswerTimeout)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "answer_timeout must be a non-negative duration")
			return
		}
		input.AnswerTimeout = d
	}

	id, err := s.client.StartSession(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": id})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := s.client.GetSessionStatus(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
