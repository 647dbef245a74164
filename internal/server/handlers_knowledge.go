package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/learning"
	"github.com/tinkerloft/formpilot/internal/model"
)

type classifyRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.opts.Classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "classifier not configured")
		return
	}
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Classifier.Classify(req.Text))
}

// loadKnowledge reads the knowledge file. A missing file is an empty
// document; a corrupt one is a server error.
func (s *Server) loadKnowledge(w http.ResponseWriter) (*knowledge.Document, bool) {
	doc, err := knowledge.Load(s.opts.KnowledgePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return doc, true
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadKnowledge(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, learning.Summarize(doc))
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadKnowledge(w)
	if !ok {
		return
	}
	thresholds := make([]model.CapabilityThreshold, 0, len(doc.CapabilityThresholds))
	for _, th := range doc.CapabilityThresholds {
		thresholds = append(thresholds, *th)
	}
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i].Name < thresholds[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"thresholds": thresholds})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadKnowledge(w)
	if !ok {
		return
	}
	capability := strings.TrimSpace(r.URL.Query().Get("capability"))
	patterns := []model.SuccessPattern{}
	for _, p := range doc.SuccessPatterns {
		if capability == "" || p.Capability == capability {
			patterns = append(patterns, *p)
		}
	}
	confidence.SortPatterns(patterns)
	writeJSON(w, http.StatusOK, map[string]any{"patterns": patterns})
}
