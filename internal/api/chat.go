package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slopezm/go-umlcollab/internal/assistant"
	"github.com/slopezm/go-umlcollab/internal/diagram"
)

type ChatRequest struct {
	Message string          `json:"message"`
	Intent  string          `json:"intent,omitempty"`
	Diagram json.RawMessage `json:"diagram,omitempty"`
}

type ChatResponse struct {
	Analysis         assistant.Analysis `json:"analysis"`
	Proposal         assistant.Proposal `json:"proposal"`
	DiagramId        string             `json:"diagramId"`
	Applied          bool               `json:"applied"`
	UsedSavedDiagram bool               `json:"usedSavedDiagram"`
}

// chatWithDiagram asks the agent for a change proposal and, when one
// comes back, applies it through the save coordinator so collaborators
// see it as an agent-update broadcast.
func (s *CollabApp) chatWithDiagram(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbDiagram, err := s.db.GetDiagramByExternalId(r.PathValue("id"))
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.HasDiagramAccess(dbDiagram.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// prefer the diagram the client sent: it may hold unsaved edits the
	// user is asking about. Fall back to the stored version.
	usedSavedDiagram := false
	source := req.Diagram
	if len(source) == 0 {
		source = dbDiagram.Content
		usedSavedDiagram = true
	}

	doc, err := diagram.ParseDocument(source)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	agentResp, err := s.agent.Chat(r.Context(), doc, req.Intent, req.Message)
	if err != nil {
		s.log.Printf("agent chat for diagram %q: %v", dbDiagram.ExternalId, err)
		errResp := NewBadGatewayError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	applied := false
	if !agentResp.Proposal.Patch.IsEmpty() {
		if _, err := s.coord.ApplyPatch(dbDiagram.ExternalId, agentResp.Proposal.Patch, agentResp.Analysis.Summary); err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		applied = true
	}

	s.writeJson(w, http.StatusOK, ChatResponse{
		Analysis:         agentResp.Analysis,
		Proposal:         agentResp.Proposal,
		DiagramId:        dbDiagram.ExternalId,
		Applied:          applied,
		UsedSavedDiagram: usedSavedDiagram,
	})
}
