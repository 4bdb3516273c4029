package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/slopezm/go-umlcollab/internal/diagram"
)

var fencedJson = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// extractFirstJson digs the first JSON object out of agent text, which
// may arrive bare, fenced in a Markdown block, or padded with prose.
func extractFirstJson(text string) json.RawMessage {
	if text == "" {
		return nil
	}

	blob := strings.TrimSpace(text)
	if m := fencedJson.FindStringSubmatch(blob); m != nil {
		blob = strings.TrimSpace(m[1])
	}

	first := strings.Index(blob, "{")
	last := strings.LastIndex(blob, "}")
	if first != -1 && last > first {
		slice := blob[first : last+1]
		if json.Valid([]byte(slice)) {
			return json.RawMessage(slice)
		}
	}

	if json.Valid([]byte(blob)) {
		return json.RawMessage(blob)
	}
	return nil
}

// rawAgentResponse defers patch decoding so the legacy array-of-
// operations form can be normalized in one place.
type rawAgentResponse struct {
	Analysis Analysis `json:"analysis"`
	Proposal struct {
		Patch json.RawMessage `json:"patch"`
		Note  string          `json:"note"`
	} `json:"proposal"`
}

// parseAgentResponse turns whatever the agent produced into a usable
// response. Unparseable output degrades to a summary-only answer with
// an empty patch rather than an error; the caller still gets something
// to show the user.
func parseAgentResponse(text, intent string) *AgentResponse {
	fallback := func() *AgentResponse {
		summary := text
		if len(summary) > 4000 {
			summary = summary[:4000]
		}
		return &AgentResponse{
			Analysis: Analysis{Summary: summary, Intent: intent},
		}
	}

	raw := extractFirstJson(text)
	if raw == nil {
		return fallback()
	}

	var parsed rawAgentResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fallback()
	}
	if parsed.Analysis.Summary == "" && len(parsed.Proposal.Patch) == 0 {
		return fallback()
	}

	resp := &AgentResponse{
		Analysis: parsed.Analysis,
		Proposal: Proposal{Note: parsed.Proposal.Note},
	}

	if len(parsed.Proposal.Patch) > 0 {
		if patch, err := diagram.NormalizePatch(parsed.Proposal.Patch); err == nil {
			resp.Proposal.Patch = patch
		}
	}

	return resp
}
