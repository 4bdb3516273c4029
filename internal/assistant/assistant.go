package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/slopezm/go-umlcollab/internal/config"
	"github.com/slopezm/go-umlcollab/internal/diagram"
)

// Bridge produces diagram patches from natural-language requests. The
// round trip can take seconds, so callers hand in a context and the
// client enforces its own timeout on top; a hung agent ends the call,
// never the save path.
type Bridge interface {
	Chat(ctx context.Context, doc diagram.Document, intent, userMessage string) (*AgentResponse, error)
}

type Analysis struct {
	Summary string `json:"summary"`
	Intent  string `json:"intent,omitempty"`
}

type Proposal struct {
	Patch diagram.Patch `json:"patch"`
	Note  string        `json:"note,omitempty"`
}

type AgentResponse struct {
	Analysis Analysis `json:"analysis"`
	Proposal Proposal `json:"proposal"`
}

type Client struct {
	log *log.Logger
	cfg config.AgentConfig
	api *openai.Client
}

func NewClient(logger *log.Logger, cfg config.AgentConfig) *Client {
	var api *openai.Client
	if !cfg.Mock {
		clientCfg := openai.DefaultConfig(cfg.Token)
		clientCfg.BaseURL = strings.TrimRight(cfg.URL, "/") + "/v1"
		api = openai.NewClientWithConfig(clientCfg)
	}

	return &Client{
		log: logger,
		cfg: cfg,
		api: api,
	}
}

// Chat sends the diagram and the user's message to the agent and
// returns its analysis plus a normalized patch proposal.
func (c *Client) Chat(ctx context.Context, doc diagram.Document, intent, userMessage string) (*AgentResponse, error) {
	if c.cfg.Mock {
		return mockResponse(doc, intent, userMessage), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	userPayload, err := json.Marshal(map[string]any{
		"diagram":      doc,
		"intent":       intent,
		"user_message": userMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("encode agent payload: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(userPayload)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("agent call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("agent returned no choices")
	}

	return parseAgentResponse(resp.Choices[0].Message.Content, intent), nil
}

// systemPrompt pins the agent to the JSON schema the frontend expects.
// The relation vocabulary is spelled out because it is load-bearing for
// code generation downstream.
const systemPrompt = `Eres un agente experto en diagramas UML y bases de datos.
DEVUELVE EXCLUSIVAMENTE un JSON con este esquema, sin texto extra ni bloques Markdown:
{
  "analysis": { "summary": "string", "intent": "string?" },
  "proposal": {
    "patch": {
      "classes": [
        { "id": "string", "name": "string", "x": number, "y": number, "attributes": string[], "methods": string[] }
      ],
      "relations": [
        { "id": "string", "type": "Asociación|Composición|Agregación|Generalización", "source": "classId", "target": "classId", "multiplicidadOrigen": "string", "multiplicidadDestino": "string" }
      ]
    }
  }
}
Reglas:
- Ubica x/y con valores numéricos razonables (ej: x: 100, y: 100).
- Usa ids únicos (p.ej. "class-<timestamp>" / "rel-<timestamp>").
- Incluye atributos con PK/FK cuando corresponda (ej: "id (PK)", "customer_id (FK)").
- No envíes texto fuera del JSON.`
