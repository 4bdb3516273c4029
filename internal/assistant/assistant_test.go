package assistant

import (
	"context"
	"testing"

	"github.com/slopezm/go-umlcollab/internal/config"
	"github.com/slopezm/go-umlcollab/internal/diagram"
	"github.com/slopezm/go-umlcollab/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewClient(t *testing.T) {
	t.Run("mock mode skips the API client", func(t *testing.T) {
		c := NewClient(testutil.TestLogger(t), config.AgentConfig{Mock: true})
		assert.Nil(t, c.api, "expected no API client in mock mode")
	})

	t.Run("real mode builds the API client", func(t *testing.T) {
		c := NewClient(testutil.TestLogger(t), config.AgentConfig{
			URL:   "https://agent.example.com/",
			Token: "tok",
		})
		assert.NotNil(t, c.api, "expected API client to be built")
	})
}

func TestChat_mockMode(t *testing.T) {
	c := NewClient(testutil.TestLogger(t), config.AgentConfig{Mock: true})

	doc := diagram.Document{"titulo": "Ventas"}
	resp, err := c.Chat(context.Background(), doc, "", "convierte esto en un e-commerce")
	assert.NoError(t, err, "expected no error in mock mode")
	assert.NotNil(t, resp, "expected a response")

	assert.NotEmpty(t, resp.Analysis.Summary, "expected a summary")
	assert.Equal(t, "convertir", resp.Analysis.Intent, "expected default intent")
	assert.Len(t, resp.Proposal.Patch.Classes, 2, "expected Customer and Order classes")
	assert.Len(t, resp.Proposal.Patch.Relations, 1, "expected one relation")

	assert.Equal(t, "Customer", resp.Proposal.Patch.Classes[0]["name"], "expected Customer class")
	assert.Equal(t, "Order", resp.Proposal.Patch.Classes[1]["name"], "expected Order class")
	assert.Equal(t, "Asociación", resp.Proposal.Patch.Relations[0]["type"], "expected association relation")

	// ids must reference the generated classes
	rel := resp.Proposal.Patch.Relations[0]
	assert.Equal(t, resp.Proposal.Patch.Classes[0]["id"], rel["source"], "expected relation source to be Customer")
	assert.Equal(t, resp.Proposal.Patch.Classes[1]["id"], rel["target"], "expected relation target to be Order")
}

func TestChat_mockModeKeepsCallerIntent(t *testing.T) {
	c := NewClient(testutil.TestLogger(t), config.AgentConfig{Mock: true})

	resp, err := c.Chat(context.Background(), diagram.Document{}, "consultar", "hola")
	assert.NoError(t, err, "expected no error in mock mode")
	assert.Equal(t, "consultar", resp.Analysis.Intent, "expected caller intent to be kept")
}
