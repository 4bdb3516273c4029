package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/slopezm/go-umlcollab/internal/diagram"
	"github.com/slopezm/go-umlcollab/internal/types"
)

// mockResponse is the canned e-commerce proposal returned in mock mode,
// so the full save/broadcast path can be exercised without a live agent.
func mockResponse(doc diagram.Document, intent, userMessage string) *AgentResponse {
	timestamp := time.Now().UnixMilli()
	customerId := fmt.Sprintf("class-%d", timestamp)
	orderId := fmt.Sprintf("class-%d", timestamp+1)
	relationId := fmt.Sprintf("rel-%d", timestamp)

	patch := types.DiagramContent{
		Classes: []types.ClassNode{
			{
				Id:         customerId,
				Name:       "Customer",
				X:          100,
				Y:          100,
				Attributes: []string{"id (PK)", "name", "email", "address"},
				Methods:    []string{},
			},
			{
				Id:         orderId,
				Name:       "Order",
				X:          300,
				Y:          100,
				Attributes: []string{"id (PK)", "order_date", "status", "customer_id (FK)"},
				Methods:    []string{},
			},
		},
		Relations: []types.RelationEdge{
			{
				Id:                   relationId,
				Type:                 types.RelAsociacion,
				Source:               customerId,
				Target:               orderId,
				MultiplicidadOrigen:  "1..*",
				MultiplicidadDestino: "1",
			},
		},
	}

	if intent == "" {
		intent = "convertir"
	}

	return &AgentResponse{
		Analysis: Analysis{
			Summary: "Se ha convertido el diagrama a un e-commerce con Customer y Order",
			Intent:  intent,
		},
		Proposal: Proposal{
			Patch: toPatch(patch),
			Note:  "Configura AGENT_MOCK=false y AGENT_URL/AGENT_TOKEN para usar el agente real.",
		},
	}
}

// toPatch converts typed content into the generic patch form the
// reconciler consumes.
func toPatch(content types.DiagramContent) diagram.Patch {
	raw, _ := json.Marshal(content)
	patch, _ := diagram.NormalizePatch(raw)
	return patch
}

// MockBridge is a testify mock of the Bridge interface.
type MockBridge struct {
	mock.Mock
}

func (m *MockBridge) Chat(ctx context.Context, doc diagram.Document, intent, userMessage string) (*AgentResponse, error) {
	args := m.Called(ctx, doc, intent, userMessage)
	if resp, ok := args.Get(0).(*AgentResponse); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}
