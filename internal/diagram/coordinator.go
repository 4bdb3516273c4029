package diagram

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/slopezm/go-umlcollab/internal/database"
	"github.com/slopezm/go-umlcollab/internal/stats"
)

const (
	// AgentUpdateEvent is the authoritative-save notification, distinct
	// from the live-preview relay events so clients can tell a persisted
	// merge from advisory traffic.
	AgentUpdateEvent = "agent-update"

	metricPatchesApplied = "PatchesApplied"
)

// Store is the slice of the repository the coordinator needs: a fresh
// read and a full-content replace.
type Store interface {
	GetDiagramByExternalId(externalId string) (database.Diagram, error)
	UpdateDiagramContent(id int, content json.RawMessage) (database.Diagram, error)
}

// Broadcaster delivers a server-originated event to every connection in
// a room. There is no sender to exclude.
type Broadcaster interface {
	BroadcastToRoom(roomId, event string, payload any)
}

// AgentUpdate is the agent-update payload.
type AgentUpdate struct {
	Type           string    `json:"type"`
	Patch          Patch     `json:"patch"`
	UpdatedDiagram Document  `json:"updatedDiagram"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// Coordinator serializes the reload-merge-save-broadcast sequence per
// diagram. Reloading immediately before the merge is what keeps a slow
// assistant round trip from clobbering edits saved while it was in
// flight; the per-diagram lock closes the remaining window between the
// reload and the save.
type Coordinator struct {
	log     *log.Logger
	db      Store
	bc      Broadcaster
	su      stats.StatsProvider
	mu      sync.Mutex
	diagMus map[string]*sync.Mutex
}

func NewCoordinator(logger *log.Logger, db Store, bc Broadcaster, su stats.StatsProvider) *Coordinator {
	su.RegisterMetric(metricPatchesApplied)

	return &Coordinator{
		log:     logger,
		db:      db,
		bc:      bc,
		su:      su,
		diagMus: make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) diagramLock(externalId string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	mu, ok := c.diagMus[externalId]
	if !ok {
		mu = &sync.Mutex{}
		c.diagMus[externalId] = mu
	}
	return mu
}

// ApplyPatch merges a patch into the latest persisted content of the
// diagram, persists the result and broadcasts it to the diagram's room.
// The merged document is returned.
func (c *Coordinator) ApplyPatch(externalId string, patch Patch, message string) (Document, error) {
	mu := c.diagramLock(externalId)
	mu.Lock()
	defer mu.Unlock()

	// always reconcile against the latest durable state, never a copy
	// cached before an async call
	dbDiagram, err := c.db.GetDiagramByExternalId(externalId)
	if err != nil {
		return nil, fmt.Errorf("reload diagram %q: %w", externalId, err)
	}

	base, err := ParseDocument(dbDiagram.Content)
	if err != nil {
		return nil, fmt.Errorf("diagram %q: %w", externalId, err)
	}

	merged := Merge(base, patch)

	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode merged content: %w", err)
	}

	if _, err := c.db.UpdateDiagramContent(dbDiagram.Id, raw); err != nil {
		return nil, fmt.Errorf("save diagram %q: %w", externalId, err)
	}

	c.su.Incr(metricPatchesApplied)
	c.log.Printf("applied patch to diagram %q: %d classes, %d relations",
		externalId, len(patch.Classes), len(patch.Relations))

	c.bc.BroadcastToRoom(externalId, AgentUpdateEvent, AgentUpdate{
		Type:           "diagram_modified",
		Patch:          patch,
		UpdatedDiagram: merged,
		Message:        message,
		Timestamp:      time.Now().UTC(),
	})

	return merged, nil
}
