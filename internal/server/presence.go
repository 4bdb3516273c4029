package server

import (
	"sort"
	"sync"

	"github.com/slopezm/go-umlcollab/internal/types"
)

// PresenceRegistry is the in-memory roomId -> connectionId -> Participant
// bookkeeping. It does no I/O and holds no references to connections, so
// it can be read from any goroutine; mutations happen synchronously on
// join/leave so membership never outlives a connection.
//
// The registry is owned by the CollabServer; rooms are the only writers.
type PresenceRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]types.Participant
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		rooms: make(map[string]map[string]types.Participant),
	}
}

// Upsert records a participant in a room, replacing any existing entry
// for the same connection id so a re-join never double-counts.
func (pr *PresenceRegistry) Upsert(roomId, connectionId string, p types.Participant) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	room, ok := pr.rooms[roomId]
	if !ok {
		room = make(map[string]types.Participant)
		pr.rooms[roomId] = room
	}
	room[connectionId] = p
}

// Remove drops a participant; the room entry itself is deleted when it
// empties so stale rooms never accumulate. Removing an absent entry is
// a no-op, which guards the leave-then-disconnect double fire.
func (pr *PresenceRegistry) Remove(roomId, connectionId string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	room, ok := pr.rooms[roomId]
	if !ok {
		return
	}

	delete(room, connectionId)
	if len(room) == 0 {
		delete(pr.rooms, roomId)
	}
}

// List returns the current participants of a room, ordered by
// connection id for stable output. Unknown rooms yield an empty list.
func (pr *PresenceRegistry) List(roomId string) []types.Participant {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	room := pr.rooms[roomId]
	participants := make([]types.Participant, 0, len(room))
	for _, p := range room {
		participants = append(participants, p)
	}

	sort.Slice(participants, func(i, j int) bool {
		return participants[i].ConnectionId < participants[j].ConnectionId
	})
	return participants
}

// Count reports the number of participants in a room.
func (pr *PresenceRegistry) Count(roomId string) int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	return len(pr.rooms[roomId])
}
