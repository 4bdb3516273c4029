package server

import (
	"testing"

	"github.com/slopezm/go-umlcollab/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPresenceRegistry_Upsert(t *testing.T) {
	pr := NewPresenceRegistry()

	ana := types.Participant{ConnectionId: "conn-1", UserId: "1", DisplayName: "ana"}
	pr.Upsert("diagram-abc", "conn-1", ana)
	assert.Equal(t, 1, pr.Count("diagram-abc"), "expected one participant after upsert")

	// same connection id replaces, never duplicates
	renamed := types.Participant{ConnectionId: "conn-1", UserId: "1", DisplayName: "ana maria"}
	pr.Upsert("diagram-abc", "conn-1", renamed)
	assert.Equal(t, 1, pr.Count("diagram-abc"), "expected re-upsert to replace the entry")
	assert.Equal(t, renamed, pr.List("diagram-abc")[0], "expected updated participant")

	luis := types.Participant{ConnectionId: "conn-2", UserId: "2", DisplayName: "luis"}
	pr.Upsert("diagram-abc", "conn-2", luis)
	assert.Equal(t, 2, pr.Count("diagram-abc"), "expected two participants")

	// same connection in a second room is tracked independently
	pr.Upsert("diagram-xyz", "conn-1", ana)
	assert.Equal(t, 1, pr.Count("diagram-xyz"), "expected independent per-room counts")
	assert.Equal(t, 2, pr.Count("diagram-abc"), "expected first room to be unaffected")
}

func TestPresenceRegistry_Remove(t *testing.T) {
	pr := NewPresenceRegistry()

	pr.Upsert("diagram-abc", "conn-1", types.Participant{ConnectionId: "conn-1"})
	pr.Upsert("diagram-abc", "conn-2", types.Participant{ConnectionId: "conn-2"})

	pr.Remove("diagram-abc", "conn-1")
	assert.Equal(t, 1, pr.Count("diagram-abc"), "expected one participant after removal")

	// removing an absent entry is a no-op
	pr.Remove("diagram-abc", "conn-1")
	assert.Equal(t, 1, pr.Count("diagram-abc"), "expected double removal to be a no-op")

	pr.Remove("missing-room", "conn-1")

	pr.Remove("diagram-abc", "conn-2")
	assert.Zero(t, pr.Count("diagram-abc"), "expected empty room after last removal")
	assert.NotContains(t, pr.rooms, "diagram-abc", "expected empty room entry to be deleted")
}

func TestPresenceRegistry_List(t *testing.T) {
	pr := NewPresenceRegistry()

	assert.Empty(t, pr.List("missing-room"), "expected empty list for unknown room")
	assert.NotNil(t, pr.List("missing-room"), "expected non-nil list for unknown room")

	pr.Upsert("diagram-abc", "conn-2", types.Participant{ConnectionId: "conn-2", DisplayName: "luis"})
	pr.Upsert("diagram-abc", "conn-1", types.Participant{ConnectionId: "conn-1", DisplayName: "ana"})

	list := pr.List("diagram-abc")
	assert.Len(t, list, 2, "expected two participants")
	assert.Equal(t, "conn-1", list[0].ConnectionId, "expected list ordered by connection id")
	assert.Equal(t, "conn-2", list[1].ConnectionId, "expected list ordered by connection id")
}
