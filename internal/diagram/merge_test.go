package diagram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocument(t *testing.T) {
	t.Run("empty content yields empty document", func(t *testing.T) {
		doc, err := ParseDocument(nil)
		assert.NoError(t, err, "expected no error for empty content")
		assert.NotNil(t, doc, "expected non-nil document")
		assert.Empty(t, doc, "expected empty document")
	})

	t.Run("null content yields empty document", func(t *testing.T) {
		doc, err := ParseDocument([]byte(`null`))
		assert.NoError(t, err, "expected no error for null content")
		assert.NotNil(t, doc, "expected non-nil document")
	})

	t.Run("parses stored content", func(t *testing.T) {
		doc, err := ParseDocument([]byte(`{"titulo":"Ventas","classes":[{"id":"c1"}],"relations":[]}`))
		assert.NoError(t, err, "expected no error")
		assert.Equal(t, "Ventas", doc["titulo"], "expected titulo to be preserved")
	})

	t.Run("malformed content is an error", func(t *testing.T) {
		_, err := ParseDocument([]byte(`{`))
		assert.Error(t, err, "expected error for malformed content")
	})
}

func TestNormalizePatch(t *testing.T) {
	t.Run("canonical object form", func(t *testing.T) {
		patch, err := NormalizePatch([]byte(`{"classes":[{"id":"c1","name":"Cliente"}],"relations":[{"id":"r1"}]}`))
		assert.NoError(t, err, "expected no error")
		assert.Len(t, patch.Classes, 1, "expected one class entry")
		assert.Len(t, patch.Relations, 1, "expected one relation entry")
		assert.Equal(t, "Cliente", patch.Classes[0]["name"], "expected class fields to survive")
	})

	t.Run("legacy operation list form", func(t *testing.T) {
		raw := []byte(`[
			{"type":"add_class","data":{"id":"c1","name":"Cliente"}},
			{"type":"modify_class","data":{"id":"c2","name":"Pedido"}},
			{"type":"add_relation","data":{"id":"r1","type":"Asociación"}},
			{"type":"modify_relation","data":{"id":"r2"}},
			{"type":"unknown_op","data":{"id":"x"}},
			{"type":"add_class"}
		]`)

		patch, err := NormalizePatch(raw)
		assert.NoError(t, err, "expected no error")
		assert.Len(t, patch.Classes, 2, "expected class operations to be collected")
		assert.Len(t, patch.Relations, 2, "expected relation operations to be collected")
		assert.Equal(t, "Asociación", patch.Relations[0]["type"], "expected relation type to survive")
	})

	t.Run("empty patch is an error", func(t *testing.T) {
		_, err := NormalizePatch(nil)
		assert.Error(t, err, "expected error for empty patch")
	})

	t.Run("unrecognized shape is an error", func(t *testing.T) {
		_, err := NormalizePatch([]byte(`"just a string"`))
		assert.Error(t, err, "expected error for unrecognized patch shape")
	})
}

func TestPatchIsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty(), "expected zero patch to be empty")
	assert.False(t, Patch{Classes: []map[string]any{{"id": "c1"}}}.IsEmpty(), "expected patch with classes to be non-empty")
	assert.False(t, Patch{Relations: []map[string]any{{"id": "r1"}}}.IsEmpty(), "expected patch with relations to be non-empty")
}

func TestMerge(t *testing.T) {
	base := Document{
		"titulo": "Ventas",
		"classes": []any{
			map[string]any{"id": "c1", "name": "Cliente", "x": 10.0, "y": 20.0, "attributes": []any{"nombre"}},
		},
		"relations": []any{
			map[string]any{"id": "r1", "type": "Asociación", "source": "c1", "target": "c2"},
		},
	}

	t.Run("updates existing entry by id and preserves omitted fields", func(t *testing.T) {
		patch := Patch{
			Classes: []map[string]any{
				{"id": "c1", "x": 99.0},
			},
		}

		merged := Merge(base, patch)

		classes := merged["classes"].([]map[string]any)
		assert.Len(t, classes, 1, "expected no duplicate entry for known id")
		assert.Equal(t, 99.0, classes[0]["x"], "expected patched field to win")
		assert.Equal(t, "Cliente", classes[0]["name"], "expected omitted field to survive")
		assert.Equal(t, []any{"nombre"}, classes[0]["attributes"], "expected omitted field to survive")
	})

	t.Run("appends entries with unknown ids", func(t *testing.T) {
		patch := Patch{
			Classes: []map[string]any{
				{"id": "c2", "name": "Pedido"},
			},
			Relations: []map[string]any{
				{"id": "r2", "type": "Composición"},
			},
		}

		merged := Merge(base, patch)

		assert.Len(t, merged["classes"].([]map[string]any), 2, "expected new class to be appended")
		assert.Len(t, merged["relations"].([]map[string]any), 2, "expected new relation to be appended")
	})

	t.Run("does not mutate the base document", func(t *testing.T) {
		patch := Patch{
			Classes: []map[string]any{
				{"id": "c1", "name": "Renamed"},
			},
		}

		_ = Merge(base, patch)

		baseClasses := base["classes"].([]any)
		assert.Equal(t, "Cliente", baseClasses[0].(map[string]any)["name"], "expected base to be untouched")
	})

	t.Run("applying the same patch twice yields the same result", func(t *testing.T) {
		patch := Patch{
			Classes: []map[string]any{
				{"id": "c2", "name": "Pedido"},
			},
		}

		once := Merge(base, patch)
		twice := Merge(once, patch)
		assert.Equal(t, once, twice, "expected merge to be idempotent")
	})

	t.Run("preserves top-level fields outside the entry arrays", func(t *testing.T) {
		merged := Merge(base, Patch{})
		assert.Equal(t, "Ventas", merged["titulo"], "expected titulo to survive the merge")
	})

	t.Run("tolerates a document without entry arrays", func(t *testing.T) {
		merged := Merge(Document{"titulo": "Nuevo"}, Patch{
			Classes: []map[string]any{{"id": "c1"}},
		})

		assert.Len(t, merged["classes"].([]map[string]any), 1, "expected class array to be created")
		assert.Empty(t, merged["relations"].([]map[string]any), "expected empty relation array")
	})

	t.Run("entries without ids are appended, never matched", func(t *testing.T) {
		patch := Patch{
			Classes: []map[string]any{
				{"name": "sin id"},
				{"name": "tampoco"},
			},
		}

		merged := Merge(base, patch)
		assert.Len(t, merged["classes"].([]map[string]any), 3, "expected id-less entries to append")
	})

	t.Run("merged document round-trips through JSON", func(t *testing.T) {
		patch := Patch{
			Classes: []map[string]any{{"id": "c2", "name": "Pedido"}},
		}

		merged := Merge(base, patch)
		raw, err := json.Marshal(merged)
		assert.NoError(t, err, "expected merged document to marshal")

		reparsed, err := ParseDocument(raw)
		assert.NoError(t, err, "expected merged document to parse back")
		assert.Equal(t, "Ventas", reparsed["titulo"], "expected titulo to survive the round trip")
	})
}
