package diagram

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Document is a diagram's content. It is opaque to the server except for
// the two top-level entry arrays, so it is kept as generic JSON rather
// than typed structs: a shallow merge must preserve fields the patch
// entry does not mention, which requires key-presence information.
type Document map[string]any

// Patch is a set of entry upserts against a document. Entries are
// matched by their "id" field; a patch never deletes.
type Patch struct {
	Classes   []map[string]any `json:"classes"`
	Relations []map[string]any `json:"relations"`
}

func (p Patch) IsEmpty() bool {
	return len(p.Classes) == 0 && len(p.Relations) == 0
}

// ParseDocument decodes stored diagram content. Empty content yields an
// empty document rather than an error.
func ParseDocument(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// legacy array-of-operations patch entry
type patchOperation struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// NormalizePatch converts an incoming patch into the canonical
// {classes, relations} form. Two wire shapes are accepted: the canonical
// object, and the legacy array of {type, data} operations some agent
// responses still produce. Anything else is a caller bug.
func NormalizePatch(raw json.RawMessage) (Patch, error) {
	if len(raw) == 0 {
		return Patch{}, fmt.Errorf("patch is empty")
	}

	var patch Patch
	if err := json.Unmarshal(raw, &patch); err == nil {
		return patch, nil
	}

	var ops []patchOperation
	if err := json.Unmarshal(raw, &ops); err != nil {
		return Patch{}, fmt.Errorf("patch is neither an object nor an operation list")
	}

	for _, op := range ops {
		if op.Data == nil {
			continue
		}
		switch op.Type {
		case "add_class", "modify_class":
			patch.Classes = append(patch.Classes, op.Data)
		case "add_relation", "modify_relation":
			patch.Relations = append(patch.Relations, op.Data)
		}
	}

	return patch, nil
}

// Merge applies a patch to a base document and returns the merged
// document. The base is never mutated. For each patch entry, an existing
// entry with the same id is shallow-merged in place (patch keys win,
// base keys the patch omits survive); entries with unknown ids are
// appended. Applying the same patch twice yields the same result.
func Merge(base Document, patch Patch) Document {
	merged := make(Document, len(base))
	maps.Copy(merged, base)

	merged["classes"] = upsertEntries(entryList(base["classes"]), patch.Classes)
	merged["relations"] = upsertEntries(entryList(base["relations"]), patch.Relations)

	return merged
}

// entryList coerces a document's entry array, tolerating absent or
// malformed values by treating them as empty. Both decoded JSON ([]any)
// and previously merged ([]map[string]any) arrays are accepted.
func entryList(v any) []map[string]any {
	if entries, ok := v.([]map[string]any); ok {
		return entries
	}

	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	entries := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if entry, ok := e.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func upsertEntries(base, incoming []map[string]any) []map[string]any {
	// copy entries so the caller's base document survives untouched
	result := make([]map[string]any, len(base))
	for i, entry := range base {
		result[i] = maps.Clone(entry)
	}

	for _, entry := range incoming {
		id := entryId(entry)
		idx := -1
		for i, existing := range result {
			if id != "" && entryId(existing) == id {
				idx = i
				break
			}
		}

		if idx >= 0 {
			maps.Copy(result[idx], entry)
		} else {
			result = append(result, maps.Clone(entry))
		}
	}

	return result
}

func entryId(entry map[string]any) string {
	id, _ := entry["id"].(string)
	return id
}
