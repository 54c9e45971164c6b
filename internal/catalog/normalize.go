package catalog

import "strings"

// The catalog API reports the same logical entry in several shapes depending
// on the endpoint that produced it. Everything in this file is pure: no I/O,
// no mutation of the input payload.

// virtualDataset is the marker the backend uses for views. Some endpoints
// shorten it to "VIRTUAL" in the sub-type field.
const virtualDataset = "VIRTUAL_DATASET"

// str returns the first non-empty string value among the given keys.
func (e RawEntry) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := e[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// entry returns a nested RawEntry value, or nil.
func (e RawEntry) entry(key string) RawEntry {
	switch v := e[key].(type) {
	case map[string]any:
		return RawEntry(v)
	case RawEntry:
		return v
	default:
		return nil
	}
}

// list returns a slice value coerced to []RawEntry, skipping non-map items.
func (e RawEntry) list(key string) []RawEntry {
	raw, ok := e[key].([]any)
	if !ok {
		return nil
	}
	out := make([]RawEntry, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, RawEntry(v))
		case RawEntry:
			out = append(out, v)
		}
	}
	return out
}

// InlineChildren returns the entry's inline children list, reading "children"
// first and the alternate "data" field second.
func (e RawEntry) InlineChildren() []RawEntry {
	if kids := e.list("children"); kids != nil {
		return kids
	}
	return e.list("data")
}

// ParseNode normalizes one raw catalog entry into a Node.
func ParseNode(raw RawEntry) Node {
	name := raw.str("name")
	path := normalizePath(raw)
	if name == "" && len(path) > 0 {
		name = path[len(path)-1]
	}
	return Node{
		ID:          raw.str("id"),
		Kind:        parseKind(raw),
		DatasetType: strings.ToUpper(raw.str("datasetType", "containerType")),
		Name:        name,
		Path:        path,
		Raw:         raw,
	}
}

func parseKind(raw RawEntry) Kind {
	switch Kind(strings.ToUpper(raw.str("type", "entityType"))) {
	case KindSpace:
		return KindSpace
	case KindFolder:
		return KindFolder
	case KindContainer:
		return KindContainer
	case KindSource:
		return KindSource
	case KindDataset:
		return KindDataset
	case KindHome:
		return KindHome
	default:
		return KindUnknown
	}
}

// ClassifyView decides whether a raw catalog entry is a virtual dataset and,
// if so, normalizes it into a ViewRecord. Detection rules, first match wins:
//
//  1. an explicit top-level type equal to the virtual-dataset marker;
//  2. a "dataset" type whose sub-type (datasetType or containerType) is
//     VIRTUAL or VIRTUAL_DATASET;
//  3. an embedded "dataset" object whose own type or sub-type matches the
//     same set.
func ClassifyView(raw RawEntry) (ViewRecord, bool) {
	if !isView(raw) {
		return ViewRecord{}, false
	}

	path := normalizePath(raw)
	declared := raw.str("type", "datasetType")
	if declared == "" {
		declared = virtualDataset
	}

	return ViewRecord{
		ID:         raw.str("id"),
		Path:       path,
		PathString: JoinPath(path),
		Type:       declared,
		CreatedAt:  raw.str("createdAt", "created_at"),
		ModifiedAt: raw.str("modifiedAt", "modified_at", "lastModified"),
		SQL:        extractSQL(raw),
	}, true
}

func isView(raw RawEntry) bool {
	if strings.ToUpper(raw.str("type")) == virtualDataset {
		return true
	}

	t := strings.ToUpper(raw.str("type", "entityType"))
	if t == string(KindDataset) && isVirtualSubtype(raw.str("datasetType", "containerType")) {
		return true
	}

	if ds := raw.entry("dataset"); ds != nil {
		if isVirtualSubtype(ds.str("type", "datasetType")) {
			return true
		}
	}
	return false
}

func isVirtualSubtype(s string) bool {
	switch strings.ToUpper(s) {
	case "VIRTUAL", virtualDataset:
		return true
	default:
		return false
	}
}

// normalizePath reads the entry's path, preferring the explicit "path" array
// over the alternate "fullPathList" field. A bare string value is treated as
// a one-element path. Absence yields nil; the caller must re-resolve the path
// via a follow-up entity fetch.
func normalizePath(raw RawEntry) []string {
	for _, key := range []string{"path", "fullPathList"} {
		switch v := raw[key].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, seg := range v {
				if s, ok := seg.(string); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		case []string:
			if len(v) > 0 {
				return append([]string(nil), v...)
			}
		case string:
			if v != "" {
				return []string{v}
			}
		}
	}
	return nil
}

// extractSQL finds the view-defining SQL text: top-level "sql" first, then
// nested view.sql, then nested dataset.sql. Absence is not an error.
func extractSQL(raw RawEntry) string {
	if sql := raw.str("sql"); sql != "" {
		return sql
	}
	if view := raw.entry("view"); view != nil {
		if sql := view.str("sql"); sql != "" {
			return sql
		}
	}
	if ds := raw.entry("dataset"); ds != nil {
		return ds.str("sql")
	}
	return ""
}
