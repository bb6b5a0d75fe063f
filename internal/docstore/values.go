package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// normalizeFields round-trips fields through JSON so every implementation
// stores the same leaf types (string, float64, bool, nil) and never aliases
// caller-owned maps.
func normalizeFields(fields Fields) (Fields, error) {
	if fields == nil {
		return Fields{}, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode fields: %w", err)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode fields: %w", err)
	}
	return out, nil
}

// normalizeValue applies the same JSON normalization to a single filter value.
func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode filter value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("docstore: decode filter value: %w", err)
	}
	return out, nil
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// compareValues orders two normalized field values. Nil sorts first, then
// values of the same type by natural order; mixed types order by type name
// so the result is at least deterministic. Strings that both parse as
// RFC 3339 timestamps compare chronologically: RFC3339Nano trims trailing
// fractional zeros, so "12:00:00Z" would otherwise sort as text after
// "12:00:00.5Z".
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			if c, ok := compareTimestamps(av, bv); ok {
				return c
			}
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case !av && bv:
				return -1
			case av && !bv:
				return 1
			}
			return 0
		}
	}
	at, bt := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	}
	return 0
}

func compareTimestamps(a, b string) (int, bool) {
	at, err := time.Parse(time.RFC3339Nano, a)
	if err != nil {
		return 0, false
	}
	bt, err := time.Parse(time.RFC3339Nano, b)
	if err != nil {
		return 0, false
	}
	switch {
	case at.Before(bt):
		return -1, true
	case at.After(bt):
		return 1, true
	}
	return 0, true
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !valuesEqual(doc.Fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

// sortDocuments orders docs by the query's OrderBy field with the document
// id as a stable, deterministic tie-break.
func sortDocuments(docs []Document, orderBy string, ascending bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		var c int
		if orderBy != "" {
			c = compareValues(docs[i].Fields[orderBy], docs[j].Fields[orderBy])
		}
		if c == 0 {
			switch {
			case docs[i].ID < docs[j].ID:
				c = -1
			case docs[i].ID > docs[j].ID:
				c = 1
			}
		}
		if ascending {
			return c < 0
		}
		return c > 0
	})
}
