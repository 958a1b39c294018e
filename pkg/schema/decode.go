package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/tooldeck/pkg/domain"
)

// Decode turns posted HTML form values into FormData shaped by the form.
// Group entries are posted as "<group>.<index>.<field>".
// Numbers that do not parse are kept as strings so validation can report them.
func Decode(form Form, values url.Values) domain.FormData {
	data := domain.FormData{}
	for _, field := range form.Fields {
		if v, ok := decodeField(field, field.Name, values); ok {
			data[field.Name] = v
		}
	}
	return data
}

func decodeField(field Field, key string, values url.Values) (any, bool) {
	switch field.Kind {
	case KindGroup:
		indices := groupIndices(key, values)
		if len(indices) == 0 {
			return nil, false
		}
		entries := make([]any, 0, len(indices))
		for _, i := range indices {
			entry := map[string]any{}
			for _, sub := range field.Fields {
				if v, ok := decodeField(sub, fmt.Sprintf("%s.%d.%s", key, i, sub.Name), values); ok {
					entry[sub.Name] = v
				}
			}
			entries = append(entries, entry)
		}
		return entries, true

	case KindMultiSelect:
		raw := values[key]
		if len(raw) == 0 {
			return nil, false
		}
		items := make([]any, 0, len(raw))
		for _, s := range raw {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		return items, true

	case KindCheckbox:
		return values.Has(key), true

	case KindNumber:
		if !values.Has(key) {
			return nil, false
		}
		return parseNumber(values.Get(key)), true

	default:
		if !values.Has(key) {
			return nil, false
		}
		return strings.TrimSpace(values.Get(key)), true
	}
}

// groupIndices returns the sorted entry indices posted for a group key.
func groupIndices(key string, values url.Values) []int {
	prefix := key + "."
	seen := map[int]bool{}
	for k := range values {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		idx, _, _ := strings.Cut(rest, ".")
		if i, err := strconv.Atoi(idx); err == nil && i >= 0 {
			seen[i] = true
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func parseNumber(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// NaN and the infinities stay strings so validation rejects them.
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// Normalize coerces JSON-ish input (API bodies, MCP arguments, terminal answers)
// into the same shapes Decode produces. Keys the form does not declare are dropped.
func Normalize(form Form, data map[string]any) domain.FormData {
	out := domain.FormData{}
	for _, field := range form.Fields {
		v, ok := data[field.Name]
		if !ok {
			continue
		}
		out[field.Name] = normalizeValue(field, v)
	}
	return out
}

func normalizeValue(field Field, v any) any {
	switch field.Kind {
	case KindNumber:
		switch n := v.(type) {
		case string:
			return parseNumber(n)
		case json.Number:
			return parseNumber(n.String())
		default:
			if f, ok := domain.ToFloat(n); ok {
				return f
			}
			return v
		}

	case KindCheckbox:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(s); err == nil {
				return b
			}
		}
		return v

	case KindMultiSelect:
		return toAnySlice(v)

	case KindGroup:
		items := toAnySlice(v)
		entries, ok := items.([]any)
		if !ok {
			return v
		}
		out := make([]any, 0, len(entries))
		for _, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				out = append(out, raw)
				continue
			}
			out = append(out, map[string]any(Normalize(Form{Fields: field.Fields}, entry)))
		}
		return out

	default:
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return v
	}
}

func toAnySlice(v any) any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out
	default:
		return v
	}
}

// Defaults returns the initial values of a form: declared defaults, and
// MinEntries blank entries for every group.
func Defaults(form Form) domain.FormData {
	data := domain.FormData{}
	for _, field := range form.Fields {
		switch {
		case field.Kind == KindGroup:
			entries := make([]any, 0, field.MinEntries())
			for i := 0; i < field.MinEntries(); i++ {
				entries = append(entries, map[string]any(Defaults(Form{Fields: field.Fields})))
			}
			data[field.Name] = entries
		case field.Default != nil:
			data[field.Name] = normalizeValue(field, field.Default)
		}
	}
	return data
}

// ApplyAction edits repeatable groups in a form draft.
// Actions are "add:<group>" and "remove:<group>:<index>". A group never
// drops below its minimum entries. Returns false if the action is not
// a recognized group edit.
func ApplyAction(form Form, data domain.FormData, action string) (domain.FormData, bool) {
	parts := strings.Split(action, ":")
	if len(parts) < 2 {
		return data, false
	}
	field, ok := form.Field(parts[1])
	if !ok || field.Kind != KindGroup {
		return data, false
	}

	out := domain.FormData{}
	for k, v := range data {
		out[k] = v
	}
	entries, _ := toAnySlice(out[field.Name]).([]any)
	entries = append([]any(nil), entries...)

	switch {
	case parts[0] == "add" && len(parts) == 2:
		entries = append(entries, map[string]any(Defaults(Form{Fields: field.Fields})))
	case parts[0] == "remove" && len(parts) == 3:
		i, err := strconv.Atoi(parts[2])
		if err != nil || i < 0 || i >= len(entries) {
			return data, false
		}
		if len(entries) <= field.MinEntries() {
			return data, true
		}
		entries = append(entries[:i], entries[i+1:]...)
	default:
		return data, false
	}

	out[field.Name] = entries
	return out, true
}
