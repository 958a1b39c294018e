package view

import (
	"fmt"
	"slices"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
)

// FieldView is one form control, resolved against the current draft,
// the fetched options and the validation errors.
type FieldView struct {
	Name        string // posted key, e.g. "stops.1.address"
	ID          string
	Label       string
	Kind        schema.Kind
	Required    bool
	Placeholder string
	Help        string
	Step        string
	Min         string
	Max         string
	Error       string

	Value    string
	Checked  bool
	Selected []string
	Options  []string
	// Degraded is set for a choice field with nothing to choose from,
	// which renders as a free text input instead.
	Degraded bool

	Group   string // group field name, for add/remove actions
	Entries []GroupEntry
	CanAdd  bool
}

// GroupEntry is one repeatable entry of a group field.
type GroupEntry struct {
	Index     int
	Fields    []FieldView
	CanRemove bool
}

// IsSelected reports whether value is selected in a select, radio or multiselect.
func (f FieldView) IsSelected(value string) bool {
	if f.Kind == schema.KindMultiSelect {
		return slices.Contains(f.Selected, value)
	}
	return f.Value == value
}

// FormView resolves a form for rendering.
// errs maps validation paths ("stops[1].address") to reasons.
func FormView(form schema.Form, data domain.FormData, opts domain.ToolOptions, errs map[string]string) []FieldView {
	views := make([]FieldView, 0, len(form.Fields))
	for _, field := range form.Fields {
		views = append(views, fieldView(field, field.Name, field.Name, data[field.Name], opts, errs))
	}
	return views
}

func fieldView(field schema.Field, name, errKey string, value any, opts domain.ToolOptions, errs map[string]string) FieldView {
	v := FieldView{
		Name:        name,
		ID:          "f-" + name,
		Label:       field.DisplayLabel(),
		Kind:        field.Kind,
		Required:    field.Required,
		Placeholder: field.Placeholder,
		Help:        field.Help,
		Step:        field.Step,
		Error:       errs[errKey],
	}
	if field.Min != nil {
		v.Min = domain.Stringify(*field.Min)
	}
	if field.Max != nil {
		v.Max = domain.Stringify(*field.Max)
	}

	switch field.Kind {
	case schema.KindGroup:
		v.Group = field.Name
		entries, _ := value.([]any)
		for i, raw := range entries {
			entry, _ := raw.(map[string]any)
			ge := GroupEntry{Index: i, CanRemove: len(entries) > field.MinEntries()}
			for _, sub := range field.Fields {
				subName := fmt.Sprintf("%s.%d.%s", name, i, sub.Name)
				subErr := fmt.Sprintf("%s[%d].%s", errKey, i, sub.Name)
				ge.Fields = append(ge.Fields, fieldView(sub, subName, subErr, entry[sub.Name], opts, errs))
			}
			v.Entries = append(v.Entries, ge)
		}
		v.CanAdd = true

	case schema.KindCheckbox:
		v.Checked, _ = value.(bool)

	case schema.KindMultiSelect:
		v.Options = field.Allowed(opts)
		if items, ok := value.([]any); ok {
			for _, item := range items {
				v.Selected = append(v.Selected, domain.Stringify(item))
			}
		}
		v.Degraded = len(v.Options) == 0

	case schema.KindSelect, schema.KindRadio:
		v.Options = field.Allowed(opts)
		v.Value = domain.Stringify(value)
		v.Degraded = len(v.Options) == 0

	default:
		v.Value = domain.Stringify(value)
	}
	return v
}
