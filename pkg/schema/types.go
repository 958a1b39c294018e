package schema

import (
	"github.com/aretw0/tooldeck/pkg/domain"
)

// Kind defines how a field is rendered and which value shape it carries.
type Kind string

const (
	KindText        Kind = "text"
	KindNumber      Kind = "number"
	KindSelect      Kind = "select"
	KindRadio       Kind = "radio"
	KindCheckbox    Kind = "checkbox"
	KindMultiSelect Kind = "multiselect"
	KindGroup       Kind = "group"
)

// Field declares one input of a tool form and its validation rules.
type Field struct {
	Name        string   `json:"name" yaml:"name" mapstructure:"name"`
	Label       string   `json:"label,omitempty" yaml:"label" mapstructure:"label"`
	Kind        Kind     `json:"kind" yaml:"kind" mapstructure:"kind"`
	Required    bool     `json:"required,omitempty" yaml:"required" mapstructure:"required"`
	Positive    bool     `json:"positive,omitempty" yaml:"positive" mapstructure:"positive"`
	Min         *float64 `json:"min,omitempty" yaml:"min" mapstructure:"min"`
	Max         *float64 `json:"max,omitempty" yaml:"max" mapstructure:"max"`
	Step        string   `json:"step,omitempty" yaml:"step" mapstructure:"step"`
	OptionsKey  string   `json:"options_key,omitempty" yaml:"options_key" mapstructure:"options_key"`
	Choices     []string `json:"choices,omitempty" yaml:"choices" mapstructure:"choices"`
	Default     any      `json:"default,omitempty" yaml:"default" mapstructure:"default"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder" mapstructure:"placeholder"`
	Help        string   `json:"help,omitempty" yaml:"help" mapstructure:"help"`

	// Group configuration.
	Fields   []Field `json:"fields,omitempty" yaml:"fields" mapstructure:"fields"`
	MinItems int     `json:"min_items,omitempty" yaml:"min_items" mapstructure:"min_items"`
}

// Form is the ordered field list of a tool.
type Form struct {
	Fields []Field `json:"fields" yaml:"fields" mapstructure:"fields"`
}

// Field looks up a top-level field by name.
func (f Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// IsChoice reports whether the field is bound to a bounded list of values.
func (f Field) IsChoice() bool {
	return f.Kind == KindSelect || f.Kind == KindRadio || f.Kind == KindMultiSelect
}

// Key returns the options key the field binds to (its name by default).
func (f Field) Key() string {
	if f.OptionsKey != "" {
		return f.OptionsKey
	}
	return f.Name
}

// Allowed returns the values a choice field accepts.
// Backend options win over static choices. An empty result means the
// field cannot be constrained (options unavailable).
func (f Field) Allowed(opts domain.ToolOptions) []string {
	if values := opts[f.Key()]; len(values) > 0 {
		return values
	}
	return f.Choices
}

// MinEntries returns the minimum number of entries for groups and multiselects.
func (f Field) MinEntries() int {
	if f.MinItems > 0 {
		return f.MinItems
	}
	if f.Kind == KindGroup || f.Required {
		return 1
	}
	return 0
}

// DisplayLabel returns the label, falling back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}
