// Package catalog holds the table-driven definitions of every tool page.
//
// A tool is pure data: its form schema, the result layout its output view
// renders, and optionally the name of a pre-submit transform. The default
// catalog is embedded from tools.yaml; a custom file can replace it.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var defaultCatalog []byte

// BlockKind defines how a result field is presented.
type BlockKind string

const (
	BlockCard  BlockKind = "card"
	BlockTable BlockKind = "table"
	BlockChart BlockKind = "chart"
	BlockList  BlockKind = "list"
	BlockText  BlockKind = "text"
)

// Column describes one column of a table block.
type Column struct {
	Field  string `json:"field" mapstructure:"field"`
	Label  string `json:"label,omitempty" mapstructure:"label"`
	Format string `json:"format,omitempty" mapstructure:"format"`
}

// Block maps one payload field to a presentational component.
type Block struct {
	Kind    BlockKind `json:"kind" mapstructure:"kind"`
	Field   string    `json:"field" mapstructure:"field"`
	Label   string    `json:"label,omitempty" mapstructure:"label"`
	Format  string    `json:"format,omitempty" mapstructure:"format"`
	Columns []Column  `json:"columns,omitempty" mapstructure:"columns"`
}

// Tool is the definition of a single tool page.
type Tool struct {
	ID           string      `json:"id" mapstructure:"id"`
	Title        string      `json:"title" mapstructure:"title"`
	Category     string      `json:"category,omitempty" mapstructure:"category"`
	Description  string      `json:"description,omitempty" mapstructure:"description"`
	OptionsError string      `json:"options_error,omitempty" mapstructure:"options_error"`
	ResultsError string      `json:"results_error,omitempty" mapstructure:"results_error"`
	Transform    string      `json:"transform,omitempty" mapstructure:"transform"`
	Form         schema.Form `json:"form" mapstructure:"form"`
	Layout       []Block     `json:"layout" mapstructure:"layout"`
}

// File represents the structure of tools.yaml.
type File struct {
	Tools []Tool `mapstructure:"tools"`
}

// Catalog is an immutable, ordered set of tools.
type Catalog struct {
	tools []Tool
	byID  map[string]int
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault is Default for package-level initialization; it panics on error.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFile reads a catalog from a YAML (or JSON, which is valid YAML) file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog bytes.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var file File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &file,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	return New(file.Tools...)
}

// New builds a catalog from tool definitions, validating each one.
func New(tools ...Tool) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(tools))}
	for _, t := range tools {
		if err := validateTool(t); err != nil {
			return nil, err
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("tool %q: duplicate id", t.ID)
		}
		c.byID[t.ID] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Get looks up a tool by id.
func (c *Catalog) Get(id string) (Tool, error) {
	i, ok := c.byID[id]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", domain.ErrToolNotFound, id)
	}
	return c.tools[i], nil
}

// List returns all tools in catalog order.
func (c *Catalog) List() []Tool {
	return append([]Tool(nil), c.tools...)
}

// Categories returns the tools grouped by category, categories sorted by name.
func (c *Catalog) Categories() []Category {
	index := map[string]int{}
	var out []Category
	for _, t := range c.tools {
		name := t.Category
		if name == "" {
			name = "Other"
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Category{Name: name})
		}
		out[i].Tools = append(out[i].Tools, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Category is a named group of tools, used by the index page.
type Category struct {
	Name  string
	Tools []Tool
}

func validateTool(t Tool) error {
	if t.ID == "" {
		return fmt.Errorf("tool with title %q: missing id", t.Title)
	}
	if len(t.Form.Fields) == 0 {
		return fmt.Errorf("tool %q: form has no fields", t.ID)
	}
	if err := validateFields(t.ID, t.Form.Fields); err != nil {
		return err
	}
	for i, b := range t.Layout {
		switch b.Kind {
		case BlockCard, BlockChart, BlockList, BlockText:
		case BlockTable:
			if len(b.Columns) == 0 {
				return fmt.Errorf("tool %q: table block %d (%s) has no columns", t.ID, i, b.Field)
			}
		default:
			return fmt.Errorf("tool %q: block %d has unknown kind %q", t.ID, i, b.Kind)
		}
		if b.Field == "" {
			return fmt.Errorf("tool %q: block %d has no field", t.ID, i)
		}
	}
	return nil
}

func validateFields(toolID string, fields []schema.Field) error {
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("tool %q: field without name", toolID)
		}
		if seen[f.Name] {
			return fmt.Errorf("tool %q: duplicate field %q", toolID, f.Name)
		}
		seen[f.Name] = true

		switch f.Kind {
		case schema.KindText, schema.KindNumber, schema.KindSelect, schema.KindRadio,
			schema.KindCheckbox, schema.KindMultiSelect:
		case schema.KindGroup:
			if len(f.Fields) == 0 {
				return fmt.Errorf("tool %q: group %q has no fields", toolID, f.Name)
			}
			if err := validateFields(toolID, f.Fields); err != nil {
				return err
			}
		default:
			return fmt.Errorf("tool %q: field %q has unknown kind %q", toolID, f.Name, f.Kind)
		}
	}
	return nil
}
