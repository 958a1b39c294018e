package view

import (
	"sort"
	"strings"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/dustin/go-humanize"
)

// NotProvided marks a layout field the payload did not include.
const NotProvided = "not provided"

// Output is a result payload resolved against a tool layout, ready to render.
type Output struct {
	ToolID   string    `json:"tool_id"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	// Missing lists the layout fields absent from the payload.
	Missing []string `json:"missing,omitempty"`
}

// Section is one rendered block of the output.
type Section struct {
	Kind    catalog.BlockKind `json:"kind"`
	Field   string            `json:"field"`
	Label   string            `json:"label"`
	Missing bool              `json:"missing,omitempty"`
	// Details is set for payload fields no layout block names.
	Details bool `json:"details,omitempty"`

	Value string            `json:"value,omitempty"` // card, text
	Items []string          `json:"items,omitempty"` // list
	Table *Table            `json:"table,omitempty"`
	Chart *domain.ChartData `json:"chart,omitempty"`
}

// Table is a resolved table block.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Build resolves the tool layout against a result payload.
// Fields the layout does not name are appended as detail cards so every
// returned value is visible. A malformed value degrades to its JSON text.
func Build(tool catalog.Tool, results domain.ResultPayload) Output {
	out := Output{ToolID: tool.ID, Title: tool.Title}

	named := make(map[string]bool, len(tool.Layout))
	for _, block := range tool.Layout {
		named[block.Field] = true

		value, ok := results[block.Field]
		if !ok || value == nil {
			out.Missing = append(out.Missing, block.Field)
			out.Sections = append(out.Sections, Section{
				Kind:    block.Kind,
				Field:   block.Field,
				Label:   blockLabel(block),
				Missing: true,
				Value:   NotProvided,
			})
			continue
		}
		out.Sections = append(out.Sections, resolve(block, value))
	}

	extra := make([]string, 0)
	for field := range results {
		if !named[field] {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)
	for _, field := range extra {
		block := catalog.Block{Kind: detailKind(results[field]), Field: field}
		section := resolve(block, results[field])
		section.Details = true
		out.Sections = append(out.Sections, section)
	}
	return out
}

func resolve(block catalog.Block, value any) Section {
	s := Section{Kind: block.Kind, Field: block.Field, Label: blockLabel(block)}

	switch block.Kind {
	case catalog.BlockList:
		items, ok := value.([]any)
		if !ok {
			s.Kind = catalog.BlockCard
			s.Value = Format(value, block.Format)
			return s
		}
		for _, item := range items {
			s.Items = append(s.Items, Format(item, block.Format))
		}

	case catalog.BlockTable:
		rows, ok := value.([]any)
		if !ok {
			s.Kind = catalog.BlockCard
			s.Value = Format(value, "")
			return s
		}
		s.Table = buildTable(block, rows)

	case catalog.BlockChart:
		chart, ok := domain.ParseChart(value)
		if !ok {
			chart, ok = chartFromMap(value)
		}
		if !ok {
			s.Kind = catalog.BlockCard
			s.Value = Format(value, "")
			return s
		}
		s.Chart = &chart

	default:
		s.Value = Format(value, block.Format)
	}
	return s
}

func buildTable(block catalog.Block, rows []any) *Table {
	columns := block.Columns
	if len(columns) == 0 {
		columns = inferColumns(rows)
	}

	t := &Table{}
	for _, col := range columns {
		label := col.Label
		if label == "" {
			label = Humanize(col.Field)
		}
		t.Headers = append(t.Headers, label)
	}
	for _, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			t.Rows = append(t.Rows, []string{Format(raw, "")})
			continue
		}
		cells := make([]string, len(columns))
		for i, col := range columns {
			v, ok := row[col.Field]
			if !ok || v == nil {
				cells[i] = "-"
				continue
			}
			cells[i] = Format(v, col.Format)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func inferColumns(rows []any) []catalog.Column {
	seen := map[string]bool{}
	var cols []catalog.Column
	for _, raw := range rows {
		row, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, catalog.Column{Field: k})
			}
		}
	}
	return cols
}

// chartFromMap accepts a flat label -> number object as a chart.
func chartFromMap(v any) (domain.ChartData, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return domain.ChartData{}, false
	}
	labels := make([]string, 0, len(m))
	for k := range m {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	chart := domain.ChartData{}
	for _, label := range labels {
		f, ok := domain.ToFloat(m[label])
		if !ok {
			return domain.ChartData{}, false
		}
		chart.Data = append(chart.Data, domain.ChartPoint{Label: label, Value: f})
	}
	return chart, true
}

func detailKind(v any) catalog.BlockKind {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if _, ok := item.(map[string]any); ok {
				return catalog.BlockTable
			}
		}
		return catalog.BlockList
	case map[string]any:
		if _, ok := domain.ParseChart(val); ok {
			return catalog.BlockChart
		}
		return catalog.BlockCard
	default:
		return catalog.BlockCard
	}
}

func blockLabel(b catalog.Block) string {
	if b.Label != "" {
		return b.Label
	}
	return Humanize(b.Field)
}

// Format renders a scalar for display according to a layout format:
// currency, percent, km, number (digit grouping), or empty for plain text.
// Unformatted numbers are never grouped, so years and IDs stay intact.
func Format(v any, format string) string {
	f, isNum := v.(float64)
	if !isNum {
		if n, ok := v.(int); ok {
			f, isNum = float64(n), true
		}
	}

	switch {
	case isNum && format == "currency":
		if f < 0 {
			return "-$" + humanize.FormatFloat("#,###.##", -f)
		}
		return "$" + humanize.FormatFloat("#,###.##", f)
	case isNum && format == "percent":
		return humanize.CommafWithDigits(f, 2) + "%"
	case isNum && format == "km":
		return humanize.CommafWithDigits(f, 1) + " km"
	case isNum && format == "number":
		return humanize.CommafWithDigits(f, 4)
	case isNum:
		return humanize.FtoaWithDigits(f, 4)
	}

	if m, ok := v.(map[string]any); ok {
		parts := make([]string, 0, len(m))
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, Humanize(k)+": "+Format(m[k], ""))
		}
		return strings.Join(parts, ", ")
	}
	return domain.Stringify(v)
}

// Humanize turns a camelCase payload key into a label: "totalCost" -> "Total Cost".
func Humanize(key string) string {
	if key == "" {
		return ""
	}
	var b strings.Builder
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case i == 0:
			b.WriteString(strings.ToUpper(string(r)))
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case r >= 'A' && r <= 'Z' && runes[i-1] >= 'a' && runes[i-1] <= 'z':
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
