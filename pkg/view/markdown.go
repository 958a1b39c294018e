package view

import (
	"fmt"
	"strings"

	"github.com/aretw0/tooldeck/pkg/catalog"
)

const barWidth = 30

// Markdown renders an output for terminals and agents.
// Charts become text bar rows; tables become pipe tables.
func Markdown(out Output) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", out.Title)

	var cards, details []Section
	var rest []Section
	for _, s := range out.Sections {
		switch {
		case s.Kind == catalog.BlockCard && s.Details:
			details = append(details, s)
		case s.Kind == catalog.BlockCard:
			cards = append(cards, s)
		default:
			rest = append(rest, s)
		}
	}

	for _, s := range cards {
		fmt.Fprintf(&b, "- **%s:** %s\n", s.Label, markdownValue(s))
	}
	if len(cards) > 0 {
		b.WriteString("\n")
	}

	for _, s := range rest {
		fmt.Fprintf(&b, "## %s\n\n", s.Label)
		switch {
		case s.Missing:
			fmt.Fprintf(&b, "_%s_\n\n", NotProvided)
		case s.Table != nil:
			writeTable(&b, s.Table)
		case s.Chart != nil:
			writeChart(&b, s)
		case s.Kind == catalog.BlockList:
			for _, item := range s.Items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
			b.WriteString("\n")
		default:
			fmt.Fprintf(&b, "%s\n\n", s.Value)
		}
	}

	if len(details) > 0 {
		b.WriteString("## Details\n\n")
		for _, s := range details {
			fmt.Fprintf(&b, "- **%s:** %s\n", s.Label, markdownValue(s))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func markdownValue(s Section) string {
	if s.Missing {
		return "_" + NotProvided + "_"
	}
	return s.Value
}

func writeTable(b *strings.Builder, t *Table) {
	if len(t.Headers) == 0 {
		return
	}
	b.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		cells := make([]string, len(t.Headers))
		copy(cells, row)
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	b.WriteString("\n")
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func writeChart(b *strings.Builder, s Section) {
	maxAbs := 0.0
	width := 0
	for _, p := range s.Chart.Data {
		if v := abs(p.Value); v > maxAbs {
			maxAbs = v
		}
		if len(p.Label) > width {
			width = len(p.Label)
		}
	}
	b.WriteString("```\n")
	for _, p := range s.Chart.Data {
		n := 0
		if maxAbs > 0 {
			n = int(abs(p.Value) / maxAbs * barWidth)
		}
		fmt.Fprintf(b, "%-*s %s %s\n", width, p.Label, strings.Repeat("█", n), Format(p.Value, ""))
	}
	b.WriteString("```\n")
	if s.Chart.XLabel != "" || s.Chart.YLabel != "" {
		fmt.Fprintf(b, "_%s_\n", strings.Trim(s.Chart.XLabel+" / "+s.Chart.YLabel, " /"))
	}
	b.WriteString("\n")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
