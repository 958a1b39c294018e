package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#38bdf8"))
	categoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a1a1aa"))
)

// PrintCatalog lists the tools as a table, or as JSON when asJSON is set.
func PrintCatalog(w io.Writer, cat *catalog.Catalog, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cat.List())
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TOOL", "CATEGORY", "DESCRIPTION").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return categoryStyle
			default:
				return lipgloss.NewStyle()
			}
		})
	for _, tool := range cat.List() {
		t.Row(tool.ID, tool.Category, tool.Description)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// CatalogMarkdown renders the catalog grouped by category.
func CatalogMarkdown(cat *catalog.Catalog) string {
	var b strings.Builder
	b.WriteString("# Tools\n")
	for _, c := range cat.Categories() {
		fmt.Fprintf(&b, "\n## %s\n\n", c.Name)
		for _, tool := range c.Tools {
			fmt.Fprintf(&b, "- **%s** (`%s`): %s\n", tool.Title, tool.ID, tool.Description)
		}
	}
	return b.String()
}
