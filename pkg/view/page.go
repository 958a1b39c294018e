package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	chartWidth  = 560
	chartHeight = 220
)

// IndexPage is the catalog listing.
type IndexPage struct {
	Categories []catalog.Category
	Version    string
}

// ToolPage is one tool page in its current phase.
type ToolPage struct {
	Tool          catalog.Tool
	Action        string
	Phase         domain.Phase
	Notices       []domain.Notice
	OptionsFailed bool
	Fields        []FieldView
	Output        *Output
}

// HasDetails reports whether the output carries unlisted payload fields.
func (p ToolPage) HasDetails() bool {
	if p.Output == nil {
		return false
	}
	for _, s := range p.Output.Sections {
		if s.Details && s.Kind == catalog.BlockCard {
			return true
		}
	}
	return false
}

// ErrorPage is shown for unknown tools and internal failures.
type ErrorPage struct {
	Title   string
	Message string
}

// Pages renders the embedded HTML templates.
type Pages struct {
	tmpl *template.Template
}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	funcs := template.FuncMap{
		"chart": func(c *domain.ChartData) template.HTML {
			if c == nil {
				return ""
			}
			return BarChartSVG(*c, chartWidth, chartHeight)
		},
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Pages{tmpl: tmpl}, nil
}

// MustPages is NewPages for package-level initialization; it panics on error.
func MustPages() *Pages {
	p, err := NewPages()
	if err != nil {
		panic(err)
	}
	return p
}

// Index renders the catalog listing.
func (p *Pages) Index(w io.Writer, page IndexPage) error {
	return p.tmpl.ExecuteTemplate(w, "index.html", page)
}

// Tool renders a tool page.
func (p *Pages) Tool(w io.Writer, page ToolPage) error {
	return p.tmpl.ExecuteTemplate(w, "tool.html", page)
}

// Error renders an error page.
func (p *Pages) Error(w io.Writer, page ErrorPage) error {
	return p.tmpl.ExecuteTemplate(w, "error.html", page)
}

// NewToolPage assembles the page for a visit. Notices are drained from the
// state, so they show once. errs holds inline field errors of a rejected
// submission.
func NewToolPage(tool catalog.Tool, action string, state *domain.State, errs map[string]string) ToolPage {
	page := ToolPage{
		Tool:          tool,
		Action:        action,
		Phase:         state.Phase,
		Notices:       state.DrainNotices(),
		OptionsFailed: state.OptionsFailed,
	}
	if state.Phase == domain.PhaseResults {
		out := Build(tool, state.Results)
		page.Output = &out
		return page
	}
	page.Fields = FormView(tool.Form, state.FormData, state.Options, errs)
	return page
}
