// Package view renders tool pages: the input form, built from the form schema
// and the fetched options, and the output, a result payload resolved against
// the tool's layout into cards, tables, lists and charts.
//
// The same Output renders as HTML (Pages) and as Markdown for terminals and
// agents.
package view
