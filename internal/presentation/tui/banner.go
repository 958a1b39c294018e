package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the tooldeck banner with a color gradient when the
// terminal supports it.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	rows := []struct{ text, color string }{
		{"  _              _     _           _    ", "#38bdf8"},
		{" | |_ ___   ___ | | __| | ___  ___| | __", "#22d3ee"},
		{" | __/ _ \\ / _ \\| |/ _` |/ _ \\/ __| |/ /", "#2dd4bf"},
		{" | || (_) | (_) | | (_| |  __/ (__|   < ", "#34d399"},
		{"  \\__\\___/ \\___/|_|\\__,_|\\___|\\___|_|\\_\\", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, row := range rows {
		fmt.Fprintln(w, termenv.String(row.text).Foreground(p.Color(row.color)))
	}
	fmt.Fprintln(w, termenv.String("  logistics tools "+version).Faint())
	fmt.Fprintln(w)
}
