package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/tooldeck"
	"github.com/aretw0/tooldeck/internal/config"
	"github.com/aretw0/tooldeck/internal/logging"
)

// Version returns the release version without the trailing newline of the
// embedded VERSION file.
func Version() string {
	return strings.TrimSpace(tooldeck.Version)
}

// NewLogger configures the application logger from the config.
// Debug forces the debug level. Logs always go to w (stderr in practice)
// so stdout stays free for prompts and JSON-RPC.
func NewLogger(w io.Writer, cfg *config.Config, debug bool) *slog.Logger {
	level, err := cfg.Level()
	if err != nil || debug {
		level = slog.LevelDebug
	}
	return logging.NewWithFormat(w, level, cfg.LogFormat)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
