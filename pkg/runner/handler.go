package runner

import (
	"context"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/view"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (prompts) and JSON (structured) modes.
//
// Returning io.EOF from any method ends the run without error.
type IOHandler interface {
	// Form collects the values for one submission. The state carries the
	// draft offered as defaults and the options for choice fields. errs maps
	// field paths to the reasons the previous submission was rejected.
	Form(ctx context.Context, tool catalog.Tool, state *domain.State, errs map[string]string) (domain.FormData, error)

	// Results presents a computed output.
	Results(ctx context.Context, out view.Output) error

	// Notice presents a flashed notification.
	Notice(ctx context.Context, n domain.Notice) error

	// Ask shows a prompt and reads one answer.
	Ask(ctx context.Context, prompt string) (string, error)

	// SystemOutput presents a meta-message (status updates, interruptions).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms markdown before it is written.
// This allows terminal rendering (markdown to ANSI) without coupling the package.
type ContentRenderer func(string) (string, error)
