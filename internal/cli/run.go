package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/tooldeck/internal/presentation/tui"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/runner"
	"github.com/aretw0/tooldeck/pkg/session"
)

// RunOptions contains the configuration for the run command.
type RunOptions struct {
	ToolID    string
	Headless  bool
	JSON      bool
	SessionID string
	// Fresh discards the saved visit before starting.
	Fresh bool

	In  io.Reader
	Out io.Writer
}

// RunTool drives one tool visit from the terminal.
func RunTool(ctx context.Context, app *App, opts RunOptions) error {
	if _, err := app.Engine.Tool(opts.ToolID); err != nil {
		return err
	}

	if opts.Fresh && opts.SessionID != "" {
		key := session.Key(opts.SessionID, opts.ToolID)
		if err := app.Visits.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to reset visit %s: %w", key, err)
		}
	}

	if !opts.JSON && !opts.Headless {
		tui.PrintBanner(opts.Out, Version())
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(app.Logger),
		runner.WithHeadless(opts.Headless || opts.JSON),
		runner.WithIO(opts.In, opts.Out),
	}
	if opts.SessionID != "" {
		runnerOpts = append(runnerOpts,
			runner.WithVisits(app.Visits),
			runner.WithSessionID(opts.SessionID),
		)
		if !opts.JSON && !opts.Headless {
			printSystemMessage(opts.Out, "Visit '%s' active.", session.Key(opts.SessionID, opts.ToolID))
		}
	}
	switch {
	case opts.JSON:
		runnerOpts = append(runnerOpts, runner.WithInputHandler(runner.NewJSONHandler(opts.In, opts.Out)))
	case !opts.Headless:
		runnerOpts = append(runnerOpts, runner.WithRenderer(tui.NewRenderer()))
	}

	state, err := runner.NewRunner(app.Engine, runnerOpts...).Run(ctx, opts.ToolID)
	if err != nil {
		return err
	}
	app.Logger.Debug("run finished", "tool", opts.ToolID, "phase", state.Phase)
	return nil
}
