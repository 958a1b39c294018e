package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/aretw0/tooldeck/pkg/session"
	"github.com/aretw0/tooldeck/pkg/view"
	"github.com/google/uuid"
)

// Engine is the subset of the tooldeck engine the runner drives.
type Engine interface {
	Mount(ctx context.Context, sessionID, toolID string) (*domain.State, error)
	Submit(ctx context.Context, state *domain.State, values domain.FormData) (*domain.State, error)
	Reset(ctx context.Context, state *domain.State) (*domain.State, error)
	Catalog() *catalog.Catalog
}

// Runner handles the terminal loop of one tool visit using the provided IO.
type Runner struct {
	Engine Engine

	// Handler is the strategy for IO. If nil, a TextHandler over Input and
	// Output is used.
	Handler IOHandler

	// Interceptor is consulted before every submission.
	// If nil, interactive runs ask for confirmation and headless runs don't.
	Interceptor SubmitInterceptor

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Visits persists the visit between runs. If nil, visits are ephemeral.
	Visits    *session.Manager
	SessionID string

	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// NewRunner creates a Runner with default Stdin/Stdout.
func NewRunner(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		Engine: engine,
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the visit of toolID until the user quits or ctx is done.
// It returns the last state, which is also what Visits holds.
//
// An interrupt while a request is in flight cancels that request only; an
// interrupt at a prompt ends the run without error.
func (r *Runner) Run(ctx context.Context, toolID string) (*domain.State, error) {
	tool, err := r.Engine.Catalog().Get(toolID)
	if err != nil {
		return nil, err
	}
	handler := r.resolveHandler()
	interceptor := r.resolveInterceptor(handler)

	signals := NewSignalManager(ctx)
	defer signals.Stop()

	state, err := r.resolveInitialState(signals.Context(), toolID)
	if err != nil {
		return nil, err
	}

	var fieldErrs map[string]string
	for {
		stepCtx := signals.Context()

		if err := r.flushNotices(stepCtx, handler, state); err != nil {
			return state, err
		}

		if state.Phase == domain.PhaseResults {
			if err := handler.Results(stepCtx, view.Build(tool, state.Results)); err != nil {
				return state, fmt.Errorf("output error: %w", err)
			}
			if _, err := handler.Ask(stepCtx, "Press Enter to edit the form again, or type quit."); err != nil {
				return r.finish(state, signals, err)
			}
			next, err := r.Engine.Reset(stepCtx, state)
			if err != nil {
				return state, err
			}
			state = next
			if err := r.save(stepCtx, state); err != nil {
				return state, err
			}
			continue
		}

		values, err := handler.Form(stepCtx, tool, state, fieldErrs)
		if err != nil {
			return r.finish(state, signals, err)
		}

		allowed, err := interceptor(stepCtx, tool, values)
		if err != nil {
			return r.finish(state, signals, err)
		}
		if !allowed {
			state.FormData = values
			fieldErrs = nil
			continue
		}

		next, err := r.Engine.Submit(stepCtx, state, values)
		fieldErrs = schema.FieldErrors(err)
		if err != nil && fieldErrs == nil {
			if next == nil || errors.Is(err, domain.ErrInvalidTransition) {
				return state, err
			}
			r.Logger.Error("submit failed", "tool", toolID, "err", err)
		}
		if next != nil {
			state = next
		}

		if signals.Interrupted() {
			signals.Reset()
			r.Logger.Debug("request interrupted", "tool", toolID)
			if err := handler.SystemOutput(signals.Context(), "Request interrupted."); err != nil {
				return state, err
			}
		}

		if err := r.save(signals.Context(), state); err != nil {
			return state, err
		}
	}
}

// finish turns quit, EOF and prompt interrupts into a clean return.
func (r *Runner) finish(state *domain.State, signals *SignalManager, err error) (*domain.State, error) {
	if errors.Is(err, io.EOF) {
		signals.CheckRace()
		return state, nil
	}
	if errors.Is(err, context.Canceled) && signals.Interrupted() {
		r.Logger.Debug("run interrupted", "tool", state.ToolID)
		return state, nil
	}
	return state, err
}

func (r *Runner) flushNotices(ctx context.Context, handler IOHandler, state *domain.State) error {
	for _, n := range state.DrainNotices() {
		if err := handler.Notice(ctx, n); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	th := NewTextHandler(r.Input, r.Output, WithTextHandlerRenderer(r.Renderer))
	if !r.Headless && r.Output != nil {
		fmt.Fprintln(r.Output, "--- tooldeck ---")
	}
	r.Handler = th
	return th
}

func (r *Runner) resolveInterceptor(h IOHandler) SubmitInterceptor {
	if r.Interceptor != nil {
		return r.Interceptor
	}
	if r.Headless {
		return AutoApproveMiddleware()
	}
	return ConfirmationMiddleware(h)
}

func (r *Runner) visitKey(toolID string) string {
	if r.SessionID == "" {
		return ""
	}
	return session.Key(r.SessionID, toolID)
}

// resolveInitialState resumes a saved visit or mounts a new one.
// A visit saved mid-request is mounted again.
func (r *Runner) resolveInitialState(ctx context.Context, toolID string) (*domain.State, error) {
	key := r.visitKey(toolID)
	if key != "" && r.Visits != nil {
		state, err := r.Visits.Load(ctx, key)
		switch {
		case err == nil && !state.Phase.Loading() && state.Phase != domain.PhaseInit:
			r.Logger.Debug("visit resumed", "key", key, "phase", state.Phase)
			return state, nil
		case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
			return nil, fmt.Errorf("failed to load visit %s: %w", key, err)
		}
	}

	id := key
	if id == "" {
		id = "cli:" + uuid.NewString()
	}
	state, err := r.Engine.Mount(ctx, id, toolID)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", toolID, err)
	}
	if err := r.save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *Runner) save(ctx context.Context, state *domain.State) error {
	key := r.visitKey(state.ToolID)
	if r.Visits == nil || key == "" {
		return nil
	}
	// Notices are shown before the next prompt, so the saved copy never
	// carries them.
	snapshot := state.Snapshot()
	snapshot.Notices = nil
	if err := r.Visits.Save(context.WithoutCancel(ctx), key, snapshot); err != nil {
		return fmt.Errorf("critical persistence error: %w", err)
	}
	r.Logger.Debug("visit saved", "key", key, "phase", state.Phase)
	return nil
}
