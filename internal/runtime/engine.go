package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tooldeck/internal/logging"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/ports"
	"github.com/aretw0/tooldeck/pkg/registry"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/aretw0/tooldeck/pkg/view"
)

const (
	defaultOptionsError = "Could not load the form options. You can still fill in the form."
	defaultResultsError = "Could not compute the results. Please try again."
)

// Engine is the generic page controller shared by every tool.
// It is stateless: callers own the State and persist what it returns.
type Engine struct {
	catalog    *catalog.Catalog
	backend    ports.Backend
	transforms *registry.Registry
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTransforms replaces the default transform registry.
func WithTransforms(r *registry.Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.transforms = r
		}
	}
}

// NewEngine creates an engine over a catalog and a backend.
func NewEngine(cat *catalog.Catalog, backend ports.Backend, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:    cat,
		backend:    backend,
		transforms: registry.Default(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the tool catalog the engine serves.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Mount starts a visit: it issues exactly one options request and always
// ends in the form phase. A failed request leaves Options empty, flags
// OptionsFailed and flashes one destructive notice; it is not an error.
func (e *Engine) Mount(ctx context.Context, sessionID, toolID string) (*domain.State, error) {
	tool, err := e.catalog.Get(toolID)
	if err != nil {
		return nil, err
	}

	state := domain.NewState(sessionID, toolID)
	state.FormData = schema.Defaults(tool.Form)

	if err := e.transition(ctx, state, domain.PhaseFetchingOptions); err != nil {
		return nil, err
	}

	err = e.request(ctx, state, domain.OpFetchOptions, func(ctx context.Context) error {
		opts, err := e.backend.FetchOptions(ctx, toolID)
		if err == nil && opts != nil {
			state.Options = opts
		}
		return err
	})
	if err != nil {
		state.Options = domain.ToolOptions{}
		state.OptionsFailed = true
		state.Notify(domain.FailureNotice("", messageOr(tool.OptionsError, defaultOptionsError)))
	}

	if err := e.transition(ctx, state, domain.PhaseForm); err != nil {
		return nil, err
	}
	return state, nil
}

// Submit validates values and requests the results.
//
// Outside the form phase it returns domain.ErrInvalidTransition and the state
// unchanged, which turns double submits into no-ops. Invalid input returns
// a *schema.AggregateError with the values kept as the form draft; nothing is
// sent. A failed request flashes a notice and returns to the form without an
// error.
func (e *Engine) Submit(ctx context.Context, state *domain.State, values domain.FormData) (*domain.State, error) {
	tool, err := e.catalog.Get(state.ToolID)
	if err != nil {
		return state, err
	}
	if state.Phase != domain.PhaseForm {
		return state, fmt.Errorf("%w: cannot submit while %s", domain.ErrInvalidTransition, state.Phase)
	}

	next := state.Snapshot()
	values = schema.Normalize(tool.Form, values)
	next.FormData = values

	if err := schema.Validate(tool.Form, values, next.Options); err != nil {
		return next, err
	}

	if err := e.transition(ctx, next, domain.PhaseFetchingResults); err != nil {
		return state, err
	}

	body, err := e.requestBody(ctx, tool, values)
	if err != nil {
		if terr := e.transition(ctx, next, domain.PhaseForm); terr != nil {
			return state, terr
		}
		if schema.ValidationErrors(err) != nil {
			return next, err
		}
		e.logger.Error("transform failed", "tool", tool.ID, "transform", tool.Transform, "err", err)
		next.Notify(domain.FailureNotice("", messageOr(tool.ResultsError, defaultResultsError)))
		return next, fmt.Errorf("transform %s: %w", tool.Transform, err)
	}

	var results domain.ResultPayload
	err = e.request(ctx, next, domain.OpFetchResults, func(ctx context.Context) error {
		var err error
		results, err = e.backend.Compute(ctx, tool.ID, body)
		return err
	})
	if err != nil {
		next.Notify(domain.FailureNotice("", messageOr(tool.ResultsError, defaultResultsError)))
		if terr := e.transition(ctx, next, domain.PhaseForm); terr != nil {
			return state, terr
		}
		return next, nil
	}

	next.Results = results
	if missing := view.Build(tool, results).Missing; len(missing) > 0 {
		e.logger.Warn("result payload lacks layout fields", "tool", tool.ID, "fields", missing)
	}
	if err := e.transition(ctx, next, domain.PhaseResults); err != nil {
		return state, err
	}
	return next, nil
}

// Reset discards the results and shows the form again with the last
// submitted values. Options are not fetched again.
func (e *Engine) Reset(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state.Phase == domain.PhaseForm {
		return state, nil
	}
	next := state.Snapshot()
	next.Results = nil
	if err := e.transition(ctx, next, domain.PhaseForm); err != nil {
		return state, err
	}
	return next, nil
}

// Edit applies a repeatable group action ("add:<group>", "remove:<group>:<i>")
// to the form draft. Nothing is validated or sent. Returns false if the
// action is not recognized.
func (e *Engine) Edit(ctx context.Context, state *domain.State, values domain.FormData, action string) (*domain.State, bool, error) {
	tool, err := e.catalog.Get(state.ToolID)
	if err != nil {
		return state, false, err
	}
	if state.Phase != domain.PhaseForm {
		return state, false, fmt.Errorf("%w: cannot edit while %s", domain.ErrInvalidTransition, state.Phase)
	}

	edited, ok := schema.ApplyAction(tool.Form, schema.Normalize(tool.Form, values), action)
	if !ok {
		return state, false, nil
	}
	next := state.Snapshot()
	next.FormData = edited
	return next, true, nil
}

func (e *Engine) requestBody(ctx context.Context, tool catalog.Tool, values domain.FormData) (any, error) {
	if tool.Transform == "" {
		return map[string]any(values), nil
	}
	return e.transforms.Execute(ctx, tool.Transform, values)
}

// statusCoder is implemented by backend errors carrying an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// request runs one backend call between OnRequest and OnResponse hooks and
// logs its failure with the status, if any.
func (e *Engine) request(ctx context.Context, state *domain.State, op domain.RequestOp, call func(context.Context) error) error {
	ev := &domain.RequestEvent{
		EventBase: e.base(state, domain.EventRequest),
		Op:        op,
	}
	if e.hooks.OnRequest != nil {
		e.hooks.OnRequest(ctx, ev)
	}

	err := call(ctx)

	status := 0
	var sc statusCoder
	if errors.As(err, &sc) {
		status = sc.HTTPStatus()
	}

	resp := &domain.RequestEvent{
		EventBase: e.base(state, domain.EventResponse),
		Op:        op,
		Duration:  timeSince(ev.Timestamp),
		IsError:   err != nil,
		Status:    status,
	}
	if e.hooks.OnResponse != nil {
		e.hooks.OnResponse(ctx, resp)
	}

	if err != nil {
		e.logger.Warn("backend request failed",
			"tool", state.ToolID,
			"op", op,
			"status", status,
			"duration", resp.Duration,
			"err", err,
		)
	} else {
		e.logger.Debug("backend request succeeded", "tool", state.ToolID, "op", op, "duration", resp.Duration)
	}
	return err
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
