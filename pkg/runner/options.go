package runner

import (
	"io"
	"log/slog"

	"github.com/aretw0/tooldeck/pkg/session"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithVisits persists the visit after every step so a later run resumes it.
func WithVisits(visits *session.Manager) Option {
	return func(r *Runner) {
		r.Visits = visits
	}
}

// WithSessionID names the visit owner. Combined with the tool id it forms
// the visit key. Without it every run starts a fresh, unsaved visit.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithIO sets the streams used by the default text handler.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Runner) {
		r.Input = in
		r.Output = out
	}
}

// WithHeadless skips the submit confirmation and the banner line.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

// WithRenderer configures the markdown renderer of the default text handler.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithInterceptor configures the submit policy.
func WithInterceptor(interceptor SubmitInterceptor) Option {
	return func(r *Runner) {
		r.Interceptor = interceptor
	}
}
