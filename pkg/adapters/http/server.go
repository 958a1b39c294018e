package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/tooldeck/internal/logging"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/runner"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/aretw0/tooldeck/pkg/session"
	"github.com/aretw0/tooldeck/pkg/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// Engine is the page engine the server drives.
type Engine interface {
	Mount(ctx context.Context, sessionID, toolID string) (*domain.State, error)
	Submit(ctx context.Context, state *domain.State, values domain.FormData) (*domain.State, error)
	Reset(ctx context.Context, state *domain.State) (*domain.State, error)
	Edit(ctx context.Context, state *domain.State, values domain.FormData, action string) (*domain.State, bool, error)
	Catalog() *catalog.Catalog
}

// Server serves the tool pages and the JSON API.
type Server struct {
	Engine  Engine
	Visits  *session.Manager
	Streams *StreamManager

	pages   *view.Pages
	cookies sessions.Store
	logger  *slog.Logger
	metrics http.Handler
	health  func(context.Context) error
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCookieStore sets the store holding the browser identity cookie.
func WithCookieStore(store sessions.Store) Option {
	return func(s *Server) {
		s.cookies = store
	}
}

// WithCookieSecret builds a signed cookie store from secret.
func WithCookieSecret(secret []byte) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.cookies = newCookieStore(secret)
		}
	}
}

// WithStreams sets the manager used for the live phase stream.
// The same manager's Hooks must be installed on the engine.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics mounts a metrics handler on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithHealthCheck makes /health report the result of check.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) {
		s.health = check
	}
}

// WithVersion sets the version reported by /info and the index page.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = strings.TrimSpace(version)
	}
}

// NewServer assembles a Server. Visits hold one state per browser and tool.
func NewServer(engine Engine, visits *session.Manager, opts ...Option) (*Server, error) {
	pages, err := view.NewPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		Engine:  engine,
		Visits:  visits,
		pages:   pages,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	if s.cookies == nil {
		s.cookies = newCookieStore(securecookie.GenerateRandomKey(32))
	}
	return s, nil
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, visits *session.Manager, opts ...Option) (http.Handler, error) {
	s, err := NewServer(engine, visits, opts...)
	if err != nil {
		return nil, err
	}
	return s.Routes(), nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(enableCORS)

	r.Get("/", s.index)
	r.Route("/tools/{tool}", func(r chi.Router) {
		r.Get("/", s.showTool)
		r.Post("/", s.postTool)
		r.Post("/reset", s.resetTool)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/tools", s.listTools)
		r.Route("/tools/{tool}", func(r chi.Router) {
			r.Get("/", s.getTool)
			r.Get("/state", s.getState)
			r.Post("/submit", s.submitState)
			r.Post("/reset", s.resetState)
			r.Get("/events", s.subscribeEvents)
		})
	})

	r.Get("/openapi.json", s.openAPI)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML)
	})
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+VisitHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Tooldeck API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.json',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// getHealth handles GET /health.
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getInfo handles GET /info.
func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "tooldeck-http",
		"version": s.version,
		"tools":   len(s.Engine.Catalog().List()),
	})
}

// lookupTool resolves the {tool} URL parameter.
func (s *Server) lookupTool(r *http.Request) (catalog.Tool, error) {
	return s.Engine.Catalog().Get(chi.URLParam(r, "tool"))
}

// sanitize strips control characters from a submitted draft and rejects oversize values.
func sanitize(data domain.FormData) (domain.FormData, error) {
	clean, err := runner.SanitizeFormData(data)
	if err != nil {
		return nil, err
	}
	return domain.FormData(clean), nil
}

var errBadRequest = errors.New("bad request")

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case schema.ValidationErrors(err) != nil:
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest), errors.Is(err, runner.ErrInputTooLarge), errors.Is(err, runner.ErrInvalidUTF8):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// errorBody is the JSON error envelope. Fields carries validation reasons by path.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Fields: schema.FieldErrors(err)}
	if body.Fields != nil {
		body.Error = "validation failed"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		body.Error = http.StatusText(status)
	}
	writeJSON(w, status, body)
}

func newCookieStore(secret []byte) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// render executes a template into a buffer so a template failure still
// yields a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, exec func(io.Writer) error) {
	var buf bytes.Buffer
	if err := exec(&buf); err != nil {
		s.logger.Error("render failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	page := view.ErrorPage{Title: http.StatusText(status), Message: "Something went wrong. Please try again."}
	switch status {
	case http.StatusNotFound:
		page.Message = fmt.Sprintf("No tool named %q.", chi.URLParam(r, "tool"))
	case http.StatusBadRequest:
		page.Message = err.Error()
	default:
		s.logger.Error("page failed", "path", r.URL.Path, "err", err)
	}
	s.render(w, status, func(w io.Writer) error { return s.pages.Error(w, page) })
}
