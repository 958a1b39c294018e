package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/tooldeck/internal/logging"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/runner"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/aretw0/tooldeck/pkg/session"
	"github.com/aretw0/tooldeck/pkg/view"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogURI is the resource listing every tool definition.
const CatalogURI = "tooldeck://catalog"

// defaultClient keys visits when the transport carries no session (stdio).
const defaultClient = "mcp"

// Engine is the page engine exposed over MCP.
type Engine interface {
	Mount(ctx context.Context, sessionID, toolID string) (*domain.State, error)
	Submit(ctx context.Context, state *domain.State, values domain.FormData) (*domain.State, error)
	Reset(ctx context.Context, state *domain.State) (*domain.State, error)
	Catalog() *catalog.Catalog
}

// ToolResult is the structured outcome of running a tool.
type ToolResult struct {
	Tool     string               `json:"tool" jsonschema_description:"Tool id"`
	Phase    domain.Phase         `json:"phase" jsonschema_description:"Visit phase after the call"`
	Results  domain.ResultPayload `json:"results,omitempty" jsonschema_description:"Raw result payload"`
	Missing  []string             `json:"missing,omitempty" jsonschema_description:"Layout fields the payload did not include"`
	Notices  []domain.Notice      `json:"notices,omitempty" jsonschema_description:"Failures reported during the call"`
	Markdown string               `json:"markdown,omitempty" jsonschema_description:"Rendered results"`
}

// Server exposes every catalog tool as an MCP tool.
type Server struct {
	engine    Engine
	visits    *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, visits *session.Manager, version string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		visits:    visits,
		mcpServer: server.NewMCPServer("tooldeck-mcp", strings.TrimSpace(version), server.WithToolCapabilities(false)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sseServer.Shutdown(shutdownCtx)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the available logistics tools with their ids and categories."),
	), s.handleListTools)

	s.mcpServer.AddTool(mcp.NewTool("get_tool_options",
		mcp.WithDescription("Fetch the choices a tool's select and radio fields accept."),
		mcp.WithString("tool_id", mcp.Required(), mcp.Description("Tool id from list_tools")),
		mcp.WithBoolean("refresh", mcp.Description("Fetch again even if options were already loaded")),
	), s.handleOptions)

	for _, tool := range s.engine.Catalog().List() {
		s.mcpServer.AddTool(mcp.NewTool(tool.ID,
			mcp.WithDescription(describe(tool)),
			mcp.WithString("input", mcp.Required(), mcp.Description("JSON object of form values, keyed by field name")),
			mcp.WithOutputSchema[ToolResult](),
		), s.runHandler(tool))
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Tool Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.engine.Catalog().List())
		if err != nil {
			return nil, fmt.Errorf("failed to encode catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CatalogURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func (s *Server) handleListTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	for _, c := range s.engine.Catalog().Categories() {
		fmt.Fprintf(&b, "## %s\n\n", c.Name)
		for _, t := range c.Tools {
			fmt.Fprintf(&b, "- `%s`: %s. %s\n", t.ID, t.Title, t.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(strings.TrimSpace(b.String())), nil
}

func (s *Server) handleOptions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	toolID, err := request.RequireString("tool_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tool, err := s.engine.Catalog().Get(toolID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refresh := request.GetBool("refresh", false)

	var (
		options domain.ToolOptions
		notices []domain.Notice
	)
	_, err = s.visits.Update(ctx, s.visitKey(ctx, tool.ID), func(ctx context.Context, cur *domain.State) (*domain.State, error) {
		if cur == nil || refresh {
			mounted, err := s.engine.Mount(ctx, s.visitKey(ctx, tool.ID), tool.ID)
			if err != nil {
				return nil, err
			}
			cur = mounted
		}
		options = cur.Options
		notices = cur.DrainNotices()
		return cur, nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notices) > 0 {
		return mcp.NewToolResultError(noticeText(notices)), nil
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, strings.Join(options[k], ", "))
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("This tool has no backend options."), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// runHandler submits the input to one tool. A visit showing results is
// reset first so every call is a fresh calculation; options are fetched
// once per visit.
func (s *Server) runHandler(tool catalog.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := request.RequireString("input")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		values, err := parseInput(input)
		if err != nil {
			s.logger.Warn("MCP input rejected", "tool", tool.ID, "err", err, "size", len(input))
			return mcp.NewToolResultError(err.Error()), nil
		}

		key := s.visitKey(ctx, tool.ID)
		var out ToolResult
		_, err = s.visits.Update(ctx, key, func(ctx context.Context, cur *domain.State) (*domain.State, error) {
			if cur == nil {
				mounted, err := s.engine.Mount(ctx, key, tool.ID)
				if err != nil {
					return nil, err
				}
				cur = mounted
			}
			if cur.Phase == domain.PhaseResults {
				reset, err := s.engine.Reset(ctx, cur)
				if err != nil {
					return cur, err
				}
				cur = reset
			}
			next, err := s.engine.Submit(ctx, cur, values)
			if next != nil {
				out = toolResult(tool, next)
			}
			return next, err
		})

		var invalid *schema.AggregateError
		switch {
		case errors.As(err, &invalid):
			return mcp.NewToolResultError(validationText(err)), nil
		case err != nil:
			s.logger.Error("MCP tool call failed", "tool", tool.ID, "err", err)
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool.ID, err)), nil
		case out.Phase != domain.PhaseResults:
			return mcp.NewToolResultError(noticeText(out.Notices)), nil
		}
		return mcp.NewToolResultStructured(out, out.Markdown), nil
	}
}

// visitKey scopes visits to the MCP client session when the transport has one.
func (s *Server) visitKey(ctx context.Context, toolID string) string {
	client := defaultClient
	if cs := server.ClientSessionFromContext(ctx); cs != nil && cs.SessionID() != "" {
		client = defaultClient + "-" + cs.SessionID()
	}
	return session.Key(client, toolID)
}

func parseInput(input string) (domain.FormData, error) {
	clean, err := runner.SanitizeInput(input)
	if err != nil {
		return nil, fmt.Errorf("input rejected: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(clean), &values); err != nil {
		return nil, fmt.Errorf("input must be a JSON object of form values: %w", err)
	}
	sanitized, err := runner.SanitizeFormData(values)
	if err != nil {
		return nil, fmt.Errorf("input rejected: %w", err)
	}
	return domain.FormData(sanitized), nil
}

func toolResult(tool catalog.Tool, state *domain.State) ToolResult {
	out := ToolResult{
		Tool:    tool.ID,
		Phase:   state.Phase,
		Notices: state.DrainNotices(),
	}
	if state.Phase == domain.PhaseResults {
		built := view.Build(tool, state.Results)
		out.Results = state.Results
		out.Missing = built.Missing
		out.Markdown = view.Markdown(built)
	}
	return out
}

// describe lists a tool's fields so an agent can build the input object.
func describe(tool catalog.Tool) string {
	var b strings.Builder
	b.WriteString(tool.Title)
	if tool.Description != "" {
		b.WriteString(". " + tool.Description)
	}
	b.WriteString("\n\nInput fields:\n")
	writeFields(&b, tool.Form.Fields, "")
	b.WriteString("\nChoice fields without listed values take values from get_tool_options.")
	return b.String()
}

func writeFields(b *strings.Builder, fields []schema.Field, indent string) {
	for _, f := range fields {
		fmt.Fprintf(b, "%s- %s (%s", indent, f.Name, f.Kind)
		if f.Required {
			b.WriteString(", required")
		}
		if f.Kind != schema.KindGroup && f.Key() != f.Name {
			fmt.Fprintf(b, ", options key %s", f.Key())
		}
		b.WriteString(")")
		if len(f.Choices) > 0 {
			fmt.Fprintf(b, ": one of %s", strings.Join(f.Choices, ", "))
		}
		b.WriteString("\n")
		if f.Kind == schema.KindGroup {
			fmt.Fprintf(b, "%s  list of objects with:\n", indent)
			writeFields(b, f.Fields, indent+"    ")
		}
	}
}

func validationText(err error) string {
	errs := schema.FieldErrors(err)
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("Invalid input:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, errs[k])
	}
	return strings.TrimSpace(b.String())
}

func noticeText(notices []domain.Notice) string {
	if len(notices) == 0 {
		return domain.DefaultFailureTitle
	}
	parts := make([]string, 0, len(notices))
	for _, n := range notices {
		if n.Description != "" {
			parts = append(parts, n.Title+": "+n.Description)
			continue
		}
		parts = append(parts, n.Title)
	}
	return strings.Join(parts, "\n")
}
