package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/view"
)

// Message is one JSON line written by JSONHandler.
type Message struct {
	Type    string             `json:"type"`
	Tool    string             `json:"tool,omitempty"`
	Options domain.ToolOptions `json:"options,omitempty"`
	Draft   domain.FormData    `json:"draft,omitempty"`
	Errors  map[string]string  `json:"errors,omitempty"`
	Output  *view.Output       `json:"output,omitempty"`
	Notice  *domain.Notice     `json:"notice,omitempty"`
	Text    string             `json:"text,omitempty"`
}

// Message types.
const (
	MessageForm    = "form"
	MessageResults = "results"
	MessageNotice  = "notice"
	MessagePrompt  = "prompt"
	MessageSystem  = "system"
)

// JSONHandler implements IOHandler over JSON lines. Every request for input
// is announced by a message; the answer to a form is one JSON object line.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	text = strings.TrimSpace(text)
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return text, nil
}

func (h *JSONHandler) Form(ctx context.Context, tool catalog.Tool, state *domain.State, errs map[string]string) (domain.FormData, error) {
	if err := h.Encoder.Encode(Message{
		Type:    MessageForm,
		Tool:    tool.ID,
		Options: state.Options,
		Draft:   state.FormData,
		Errors:  errs,
	}); err != nil {
		return nil, err
	}

	text, err := h.readLine(ctx)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("form values must be a JSON object: %w", err)
	}
	clean, err := SanitizeFormData(data)
	if err != nil {
		return nil, err
	}
	return domain.FormData(clean), nil
}

func (h *JSONHandler) Results(ctx context.Context, out view.Output) error {
	return h.Encoder.Encode(Message{Type: MessageResults, Tool: out.ToolID, Output: &out})
}

func (h *JSONHandler) Notice(ctx context.Context, n domain.Notice) error {
	return h.Encoder.Encode(Message{Type: MessageNotice, Notice: &n})
}

// Ask accepts either a JSON string or raw text.
func (h *JSONHandler) Ask(ctx context.Context, prompt string) (string, error) {
	if err := h.Encoder.Encode(Message{Type: MessagePrompt, Text: prompt}); err != nil {
		return "", err
	}
	text, err := h.readLine(ctx)
	if err != nil {
		return "", err
	}
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	}
	if text == "quit" || text == "exit" {
		return "", io.EOF
	}
	return SanitizeInput(text)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Message{Type: MessageSystem, Text: msg})
}
