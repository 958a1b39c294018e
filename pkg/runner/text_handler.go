package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/schema"
	"github.com/aretw0/tooldeck/pkg/view"
)

// TextHandler prompts for one field at a time.
//
// Empty answers keep the value shown in brackets, "-" clears it, and choice
// fields accept either the value or its number in the list. "quit" or
// "exit" at any prompt ends the run.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so a prompt can be abandoned when
// its context is cancelled.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func (h *TextHandler) readLine(ctx context.Context, prompt string) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprintf(h.Writer, "%s > ", prompt)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			if clean == "quit" || clean == "exit" {
				return "", io.EOF
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) write(markdown string) {
	output := markdown
	if h.Renderer != nil {
		if rendered, err := h.Renderer(markdown); err == nil {
			output = rendered
		}
	}
	fmt.Fprintln(h.Writer, strings.TrimSpace(output))
}

// Ask prints the prompt on its own line and reads the answer.
func (h *TextHandler) Ask(ctx context.Context, prompt string) (string, error) {
	fmt.Fprintln(h.Writer, prompt)
	return h.readLine(ctx, "")
}

func (h *TextHandler) Form(ctx context.Context, tool catalog.Tool, state *domain.State, errs map[string]string) (domain.FormData, error) {
	h.write(fmt.Sprintf("# %s\n\n%s", tool.Title, tool.Description))

	data := domain.FormData{}
	for _, field := range tool.Form.Fields {
		v, ok, err := h.promptField(ctx, field, field.Name, state.FormData[field.Name], state.Options, errs)
		if err != nil {
			return nil, err
		}
		if ok {
			data[field.Name] = v
		}
	}
	return data, nil
}

func (h *TextHandler) promptField(ctx context.Context, field schema.Field, path string, current any, opts domain.ToolOptions, errs map[string]string) (any, bool, error) {
	if current == nil {
		current = field.Default
	}
	label := field.DisplayLabel()
	if field.Required {
		label += " *"
	}
	if reason := errs[path]; reason != "" {
		fmt.Fprintf(h.Writer, "  ! %s %s\n", field.DisplayLabel(), reason)
	}
	if field.Help != "" {
		fmt.Fprintf(h.Writer, "  %s\n", field.Help)
	}

	switch field.Kind {
	case schema.KindGroup:
		return h.promptGroup(ctx, field, label, path, current, opts, errs)

	case schema.KindCheckbox:
		def := "n"
		if b, _ := current.(bool); b {
			def = "y"
		}
		ans, err := h.readLine(ctx, fmt.Sprintf("%s (y/n) [%s]", label, def))
		if err != nil {
			return nil, false, err
		}
		if ans == "" {
			ans = def
		}
		ans = strings.ToLower(ans)
		return ans == "y" || ans == "yes" || ans == "true", true, nil
	}

	var choices []string
	if field.IsChoice() {
		choices = field.Allowed(opts)
		for i, c := range choices {
			fmt.Fprintf(h.Writer, "  %d) %s\n", i+1, c)
		}
	}

	ans, err := h.readLine(ctx, fmt.Sprintf("%s [%s]", label, display(current)))
	if err != nil {
		return nil, false, err
	}
	switch ans {
	case "":
		return current, current != nil, nil
	case "-":
		return nil, false, nil
	}

	if field.Kind == schema.KindMultiSelect {
		var items []any
		for _, part := range strings.Split(ans, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, pick(part, choices))
			}
		}
		return items, true, nil
	}
	return pick(ans, choices), true, nil
}

func (h *TextHandler) promptGroup(ctx context.Context, field schema.Field, label, path string, current any, opts domain.ToolOptions, errs map[string]string) (any, bool, error) {
	entries, _ := current.([]any)
	n := max(len(entries), field.MinEntries())

	ans, err := h.readLine(ctx, fmt.Sprintf("%s: how many entries? [%d]", label, n))
	if err != nil {
		return nil, false, err
	}
	if ans != "" {
		if parsed, err := strconv.Atoi(ans); err == nil && parsed >= 0 {
			n = parsed
		}
	}

	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		var prev map[string]any
		if i < len(entries) {
			prev, _ = entries[i].(map[string]any)
		}
		fmt.Fprintf(h.Writer, "%s #%d\n", field.DisplayLabel(), i+1)

		entry := map[string]any{}
		for _, sub := range field.Fields {
			v, ok, err := h.promptField(ctx, sub, fmt.Sprintf("%s[%d].%s", path, i, sub.Name), prev[sub.Name], opts, errs)
			if err != nil {
				return nil, false, err
			}
			if ok {
				entry[sub.Name] = v
			}
		}
		out = append(out, entry)
	}
	return out, true, nil
}

func (h *TextHandler) Results(ctx context.Context, out view.Output) error {
	h.write(view.Markdown(out))
	return nil
}

func (h *TextHandler) Notice(ctx context.Context, n domain.Notice) error {
	if n.Description == "" {
		fmt.Fprintf(h.Writer, "\n[%s]\n", n.Title)
		return nil
	}
	fmt.Fprintf(h.Writer, "\n[%s] %s\n", n.Title, n.Description)
	return nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "\n[System] %s\n", msg)
	return nil
}

// pick resolves a 1-based list number to its choice.
func pick(ans string, choices []string) string {
	if n, err := strconv.Atoi(ans); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1]
	}
	return ans
}

func display(v any) string {
	if items, ok := v.([]any); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = domain.Stringify(item)
		}
		return strings.Join(parts, ", ")
	}
	return domain.Stringify(v)
}
