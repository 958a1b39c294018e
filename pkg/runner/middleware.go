package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
)

// SubmitInterceptor can block a submission before it reaches the engine.
// It returns true if the submission should proceed.
type SubmitInterceptor func(ctx context.Context, tool catalog.Tool, values domain.FormData) (bool, error)

// MultiInterceptor chains multiple interceptors. The first refusal wins.
func MultiInterceptor(interceptors ...SubmitInterceptor) SubmitInterceptor {
	return func(ctx context.Context, tool catalog.Tool, values domain.FormData) (bool, error) {
		for _, interceptor := range interceptors {
			allowed, err := interceptor(ctx, tool, values)
			if err != nil {
				return false, err
			}
			if !allowed {
				return false, nil
			}
		}
		return true, nil
	}
}

// ConfirmationMiddleware shows the collected values and asks before sending.
// An empty answer counts as yes.
func ConfirmationMiddleware(handler IOHandler) SubmitInterceptor {
	return func(ctx context.Context, tool catalog.Tool, values domain.FormData) (bool, error) {
		if err := handler.SystemOutput(ctx, fmt.Sprintf("Send to %s?\n%s", tool.Title, summarize(values))); err != nil {
			return false, err
		}

		input, err := handler.Ask(ctx, "Send? [Y/n]")
		if err != nil {
			return false, err
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "", "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() SubmitInterceptor {
	return func(ctx context.Context, tool catalog.Tool, values domain.FormData) (bool, error) {
		return true, nil
	}
}

func summarize(values domain.FormData) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, domain.Stringify(values[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}
