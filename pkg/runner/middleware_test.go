package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestMultiInterceptor(t *testing.T) {
	deny := func(context.Context, catalog.Tool, domain.FormData) (bool, error) { return false, nil }
	boom := errors.New("boom")
	fail := func(context.Context, catalog.Tool, domain.FormData) (bool, error) { return false, boom }

	tests := []struct {
		name    string
		chain   SubmitInterceptor
		allowed bool
		err     error
	}{
		{"empty chain allows", MultiInterceptor(), true, nil},
		{"all approve", MultiInterceptor(AutoApproveMiddleware(), AutoApproveMiddleware()), true, nil},
		{"one denial blocks", MultiInterceptor(AutoApproveMiddleware(), deny), false, nil},
		{"error stops the chain", MultiInterceptor(fail, AutoApproveMiddleware()), false, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := tt.chain(context.Background(), catalog.Tool{}, domain.FormData{})
			assert.Equal(t, tt.allowed, allowed)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSummarize(t *testing.T) {
	got := summarize(domain.FormData{"b": 2.0, "a": "x", "tags": []any{"eu", "us"}})
	assert.Equal(t, "  a: x\n  b: 2\n  tags: [\"eu\",\"us\"]", got)
}
