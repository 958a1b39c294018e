package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tooldeck/internal/config"
	"github.com/aretw0/tooldeck/internal/logging"
	"github.com/aretw0/tooldeck/pkg/adapters/redis"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct{}

func (fakeBackend) FetchOptions(ctx context.Context, toolID string) (domain.ToolOptions, error) {
	return domain.ToolOptions{
		"packageSize":  {"Small", "Medium"},
		"shippingType": {"Standard", "International"},
	}, nil
}

func (fakeBackend) Compute(ctx context.Context, toolID string, body any) (domain.ResultPayload, error) {
	return domain.ResultPayload{"totalCost": 12.5, "recommendedCarrier": "DHL"}, nil
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...AppOption) *App {
	t.Helper()
	opts = append([]AppOption{WithBackend(fakeBackend{})}, opts...)
	app, err := NewApp(cfg, logging.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNewApp_Memory(t *testing.T) {
	app := newTestApp(t, config.Default())

	assert.NotEmpty(t, app.Engine.Tools())
	assert.NoError(t, app.Ping(context.Background()))
	assert.NoError(t, app.Close())
}

func TestNewApp_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Kind = config.StoreRedis
	cfg.Redis.Addr = mr.Addr()

	app := newTestApp(t, cfg)
	ctx := context.Background()
	require.NoError(t, app.Ping(ctx))

	state, err := app.Visits.Update(ctx, session.Key("b1", "route-optimizer"), func(ctx context.Context, cur *domain.State) (*domain.State, error) {
		return app.Engine.Mount(ctx, "b1:route-optimizer", "route-optimizer")
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseForm, state.Phase)
	assert.True(t, mr.Exists("tooldeck:visit:b1:route-optimizer"))

	mr.Close()
	assert.Error(t, app.Ping(ctx))
}

func TestNewApp_LockOutlivesSlowRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Kind = config.StoreRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.RequestTimeout = time.Minute
	assert.Equal(t, 130*time.Second, LockTTL(cfg.RequestTimeout))

	app := newTestApp(t, cfg)
	ctx := context.Background()
	key := session.Key("b1", "route-optimizer")
	lockKey := "tooldeck:visit:lock:" + key

	err := app.Visits.WithLock(ctx, key, func(ctx context.Context) error {
		assert.Greater(t, mr.TTL(lockKey), 2*cfg.RequestTimeout)

		// A mount and a submit that both run close to the request timeout.
		mr.FastForward(2*cfg.RequestTimeout - time.Second)
		assert.True(t, mr.Exists(lockKey), "lock must still be held")

		other := redis.NewLocker(backend.NewClient(&backend.Options{Addr: mr.Addr()}), cfg.Redis.Prefix)
		tryCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err := other.Lock(tryCtx, key, time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(lockKey))
}

func TestNewApp_EncryptedRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Kind = config.StoreRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Store.EncryptionKey = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	cfg.Store.MaskFields = []string{"^origin$"}

	app := newTestApp(t, cfg)
	ctx := context.Background()
	key := session.Key("b1", "route-optimizer")
	state := domain.NewState(key, "route-optimizer")
	state.FormData["origin"] = "Depot 4"
	state.FormData["priority"] = "distance"
	require.NoError(t, app.Visits.Save(ctx, key, state))

	raw, err := mr.Get("tooldeck:visit:" + key)
	require.NoError(t, err)
	assert.NotContains(t, raw, "distance")
	assert.Contains(t, raw, "__encrypted__")

	loaded, err := app.Visits.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "distance", loaded.FormData["priority"])
	assert.Equal(t, "***", loaded.FormData["origin"])
}

func TestNewApp_CatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - id: pallet-counter
    title: Pallet Counter
    category: Warehouse
    description: Count pallets.
    form:
      fields:
        - {name: pallets, label: Pallets, kind: number, required: true}
    layout:
      - {kind: card, field: total, label: Total}
`), 0o600))

	app := newTestApp(t, config.Default(), WithCatalogFile(path))
	require.Len(t, app.Engine.Tools(), 1)
	assert.Equal(t, "pallet-counter", app.Engine.Tools()[0].ID)

	_, err := NewApp(config.Default(), logging.NewNop(), WithCatalogFile(filepath.Join(dir, "missing.yaml")))
	assert.Error(t, err)
}

func TestServeListener(t *testing.T) {
	app := newTestApp(t, config.Default())
	handler, err := app.HTTPHandler()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, app, ln, handler, &out) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not stop")
	}
	assert.Contains(t, out.String(), ">>> tooldeck")
}

func TestVisitCommands(t *testing.T) {
	app := newTestApp(t, config.Default())
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, ListVisits(ctx, app.Visits, &out, time.Now()))
	assert.Contains(t, out.String(), "No active visits found.")

	for _, tool := range []string{"route-optimizer", "freight-cost-estimator"} {
		key := session.Key("b1", tool)
		_, err := app.Visits.Update(ctx, key, func(ctx context.Context, _ *domain.State) (*domain.State, error) {
			return app.Engine.Mount(ctx, key, tool)
		})
		require.NoError(t, err)
	}

	out.Reset()
	require.NoError(t, ListVisits(ctx, app.Visits, &out, time.Now().Add(time.Hour)))
	assert.Contains(t, out.String(), "VISIT")
	assert.Contains(t, out.String(), "b1:route-optimizer")
	assert.Contains(t, out.String(), "idle-with-form")
	assert.Contains(t, out.String(), "1 hour ago")

	out.Reset()
	require.NoError(t, InspectVisit(ctx, app.Visits, "b1:route-optimizer", &out))
	var state domain.State
	require.NoError(t, json.Unmarshal(out.Bytes(), &state))
	assert.Equal(t, "route-optimizer", state.ToolID)

	assert.ErrorIs(t, InspectVisit(ctx, app.Visits, "nobody:route-optimizer", io.Discard), domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, RemoveVisits(ctx, app.Visits, nil, true, &out))
	assert.Equal(t, 2, strings.Count(out.String(), "Removed visit"))
	keys, err := app.Visits.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestPrintCatalog(t *testing.T) {
	cat := catalog.MustDefault()

	var out bytes.Buffer
	require.NoError(t, PrintCatalog(&out, cat, false))
	assert.Contains(t, out.String(), "bulk-shipment-labeling-optimizer")
	assert.Contains(t, out.String(), "TOOL")

	out.Reset()
	require.NoError(t, PrintCatalog(&out, cat, true))
	var tools []catalog.Tool
	require.NoError(t, json.Unmarshal(out.Bytes(), &tools))
	assert.Len(t, tools, len(cat.List()))

	md := CatalogMarkdown(cat)
	assert.Contains(t, md, "## Fulfillment")
	assert.Contains(t, md, "(`route-optimizer`)")
}

func TestRunTool_Headless(t *testing.T) {
	app := newTestApp(t, config.Default())
	in := strings.NewReader("Medium\nDHL\n10\nStandard\nquit\n")
	var out bytes.Buffer

	err := RunTool(context.Background(), app, RunOptions{
		ToolID:    "bulk-shipment-labeling-optimizer",
		Headless:  true,
		SessionID: "cli-user",
		In:        in,
		Out:       &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "**Total Cost:** $12.50")

	state, err := app.Visits.Load(context.Background(), "cli-user:bulk-shipment-labeling-optimizer")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseResults, state.Phase)

	// Fresh discards the saved results.
	err = RunTool(context.Background(), app, RunOptions{
		ToolID:    "bulk-shipment-labeling-optimizer",
		Headless:  true,
		SessionID: "cli-user",
		Fresh:     true,
		In:        strings.NewReader("quit\n"),
		Out:       io.Discard,
	})
	require.NoError(t, err)
	state, err = app.Visits.Load(context.Background(), "cli-user:bulk-shipment-labeling-optimizer")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseForm, state.Phase)
}

func TestRunTool_UnknownTool(t *testing.T) {
	app := newTestApp(t, config.Default())
	err := RunTool(context.Background(), app, RunOptions{ToolID: "warp-drive", In: strings.NewReader(""), Out: io.Discard})
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
}
