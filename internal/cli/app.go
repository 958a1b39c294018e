package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/tooldeck"
	"github.com/aretw0/tooldeck/internal/config"
	"github.com/aretw0/tooldeck/pkg/adapters/backend"
	httpadapter "github.com/aretw0/tooldeck/pkg/adapters/http"
	mcpadapter "github.com/aretw0/tooldeck/pkg/adapters/mcp"
	"github.com/aretw0/tooldeck/pkg/adapters/memory"
	"github.com/aretw0/tooldeck/pkg/adapters/redis"
	"github.com/aretw0/tooldeck/pkg/catalog"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/aretw0/tooldeck/pkg/observability"
	"github.com/aretw0/tooldeck/pkg/persistence/middleware"
	"github.com/aretw0/tooldeck/pkg/ports"
	"github.com/aretw0/tooldeck/pkg/session"
)

// lockMargin covers store round trips around the backend calls.
const lockMargin = 10 * time.Second

// LockTTL is the distributed lock lease for one visit operation. A browser
// submit to a fresh visit mounts and submits under one lock, so the lease
// covers two backend requests. The locker also refreshes it while held.
func LockTTL(requestTimeout time.Duration) time.Duration {
	return 2*requestTimeout + lockMargin
}

// App wires the engine, the visit store and the observability hooks from
// a Config. Every command builds one and closes it on exit.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *tooldeck.Engine
	Visits  *session.Manager
	Metrics *observability.Metrics
	Streams *httpadapter.StreamManager

	ping    func(context.Context) error
	closers []func() error
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	catalogPath string
	audit       bool
	store       ports.StateStore
	backend     ports.Backend
}

// WithCatalogFile replaces the embedded catalog with a YAML file.
func WithCatalogFile(path string) AppOption {
	return func(o *appOptions) {
		o.catalogPath = path
	}
}

// WithAuditLog logs every phase change and backend request.
func WithAuditLog(enabled bool) AppOption {
	return func(o *appOptions) {
		o.audit = enabled
	}
}

// WithStore bypasses the configured store.
func WithStore(store ports.StateStore) AppOption {
	return func(o *appOptions) {
		o.store = store
	}
}

// WithBackend bypasses the HTTP backend client.
func WithBackend(b ports.Backend) AppOption {
	return func(o *appOptions) {
		o.backend = b
	}
}

// NewApp builds the application graph.
func NewApp(cfg *config.Config, logger *slog.Logger, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Streams: httpadapter.NewStreamManager(logger),
		ping:    func(context.Context) error { return nil },
	}

	store, locker, err := app.openStore(o.store)
	if err != nil {
		return nil, err
	}
	if store, err = app.secureStore(store); err != nil {
		app.Close()
		return nil, err
	}
	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts,
			session.WithLocker(locker),
			session.WithLockTTL(LockTTL(cfg.RequestTimeout)),
		)
	}
	app.Visits = session.NewManager(store, sessionOpts...)

	hooks := []domain.LifecycleHooks{app.Metrics.Hooks(), app.Streams.Hooks()}
	if o.audit {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}

	engineOpts := []tooldeck.Option{
		tooldeck.WithLogger(logger),
		tooldeck.WithLifecycleHooks(domain.ChainHooks(hooks...)),
		tooldeck.WithBackendOptions(backend.WithTimeout(cfg.RequestTimeout)),
	}
	if o.backend != nil {
		engineOpts = append(engineOpts, tooldeck.WithBackend(o.backend))
	}
	if o.catalogPath != "" {
		cat, err := catalog.LoadFile(o.catalogPath)
		if err != nil {
			app.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, tooldeck.WithCatalog(cat))
	}

	app.Engine, err = tooldeck.New(cfg.APIBase, engineOpts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return app, nil
}

func (a *App) openStore(override ports.StateStore) (ports.StateStore, ports.DistributedLocker, error) {
	if override != nil {
		return override, nil, nil
	}

	switch a.Config.Store.Kind {
	case config.StoreRedis:
		rc := a.Config.Redis
		store := redis.New(rc.Addr, rc.Password, rc.DB,
			redis.WithPrefix(rc.Prefix),
			redis.WithTTL(a.Config.Store.SessionTTL),
		)
		a.ping = store.Ping
		a.closers = append(a.closers, store.Close)
		a.Logger.Info("using redis visit store", "addr", rc.Addr, "db", rc.DB)
		return store, redis.NewLocker(store.Client(), rc.Prefix), nil
	default:
		return memory.NewStore(memory.WithTTL(a.Config.Store.SessionTTL)), nil, nil
	}
}

// secureStore applies the masking and encryption layers the config asks for.
// Masking runs first so masked values are what gets encrypted.
func (a *App) secureStore(store ports.StateStore) (ports.StateStore, error) {
	var mws []middleware.Middleware
	if fields := a.Config.Store.MaskFields; len(fields) > 0 {
		mw, err := middleware.NewPIIMiddleware(fields)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	active, previous, err := a.Config.Store.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: previous,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
		a.Logger.Info("visit encryption enabled", "fallback_keys", len(previous))
	}
	return middleware.Chain(store, mws...), nil
}

// Ping checks the visit store.
func (a *App) Ping(ctx context.Context) error {
	return a.ping(ctx)
}

// Close releases the store connection.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// HTTPHandler builds the browser and JSON surface.
func (a *App) HTTPHandler() (http.Handler, error) {
	opts := []httpadapter.Option{
		httpadapter.WithLogger(a.Logger),
		httpadapter.WithStreams(a.Streams),
		httpadapter.WithHealthCheck(a.Ping),
		httpadapter.WithVersion(Version()),
	}
	if a.Config.Server.Metrics {
		opts = append(opts, httpadapter.WithMetrics(a.Metrics.Handler()))
	}
	if secret := a.Config.Server.SessionSecret; secret != "" {
		opts = append(opts, httpadapter.WithCookieSecret([]byte(secret)))
	} else {
		a.Logger.Warn("no session secret configured, browser visits reset on restart")
	}
	return httpadapter.NewHandler(a.Engine, a.Visits, opts...)
}

// MCPServer builds the agent surface.
func (a *App) MCPServer() *mcpadapter.Server {
	return mcpadapter.NewServer(a.Engine, a.Visits, Version(), mcpadapter.WithLogger(a.Logger))
}
