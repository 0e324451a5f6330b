package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mcoot/hardcorelimbo/internal/api"
	"github.com/mcoot/hardcorelimbo/internal/bridge"
	"github.com/mcoot/hardcorelimbo/internal/config"
	"github.com/mcoot/hardcorelimbo/internal/dependencies/clock"
	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/services/admin"
	"github.com/mcoot/hardcorelimbo/internal/services/auth"
	"github.com/mcoot/hardcorelimbo/internal/services/lifecycle"
	"github.com/mcoot/hardcorelimbo/internal/services/release"
	"github.com/mcoot/hardcorelimbo/internal/storage"
	"github.com/mcoot/hardcorelimbo/internal/storage/memory"
	redisstorage "github.com/mcoot/hardcorelimbo/internal/storage/redis"
	"github.com/mcoot/hardcorelimbo/internal/storage/sqlite"
	"github.com/mcoot/hardcorelimbo/internal/timeline"
	"github.com/mcoot/hardcorelimbo/internal/transfer"
	"github.com/mcoot/hardcorelimbo/internal/worker"
)

// App contains all wired application components for one mode
type App struct {
	Config *config.Config

	// Storage
	Storage storage.PlayerStore

	// External dependencies
	Clock  clock.Clock
	Bridge *bridge.Bridge

	// Execution
	Loop    *timeline.Loop
	Workers *worker.Pool

	// Services. Exactly one of Lifecycle and Release is set.
	Lifecycle    *lifecycle.Controller
	Release      *release.Reconciler
	Handler      gameserver.EventHandler
	AdminService *admin.Service
	AuthService  *auth.Service

	// Router serves the admin API and the bridge websocket
	Router http.Handler

	logger    *slog.Logger
	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

// Config holds configuration for the application factory
type Config struct {
	// Service is the loaded service configuration. Required.
	Service *config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired.
// The store is opened here so an unreachable backend fails startup.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.Service == nil {
		return nil, errors.New("service config is required")
	}
	if errs := cfg.Service.Validate(); len(errs) > 0 {
		return nil, errs
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(ctx, cfg.Service.Storage)
	if err != nil {
		return nil, err
	}

	b := bridge.New(logger)
	app, err := newWithDependencies(cfg.Service, store, clock.New(), b, b, b, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.PlayerStore, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.PoolSize = cfg.RedisPoolSize
		return redisstorage.New(redisCfg)
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Type)
	}
}

// newWithDependencies wires an App around the given store and game server.
// b may be nil when the game server is faked.
func newWithDependencies(
	cfg *config.Config,
	store storage.PlayerStore,
	clk clock.Clock,
	server gameserver.Server,
	sink transfer.Sink,
	b *bridge.Bridge,
	logger *slog.Logger,
) (*App, error) {
	logger = logger.With(slog.String("mode", cfg.Mode))

	authService, err := auth.New(cfg.API.TokenHash)
	if err != nil {
		return nil, err
	}

	loop := timeline.New(clk, logger)
	workers := worker.NewPool(cfg.Workers, logger)
	adminService := admin.New(store, workers, cfg.Rules(), clk, logger)

	app := &App{
		Config:       cfg,
		Storage:      store,
		Clock:        clk,
		Bridge:       b,
		Loop:         loop,
		Workers:      workers,
		AdminService: adminService,
		AuthService:  authService,
		logger:       logger,
	}

	if cfg.IsLimbo() {
		app.Release = release.New(store, server, sink, loop, workers, release.Settings{
			MainServer:    cfg.Servers.Main,
			CheckInterval: cfg.Limbo.CheckInterval,
			InitialDelay:  cfg.Limbo.InitialDelay,
			ReleaseDelay:  cfg.Limbo.ReleaseDelay,
		}, logger)
		app.Handler = app.Release
	} else {
		app.Lifecycle = lifecycle.NewController(store, server, sink, loop, workers, clk, lifecycle.Settings{
			Rules:                cfg.Rules(),
			LimboServer:          cfg.Servers.Limbo,
			SendToLimboDelay:     cfg.Main.SendToLimboDelay,
			JoinTransferDelay:    cfg.Main.JoinTransferDelay,
			RespawnModeDelay:     cfg.Main.RespawnModeDelay,
			SpectatorOnDeath:     cfg.Main.SpectatorOnDeath,
			DetectExternalRevive: cfg.Main.DetectExternalRevive,
		}, logger)
		app.Handler = app.Lifecycle
	}

	routerCfg := api.RouterConfig{
		Logger:       logger,
		Mode:         cfg.Mode,
		AuthService:  authService,
		AdminService: adminService,
	}
	if b != nil {
		b.SetHandler(app.Handler)
		routerCfg.Bridge = b
	}
	app.Router = api.NewRouter(routerCfg)

	return app, nil
}

// Start runs the timeline and workers and, in limbo mode, the release polling
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)
	go a.Loop.Run(ctx)
	a.Workers.Start(ctx)
	if a.Release != nil {
		a.Release.Start()
	}
	a.logger.Info("application started")
}

// Close stops polling, drains queued work and closes the store. It is idempotent.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		started := a.started
		a.mu.Unlock()

		if started {
			if a.Release != nil {
				a.Release.Stop()
			}
			a.Loop.Stop()
			<-a.Loop.Done()
			a.Workers.Close()
			a.cancel()
		}

		if err := a.Storage.Close(); err != nil {
			a.closeErr = fmt.Errorf("close storage: %w", err)
		}
		a.logger.Info("application stopped")
	})
	return a.closeErr
}
