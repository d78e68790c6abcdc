// Package control wires the registry client, its role store and the health
// surface into one application lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/cemetery/internal/cache"
	"github.com/vietddude/cemetery/internal/core/authz"
	"github.com/vietddude/cemetery/internal/core/config"
	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/core/worker"
	"github.com/vietddude/cemetery/internal/indexing/health"
	redisclient "github.com/vietddude/cemetery/internal/infra/redis"
	"github.com/vietddude/cemetery/internal/infra/rpc"
	"github.com/vietddude/cemetery/internal/infra/rpc/provider"
	"github.com/vietddude/cemetery/internal/infra/rpc/routing"
	"github.com/vietddude/cemetery/internal/infra/storage/memory"
	"github.com/vietddude/cemetery/internal/registry"
)

// LocalBoss owns the in-memory registry.
const LocalBoss domain.Principal = "local-boss"

// App is the main application struct that manages the client lifecycle.
type App struct {
	cfg          Config
	client       *registry.Client
	service      registry.Service
	rpcClient    *rpc.Client
	grpcHealth   *provider.GRPCHealthProvider
	redisClient  *redisclient.Client
	healthMon    *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner
	log          *slog.Logger
}

// Config holds the application configuration.
type Config struct {
	Port    int
	Service config.ServiceConfig
	Retry   config.RetryConfig
	Cache   config.CacheConfig
	Auth    config.AuthConfig
	Redis   redisclient.Config
	// Memory runs against an in-process registry instead of the endpoint.
	Memory bool
}

// FromAppConfig maps the file configuration to the application configuration.
func FromAppConfig(cfg *config.AppConfig) Config {
	return Config{
		Port:    cfg.Server.Port,
		Service: cfg.Service,
		Retry:   cfg.Retry,
		Cache:   cfg.Cache,
		Auth:    cfg.Auth,
		Redis:   cfg.Redis,
	}
}

// NewApp creates a new App instance with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	app := &App{cfg: cfg, log: slog.Default()}

	// 1. Registry transport
	if cfg.Memory {
		app.service = memory.NewRegistry("Local Cemetery", LocalBoss)
		slog.Info("Using in-memory registry", "boss", LocalBoss)
	} else {
		if cfg.Service.Endpoint == "" {
			return nil, fmt.Errorf("service endpoint is required")
		}
		app.rpcClient = rpc.NewClient(rpc.NewHTTPProvider(cfg.Service.Name, cfg.Service.Endpoint, cfg.Service.Timeout))
		app.service = registry.NewRemote(app.rpcClient)
		slog.Info("Using remote registry", "endpoint", cfg.Service.Endpoint)
	}

	// 2. Role store
	var roleStore authz.RoleStore
	if cfg.Auth.RoleStore == "redis" && cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using in-memory role store", "error", err)
		} else {
			app.redisClient = rc
			roleStore = redisclient.NewRoleStore(rc)
		}
	}

	// 3. Client
	ttls := make(map[cache.Category]time.Duration, len(cfg.Cache.TTL))
	for name, d := range cfg.Cache.TTL {
		ttls[cache.Category(name)] = d
	}
	client, err := registry.NewClient(app.service, registry.Options{
		Retry: routing.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
		Cache:     cache.Config{Capacity: cfg.Cache.Capacity, TTLs: ttls},
		RoleStore: roleStore,
		RoleTTL:   cfg.Auth.RoleTTL,
		PageSize:  cfg.Service.PageSize,
	})
	if err != nil {
		app.closeTransports()
		return nil, fmt.Errorf("failed to init registry client: %w", err)
	}
	app.client = client
	client.Scheduler().SetNotifier(func(n routing.Notice) {
		slog.Info(routing.ConnectivityNotice, "operation", n.Operation, "attempt", n.Attempt, "delay", n.Delay)
	})

	// 4. Health
	checker := health.CheckFunc(cfg.Service.Name, app.service.HealthCheck)
	if app.rpcClient != nil {
		checker = health.TrackedCheck(cfg.Service.Name, app.service.HealthCheck, app.transportHealth)
	}
	if cfg.Service.Health.Transport == "grpc" && !cfg.Memory {
		gp, err := provider.NewGRPCHealthProvider(cfg.Service.Name, cfg.Service.Health.Endpoint, cfg.Service.Health.Service)
		if err != nil {
			app.closeTransports()
			return nil, err
		}
		app.grpcHealth = gp
		checker = gp
	}
	app.healthMon = health.NewMonitor(client.Scheduler(), checker)
	app.healthMon.SetChangeCallback(func(s health.ConnectionState) {
		slog.Debug("Connection state", "state", s)
	})
	app.healthServer = health.NewServer(app.healthMon, cfg.Port)
	app.pruner = worker.NewPruner(client.Cache(), 0)

	return app, nil
}

// transportHealth reports the call record of the registry transport.
func (a *App) transportHealth() provider.HealthStatus {
	if p := a.rpcClient.Provider(); p != nil {
		return p.GetHealth()
	}
	return provider.HealthStatus{}
}

// Client returns the registry client.
func (a *App) Client() *registry.Client { return a.client }

// Service returns the underlying registry service.
func (a *App) Service() registry.Service { return a.service }

// Monitor returns the health monitor.
func (a *App) Monitor() *health.Monitor { return a.healthMon }

// SignIn binds the configured principal, if any.
func (a *App) SignIn(ctx context.Context, principal domain.Principal) (domain.Role, error) {
	if principal == "" {
		principal = domain.Principal(a.cfg.Auth.Principal)
	}
	if principal == "" && a.cfg.Memory {
		principal = LocalBoss
	}
	if principal == "" {
		return domain.RoleNone, nil
	}
	return a.client.SignIn(ctx, principal)
}

// Start starts the health server and the connection monitor.
func (a *App) Start(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	interval := a.cfg.Service.Health.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go a.healthMon.Run(ctx, interval)
	go a.pruner.Start(ctx)
	return nil
}

// Stop stops the app.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping registry client...")
	if err := a.client.SignOut(ctx); err != nil {
		a.log.Warn("Sign out failed", "error", err)
	}
	a.closeTransports()
	return a.healthServer.Stop(ctx)
}

func (a *App) closeTransports() {
	if a.rpcClient != nil {
		if err := a.rpcClient.Close(); err != nil {
			a.log.Warn("Failed to close registry transport", "error", err)
		}
	}
	if a.grpcHealth != nil {
		if err := a.grpcHealth.Close(); err != nil {
			a.log.Warn("Failed to close health transport", "error", err)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
}
