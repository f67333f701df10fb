package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/layer-3/pqauth/adapters/audit"
	"github.com/layer-3/pqauth/adapters/challenge"
	"github.com/layer-3/pqauth/adapters/events"
	"github.com/layer-3/pqauth/adapters/kem"
	"github.com/layer-3/pqauth/adapters/registry"
	"github.com/layer-3/pqauth/adapters/signature"
	"github.com/layer-3/pqauth/adapters/store"
	"github.com/layer-3/pqauth/adapters/tokenizer"
	"github.com/layer-3/pqauth/internal/config"
	"github.com/layer-3/pqauth/internal/logging"
	"github.com/layer-3/pqauth/ports"
	"github.com/layer-3/pqauth/service"
	transport "github.com/layer-3/pqauth/transport/http"
)

// NewApp wires the process. Every component is built from cfg.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(appOptions(cfg)...)
}

func appOptions(cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			newLogger,
			newRedisClient,
			newIdentityRegistry,
			newChallengeStore,
			newRevocationStore,
			newEventPublisher,
			newAuditRecorder,
			newTokenAuthority,
			newAuthService,
			newDemoIdentity,
			newHTTPServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerDemoIdentity, func(*http.Server) {}),
	}
}

func newLogger(cfg *config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

func newRedisClient(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) (redis.UniversalClient, error) {
	if !cfg.UsesRedis() {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.Storage.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("failed to reach Redis: %w", err)
			}
			logger.Info("connected to Redis", zap.String("addr", opts.Addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newIdentityRegistry(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger, client redis.UniversalClient) (ports.IdentityRegistry, error) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		return registry.NewRedisRegistry(client), nil
	case config.BackendSQLite:
		r, err := registry.NewSQLiteRegistry(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(r.Close))
		return r, nil
	default:
		return registry.NewMemoryRegistry(), nil
	}
}

func newChallengeStore(cfg *config.Config, client redis.UniversalClient) ports.ChallengeStore {
	if cfg.Storage.Backend == config.BackendRedis {
		return challenge.NewRedisStore(client, cfg.Auth.ChallengeRetention)
	}
	return challenge.NewMemoryStore(cfg.Auth.ChallengeRetention)
}

func newRevocationStore(cfg *config.Config, client redis.UniversalClient) ports.RevocationStore {
	if cfg.Storage.Backend == config.BackendRedis {
		return store.NewRedisStore(client)
	}
	return store.NewMemoryStore()
}

func newEventPublisher(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger, client redis.UniversalClient) (ports.EventPublisher, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logging.NewWatermillAdapter(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}
	lc.Append(fx.StopHook(publisher.Close))

	return events.NewWatermillPublisher(publisher), nil
}

func newAuditRecorder(publisher ports.EventPublisher, logger *zap.Logger) ports.AuditRecorder {
	return audit.NewMemoryRecorder(publisher, logger)
}

func newTokenAuthority(cfg *config.Config) (ports.TokenAuthority, error) {
	return tokenizer.NewCustodian(cfg.Auth.Issuer, cfg.Auth.SessionTTL)
}

type authServiceParams struct {
	fx.In

	Config      *config.Config
	Logger      *zap.Logger
	Registry    ports.IdentityRegistry
	Challenges  ports.ChallengeStore
	Authority   ports.TokenAuthority
	Audit       ports.AuditRecorder
	Revocations ports.RevocationStore
	Events      ports.EventPublisher
}

func newAuthService(p authServiceParams) (*service.AuthService, error) {
	return service.NewAuthService(service.Dependencies{
		Registry:    p.Registry,
		Challenges:  service.NewChallengeIssuer(p.Challenges, p.Config.Auth.ChallengeTTL, time.Now),
		Verifier:    signature.NewEd25519Verifier(),
		KEM:         kem.NewMLKEM(),
		Authority:   p.Authority,
		Audit:       p.Audit,
		Revocations: p.Revocations,
		Events:      p.Events,
	}, service.WithLogger(p.Logger))
}

func newDemoIdentity(cfg *config.Config) (*service.DemoIdentity, error) {
	if !cfg.Demo.Enabled {
		return nil, nil
	}
	return service.NewDemoIdentity()
}

func registerDemoIdentity(lc fx.Lifecycle, demo *service.DemoIdentity, svc *service.AuthService, logger *zap.Logger) {
	if demo == nil {
		return
	}
	lc.Append(fx.StartHook(func(ctx context.Context) error {
		if _, err := svc.Register(ctx, demo.ID); err != nil {
			return fmt.Errorf("failed to register demo identity: %w", err)
		}
		logger.Warn("demo mode enabled, /debug/sign signs for the demo identity",
			zap.String("digital_id", demo.ID))
		return nil
	}))
}

func newHTTPServer(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger, svc *service.AuthService, demo *service.DemoIdentity) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	var opts []transport.RouterOption
	if demo != nil {
		opts = append(opts, transport.WithDemoSigner(demo))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           transport.SetupRouter(svc, logger, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			}
			logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})

	return srv
}
