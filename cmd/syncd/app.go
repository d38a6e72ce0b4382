package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/synclinear/syncd/internal/config"
	"github.com/synclinear/syncd/internal/db"
	"github.com/synclinear/syncd/internal/handlers"
	"github.com/synclinear/syncd/internal/identity"
	"github.com/synclinear/syncd/internal/logger"
	"github.com/synclinear/syncd/internal/mention"
	"github.com/synclinear/syncd/internal/platform/githubapi"
	"github.com/synclinear/syncd/internal/platform/linearapi"
	"github.com/synclinear/syncd/internal/server"
	"github.com/synclinear/syncd/internal/session"
	syncsvc "github.com/synclinear/syncd/internal/sync"
	"github.com/synclinear/syncd/internal/version"
)

func runApp() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			provideGitHubClient,
			provideLinearClient,

			identity.NewStore,
			provideResolver,
			provideRewriter,

			session.NewService,
			syncsvc.NewLinkStore,
			syncsvc.NewWebhookRegistrar,
			provideOrchestrator,
			func(o *syncsvc.Orchestrator) handlers.Orchestrator { return o },

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewSyncsHandler),
			provideServerHandler(provideGitHubWebhookHandler),
			provideServerHandler(provideLinearWebhookHandler),

			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideGitHubClient(log *slog.Logger, cfg config.Config) *githubapi.Client {
	return githubapi.NewClient(log, cfg.GitHub)
}

func provideLinearClient(log *slog.Logger, cfg config.Config) *linearapi.Client {
	return linearapi.NewClient(log, cfg.Linear)
}

func provideResolver(log *slog.Logger, store *identity.Store, github *githubapi.Client, linear *linearapi.Client) *identity.Resolver {
	return identity.NewResolver(log, store, github, linear)
}

func provideRewriter(log *slog.Logger, store *identity.Store) *mention.Rewriter {
	return mention.NewRewriter(log, store, nil)
}

func provideOrchestrator(
	log *slog.Logger,
	cfg config.Config,
	sessions *session.Service,
	resolver *identity.Resolver,
	rewriter *mention.Rewriter,
	github *githubapi.Client,
	linear *linearapi.Client,
	links *syncsvc.LinkStore,
	registrar *syncsvc.WebhookRegistrar,
) *syncsvc.Orchestrator {
	return syncsvc.NewOrchestrator(log, sessions, resolver, rewriter, github, linear, links, registrar, cfg.Sync.FooterMarker)
}

func provideGitHubWebhookHandler(log *slog.Logger, orch handlers.Orchestrator, cfg config.Config) *handlers.GitHubWebhookHandler {
	return handlers.NewGitHubWebhookHandler(log, orch, cfg.GitHub)
}

func provideLinearWebhookHandler(log *slog.Logger, orch handlers.Orchestrator, cfg config.Config) *handlers.LinearWebhookHandler {
	return handlers.NewLinearWebhookHandler(log, orch, cfg.Linear)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting syncd %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
