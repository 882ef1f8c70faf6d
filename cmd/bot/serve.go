package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/shelfmark/shelfmark/internal/bot"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/db"
	"github.com/shelfmark/shelfmark/internal/digest"
	"github.com/shelfmark/shelfmark/internal/groups"
	"github.com/shelfmark/shelfmark/internal/handlers"
	"github.com/shelfmark/shelfmark/internal/logger"
	"github.com/shelfmark/shelfmark/internal/requests"
	"github.com/shelfmark/shelfmark/internal/roles"
	"github.com/shelfmark/shelfmark/internal/server"
	"github.com/shelfmark/shelfmark/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the HTTP API and the scheduled digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			newApp(cfg).Run()
			return nil
		},
	}
}

func newApp(cfg config.Config) *fx.App {
	return fx.New(
		fx.Supply(cfg),
		fx.Provide(
			provideLogger,
			provideDBConn,
			provideTelegramAPI,

			groups.NewService,
			fx.Annotate(requests.NewPGStore, fx.As(new(requests.Store))),
			requests.NewLifecycle,
			fx.Annotate(roles.NewPGResolver, fx.As(new(roles.Resolver))),

			provideBotService,
			provideDigestService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideStatsHandler),
			provideServer,
		),
		fx.Invoke(
			startBot,
			startDigest,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
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

func provideTelegramAPI(cfg config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return api, nil
}

func provideBotService(
	log *slog.Logger,
	api *tgbotapi.BotAPI,
	cfg config.Config,
	groupService *groups.Service,
	lifecycle *requests.Lifecycle,
	store requests.Store,
	resolver roles.Resolver,
) *bot.Service {
	username := cfg.Telegram.BotUsername
	if username == "" {
		username = api.Self.UserName
	}
	return bot.NewService(log, api, username, groupService, lifecycle, store, resolver)
}

func provideDigestService(
	log *slog.Logger,
	cfg config.Config,
	api *tgbotapi.BotAPI,
	groupService *groups.Service,
	store requests.Store,
) *digest.Service {
	return digest.NewService(log, cfg.Digest.Pattern, api, groupService, store)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config) (*handlers.AuthHandler, error) {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("parse jwt_expires_in: %w", err)
	}
	return handlers.NewAuthHandler(log, cfg.Auth.AdminPasswordHash, cfg.Auth.JWTSecret, expiresIn), nil
}

func provideStatsHandler(log *slog.Logger, store requests.Store, groupService *groups.Service) *handlers.StatsHandler {
	return handlers.NewStatsHandler(log, store, groupService)
}

type serverParams struct {
	fx.In

	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.Handlers...)
}

func startBot(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config, api *tgbotapi.BotAPI, svc *bot.Service) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			u := tgbotapi.NewUpdate(0)
			u.Timeout = cfg.Telegram.PollTimeout
			updates := api.GetUpdatesChan(u)
			logger.Info("bot started", slog.String("username", api.Self.UserName))
			go svc.Run(runCtx, updates)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			api.StopReceivingUpdates()
			cancel()
			return nil
		},
	})
}

func startDigest(lc fx.Lifecycle, logger *slog.Logger, cfg config.Config, svc *digest.Service) {
	if !cfg.Digest.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.Start(); err != nil {
				return fmt.Errorf("digest start: %w", err)
			}
			logger.Info("digest scheduled", slog.String("pattern", cfg.Digest.Pattern))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	fmt.Printf("Starting Shelfmark %s\n", version.GetInfo())

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
