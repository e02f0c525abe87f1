package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	starsbotroot "github.com/set-night/starsbot"
	"github.com/set-night/starsbot/internal/config"
	"github.com/set-night/starsbot/internal/handler"
	"github.com/set-night/starsbot/internal/middleware"
	"github.com/set-night/starsbot/internal/repository"
	"github.com/set-night/starsbot/internal/service"
	"github.com/set-night/starsbot/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(starsbotroot.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(pool)

	userService := service.NewUserService(store)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.UserLoader(userService),
		),
	}
	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	tgClient := telegram.NewClient(b, me.ID)
	tgLogger := telegram.NewTelegramLogger(b, cfg)

	// Task sources in queue priority order
	subgram := service.NewSubgramService(cfg.SubgramAPIKey, cfg.SubgramURL, store)
	flyer := service.NewFlyerService(cfg.FlyerKey, cfg.FlyerURL, store)
	fraud := service.NewFraudGuard(store, store)
	localTasks := service.NewLocalTaskService(store, store, store, fraud, tgClient)

	aggregator := service.NewAggregator(subgram, flyer, localTasks)

	referral := service.NewReferralEngine(store, tgClient)
	ledger := service.NewRewardLedger(store, store, referral)
	settlement := service.NewSettlementWorker(ledger, store, tgClient, tgLogger, cfg.SettlementPeriod)

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:         b,
		Cfg:         cfg,
		UserService: userService,
		Aggregator:  aggregator,
		Ledger:      ledger,
		LocalTasks:  localTasks,
		TgLogger:    tgLogger,
		BotUsername: me.Username,
	})
	h.Register()

	// Free text feeds the add-task dialog
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
			return
		}
		if update.Message.Chat.Type == "private" {
			h.HandleTextPrivate(ctx, b, update)
		}
	})

	// Start reward settlement loop
	settlement.Start(ctx)

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
