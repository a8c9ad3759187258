// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/youarebest/tgbot/internal/assistant"
	"github.com/youarebest/tgbot/internal/bot"
	"github.com/youarebest/tgbot/internal/bot/handlers"
	"github.com/youarebest/tgbot/internal/bot/tasks"
	"github.com/youarebest/tgbot/internal/config"
	"github.com/youarebest/tgbot/internal/database"
	"github.com/youarebest/tgbot/internal/logger"
	"github.com/youarebest/tgbot/internal/reminder"
	"github.com/youarebest/tgbot/internal/telegram"
	"github.com/youarebest/tgbot/internal/upstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run builds every component, runs the bot until ctx is cancelled and returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
	loc := cfg.Location()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log, database.WithDefaultInterval(cfg.Reminder.DefaultInterval))

	gateway := upstream.New(&cfg.Upstream, &cfg.Messages, loc, log)

	// The dispatch handler needs the bot identity, which needs the client. Updates
	// only flow once the listener starts, after dispatch is set.
	var dispatch tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(handlers.Recover(log), logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			dispatch(ctx, b, update)
		}),
		tgbot.WithErrorsHandler(func(err error) {
			log.Error("Telegram client error", "error", err)
		}),
	}
	if cfg.Telegram.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.Telegram.WebhookSecret))
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		FlowTTL: cfg.Flow.TTL,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, loc, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	reminders := reminder.New(sched.Cron(), store, telegram.NewSender(tg), reminder.Options{
		Quiet: reminder.QuietHours{
			Start:    cfg.Reminder.QuietStart,
			End:      cfg.Reminder.QuietEnd,
			Location: loc,
		},
		Messages: cfg.Reminder.Messages,
	}, log)

	gen, err := assistant.NewGemini(ctx, cfg.Gemini, assistant.Identity{
		FirstName: cfg.Telegram.BotInfo.FirstName,
		Username:  cfg.Telegram.BotInfo.Username,
	}, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}
	chat := assistant.NewService(store, gen, assistant.Options{
		HistoryLimit: cfg.Gemini.HistoryLimit,
		Apology:      cfg.Messages.AIError,
		Timeout:      cfg.Gemini.Timeout,
	}, log)

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Reminders: reminders,
		Gateway:   gateway,
		Assistant: chat,
	}
	dispatch = handlers.NewDispatchHandler(hDeps)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	var webhook http.Handler
	if cfg.Telegram.WebhookURL != "" {
		webhook = tg.WebhookHandler()
	}
	server := telegram.NewServer(cfg.Server, webhook, log)

	app := bot.NewBot(log, cfg, bot.Components{
		Listener:  tg,
		Server:    server,
		Reminders: reminders,
		Scheduler: sched,
		Gateway:   gateway,
	})

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
