package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"dietitian-bot/internal/bot"
	"dietitian-bot/internal/chat"
	"dietitian-bot/internal/config"
	"dietitian-bot/internal/entitlement"
	"dietitian-bot/internal/payment"
	"dietitian-bot/internal/server"
	"dietitian-bot/internal/store"
	"dietitian-bot/internal/vision"
	"dietitian-bot/pkg/logger"
)

func main() {
	l := logger.New()
	l.Info("Starting dietitian bot...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", "error", err)
	}

	if cfg.Telegram.Token == "" {
		l.Fatal("Telegram token is not configured")
	}
	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookKey == "" || cfg.Stripe.PriceID == "" {
		l.Fatal("Stripe configuration is incomplete")
	}
	if cfg.GPT.APIKey == "" {
		l.Fatal("GPT API key is not configured")
	}

	// Database connection with retry: the container often comes up
	// before Postgres does.
	var db *store.PostgresStore
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		db, err = store.NewPostgresStore(cfg.DB)
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", "error", err, "attempt", i+1)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if db == nil {
		l.Fatal("Failed to connect to database after multiple attempts", "error", err)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		l.Fatal("Failed to run migrations", "error", err)
	}

	stripeClient := payment.NewStripeClient(payment.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		PublicKey:  cfg.Stripe.PublicKey,
		WebhookKey: cfg.Stripe.WebhookKey,
		PriceID:    cfg.Stripe.PriceID,
	})

	gptClient := openai.NewClient(cfg.GPT.APIKey)
	analyzer := vision.NewAnalyzer(gptClient, cfg.GPT.Model, l.Named("vision"))
	responder := chat.NewResponder(gptClient, db, cfg.GPT.Model, cfg.Chat.HistoryLimit)

	gate := entitlement.NewGate(db, cfg.Telegram.Admins, cfg.Quota.DailyPhotoLimit, cfg.Quota.SubscriptionDays)

	telegramBot, err := bot.NewTelegramBot(cfg.Telegram.Token, l.Named("telegram"))
	if err != nil {
		l.Fatal("Failed to create Telegram bot", "error", err)
	}

	dispatcher := bot.NewDispatcher(db, gate, analyzer, responder, stripeClient,
		telegramBot, telegramBot, telegramBot.Username(), l.Named("dispatcher"))
	telegramBot.SetDispatcher(dispatcher)

	webhooks := bot.NewWebhookHandler(stripeClient, gate, db, telegramBot, l.Named("webhook"))

	l.Info("Starting Telegram bot...")
	if err := telegramBot.Start(context.Background()); err != nil {
		l.Fatal("Failed to start Telegram bot", "error", err)
	}

	httpServer := server.NewServer(cfg.Server.Port, webhooks, l.Named("http"))
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", "error", err)
	}
	if err := telegramBot.Stop(ctx); err != nil {
		l.Error("Error during bot shutdown", "error", err)
	}

	l.Info("Bot stopped successfully")
}
