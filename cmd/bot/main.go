package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/history"
	"chat-relay/internal/llm"
	"chat-relay/internal/lock"
	"chat-relay/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	redisClient := history.Connect(cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}
	store := history.New(redisClient)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("failed to create telegram client: %v", err)
	}
	log.Printf("authorized on account %s", api.Self.UserName)
	if cfg.BotUsername == "" {
		cfg.BotUsername = api.Self.UserName
	}

	provider := llm.New(cfg.GrokAPIKey, cfg.GrokBaseURL, cfg.GrokModel, cfg.OpenAIAPIKey)
	bot := telegram.New(api, cfg, auth.New(cfg.WhitelistIDs), history.NewAssembler(store), provider, lock.New(redisClient))

	if cfg.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			log.Fatalf("invalid webhook URL: %v", err)
		}
		if _, err := api.Request(wh); err != nil {
			log.Fatalf("failed to register webhook: %v", err)
		}
		log.Printf("webhook registered at %s", cfg.WebhookURL)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", bot.WebhookHandler())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("webhook server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
