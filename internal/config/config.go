package config

import (
	"log"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	BotUsername      string `env:"BOT_USERNAME"`

	// Whitelisted chat/user identifiers; empty list means nobody is allowed
	WhitelistIDs []string `env:"WHITELIST_IDS" envSeparator:","`

	// Text provider (OpenAI-compatible endpoint)
	GrokAPIKey  string `env:"GROK_API_KEY"`
	GrokBaseURL string `env:"GROK_BASE_URL" envDefault:"https://api.x.ai/v1"`
	GrokModel   string `env:"GROK_MODEL" envDefault:"grok-3-mini-fast"`

	// Image provider
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`

	// Conversation history store
	RedisURL string `env:"REDIS_URL"`

	// Webhook server
	WebhookURL string `env:"WEBHOOK_URL"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Stream text replies with progressive message edits
	StreamReplies bool `env:"STREAM_REPLIES" envDefault:"true"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
