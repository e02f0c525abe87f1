package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Task providers
	SubgramAPIKey string `env:"SUBGRAM_API_KEY"`
	SubgramURL    string `env:"SUBGRAM_API_URL" envDefault:"https://api.subgram.org/request-op/"`
	FlyerKey      string `env:"FLYER_KEY"`
	FlyerURL      string `env:"FLYER_API_URL" envDefault:"https://api.flyerservice.io"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`

	// Settlement worker
	SettlementPeriod time.Duration `env:"SETTLEMENT_PERIOD" envDefault:"5m"`

	// Bot behavior
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Telegram logging
	LogTelegramChatID int64 `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicFraud     int   `env:"LOG_TOPIC_FRAUD"`
	LogTopicTasks     int   `env:"LOG_TOPIC_TASKS"`
	LogTopicRewards   int   `env:"LOG_TOPIC_REWARDS"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
