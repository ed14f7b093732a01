package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime settings, loaded from the environment
type Config struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`

	// Database: sqlite3 with a file path, or postgres with a DSN
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite3"`
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"data/toeicbot.db"`

	// Defaults applied to newly registered learners
	DefaultDeliveryTime string `env:"DAILY_DELIVERY_TIME" envDefault:"07:00"`
	DefaultUTCOffsetMin int    `env:"DEFAULT_UTC_OFFSET_MIN" envDefault:"540"` // Asia/Seoul
	ListeningPerDay     int    `env:"LISTENING_QUESTIONS_PER_DAY" envDefault:"3"`
	GrammarPerDay       int    `env:"GRAMMAR_QUESTIONS_PER_DAY" envDefault:"5"`
	WeekendDelivery     bool   `env:"WEEKEND_DELIVERY" envDefault:"false"`
	DefaultTargetScore  int    `env:"DEFAULT_TARGET_SCORE" envDefault:"800"`
	TTSLanguage         string `env:"TTS_LANGUAGE" envDefault:"en"`

	// Scheduling
	DueWindowMinutes int           `env:"DUE_WINDOW_MINUTES" envDefault:"30"`
	SessionTimeout   time.Duration `env:"SESSION_TIMEOUT" envDefault:"20h"`

	AudioDir     string  `env:"AUDIO_DIR" envDefault:"data/audio"`
	AdminUserIDs []int64 `env:"ADMIN_USER_IDS" envSeparator:","`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}
	return cfg, nil
}
