// Package config reads deployment configuration from the environment and an
// optional .env file. Values set here override the settings stored in the
// database for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/julianstephens/dietline/internal/models"
)

const (
	EnvAPIURL         = "DIETLINE_API_URL"
	EnvAPIToken       = "DIETLINE_API_TOKEN"
	EnvTimezone       = "DIETLINE_TIMEZONE"
	EnvTelegramToken  = "DIETLINE_TELEGRAM_TOKEN"
	EnvTelegramChatID = "DIETLINE_TELEGRAM_CHAT_ID"
	EnvAMQPURL        = "DIETLINE_AMQP_URL"
	EnvDBConnection   = "DIETLINE_DB_CONNECTION"
)

type Config struct {
	APIBaseURL   string
	APIToken     string
	Timezone     string
	DBConnection string
	Telegram     TelegramConfig
	AMQP         AMQPConfig
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type AMQPConfig struct {
	URL string
}

func (a AMQPConfig) Enabled() bool {
	return a.URL != ""
}

// Load reads the given .env files (".env" when none are named) into the
// process environment without overriding variables that are already set,
// then builds a Config. Missing files are not an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := Config{
		APIBaseURL:   getEnv(EnvAPIURL, ""),
		APIToken:     getEnv(EnvAPIToken, ""),
		Timezone:     getEnv(EnvTimezone, ""),
		DBConnection: getEnv(EnvDBConnection, ""),
		Telegram: TelegramConfig{
			Token: getEnv(EnvTelegramToken, ""),
		},
		AMQP: AMQPConfig{
			URL: getEnv(EnvAMQPURL, ""),
		},
	}

	if raw := getEnv(EnvTelegramChatID, ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a numeric chat id: %w", EnvTelegramChatID, err)
		}
		cfg.Telegram.ChatID = id
	}

	return cfg, nil
}

// Apply overlays the environment onto stored settings.
func (c Config) Apply(s models.Settings) models.Settings {
	if c.APIBaseURL != "" {
		s.APIBaseURL = c.APIBaseURL
	}
	if c.Timezone != "" {
		s.Timezone = c.Timezone
	}
	return s
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
