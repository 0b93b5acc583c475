package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Bot     BotConfig     `json:"bot"`
	Webhook WebhookConfig `json:"webhook"`
	Storage StorageConfig `json:"storage"`
	Logging LoggingConfig `json:"logging"`
}

type BotConfig struct {
	Token string `json:"token"`
}

type WebhookConfig struct {
	Secret string `json:"secret"`
	Port   int    `json:"port"`
}

type StorageConfig struct {
	// Backend selects the settings persistence layer: "file" or "sqlite".
	Backend string `json:"backend"`
	DataDir string `json:"data_dir"`
}

type LoggingConfig struct {
	File  string `json:"file"`
	Level string `json:"level"`
}

// ErrMissingToken is fatal at startup: the bot cannot run without credentials.
var ErrMissingToken = errors.New("DISCORD_TOKEN is not set")

// Load reads the optional config file, then applies environment overrides.
// A missing or unreadable file is not an error; a missing bot token is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if secret := os.Getenv("RENDER_WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.Secret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Webhook.Port = n
		}
	}
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if backend := os.Getenv("SETTINGS_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}

	if cfg.Bot.Token == "" {
		return nil, ErrMissingToken
	}

	return cfg, nil
}

func Default() *Config {
	return &Config{
		Webhook: WebhookConfig{
			Port: 3000,
		},
		Storage: StorageConfig{
			Backend: "file",
			DataDir: "data",
		},
		Logging: LoggingConfig{
			File:  "render-relay.log",
			Level: "info",
		},
	}
}
