package config

import (
	"strings"

	"verwatch/internal/notifier"
)

// Environment overrides. They keep the bot token and chat ids out of the
// config file.
const (
	EnvTelegramToken = "VERWATCH_TELEGRAM_TOKEN"
	EnvRecipients    = "VERWATCH_RECIPIENTS"
	EnvURL           = "VERWATCH_URL"
)

// applyEnv overrides cfg from getenv. Empty variables are ignored.
// EnvRecipients replaces the whole list; ids may be separated by commas,
// semicolons or whitespace.
func applyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	if v := strings.TrimSpace(getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvURL)); v != "" {
		cfg.Monitor.URL = v
	}
	if v := getenv(EnvRecipients); strings.TrimSpace(v) != "" {
		cfg.Telegram.Recipients = notifier.ParseRecipients(v)
	}
}

const (
	DefaultField    = "softwareVersion"
	DefaultInterval = "1m"
	DefaultLevel    = "info"
)

func applyDefaults(cfg *Config) {
	cfg.Monitor.URL = strings.TrimSpace(cfg.Monitor.URL)
	if strings.TrimSpace(cfg.Monitor.Field) == "" {
		cfg.Monitor.Field = DefaultField
	}
	if strings.TrimSpace(cfg.Monitor.Interval) == "" {
		cfg.Monitor.Interval = DefaultInterval
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = DefaultLevel
	}
	recipients := cfg.Telegram.Recipients[:0:0]
	for _, r := range cfg.Telegram.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	cfg.Telegram.Recipients = recipients
}
