package app

import (
	"fmt"
	"strings"

	"verwatch/internal/config"
	"verwatch/internal/extract"
	"verwatch/internal/fetch"
	"verwatch/internal/notifier"
	"verwatch/internal/notifier/broadcast"
	"verwatch/internal/task/scheduler"
	kit "verwatch/internal/transport"
	telegram "verwatch/internal/transport/telegram/adapter"
	"verwatch/internal/watch"
	logx "verwatch/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) (logx.Config, error) {
	l := cfg.Logging
	out := logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled:    l.File.Enabled,
			Path:       l.File.Path,
			MaxSizeMB:  l.File.MaxSizeMB,
			MaxBackups: l.File.MaxBackups,
			MaxAgeDays: l.File.MaxAgeDays,
			Compress:   l.File.Compress,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
	if l.Telegram.Enabled {
		to, err := notifier.ParseRecipient(l.Telegram.Target)
		if err != nil {
			return logx.Config{}, fmt.Errorf("logging.telegram.target: %w", err)
		}
		out.Telegram.Target = to
	}
	return out, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, error) {
	timeout, err := config.ParseDurationField("telegram.http_timeout", cfg.Telegram.HTTPTimeout)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		APIURL:      strings.TrimSpace(cfg.Telegram.APIURL),
		HTTPTimeout: timeout,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, broadcast.Config, error) {
	timeout, err := config.ParseDurationField("notifier.send_timeout", cfg.Notifier.SendTimeout)
	if err != nil {
		return notifier.Config{}, broadcast.Config{}, err
	}
	return notifier.Config{
			RatePerSec:     cfg.Notifier.RatePerSec,
			SendTimeout:    timeout,
			DisablePreview: cfg.Notifier.DisablePreview,
		}, broadcast.Config{
			Concurrency: cfg.Notifier.Concurrency,
		}, nil
}

func newFetcher(cfg *config.Config) (*fetch.HTTP, error) {
	timeout, err := config.ParseDurationOrDefault("monitor.fetch_timeout", cfg.Monitor.FetchTimeout, fetch.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	return fetch.NewHTTP(fetch.WithTimeout(timeout), fetch.WithUserAgent(cfg.Monitor.UserAgent)), nil
}

func newExtractor(cfg *config.Config) *extract.Extractor {
	return extract.New(cfg.Monitor.Field)
}

func mapWatchConfig(cfg *config.Config) watch.Config {
	return watch.Config{
		Resource: cfg.Monitor.URL,
		Label:    strings.TrimSpace(cfg.Monitor.Label),
	}
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	timeout, err := config.ParseDurationField("monitor.run_timeout", cfg.Monitor.RunTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Schedule: cfg.Monitor.Interval,
		Timeout:  timeout,
	}, nil
}

// recipientsSummary renders chat ids for logs without leaking them in full.
func recipientsSummary(rs []string) string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		to, err := notifier.ParseRecipient(r)
		if err != nil {
			out = append(out, "?")
			continue
		}
		out = append(out, maskTarget(to))
	}
	return strings.Join(out, ",")
}

func maskTarget(to kit.ChatTarget) string {
	s := telegram.FormatTarget(to)
	if to.Username != "" || len(s) <= 4 {
		return s
	}
	return "…" + s[len(s)-4:]
}
