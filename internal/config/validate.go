package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"verwatch/internal/notifier"
	"verwatch/internal/task/scheduler"
	logx "verwatch/pkg/logx"
)

// Validate checks a config after defaults and env overrides. All problems
// are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if cfg.Monitor.URL == "" {
		errs = append(errs, fmt.Errorf("monitor.url required (or set %s)", EnvURL))
	} else if u, err := url.Parse(cfg.Monitor.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("monitor.url: invalid http(s) url %q", cfg.Monitor.URL))
	}
	if _, err := scheduler.ParsePeriod(cfg.Monitor.Interval); err != nil {
		errs = append(errs, fmt.Errorf("monitor.interval: %w", err))
	}
	for path, raw := range map[string]string{
		"monitor.fetch_timeout": cfg.Monitor.FetchTimeout,
		"monitor.run_timeout":   cfg.Monitor.RunTimeout,
		"telegram.http_timeout": cfg.Telegram.HTTPTimeout,
		"notifier.send_timeout": cfg.Notifier.SendTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, fmt.Errorf("telegram.token required (or set %s)", EnvTelegramToken))
	}
	if len(cfg.Telegram.Recipients) == 0 {
		errs = append(errs, fmt.Errorf("telegram.recipients required (or set %s)", EnvRecipients))
	}
	for i, r := range cfg.Telegram.Recipients {
		if _, err := notifier.ParseRecipient(r); err != nil {
			errs = append(errs, fmt.Errorf("telegram.recipients[%d]: %w", i, err))
		}
	}

	if cfg.Notifier.RatePerSec < 0 {
		errs = append(errs, errors.New("notifier.rate_per_sec must be >= 0"))
	}
	if cfg.Notifier.Concurrency < 0 {
		errs = append(errs, errors.New("notifier.concurrency must be >= 0"))
	}

	errs = append(errs, validateLogging(cfg.Logging)...)
	return errors.Join(errs...)
}

func validateLogging(l LoggingConfig) []error {
	var errs []error
	if !logx.ValidLevel(l.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", l.Level))
	}
	if l.File.MaxSizeMB < 0 || l.File.MaxBackups < 0 || l.File.MaxAgeDays < 0 {
		errs = append(errs, errors.New("logging.file: rotation limits must be >= 0"))
	}
	if l.Telegram.Enabled {
		if _, err := notifier.ParseRecipient(l.Telegram.Target); err != nil {
			errs = append(errs, fmt.Errorf("logging.telegram.target: %w", err))
		}
		if ml := strings.TrimSpace(l.Telegram.MinLevel); ml != "" && !logx.ValidLevel(ml) {
			errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", ml))
		}
	}
	if l.Telegram.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.telegram.rate_per_sec must be >= 0"))
	}
	return errs
}
