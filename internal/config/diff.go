package config

import (
	"reflect"
	"sort"
	"strings"

	logx "verwatch/pkg/logx"
)

// HotSections can be applied without a restart.
var HotSections = map[string]bool{"logging": true}

// SummarizeConfigChange returns the changed sections (sorted) and safe
// structured attrs for logging. Tokens and chat ids are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if !reflect.DeepEqual(oldCfg.Monitor, newCfg.Monitor) {
		changed = append(changed, "monitor")
		attrs = append(attrs,
			logx.Bool("monitor.url_changed", oldCfg.Monitor.URL != newCfg.Monitor.URL),
			logx.String("monitor.interval", newCfg.Monitor.Interval),
			logx.String("monitor.field", newCfg.Monitor.Field),
		)
	}

	// Telegram (never log the token or the ids)
	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		strings.TrimSpace(oldCfg.Telegram.APIURL) != strings.TrimSpace(newCfg.Telegram.APIURL) ||
		strings.TrimSpace(oldCfg.Telegram.HTTPTimeout) != strings.TrimSpace(newCfg.Telegram.HTTPTimeout) ||
		!reflect.DeepEqual(oldCfg.Telegram.Recipients, newCfg.Telegram.Recipients) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.Int("telegram.recipient_count", len(newCfg.Telegram.Recipients)),
		)
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		attrs = append(attrs,
			logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec),
			logx.Int("notifier.concurrency", newCfg.Notifier.Concurrency),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// NeedsRestart returns the changed sections that are only read at startup.
func NeedsRestart(changed []string) []string {
	var out []string
	for _, s := range changed {
		if !HotSections[s] {
			out = append(out, s)
		}
	}
	return out
}
