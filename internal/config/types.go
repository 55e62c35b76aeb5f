package config

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are Go duration strings ("20s", "1m"). Monitor, telegram and
// notifier settings are read once at startup; only logging is applied on
// hot reload.
type Config struct {
	Monitor  MonitorConfig  `json:"monitor"`
	Telegram TelegramConfig `json:"telegram"`
	Notifier NotifierConfig `json:"notifier"`
	Logging  LoggingConfig  `json:"logging"`
}

type MonitorConfig struct {
	// URL is the page that carries the version token.
	URL string `json:"url"`
	// Label names the monitored app in messages, e.g. "McDonald's App".
	Label string `json:"label,omitempty"`
	// Field is the quoted key whose value is the version. Default "softwareVersion".
	Field string `json:"field,omitempty"`
	// Interval is the poll period: a duration ("1m"), HH:MM or "@every 1m".
	// Default "1m".
	Interval     string `json:"interval,omitempty"`
	FetchTimeout string `json:"fetch_timeout,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
	// RunTimeout bounds one whole poll cycle. Empty disables it.
	RunTimeout string `json:"run_timeout,omitempty"`
}

type TelegramConfig struct {
	Token       string `json:"token"`
	APIURL      string `json:"api_url,omitempty"`
	HTTPTimeout string `json:"http_timeout,omitempty"`
	// Recipients are chat ids ("123", "-100123:7" for a topic) or "@channel".
	// Order is kept; duplicates are delivered twice.
	Recipients []string `json:"recipients"`
}

type NotifierConfig struct {
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
	SendTimeout    string `json:"send_timeout,omitempty"`
	Concurrency    int    `json:"concurrency,omitempty"`
	DisablePreview bool   `json:"disable_preview,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty"`
}

type LoggingTelegram struct {
	Enabled bool `json:"enabled"`
	// Target is a recipient in the same format as telegram.recipients.
	Target     string `json:"target"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}
