package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
monitor:
  url: https://apps.example.test/app/id123
  label: "Example App"
  interval: "30s"
telegram:
  token: "file-token"
  recipients: ["111", "-100222:5", "@releases"]
notifier:
  rate_per_sec: 5
logging:
  level: debug
  console: true
`

func noEnv(string) string { return "" }

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "verwatch.yaml", sampleYAML)
	m := NewManager(p)
	m.SetEnv(noEnv)

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.URL != "https://apps.example.test/app/id123" || cfg.Monitor.Interval != "30s" {
		t.Fatalf("monitor = %+v", cfg.Monitor)
	}
	if cfg.Monitor.Field != DefaultField {
		t.Fatalf("field default = %q", cfg.Monitor.Field)
	}
	if want := []string{"111", "-100222:5", "@releases"}; !reflect.DeepEqual(cfg.Telegram.Recipients, want) {
		t.Fatalf("recipients = %q", cfg.Telegram.Recipients)
	}
	if m.Get() != cfg {
		t.Fatal("Load must commit the config")
	}
}

func TestLoadJSONDefaults(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "verwatch.json", `{
		"monitor": {"url": "https://apps.example.test/x"},
		"telegram": {"token": "t", "recipients": ["1"]},
		"notifier": {},
		"logging": {"level": "", "console": false, "file": {"enabled": false, "path": ""}, "telegram": {"enabled": false, "target": "", "min_level": "", "rate_per_sec": 0}}
	}`)
	m := NewManager(p)
	m.SetEnv(noEnv)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.Interval != DefaultInterval || cfg.Logging.Level != DefaultLevel {
		t.Fatalf("defaults not applied: %+v %+v", cfg.Monitor, cfg.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Parallel()
	p := writeFile(t, t.TempDir(), "verwatch.yml", sampleYAML)
	env := map[string]string{
		EnvTelegramToken: "env-token",
		EnvRecipients:    "42, 43;@chan",
		EnvURL:           "https://other.example.test/page",
	}
	m := NewManager(p)
	m.SetEnv(func(k string) string { return env[k] })

	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Monitor.URL != "https://other.example.test/page" {
		t.Fatalf("env not applied: token=%q url=%q", cfg.Telegram.Token, cfg.Monitor.URL)
	}
	if want := []string{"42", "43", "@chan"}; !reflect.DeepEqual(cfg.Telegram.Recipients, want) {
		t.Fatalf("recipients = %q", cfg.Telegram.Recipients)
	}
}

func TestParseRejectsUnknownAndTrailing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	p := writeFile(t, dir, "a.yaml", sampleYAML+"\nextra_section: true\n")
	if _, err := NewManager(p).Parse(); err == nil || !strings.Contains(err.Error(), "extra_section") {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	p = writeFile(t, dir, "b.json", `{"monitor":{"url":"https://x.test"}} {}`)
	if _, err := NewManager(p).Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Monitor:  MonitorConfig{URL: "ftp://nope", Interval: "soon", FetchTimeout: "-1s"},
		Telegram: TelegramConfig{Recipients: []string{"abc"}},
		Logging:  LoggingConfig{Level: "loud", Telegram: LoggingTelegram{Enabled: true, Target: ""}},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"monitor.url",
		"monitor.interval",
		"monitor.fetch_timeout",
		"telegram.token",
		"telegram.recipients[0]",
		"logging.level",
		"logging.telegram.target",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}

	if err := Validate(&Config{Monitor: MonitorConfig{URL: "https://x.test", Interval: "1m"}, Telegram: TelegramConfig{Token: "t"}, Logging: LoggingConfig{Level: "info"}}); err == nil || !strings.Contains(err.Error(), EnvRecipients) {
		t.Fatalf("missing recipients should be reported, got %v", err)
	}
}

func TestValidateIntervalNeedsFixedPeriod(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		interval string
		ok       bool
	}{
		{"1m", true},
		{"00:05", true},
		{"@every 30s", true},
		{"0 9 * * *", false},
		{"@daily", false},
	} {
		cfg := &Config{
			Monitor:  MonitorConfig{URL: "https://x.test", Interval: tc.interval},
			Telegram: TelegramConfig{Token: "t", Recipients: []string{"1"}},
			Logging:  LoggingConfig{Level: "info"},
		}
		err := Validate(cfg)
		if tc.ok && err != nil {
			t.Fatalf("interval %q rejected: %v", tc.interval, err)
		}
		if !tc.ok && (err == nil || !strings.Contains(err.Error(), "monitor.interval")) {
			t.Fatalf("interval %q accepted, err = %v", tc.interval, err)
		}
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	old := &Config{
		Monitor:  MonitorConfig{URL: "https://x.test", Interval: "1m"},
		Telegram: TelegramConfig{Token: "secret-1", Recipients: []string{"1"}},
		Logging:  LoggingConfig{Level: "info"},
	}
	next := *old
	next.Logging.Level = "debug"
	next.Telegram.Token = "secret-2"

	changed, attrs := SummarizeConfigChange(old, &next)
	if want := []string{"logging", "telegram"}; !reflect.DeepEqual(changed, want) {
		t.Fatalf("changed = %q, want %q", changed, want)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if got := NeedsRestart(changed); !reflect.DeepEqual(got, []string{"telegram"}) {
		t.Fatalf("NeedsRestart = %q", got)
	}
	if changed, _ := SummarizeConfigChange(old, old); len(changed) != 0 {
		t.Fatalf("identical configs reported changes: %q", changed)
	}
}

func TestReloadPublishesValidChanges(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := writeFile(t, dir, "verwatch.yaml", sampleYAML)
	m := NewManager(p)
	m.SetEnv(noEnv)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	published, err := m.Reload(context.Background())
	if err != nil || published {
		t.Fatalf("unchanged reload = %v, %v", published, err)
	}

	writeFile(t, dir, "verwatch.yaml", strings.Replace(sampleYAML, "level: debug", "level: warn", 1))
	published, err = m.Reload(context.Background())
	if err != nil || !published {
		t.Fatalf("changed reload = %v, %v", published, err)
	}
	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "warn" {
			t.Fatalf("published level = %q", cfg.Logging.Level)
		}
	case <-time.After(time.Second):
		t.Fatal("no config published")
	}

	writeFile(t, dir, "verwatch.yaml", strings.Replace(sampleYAML, "level: debug", "level: shouting", 1))
	if published, err := m.Reload(context.Background()); err == nil || published {
		t.Fatalf("invalid reload = %v, %v", published, err)
	}
	if m.Get().Logging.Level != "warn" {
		t.Fatalf("invalid config was committed: %q", m.Get().Logging.Level)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 7 * time.Second},
		{raw: "0s", want: 7 * time.Second},
		{raw: "250ms", want: 250 * time.Millisecond},
		{raw: "-1s", wantErr: true},
		{raw: "ten", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationOrDefault("x", tt.raw, 7*time.Second)
		if (err != nil) != tt.wantErr || (!tt.wantErr && got != tt.want) {
			t.Fatalf("ParseDurationOrDefault(%q) = %v, %v", tt.raw, got, err)
		}
	}
}
