package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"verwatch/internal/config"
	kit "verwatch/internal/transport"
)

type sentMsg struct {
	to   kit.ChatTarget
	text string
}

type fakeAdapter struct {
	mu   sync.Mutex
	msgs []sentMsg
	fail map[int64]bool
}

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to.ChatID] {
		return kit.MessageRef{}, fmt.Errorf("chat %d blocked the bot", to.ChatID)
	}
	f.msgs = append(f.msgs, sentMsg{to: to, text: text})
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.msgs)}, nil
}

func (f *fakeAdapter) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.text)
	}
	return out
}

func (f *fakeAdapter) sentTo(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.to.ChatID == chatID {
			n++
		}
	}
	return n
}

func (f *fakeAdapter) count(substr string) int {
	n := 0
	for _, s := range f.texts() {
		if strings.Contains(s, substr) {
			n++
		}
	}
	return n
}

type fakeSD struct {
	ready, stopping atomic.Int32
	status          atomic.Value // string
}

func (f *fakeSD) Ready() (bool, error)    { f.ready.Add(1); return true, nil }
func (f *fakeSD) Stopping() (bool, error) { f.stopping.Add(1); return true, nil }
func (f *fakeSD) Watchdog() (bool, error) { return false, nil }
func (f *fakeSD) Status(s string) (bool, error) {
	f.status.Store(s)
	return true, nil
}
func (f *fakeSD) WatchdogInterval() (time.Duration, error) { return 0, nil }

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, url, interval string, recipients ...string) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "monitor:\n  url: %q\n  label: Demo App\n  interval: %q\n", url, interval)
	b.WriteString("telegram:\n  token: \"test-token\"\n  recipients:\n")
	for _, r := range recipients {
		fmt.Fprintf(&b, "    - %q\n", r)
	}
	b.WriteString("notifier:\n  rate_per_sec: 100\nlogging:\n  level: error\n  console: true\n")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func versionServer(t *testing.T, version *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<script>{"name":"Demo","softwareVersion":"%s"}</script>`, version.Load().(string))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartSendsInitialBeforeReturning(t *testing.T) {
	t.Parallel()
	var version atomic.Value
	version.Store("1.0.0")
	srv := versionServer(t, &version)

	ad := &fakeAdapter{}
	sd := &fakeSD{}
	a, err := New(writeConfig(t, srv.URL, "1h", "111", "222"),
		WithAdapter(ad), WithServiceNotifier(sd), WithEnv(noEnv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := ad.count("Current Version: 1.0.0"); got != 2 {
		t.Fatalf("initial messages = %d, want 2 (%q)", got, ad.texts())
	}
	if got := ad.count("watcher alive"); got != 2 {
		t.Fatalf("heartbeat messages = %d, want 2 (%q)", got, ad.texts())
	}
	if st := a.State(); !st.HasVersion || st.Version != "1.0.0" {
		t.Fatalf("state = %+v", st)
	}
	if sd.ready.Load() != 1 {
		t.Fatalf("READY sent %d times", sd.ready.Load())
	}
	if s, _ := sd.status.Load().(string); !strings.Contains(s, "1.0.0") {
		t.Fatalf("status = %q", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx, StopSignal); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sd.stopping.Load() != 1 {
		t.Fatalf("STOPPING sent %d times", sd.stopping.Load())
	}
	// second Stop is a no-op
	if err := a.Stop(ctx, StopSignal); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestVersionChangeReachesEveryRecipient(t *testing.T) {
	t.Parallel()
	var version atomic.Value
	version.Store("1.0.0")
	srv := versionServer(t, &version)

	ad := &fakeAdapter{fail: map[int64]bool{111: true}}
	a, err := New(writeConfig(t, srv.URL, "30ms", "111", "222"),
		WithAdapter(ad), WithServiceNotifier(&fakeSD{}), WithEnv(noEnv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop(context.Background(), StopAppStop)

	version.Store("1.1.0")
	waitFor(t, "change broadcast", func() bool { return ad.count("New Version: 1.1.0") == 1 })

	if got := ad.sentTo(111); got != 0 {
		t.Fatalf("%d messages recorded for failing recipient", got)
	}
	if got := ad.count("Old Version: 1.0.0"); got != 1 {
		t.Fatalf("old version lines = %d", got)
	}
	// the heartbeat went out once on the first cycle only
	if got := ad.count("watcher alive"); got != 1 {
		t.Fatalf("heartbeats = %d", got)
	}
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("monitor:\n  url: \"https://example.com\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := New(path, WithAdapter(&fakeAdapter{}), WithServiceNotifier(&fakeSD{}), WithEnv(noEnv))
	if err == nil {
		t.Fatal("expected error for missing token and recipients")
	}
	for _, want := range []string{config.EnvTelegramToken, config.EnvRecipients} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestEnvSuppliesSecrets(t *testing.T) {
	t.Parallel()
	var version atomic.Value
	version.Store("2.0")
	srv := versionServer(t, &version)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("monitor:\n  interval: 1h\nnotifier:\n  rate_per_sec: 100\nlogging:\n  level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		config.EnvTelegramToken: "env-token",
		config.EnvRecipients:    "333, 444",
		config.EnvURL:           srv.URL,
	}
	ad := &fakeAdapter{}
	a, err := New(path, WithAdapter(ad), WithServiceNotifier(&fakeSD{}), WithEnv(func(k string) string { return env[k] }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop(context.Background(), StopAppStop)

	if got := ad.count("Current Version: 2.0"); got != 2 {
		t.Fatalf("initial messages = %d (%q)", got, ad.texts())
	}
}

func TestApplyConfigReloadsLogging(t *testing.T) {
	t.Parallel()
	var version atomic.Value
	version.Store("1")
	srv := versionServer(t, &version)

	a, err := New(writeConfig(t, srv.URL, "1h", "111"),
		WithAdapter(&fakeAdapter{}), WithServiceNotifier(&fakeSD{}), WithEnv(noEnv))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	oldCfg := a.cfgm.Get()
	newCfg := *oldCfg
	newCfg.Logging.Level = "debug"
	newCfg.Monitor.Interval = "5m"

	// must not panic and must leave the scheduler untouched
	a.applyConfig(oldCfg, &newCfg)
	if got := a.sched.Snapshot().Every; got != time.Hour {
		t.Fatalf("interval changed on reload: %v", got)
	}
}

func TestMaskTarget(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   kit.ChatTarget
		want string
	}{
		{kit.ChatTarget{ChatID: 123}, "123"},
		{kit.ChatTarget{ChatID: -1001234567890}, "…7890"},
		{kit.ChatTarget{Username: "@news"}, "@news"},
	}
	for _, tc := range cases {
		if got := maskTarget(tc.in); got != tc.want {
			t.Fatalf("maskTarget(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
