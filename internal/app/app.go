// Package app wires config, logging, Telegram delivery, the poll cycle and
// its scheduler into one process with an ordered start and stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"verwatch/internal/config"
	"verwatch/internal/fetch"
	"verwatch/internal/notifier"
	"verwatch/internal/notifier/broadcast"
	"verwatch/internal/runtime/supervisor"
	"verwatch/internal/task/scheduler"
	kit "verwatch/internal/transport"
	telegram "verwatch/internal/transport/telegram/adapter"
	"verwatch/internal/watch"
	logx "verwatch/pkg/logx"
	"verwatch/pkg/systemd"
)

// StopReason is logged when the app stops.
type StopReason string

const (
	StopSignal     StopReason = "signal"
	StopFatalError StopReason = "fatal_error"
	StopAppStop    StopReason = "app_stop"
)

// ServiceNotifier reports lifecycle state to the service manager.
type ServiceNotifier interface {
	Ready() (bool, error)
	Stopping() (bool, error)
	Watchdog() (bool, error)
	Status(string) (bool, error)
	WatchdogInterval() (time.Duration, error)
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter kit.Adapter
	bc      *broadcast.Broadcaster
	cycle   *watch.Cycle
	sched   *scheduler.Service
	sd      ServiceNotifier

	stopOnce sync.Once
	stopErr  error
}

type Option func(*options)

type options struct {
	adapter kit.Adapter
	fetcher fetch.Fetcher
	sd      ServiceNotifier
	getenv  func(string) string
	now     func() time.Time
}

// WithAdapter replaces the Telegram adapter (tests, alternative transports).
func WithAdapter(a kit.Adapter) Option { return func(o *options) { o.adapter = a } }

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f fetch.Fetcher) Option { return func(o *options) { o.fetcher = f } }

// WithServiceNotifier replaces the sd_notify client.
func WithServiceNotifier(n ServiceNotifier) Option { return func(o *options) { o.sd = n } }

// WithEnv replaces the environment lookup used for config overrides.
func WithEnv(getenv func(string) string) Option { return func(o *options) { o.getenv = getenv } }

// WithClock replaces the clock used for heartbeat dates.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func New(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.sd == nil {
		o.sd = systemd.Notifier{}
	}

	cfgm := config.NewManager(cfgPath)
	if o.getenv != nil {
		cfgm.SetEnv(o.getenv)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	ad := o.adapter
	if ad == nil {
		tcfg, err := mapTelegramConfig(cfg)
		if err != nil {
			return nil, err
		}
		tg, err := telegram.New(tcfg, logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		ad = tg
	}

	logCfg, err := mapLoggingConfig(cfg)
	if err != nil {
		return nil, err
	}
	logSvc, log := logx.New(logCfg, ad)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	ncfg, bcfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notif := notifier.NewTelegram(ncfg, ad, log.With(logx.String("comp", "notifier")))
	bc := broadcast.New(bcfg, notif, cfg.Telegram.Recipients, log.With(logx.String("comp", "broadcast")))

	f := o.fetcher
	if f == nil {
		hf, err := newFetcher(cfg)
		if err != nil {
			return nil, err
		}
		f = hf
	}
	wcfg := mapWatchConfig(cfg)
	wcfg.Now = o.now
	cycle := watch.NewCycle(wcfg, f, newExtractor(cfg), bc, log)

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		adapter: ad,
		bc:      bc,
		cycle:   cycle,
		sd:      o.sd,
	}

	scfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(scfg, a.runCycle, log)
	if err != nil {
		return nil, err
	}
	sched.OnCycleDone(a.onCycleDone)
	a.sched = sched

	a.log.Info("configured",
		logx.String("url", cfg.Monitor.URL),
		logx.String("field", cfg.Monitor.Field),
		logx.String("interval", cfg.Monitor.Interval),
		logx.String("recipients", recipientsSummary(cfg.Telegram.Recipients)),
	)
	return a, nil
}

// State exposes the watcher's version state.
func (a *App) State() watch.StateSnapshot { return a.cycle.State() }

// Scheduler exposes the trigger service for status output.
func (a *App) Scheduler() *scheduler.Service { return a.sched }

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start runs the first poll cycle before returning, then keeps polling in
// the background until Stop.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.reload", func(c context.Context) { a.reloadLoop(c, sub) })
	a.sup.GoRestart("config.watch", a.cfgm.Watch, 500*time.Millisecond, 30*time.Second)

	if err := a.sched.Start(a.sup.Context()); err != nil {
		return err
	}

	if wd, err := a.sd.WatchdogInterval(); err != nil {
		a.log.Warn("systemd watchdog unavailable", logx.Err(err))
	} else if wd > 0 {
		a.sup.Go0("systemd.watchdog", func(c context.Context) { a.watchdogLoop(c, wd) })
	}
	if ok, err := a.sd.Ready(); err != nil {
		a.log.Warn("sd_notify READY failed", logx.Err(err))
	} else if ok {
		a.log.Debug("sd_notify READY sent")
	}

	a.log.Info("app started", logx.String("schedule", a.sched.Snapshot().Schedule))
	return nil
}

func (a *App) runCycle(ctx context.Context) {
	res := a.cycle.Run(ctx)
	fields := []logx.Field{
		logx.String("outcome", string(res.Outcome)),
		logx.Duration("took", res.Took),
		logx.Bool("heartbeat", res.HeartbeatSent),
	}
	if res.Version != "" {
		fields = append(fields, logx.String("version", res.Version))
	}
	a.log.Debug("cycle done", fields...)
}

func (a *App) onCycleDone() {
	st := a.cycle.State()
	v := st.Version
	if !st.HasVersion {
		v = "unknown"
	}
	_, _ = a.sd.Status(fmt.Sprintf("version %s, last check %s", v, time.Now().UTC().Format(time.RFC3339)))
}

// watchdogLoop pings the systemd watchdog at half its interval, but only
// while poll cycles keep finishing. A cycle stuck for longer than the
// watchdog interval lets systemd restart the unit.
func (a *App) watchdogLoop(ctx context.Context, wd time.Duration) {
	t := time.NewTicker(wd / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap := a.sched.Snapshot()
			if snap.Running && time.Since(snap.LastStart) > wd {
				a.log.Warn("poll cycle stuck; withholding watchdog ping", logx.Duration("running_for", time.Since(snap.LastStart)))
				continue
			}
			_, _ = a.sd.Watchdog()
		}
	}
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config change", fields...)

	if restart := config.NeedsRestart(sections); len(restart) > 0 {
		a.log.Warn("config sections changed that only apply on restart", logx.Strings("sections", restart))
	}
	for _, s := range sections {
		if s != "logging" {
			continue
		}
		lc, err := mapLoggingConfig(newCfg)
		if err != nil {
			a.log.Warn("logging config not applied", logx.Err(err))
			return
		}
		a.logs.Apply(lc)
		a.log.Info("logging config applied", logx.String("level", lc.Level))
	}
}

// Stop drains the scheduler (an in-flight cycle always finishes), stops
// background goroutines and flushes logs. It is safe to call more than once.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.stopOnce.Do(func() { a.stopErr = a.stop(ctx, reason) })
	return a.stopErr
}

func (a *App) stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if _, err := a.sd.Stopping(); err != nil {
		a.log.Debug("sd_notify STOPPING failed", logx.Err(err))
	}

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// never extend the caller's deadline
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err), logx.Duration("took", time.Since(start)))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	// The scheduler gets whatever is left of ctx: a cycle is never aborted.
	step("scheduler", 0, a.sched.Stop)
	if a.sup != nil {
		step("supervisor", 2*time.Second, a.sup.Stop)
	}

	sent, failed := a.bc.Stats()
	a.log.Info("stopped",
		logx.Uint64("runs", a.sched.Runs()),
		logx.Uint64("skipped", a.sched.Skipped()),
		logx.Uint64("sent", sent),
		logx.Uint64("failed", failed),
	)
	if a.logs != nil {
		_ = a.logs.Close()
	}

	return errors.Join(errs...)
}
