// Package watch runs one poll of the monitored resource: fetch, extract,
// compare against the last known version, notify, and send the daily
// heartbeat.
package watch

import (
	"context"
	"errors"
	"time"

	"verwatch/internal/fetch"
	"verwatch/internal/notifier/broadcast"
	logx "verwatch/pkg/logx"
)

// Extractor finds the version token in fetched text.
type Extractor interface {
	Extract(text string) (string, bool)
}

// Broadcaster delivers one message to every recipient and waits for all of them.
type Broadcaster interface {
	Broadcast(ctx context.Context, kind, text string) broadcast.Report
}

// ErrNoVersion is the extraction miss. It is never broadcast.
var ErrNoVersion = errors.New("version token not found")

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFetching   Phase = "fetching"
	PhaseExtracting Phase = "extracting"
	PhaseComparing  Phase = "comparing"
	PhaseNotifying  Phase = "notifying"
)

type Outcome string

const (
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeExtractMiss Outcome = "extract_miss"
	OutcomeInitial     Outcome = "initial"
	OutcomeChanged     Outcome = "changed"
	OutcomeUnchanged   Outcome = "unchanged"
)

// Result summarizes one Run.
type Result struct {
	Outcome       Outcome
	Version       string
	Previous      string
	HeartbeatSent bool
	Err           error
	Took          time.Duration
}

type Config struct {
	// Resource is the URL of the monitored page.
	Resource string
	// Label names the monitored thing in every message.
	Label string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Cycle owns the version state. Run must not be called concurrently.
type Cycle struct {
	cfg   Config
	fetch fetch.Fetcher
	ext   Extractor
	bc    Broadcaster
	log   logx.Logger

	state State
}

func NewCycle(cfg Config, f fetch.Fetcher, x Extractor, b Broadcaster, log logx.Logger) *Cycle {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Label == "" {
		cfg.Label = cfg.Resource
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Cycle{
		cfg:   cfg,
		fetch: f,
		ext:   x,
		bc:    b,
		log:   log.With(logx.String("comp", "watch")),
	}
}

// State returns a copy of the current version state.
func (c *Cycle) State() StateSnapshot { return c.state.Snapshot() }

func (c *Cycle) enter(p Phase) {
	c.log.Debug("cycle phase", logx.String("phase", string(p)))
}

// Run performs one poll. It never returns an error: failures are reported
// in the Result, logged, and (for fetch failures) broadcast.
func (c *Cycle) Run(ctx context.Context) Result {
	start := c.cfg.Now()
	res := c.run(ctx)
	res.Took = c.cfg.Now().Sub(start)
	c.enter(PhaseIdle)
	return res
}

func (c *Cycle) run(ctx context.Context) Result {
	c.enter(PhaseFetching)
	text, err := c.fetch.Fetch(ctx, c.cfg.Resource)
	if err != nil {
		c.log.Error("fetch failed", logx.String("resource", c.cfg.Resource), logx.Err(err))
		c.enter(PhaseNotifying)
		c.bc.Broadcast(ctx, KindError, errorMessage(c.cfg.Label, err))
		return Result{Outcome: OutcomeFetchFailed, Err: err}
	}

	c.enter(PhaseExtracting)
	version, ok := c.ext.Extract(text)
	if !ok {
		c.log.Warn("version not found in page", logx.String("resource", c.cfg.Resource), logx.Int("bytes", len(text)))
		return Result{Outcome: OutcomeExtractMiss, Err: ErrNoVersion}
	}

	c.enter(PhaseComparing)
	prev, hadPrev, changed := c.state.observe(version)
	res := Result{Version: version, Previous: prev}
	switch {
	case !hadPrev:
		res.Outcome = OutcomeInitial
		c.log.Info("initial version", logx.String("version", version))
		c.enter(PhaseNotifying)
		c.bc.Broadcast(ctx, KindInitial, initialMessage(c.cfg.Label, version))
	case changed:
		res.Outcome = OutcomeChanged
		c.log.Info("version changed", logx.String("old", prev), logx.String("new", version))
		c.enter(PhaseNotifying)
		c.bc.Broadcast(ctx, KindChanged, changedMessage(c.cfg.Label, prev, version))
	default:
		res.Outcome = OutcomeUnchanged
		c.log.Info("no version change", logx.String("version", version))
	}

	res.HeartbeatSent = c.heartbeat(ctx)
	return res
}

func (c *Cycle) heartbeat(ctx context.Context) bool {
	today := DateOf(c.cfg.Now())
	if !c.state.heartbeatDue(today) {
		return false
	}
	c.enter(PhaseNotifying)
	v, ok := c.state.Version()
	c.bc.Broadcast(ctx, KindHeartbeat, heartbeatMessage(c.cfg.Label, v, ok, today))
	c.state.markHeartbeat(today)
	c.log.Info("heartbeat sent", logx.String("date", today.String()))
	return true
}
