package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	logx "verwatch/pkg/logx"
)

// Config controls the trigger schedule.
type Config struct {
	// Schedule is the poll period: a duration ("1m"), HH:MM ("00:05") or
	// "@every 1m".
	Schedule string
	// Timeout bounds a single run. Zero means the job relies on its own
	// per-call timeouts.
	Timeout time.Duration
}

// Job is one unit of scheduled work. Errors are the job's own business;
// the scheduler only sees completion.
type Job func(ctx context.Context)

type Service struct {
	cfg    Config
	period Period
	sched  cron.Schedule
	job    Job
	log    logx.Logger
	onDone func()

	// running is the "cycle in progress" flag. It is the only thing
	// preventing two runs from overlapping.
	running atomic.Bool
	runs    atomic.Uint64
	skipped atomic.Uint64
	panics  atomic.Uint64

	mu        sync.Mutex
	c         *cron.Cron
	entryID   cron.EntryID
	baseCtx   context.Context
	started   bool
	stopped   bool
	lastStart time.Time
	lastTook  time.Duration
	inflight  sync.WaitGroup
}

// Snapshot is a point-in-time view for logs and status output.
type Snapshot struct {
	Schedule  string
	Every     time.Duration
	Next      time.Time
	Prev      time.Time
	Running   bool
	Runs      uint64
	Skipped   uint64
	Panics    uint64
	LastStart time.Time
	LastTook  time.Duration
}
