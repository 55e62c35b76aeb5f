package scheduler

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
	logx "verwatch/pkg/logx"
)

var ErrStarted = errors.New("scheduler already started")

func New(cfg Config, job Job, log logx.Logger) (*Service, error) {
	if job == nil {
		return nil, errors.New("job required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p, err := ParsePeriod(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:    cfg,
		period: p,
		sched:  everySchedule{every: p.Every},
		job:    job,
		log:    log.With(logx.String("comp", "scheduler")),
	}, nil
}

// OnCycleDone registers a hook called after every completed run.
// It must be set before Start.
func (s *Service) OnCycleDone(fn func()) { s.onDone = fn }

// Start runs the job once and returns only after that run completes, then
// starts periodic triggering. ctx cancellation does not reach the job; use
// Stop to end the schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrStarted
	}
	s.started = true
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	s.log.Info("initial run", logx.String("schedule", s.period.String()))
	s.trigger("startup")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.c = cron.New()
	s.entryID = s.c.Schedule(s.sched, cron.FuncJob(func() { s.trigger("tick") }))
	s.c.Start()

	s.log.Info("service started",
		logx.String("schedule", s.period.String()),
		logx.String("next", previewNext(s.sched, time.Now(), 3)),
	)
	return nil
}

// Stop ends triggering and waits for an in-flight run, bounded by ctx.
// It returns ctx.Err() if ctx expires first.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.log.Info("stop requested", logx.Bool("running", s.running.Load()))

	s.mu.Lock()
	s.stopped = true
	c := s.c
	s.c = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if c != nil {
			<-c.Stop().Done()
		}
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("stop timed out waiting for in-flight run", logx.Duration("took", time.Since(start)))
		return ctx.Err()
	}
	s.log.Info("service stopped",
		logx.Duration("took", time.Since(start)),
		logx.Uint64("runs", s.runs.Load()),
		logx.Uint64("skipped", s.skipped.Load()),
	)
	return nil
}

// Skipped is the number of triggers dropped because a run was in flight.
func (s *Service) Skipped() uint64 { return s.skipped.Load() }

// Runs is the number of completed runs, including the startup run.
func (s *Service) Runs() uint64 { return s.runs.Load() }

func (s *Service) trigger(reason string) {
	if !s.running.CompareAndSwap(false, true) {
		n := s.skipped.Add(1)
		s.log.Warn("trigger skipped, previous run still in progress", logx.String("reason", reason), logx.Uint64("skipped", n))
		return
	}
	defer s.running.Store(false)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	ctx := s.baseCtx
	s.mu.Unlock()
	defer s.inflight.Done()

	s.run(ctx, reason)
}

func (s *Service) run(ctx context.Context, reason string) {
	start := time.Now()
	s.mu.Lock()
	s.lastStart = start
	s.mu.Unlock()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.panics.Add(1)
				s.log.Error("job panic", logx.String("reason", reason), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		s.job(ctx)
	}()

	took := time.Since(start)
	s.mu.Lock()
	s.lastTook = took
	s.mu.Unlock()
	n := s.runs.Add(1)
	s.log.Debug("run finished", logx.String("reason", reason), logx.Uint64("run", n), logx.Duration("took", took))

	if s.onDone != nil {
		s.onDone()
	}
}
