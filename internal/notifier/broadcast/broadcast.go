package broadcast

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"verwatch/internal/notifier"
	logx "verwatch/pkg/logx"
)

// New copies recipients; the list does not change afterwards.
func New(cfg Config, n notifier.Notifier, recipients []string, log logx.Logger) *Broadcaster {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Broadcaster{
		cfg:        cfg,
		notifier:   n,
		recipients: append([]string(nil), recipients...),
		log:        log,
	}
}

// Recipients returns a copy of the configured recipient list.
func (b *Broadcaster) Recipients() []string { return append([]string(nil), b.recipients...) }

// Broadcast sends text to every recipient and waits for all deliveries.
// A failing recipient never stops delivery to the others; failures are
// recorded in the report and logged, not returned.
func (b *Broadcaster) Broadcast(ctx context.Context, kind, text string) Report {
	start := time.Now()
	rep := Report{Kind: kind, Started: start, Results: make([]Result, len(b.recipients))}

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for i, rcpt := range b.recipients {
		i, rcpt := i, rcpt
		rep.Results[i].Recipient = rcpt
		g.Go(func() error {
			// Each goroutine owns its own slot; nothing else is shared.
			rep.Results[i].Err = b.sendOne(ctx, kind, rcpt, text)
			return nil
		})
	}
	_ = g.Wait()
	rep.Took = time.Since(start)

	b.record(rep)
	fields := []logx.Field{
		logx.String("kind", kind),
		logx.Int("total", rep.Total()),
		logx.Int("failed", rep.Failed()),
		logx.Duration("dur", rep.Took),
	}
	if rep.Failed() > 0 {
		b.log.Warn("broadcast finished with failures", append(fields, logx.Strings("failures", rep.Failures()))...)
	} else {
		b.log.Info("broadcast finished", fields...)
	}
	return rep
}

// Stats returns lifetime delivery counters.
func (b *Broadcaster) Stats() (sent, failed uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent, b.fail
}

func (b *Broadcaster) record(rep Report) {
	b.mu.Lock()
	b.sent += uint64(rep.Succeeded())
	b.fail += uint64(rep.Failed())
	b.mu.Unlock()
}
