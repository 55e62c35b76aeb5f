package broadcast

import (
	"errors"
	"sync"
	"time"

	"verwatch/internal/notifier"
	logx "verwatch/pkg/logx"
)

type Config struct {
	// Concurrency caps simultaneous deliveries within one broadcast. Default 4.
	Concurrency int
}

// Result is the outcome for one recipient. Err is nil on success.
type Result struct {
	Recipient string
	Err       error
}

// Report describes one broadcast. Results follow the configured recipient order.
type Report struct {
	Kind    string
	Results []Result
	Started time.Time
	Took    time.Duration
}

func (r Report) Total() int { return len(r.Results) }

func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

func (r Report) Failed() int { return r.Total() - r.Succeeded() }

// Failures returns the recipients whose delivery failed, in order.
func (r Report) Failures() []string {
	var out []string
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Recipient)
		}
	}
	return out
}

// Err joins all per-recipient errors, or nil when every delivery succeeded.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Broadcaster fans one message out to a fixed recipient list.
type Broadcaster struct {
	cfg        Config
	notifier   notifier.Notifier
	recipients []string
	log        logx.Logger

	mu   sync.Mutex
	sent uint64
	fail uint64
}
