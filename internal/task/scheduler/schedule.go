package scheduler

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// everySchedule fires at a constant delay after the previous activation.
// Unlike cron.Every it does not round to whole seconds.
type everySchedule struct {
	every time.Duration
}

func (s everySchedule) Next(t time.Time) time.Time { return t.Add(s.every) }

var _ cron.Schedule = everySchedule{}

// previewNext renders the next n activations after from.
func previewNext(sched cron.Schedule, from time.Time, n int) string {
	if sched == nil || n <= 0 {
		return ""
	}
	out := make([]string, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		out = append(out, t.Format(time.RFC3339))
	}
	return strings.Join(out, ", ")
}
