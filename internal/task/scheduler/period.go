package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Period is a fixed poll period and the notation it was written in.
//
// Accepted notations:
//   - Go duration: "1m", "30s", "2h30m"
//   - HH:MM: "00:05" (5 minutes), "02:30"
//   - cron descriptor: "@every 1m"
//
// "every:" and "interval:" prefixes are allowed in front of the first two.
// Calendar cron specs ("0 9 * * *", "@daily") are rejected: they fire at
// wall-clock times, not at a constant delay.
type Period struct {
	Every  time.Duration
	Source string // "duration" | "hhmm" | "every"
}

var ErrNotPeriodic = errors.New("schedule has no fixed period")

var hhmm = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)

// descriptorParser only understands "@..." descriptors. It is used to read
// "@every <d>" the way robfig/cron does.
var descriptorParser = cron.NewParser(cron.Descriptor)

func ParsePeriod(raw string) (Period, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Period{}, errors.New("schedule required")
	}
	low := strings.ToLower(s)
	for _, prefix := range []string{"every:", "interval:"} {
		if strings.HasPrefix(low, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			if s == "" {
				return Period{}, fmt.Errorf("interval required after %q", prefix)
			}
			return parseInterval(s)
		}
	}
	if strings.HasPrefix(s, "@") {
		return parseDescriptor(s)
	}
	if strings.ContainsAny(s, " \t") {
		return Period{}, fmt.Errorf("%w: %q (use a duration like '1m', HH:MM or '@every 1m')", ErrNotPeriodic, raw)
	}
	return parseInterval(s)
}

func parseInterval(s string) (Period, error) {
	if m := hhmm.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return Period{}, fmt.Errorf("invalid minutes in %q", s)
		}
		return positive(time.Duration(h)*time.Hour+time.Duration(mm)*time.Minute, "hhmm")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid interval %q (use HH:MM or a Go duration like '1m'/'2h30m')", s)
	}
	return positive(d, "duration")
}

func parseDescriptor(s string) (Period, error) {
	sched, err := descriptorParser.Parse(s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid schedule %q: %w", s, err)
	}
	cd, ok := sched.(cron.ConstantDelaySchedule)
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrNotPeriodic, s)
	}
	return positive(cd.Delay, "every")
}

func positive(d time.Duration, src string) (Period, error) {
	if d <= 0 {
		return Period{}, errors.New("interval must be > 0")
	}
	return Period{Every: d, Source: src}, nil
}

// String renders the period in a form ParsePeriod accepts.
func (p Period) String() string { return "every:" + p.Every.String() }
