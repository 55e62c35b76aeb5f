package watch

import (
	"fmt"
	"time"
)

// Date is a UTC calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

// After reports whether d is a later calendar date than o.
func (d Date) After(o Date) bool {
	if d.Year != o.Year {
		return d.Year > o.Year
	}
	if d.Month != o.Month {
		return d.Month > o.Month
	}
	return d.Day > o.Day
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// State is the last confirmed version and the last heartbeat date.
// It is owned by a single Cycle and is not safe for concurrent use; the
// scheduler never runs two cycles at once.
type State struct {
	version      string
	hasVersion   bool
	heartbeat    Date
	hasHeartbeat bool
}

// StateSnapshot is a copy of State for logs and tests.
type StateSnapshot struct {
	Version      string
	HasVersion   bool
	Heartbeat    Date
	HasHeartbeat bool
}

func (s *State) Snapshot() StateSnapshot {
	return StateSnapshot{
		Version:      s.version,
		HasVersion:   s.hasVersion,
		Heartbeat:    s.heartbeat,
		HasHeartbeat: s.hasHeartbeat,
	}
}

// Version returns the last confirmed version, if any.
func (s *State) Version() (string, bool) { return s.version, s.hasVersion }

// observe records v and returns the previous version. Empty tokens are
// ignored; the stored version is never cleared.
func (s *State) observe(v string) (prev string, hadPrev bool, changed bool) {
	prev, hadPrev = s.version, s.hasVersion
	if v == "" {
		return prev, hadPrev, false
	}
	if hadPrev && prev == v {
		return prev, hadPrev, false
	}
	s.version, s.hasVersion = v, true
	return prev, hadPrev, true
}

// heartbeatDue reports whether today is later than the stored heartbeat date.
func (s *State) heartbeatDue(today Date) bool {
	return !s.hasHeartbeat || today.After(s.heartbeat)
}

// markHeartbeat stores today unless it would move the date backwards.
func (s *State) markHeartbeat(today Date) {
	if s.hasHeartbeat && !today.After(s.heartbeat) {
		return
	}
	s.heartbeat, s.hasHeartbeat = today, true
}
