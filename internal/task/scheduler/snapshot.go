package scheduler

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	c := s.c
	id := s.entryID
	lastStart := s.lastStart
	lastTook := s.lastTook
	s.mu.Unlock()

	snap := Snapshot{
		Schedule:  s.period.String(),
		Every:     s.period.Every,
		Running:   s.running.Load(),
		Runs:      s.runs.Load(),
		Skipped:   s.skipped.Load(),
		Panics:    s.panics.Load(),
		LastStart: lastStart,
		LastTook:  lastTook,
	}
	if c != nil && id != 0 {
		e := c.Entry(id)
		snap.Next = e.Next
		snap.Prev = e.Prev
	}
	return snap
}
