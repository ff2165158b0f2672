package settings

import (
	"log/slog"
	"sync"
	"time"
)

// Saver coalesces persist requests into a single delayed write. Mutating
// store operations call Request once each; a burst of mutations inside the
// interval produces one save. Flush forces a pending write out immediately
// (used at shutdown).
type Saver struct {
	interval time.Duration
	save     func() error

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// NewSaver creates a debounced saver. save runs on a timer goroutine; it
// must be safe to call from there.
func NewSaver(interval time.Duration, save func() error) *Saver {
	return &Saver{interval: interval, save: save}
}

// Request schedules a save after the debounce interval, extending the
// window if one is already scheduled.
func (s *Saver) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = true
	if s.timer != nil {
		s.timer.Reset(s.interval)
		return
	}
	s.timer = time.AfterFunc(s.interval, s.fire)
}

func (s *Saver) fire() {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.mu.Unlock()

	if err := s.save(); err != nil {
		slog.Error("saving favorites", "error", err)
	}
}

// Flush writes out any pending state immediately and stops the timer.
func (s *Saver) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	wasPending := s.pending
	s.pending = false
	s.mu.Unlock()

	if !wasPending {
		return nil
	}
	return s.save()
}
