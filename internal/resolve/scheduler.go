package resolve

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler owns the single outstanding resolve-retry timer for a
// coordinator. Arming always cancels the previous timer first, so at most one
// retry is ever pending, and every armed timer carries a token that the
// coordinator checks before acting on a fire. A fire that raced with a cancel
// presents a stale token and is ignored.
//
// The scheduler is owned exclusively by the coordinator's event loop and is
// not safe for concurrent use.
type Scheduler struct {
	clock clock.Clock
	fire  func(token uint64)
	timer *clock.Timer
	token uint64
	armed bool
}

// NewScheduler returns a scheduler that invokes fire with the armed token
// when a timer elapses. fire runs on the clock's timer goroutine and must
// only hand the token off, never act on it.
func NewScheduler(c clock.Clock, fire func(token uint64)) *Scheduler {
	return &Scheduler{clock: c, fire: fire}
}

// Arm cancels any pending timer and arms a new one for interval.
func (s *Scheduler) Arm(interval time.Duration) {
	s.Disarm()
	s.token++
	token := s.token
	s.armed = true
	s.timer = s.clock.AfterFunc(interval, func() { s.fire(token) })
}

// Disarm cancels and clears the pending timer, if any. Idempotent.
func (s *Scheduler) Disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
}

// Valid reports whether token belongs to the currently armed timer.
func (s *Scheduler) Valid(token uint64) bool {
	return s.armed && token == s.token
}

// Clear marks the armed timer as consumed after a valid fire.
func (s *Scheduler) Clear() {
	s.timer = nil
	s.armed = false
}
