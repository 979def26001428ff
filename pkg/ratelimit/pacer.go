package ratelimit

import "time"

// Pacer inserts a fixed delay after every remote mutation, keeping the
// write rate under the remote API's budget regardless of observed
// throttling. This is proactive pacing, distinct from the reactive backoff
// in the retry policy.
type Pacer struct {
	delay time.Duration
	sleep func(time.Duration)
}

// NewPacer creates a pacer with the given post-write delay
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, sleep: time.Sleep}
}

// NewPacerWithSleep creates a pacer with a custom sleep function (tests)
func NewPacerWithSleep(delay time.Duration, sleep func(time.Duration)) *Pacer {
	return &Pacer{delay: delay, sleep: sleep}
}

// Pace blocks for the configured delay
func (p *Pacer) Pace() {
	if p.delay <= 0 {
		return
	}
	p.sleep(p.delay)
}

// Delay returns the configured pacing delay
func (p *Pacer) Delay() time.Duration {
	return p.delay
}
