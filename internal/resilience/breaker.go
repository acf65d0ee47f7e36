// Package resilience isolates the analysis pipeline from a misbehaving
// event broker.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is cooling down and
// publishes are being rejected without touching the broker.
var ErrCircuitOpen = errors.New("event stream circuit open")

type phase int

const (
	phaseClosed phase = iota
	phaseCooling
	phaseTrial
)

// Breaker trips after a configured number of consecutive publish failures
// and rejects calls for a cooldown window. Once the window elapses calls
// are let through as trial calls: a trial success closes the breaker, a trial
// failure restarts the cooldown.
type Breaker struct {
	mu        sync.Mutex
	phase     phase
	strikes   int
	threshold int
	cooldown  time.Duration
	trippedAt time.Time
	clock     func() time.Time
}

// NewBreaker creates a closed breaker. Threshold and cooldown come from the
// nats section of the runtime config.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Do runs publish unless the breaker is cooling down, and feeds the outcome
// back into the trip state.
func (b *Breaker) Do(publish func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := publish()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.strike()
		return err
	}
	b.reset()
	return nil
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case phaseClosed, phaseTrial:
		return true
	case phaseCooling:
		if b.clock().Sub(b.trippedAt) >= b.cooldown {
			b.phase = phaseTrial
			return true
		}
	}
	return false
}

// strike must be called with b.mu held.
func (b *Breaker) strike() {
	b.strikes++
	if b.phase == phaseTrial || b.strikes >= b.threshold {
		b.phase = phaseCooling
		b.trippedAt = b.clock()
	}
}

// reset must be called with b.mu held.
func (b *Breaker) reset() {
	b.strikes = 0
	b.phase = phaseClosed
}
