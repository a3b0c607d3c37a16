// Package throttle implements the link checker's per-host throttle (C6):
// per-host earliest-next-request timestamps plus adaptive min/max wait
// intervals, with an outer global-QPS cap layered on top (spec §4.6).
package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the floor/ceiling wait durations and the max-rated
// interval, all expressed in spec §4.6 terms.
type Config struct {
	// MinWait/MaxWait are the default floor/ceiling for hosts that have
	// not been marked max-rated.
	MinWait time.Duration
	MaxWait time.Duration
	// MaxReqPerSec sets the max-rated interval: 1/MaxReqPerSec and
	// 6/MaxReqPerSec (spec §4.6 step 3).
	MaxReqPerSec float64
	// GlobalRatePerSec, if > 0, caps the aggregate request rate across
	// every host (domain-stack addition, see SPEC_FULL.md §B).
	GlobalRatePerSec float64
}

func (c Config) normalize() Config {
	if c.MinWait <= 0 {
		c.MinWait = 100 * time.Millisecond
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 600 * time.Millisecond
	}
	if c.MaxReqPerSec <= 0 {
		c.MaxReqPerSec = 10
	}
	return c
}

// Throttle tracks per-host earliest-next-request times and an optional
// global rate limiter.
type Throttle struct {
	cfg Config

	mu       sync.Mutex // hosts_lock
	earliest map[string]time.Time
	maxRated map[string]bool

	global *rate.Limiter
}

// New creates a Throttle from cfg.
func New(cfg Config) *Throttle {
	cfg = cfg.normalize()
	t := &Throttle{
		cfg:      cfg,
		earliest: make(map[string]time.Time),
		maxRated: make(map[string]bool),
	}
	if cfg.GlobalRatePerSec > 0 {
		t.global = rate.NewLimiter(rate.Limit(cfg.GlobalRatePerSec), int(cfg.GlobalRatePerSec)+1)
	}
	return t
}

// WaitForHost blocks until it is this caller's turn to issue a request to
// host, per spec §4.6 steps 1-5. The lock is held only while the host's
// next slot is computed and reserved; it is released before the sleep and
// never held across a blocking network call (spec §5).
func (t *Throttle) WaitForHost(ctx context.Context, host string) error {
	if t.global != nil {
		if err := t.global.Wait(ctx); err != nil {
			return err
		}
	}

	t.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if earliest, ok := t.earliest[host]; ok && earliest.After(now) {
		wait = earliest.Sub(now)
	}
	minWait, maxWait := t.cfg.MinWait, t.cfg.MaxWait
	if t.maxRated[host] {
		minWait = time.Duration(float64(time.Second) / t.cfg.MaxReqPerSec)
		maxWait = time.Duration(6 * float64(time.Second) / t.cfg.MaxReqPerSec)
	}
	jitter := randomDuration(minWait, maxWait)
	t.earliest[host] = now.Add(wait).Add(jitter)
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetMaxRated marks host as cooperative (e.g. it echoed a LinkChecker:
// header), widening its wait interval back to the configured floor
// (spec §4.6, "set_maxrated"; GLOSSARY "Max-rated host").
func (t *Throttle) SetMaxRated(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxRated[host] = true
}

// IsMaxRated reports whether host has been marked max-rated.
func (t *Throttle) IsMaxRated(host string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxRated[host]
}

func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int64(max - min)
	return min + time.Duration(rand.Int63n(span))
}
