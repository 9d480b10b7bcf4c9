package core

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Clock abstracts the passage of time so that waits can be driven by tests
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

// SystemClock returns a Clock backed by the time package
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// RetryPolicy decides how long to wait between attempts and when to give up.
// Delays are deterministic given the attempt count, except for the optional jitter.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts uint
	// MaxElapsed is the wall time after which a submission is abandoned. Zero disables the limit.
	MaxElapsed time.Duration
	// Jitter is the upper bound of a random delay added before a resubmission
	Jitter time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRetryPolicy returns a policy configured from the relay config
func NewRetryPolicy(cfg RelayConfig) *RetryPolicy {
	return &RetryPolicy{
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		MaxAttempts: cfg.RetryMaxAttempts,
		MaxElapsed:  cfg.RetryMaxElapsed,
		Jitter:      cfg.SubmitDelayJitter,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextDelay returns the backoff before the attempt following `attempt` failed attempts:
// BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p *RetryPolicy) NextDelay(attempt uint) time.Duration {
	if attempt == 0 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := uint(1); i < attempt; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// ShouldAbandon reports whether a submission that failed `attempt` times over `elapsed` should be given up
func (p *RetryPolicy) ShouldAbandon(attempt uint, elapsed time.Duration) bool {
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		return true
	}
	return p.MaxElapsed > 0 && elapsed >= p.MaxElapsed
}

// JitterDelay returns a random duration in [0, Jitter)
func (p *RetryPolicy) JitterDelay() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(p.rnd.Int63n(int64(p.Jitter)))
}
