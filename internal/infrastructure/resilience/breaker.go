package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen is returned without calling the upstream while the
	// breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when a half-open breaker already has
	// its probes in flight.
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateHalfOpen: "half-open",
	StateOpen:     "open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Settings configures a Breaker. Zero fields take the defaults noted.
type Settings struct {
	// MaxRequests is the number of probes admitted while half-open (1).
	MaxRequests uint32
	// Interval resets the closed-state counts (60s).
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing (60s).
	Timeout time.Duration
	// ReadyToTrip opens the breaker after a failure (more than 5 in a row).
	ReadyToTrip func(counts Counts) bool
	// IsFailure classifies call errors. Errors it rejects pass through
	// without counting against the upstream, e.g. a 4xx from a healthy API.
	IsFailure func(err error) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from State, to State)
}

func (s Settings) withDefaults() Settings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 1
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = time.Minute
	}
	if s.ReadyToTrip == nil {
		s.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures > 5 }
	}
	if s.IsFailure == nil {
		s.IsFailure = func(err error) bool { return err != nil }
	}
	return s
}

// Counts are the outcomes seen in the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Breaker guards calls to one upstream. It never retries: it only fails
// fast while the upstream is known to be down.
type Breaker struct {
	name     string
	settings Settings

	mu     sync.Mutex
	state  State
	counts Counts
	// window identifies the current counting period; outcomes reported for
	// an older window are ignored.
	window   uint64
	deadline time.Time
}

// New creates a breaker for the upstream called name.
func New(name string, settings Settings) *Breaker {
	b := &Breaker{name: name, settings: settings.withDefaults()}
	b.deadline = time.Now().Add(b.settings.Interval)
	return b
}

// Name returns the upstream name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, applying any transition that is due.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tick(time.Now())
	return b.state
}

// Counts returns a copy of the current window's counts.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute runs fn if the breaker admits it and records the outcome. A call
// abandoned because ctx ended is not held against the upstream.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	window, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.report(window, false)
			panic(r)
		}
	}()

	err = fn(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		b.abandon(window)
		return err
	}
	b.report(window, !b.settings.IsFailure(err))
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tick(time.Now())
	if b.state == StateOpen {
		return b.window, ErrCircuitOpen
	}
	if b.state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests {
		return b.window, ErrTooManyRequests
	}
	b.counts.Requests++
	return b.window, nil
}

func (b *Breaker) abandon(window uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tick(time.Now())
	if window == b.window && b.counts.Requests > 0 {
		b.counts.Requests--
	}
}

func (b *Breaker) report(window uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tick(now)
	if window != b.window {
		return
	}

	switch {
	case ok:
		b.counts.success()
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.moveTo(StateClosed, now)
		}
	case b.state == StateHalfOpen:
		b.moveTo(StateOpen, now)
	case b.state == StateClosed:
		b.counts.failure()
		if b.settings.ReadyToTrip(b.counts) {
			b.moveTo(StateOpen, now)
		}
	}
}

// tick applies time-driven changes: a closed window rolls over and an open
// breaker starts probing once its timeout passes.
func (b *Breaker) tick(now time.Time) {
	if b.deadline.IsZero() || now.Before(b.deadline) {
		return
	}
	switch b.state {
	case StateClosed:
		b.reset(now.Add(b.settings.Interval))
	case StateOpen:
		b.moveTo(StateHalfOpen, now)
	}
}

func (b *Breaker) moveTo(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	switch to {
	case StateClosed:
		b.reset(now.Add(b.settings.Interval))
	case StateOpen:
		b.reset(now.Add(b.settings.Timeout))
	case StateHalfOpen:
		b.reset(time.Time{})
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) reset(deadline time.Time) {
	b.window++
	b.counts = Counts{}
	b.deadline = deadline
}
