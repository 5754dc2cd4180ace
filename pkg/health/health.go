// Package health tracks the availability of the services a storefront
// session depends on.
//
// Checks can be run once, or periodically in the background. Periodic checks
// use failure/success thresholds to avoid flapping: a check must fail
// failureThreshold times in a row before it is reported unhealthy, and
// succeed successThreshold times before it is reported healthy again.
package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Default thresholds of periodic checks.
const (
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 1
)

// CheckFunc returns nil if the checked service is available.
type CheckFunc func(ctx context.Context) error

// Result is the state of a single check.
type Result struct {
	Name    string
	Healthy bool
	// Err is the error of the last run, if any.
	Err error
}

// check holds the configuration and runtime state of a single check.
//
// run is called from exactly one goroutine, so the counters need no
// synchronization. healthy and lastErr are read from arbitrary goroutines.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (c *check) result() Result {
	r := Result{Name: c.name, Healthy: c.healthy.Load()}
	if p := c.lastErr.Load(); p != nil {
		r.Err = *p
	}
	return r
}

func (c *check) exec(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.fn(ctx)
}

// run executes the check once and reports whether the healthy state flipped.
func (c *check) run(ctx context.Context) (changed bool) {
	err := c.exec(ctx)
	c.lastErr.Store(&err)

	was := c.healthy.Load()
	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.consecutiveFails = 0
		c.consecutiveOK++
		if c.consecutiveOK >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
	return was != c.healthy.Load()
}

// Checker runs a set of named checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []*check
	onChange func(Result)
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates an empty Checker.
func New() *Checker {
	return &Checker{}
}

// Add registers a check with the default thresholds. Checks start healthy.
func (h *Checker) Add(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &check{
		name:             name,
		timeout:          timeout,
		fn:               fn,
		failureThreshold: DefaultFailureThreshold,
		successThreshold: DefaultSuccessThreshold,
	}
	c.healthy.Store(true)
	h.checks = append(h.checks, c)
}

// OnChange sets fn to be called from the checking goroutine whenever a
// periodic check becomes healthy or unhealthy. It must be set before Start.
func (h *Checker) OnChange(fn func(Result)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// CheckOnce runs every check concurrently and returns their results in
// registration order. Thresholds do not apply: a check that fails is
// reported unhealthy.
func (h *Checker) CheckOnce(ctx context.Context) []Result {
	checks := h.snapshot()
	results := make([]Result, len(checks))

	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.exec(ctx)
			results[i] = Result{Name: c.name, Healthy: err == nil, Err: err}
		}()
	}
	wg.Wait()
	return results
}

// Start runs every check in its own goroutine, immediately and then at the
// given interval, until ctx is done or Stop is called.
func (h *Checker) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	onChange := h.onChange
	checks := append([]*check(nil), h.checks...)
	h.mu.Unlock()

	for _, c := range checks {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			runCheck(ctx, c, interval, onChange)
		}()
	}
}

func runCheck(ctx context.Context, c *check, interval time.Duration, onChange func(Result)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.run(ctx) && onChange != nil && ctx.Err() == nil {
			onChange(c.result())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Healthy reports whether all checks are currently healthy.
func (h *Checker) Healthy() bool {
	for _, c := range h.snapshot() {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

// Results returns the current state of every check.
func (h *Checker) Results() []Result {
	checks := h.snapshot()
	out := make([]Result, 0, len(checks))
	for _, c := range checks {
		out = append(out, c.result())
	}
	return out
}

// Stop cancels the background checks and waits for them to return. It is
// safe to call Stop multiple times.
func (h *Checker) Stop() {
	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *Checker) snapshot() []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*check(nil), h.checks...)
}
