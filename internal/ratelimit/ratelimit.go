package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scope identifies which ceiling a check is counted against.
type Scope string

const (
	ScopeRecipient Scope = "recipient"
	ScopeGlobal    Scope = "global"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

type limit struct {
	ceiling int
	window  time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks send counts against fixed time windows per (scope, key).
// Windows are fixed, not sliding: a burst can occur around a window boundary.
// That is accepted behavior, traded for O(1) state per key.
type Limiter struct {
	mu      sync.Mutex
	limits  map[Scope]limit
	windows map[string]*window
	now     func() time.Time
}

// New builds a Limiter with per-recipient and process-global ceilings.
func New(recipientLimit int, recipientWindow time.Duration, globalLimit int, globalWindow time.Duration) *Limiter {
	return &Limiter{
		limits: map[Scope]limit{
			ScopeRecipient: {ceiling: recipientLimit, window: recipientWindow},
			ScopeGlobal:    {ceiling: globalLimit, window: globalWindow},
		},
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check admits or rejects one request against the scope's window for key.
// Admission increments the window count; rejection does not. Rejected callers
// get ResetAt so they can report a retry-after time.
func (l *Limiter) Check(scope Scope, key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limits[scope]
	if !ok || lim.ceiling <= 0 {
		// Unknown or disabled scope admits everything.
		return Decision{Allowed: true, Remaining: 1, Limit: 0}
	}

	now := l.now()
	k := windowKey(scope, key)
	w, exists := l.windows[k]
	if !exists || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(lim.window)}
		l.windows[k] = w
		return Decision{Allowed: true, Remaining: lim.ceiling - 1, Limit: lim.ceiling, ResetAt: w.resetAt}
	}

	if w.count >= lim.ceiling {
		return Decision{Allowed: false, Remaining: 0, Limit: lim.ceiling, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{Allowed: true, Remaining: lim.ceiling - w.count, Limit: lim.ceiling, ResetAt: w.resetAt}
}

// Sweep removes expired windows and returns how many were dropped.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
			dropped++
		}
	}
	return dropped
}

// StartSweeper runs Sweep on a ticker until ctx is cancelled, bounding memory
// growth from one-off recipient keys.
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration, logger *logrus.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := l.Sweep(); n > 0 {
					logger.Debugf("rate limiter sweep dropped %d expired windows", n)
				}
			}
		}
	}()
}

func windowKey(scope Scope, key string) string {
	return fmt.Sprintf("%s:%s", scope, key)
}
