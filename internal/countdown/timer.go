package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Urgency tiers, classified by whole remaining minutes.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"   // more than 15 minutes left
	UrgencyWarning  Urgency = "warning"  // 5 to 15 minutes
	UrgencyCritical Urgency = "critical" // 5 minutes or less, not yet expired
	UrgencyExpired  Urgency = "expired"  // terminal
)

// Clock abstracts wall time so tests can drive the countdown
// deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
func SystemClock() Clock { return systemClock{} }

// Snapshot is one evaluation of the countdown.
type Snapshot struct {
	Remaining time.Duration
	Urgency   Urgency
	Display   string
}

// Timer counts down to an absolute payment-session deadline. The expiry
// callback fires exactly once per Timer, no matter how many times the
// remaining time is recomputed after it hits zero.
type Timer struct {
	clock     Clock
	expiresAt time.Time
	onExpired func()

	mu      sync.Mutex
	fired   bool
	stop    chan struct{}
	stopped bool
}

// New builds a timer for the given deadline. If the deadline is already in
// the past the timer starts expired and the callback fires immediately,
// within this call.
func New(expiresAt time.Time, onExpired func()) *Timer {
	return NewWithClock(expiresAt, onExpired, SystemClock())
}

func NewWithClock(expiresAt time.Time, onExpired func(), clock Clock) *Timer {
	t := &Timer{
		clock:     clock,
		expiresAt: expiresAt,
		onExpired: onExpired,
		stop:      make(chan struct{}),
	}
	t.Evaluate()
	return t
}

// Evaluate recomputes the remaining time and urgency. Safe to call from any
// goroutine and after expiry.
func (t *Timer) Evaluate() Snapshot {
	remaining := t.expiresAt.Sub(t.clock.Now())
	if remaining <= 0 {
		t.latchExpiry()
		return Snapshot{Remaining: 0, Urgency: UrgencyExpired, Display: "0s"}
	}

	return Snapshot{
		Remaining: remaining,
		Urgency:   classify(remaining),
		Display:   FormatRemaining(remaining),
	}
}

// Expired reports whether the deadline has passed.
func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Run re-evaluates on a fixed one-second tick until the timer expires, the
// context is cancelled or Stop is called.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			if snap := t.Evaluate(); snap.Urgency == UrgencyExpired {
				return
			}
		}
	}
}

// Stop halts the tick loop. The expiry latch survives Stop: a stopped timer
// that was already expired stays expired.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.stop)
	}
}

func (t *Timer) latchExpiry() {
	t.mu.Lock()
	if t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	cb := t.onExpired
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func classify(remaining time.Duration) Urgency {
	minutes := int(remaining.Minutes())
	switch {
	case minutes > 15:
		return UrgencyNormal
	case minutes >= 5:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

// FormatRemaining renders a duration with leading zero units dropped:
// "1h 5m 3s", "5m 3s", "45s".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
