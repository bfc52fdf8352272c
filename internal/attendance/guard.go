package attendance

import (
	"sync"
	"time"
)

// Guard suppresses repeated attendance actions for a continuously
// recognized employee. It gates attendance mutations only; presence
// tracking is never routed through it.
type Guard struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewGuard creates an empty cooldown guard.
func NewGuard() *Guard {
	return &Guard{last: make(map[string]time.Time)}
}

// Allow reports whether an attendance action for the employee may proceed
// at the given instant. The first call within a cooldown window records the
// instant and passes; later calls inside the window are denied and leave
// the recorded instant untouched.
func (g *Guard) Allow(employeeKey string, now time.Time, cooldown time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[employeeKey]; ok && now.Sub(last) < cooldown {
		return false
	}

	g.last[employeeKey] = now
	return true
}

// Remaining returns how long the employee stays gated at the given instant.
// Zero means the next Allow call passes.
func (g *Guard) Remaining(employeeKey string, now time.Time, cooldown time.Duration) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[employeeKey]
	if !ok {
		return 0
	}
	left := cooldown - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}

// Reset clears the employee's cooldown, letting the next action through.
func (g *Guard) Reset(employeeKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, employeeKey)
}
