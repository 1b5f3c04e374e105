package ratelimit

import "time"

// CooldownGate enforces a minimum spacing between accepted requests from
// the same identity. It is not safe for concurrent use on its own; the
// Limiter serializes access so the check and the later Record happen
// inside one critical section.
type CooldownGate struct {
	window time.Duration
	last   map[string]time.Time
}

// NewCooldownGate creates a gate with the given minimum spacing.
func NewCooldownGate(window time.Duration) *CooldownGate {
	return &CooldownGate{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Admit reports whether the identity may proceed at now. When denied it
// returns the remaining wait. Admit has no side effects.
func (g *CooldownGate) Admit(identity string, now time.Time) (time.Duration, bool) {
	last, ok := g.last[identity]
	if !ok {
		return 0, true
	}
	elapsed := now.Sub(last)
	if elapsed < g.window {
		return g.window - elapsed, false
	}
	return 0, true
}

// Record marks now as the identity's last accepted request.
func (g *CooldownGate) Record(identity string, now time.Time) {
	g.last[identity] = now
}

// Sweep drops entries whose cooldown has long expired and returns how
// many were removed. Entries older than the window can no longer affect
// any admission decision.
func (g *CooldownGate) Sweep(now time.Time) int {
	removed := 0
	for id, last := range g.last {
		if now.Sub(last) >= g.window {
			delete(g.last, id)
			removed++
		}
	}
	return removed
}
