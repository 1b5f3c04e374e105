// Package ratelimit implements the in-memory request admission gates:
// a per-identity cooldown and a per-identity daily quota, combined by a
// Limiter that checks both and commits the counters in one atomic step.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Decision is the outcome of a Reserve call.
type Decision struct {
	Allowed bool
	// RetryAfterSeconds is set on cooldown rejections: the whole number
	// of seconds until the identity may try again, rounded up.
	RetryAfterSeconds int
	// DailyLimited is true when the rejection came from the daily quota.
	DailyLimited bool
}

// Limiter composes the cooldown and daily-quota gates behind a single
// mutex. Reserve evaluates both gates and, only if both admit, records
// the acceptance — so two concurrent requests can never both slip under
// the quota, and a rejected request never mutates any state.
type Limiter struct {
	mu       sync.Mutex
	cooldown *CooldownGate
	quota    *DailyQuotaGate
}

// New creates a Limiter with the given cooldown window and daily cap.
func New(cooldown time.Duration, maxPerDay int) *Limiter {
	return &Limiter{
		cooldown: NewCooldownGate(cooldown),
		quota:    NewDailyQuotaGate(maxPerDay),
	}
}

// Reserve admits or rejects one request from identity at now. On
// admission the cooldown timestamp and daily count are updated before
// returning; callers consult the answer cache only after reserving, so
// a cache hit still counts as activity.
func (l *Limiter) Reserve(identity string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if wait, ok := l.cooldown.Admit(identity, now); !ok {
		return Decision{RetryAfterSeconds: ceilSeconds(wait)}
	}
	if !l.quota.Admit(identity, now) {
		return Decision{DailyLimited: true}
	}

	l.cooldown.Record(identity, now)
	l.quota.Record(identity, now)
	return Decision{Allowed: true}
}

// Sweep prunes entries that can no longer affect any decision: cooldown
// timestamps past the window and quota counts from previous days. It
// returns the number of entries removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldown.Sweep(now) + l.quota.Sweep(now)
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
