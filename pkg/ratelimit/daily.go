package ratelimit

import "time"

// day is a calendar date in the process's local time zone.
type day struct {
	year  int
	month time.Month
	dom   int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{year: y, month: m, dom: d}
}

type dayCount struct {
	date  day
	count int
}

// resetIfStale returns the effective count for today given a stored
// (date, count) pair: a count recorded on an earlier day resets to zero
// at the day boundary, without any background sweep.
func resetIfStale(stored day, today day, count int) int {
	if stored != today {
		return 0
	}
	return count
}

// DailyQuotaGate enforces a maximum count of accepted requests per
// identity per calendar day. Like CooldownGate it carries no lock of its
// own; the Limiter owns the critical section.
type DailyQuotaGate struct {
	max    int
	counts map[string]dayCount
}

// NewDailyQuotaGate creates a gate allowing max accepted requests per day.
func NewDailyQuotaGate(max int) *DailyQuotaGate {
	return &DailyQuotaGate{
		max:    max,
		counts: make(map[string]dayCount),
	}
}

// Admit reports whether the identity is under its quota for the day
// containing now. Admit has no side effects; day rollover is applied
// on read via resetIfStale.
func (g *DailyQuotaGate) Admit(identity string, now time.Time) bool {
	today := dayOf(now)
	stored := g.counts[identity]
	return resetIfStale(stored.date, today, stored.count) < g.max
}

// Record counts one accepted request for the identity against the day
// containing now.
func (g *DailyQuotaGate) Record(identity string, now time.Time) {
	today := dayOf(now)
	stored := g.counts[identity]
	g.counts[identity] = dayCount{
		date:  today,
		count: resetIfStale(stored.date, today, stored.count) + 1,
	}
}

// Count returns the identity's accepted-request count for the day
// containing now.
func (g *DailyQuotaGate) Count(identity string, now time.Time) int {
	stored := g.counts[identity]
	return resetIfStale(stored.date, dayOf(now), stored.count)
}

// Sweep drops entries from previous days and returns how many were
// removed.
func (g *DailyQuotaGate) Sweep(now time.Time) int {
	today := dayOf(now)
	removed := 0
	for id, stored := range g.counts {
		if stored.date != today {
			delete(g.counts, id)
			removed++
		}
	}
	return removed
}
