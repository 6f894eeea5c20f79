package collect

import "time"

// backoffState is the long-lived per-source rate-limit state. It is owned by
// the Orchestrator and only read or written at adapter-call boundaries, one
// adapter task per source per cycle, so no locking is needed beyond the
// orchestrator's own mutex.
type backoffState struct {
	failures    int
	nextAttempt time.Time
	disabled    bool // permanent failure, source stays off for this run
}

// suspended reports whether the source must be skipped at the given time
func (b *backoffState) suspended(now time.Time) bool {
	return b.disabled || now.Before(b.nextAttempt)
}

// recordSuccess resets the backoff after a successful fetch
func (b *backoffState) recordSuccess() {
	b.failures = 0
	b.nextAttempt = time.Time{}
}

// recordFailure schedules the next attempt with capped exponential backoff
func (b *backoffState) recordFailure(now time.Time, base, cap time.Duration) {
	delay := base << b.failures
	if delay > cap || delay <= 0 {
		delay = cap
	}
	b.failures++
	b.nextAttempt = now.Add(delay)
}

// recordRateLimit suspends the source until the adapter-declared retry time
func (b *backoffState) recordRateLimit(now time.Time, retryAfter, cap time.Duration) {
	if retryAfter <= 0 || retryAfter > cap {
		retryAfter = cap
	}
	b.failures++
	b.nextAttempt = now.Add(retryAfter)
}

// recordPermanentFailure disables the source for the remainder of the run
func (b *backoffState) recordPermanentFailure() {
	b.disabled = true
}
