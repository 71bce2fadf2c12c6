package infra

import (
	"time"
)

const (
	// maxBackoff caps the delay so a long outage never pushes retries
	// past a minute apart.
	maxBackoff = 60 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a given retry
// count: base * 2^retryCount, capped at maxBackoff.
// A non-positive base falls back to one second; a negative retryCount returns base.
func CalculateBackoff(base time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if retryCount <= 0 {
		return base
	}

	// 2^30 seconds already exceeds any sensible cap.
	if retryCount > 30 {
		return maxBackoff
	}

	backoff := base * time.Duration(1<<retryCount)

	if backoff > maxBackoff || backoff < base {
		return maxBackoff
	}

	return backoff
}
