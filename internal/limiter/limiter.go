// Package limiter throttles authentication attempts per (user name, ip).
package limiter

import (
	"context"
	"time"
)

// Limiter controls authentication attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and an
	// optional retry-after.
	Allow(ctx context.Context, name string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful authentication.
	Success(ctx context.Context, name string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, name string, ipHash []byte) (bool, time.Duration, error)
}
