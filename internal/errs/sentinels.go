// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation
	// (e.g., name taken, grant already present).
	ErrAlreadyExists = errors.New("already exists")

	// ErrHasDependents indicates a delete blocked by referential integrity:
	// dependent rows must be removed first.
	ErrHasDependents = errors.New("has dependents")

	// ErrInvalidGrant indicates a role/procedure pair crossing API boundaries.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrIDExhausted indicates the access-id sequence has no values left.
	ErrIDExhausted = errors.New("access id space exhausted")

	// ErrUnauthorized indicates failed authentication or an IP-lock mismatch.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrMultiSession indicates a multi-session request against a single-session role.
	ErrMultiSession = errors.New("multiple sessions not allowed for role")
)
