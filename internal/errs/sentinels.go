// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
// Anything that does not match one of these is treated as an internal fault.
var (
	// ErrNotFound indicates the requested entity does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrMissingFields indicates a login attempt without username or password.
	ErrMissingFields = errors.New("missing username or password")

	// ErrInvalidCredentials indicates no user matches the supplied name and secret.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidSession indicates a session token that is tampered, expired or points to an unknown user.
	ErrInvalidSession = errors.New("invalid session")

	// ErrUnauthorized indicates a request without any session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidDescription indicates a todo description that is empty after trimming.
	ErrInvalidDescription = errors.New("invalid description")

	// ErrAlreadyComplete indicates a change to a todo that is already COMPLETE.
	ErrAlreadyComplete = errors.New("already complete")

	// ErrInvalidArgument indicates malformed ids or enum values.
	ErrInvalidArgument = errors.New("invalid argument")
)
