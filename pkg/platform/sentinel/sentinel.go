package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: row or session does not exist
//   - ErrAlreadyUsed: a unique key (username) is already taken
//   - ErrExpired: session is past its absolute lifetime
//   - ErrUnavailable: backing store cannot be reached
//   - ErrStale: a conditional update matched no row in the expected state
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
	ErrStale       = errors.New("stale state")
)
