package sessions

import "errors"

var (
	// ErrNotFound means the session id does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrValidation rejects a request before any write.
	ErrValidation = errors.New("validation failed")
	// ErrNotProvisioned means the owning influencer may not broadcast: the
	// streaming gate is disabled or the broadcaster pair is missing. Callers
	// should route the user to request provisioning, not retry.
	ErrNotProvisioned = errors.New("streaming not provisioned")
	// ErrIllegalTransition rejects an event the current status does not accept.
	// The session state is unchanged.
	ErrIllegalTransition = errors.New("illegal session transition")
)
