package refresh

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired is returned when the refresh token was rejected or could not be
	// exchanged. The session store has been cleared by the time it is returned.
	ErrSessionExpired = errors.New("session expired")
	// ErrMissingToken is returned without a network call when no refresh token is stored.
	// It matches ErrSessionExpired.
	ErrMissingToken = fmt.Errorf("%w: no refresh token stored", ErrSessionExpired)
)

// RejectedError carries the status code returned by a refresh endpoint that refused
// the token. It matches ErrSessionExpired.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("session expired: refresh rejected with status %d", e.StatusCode)
}

func (e *RejectedError) Unwrap() error {
	return ErrSessionExpired
}
