package goSession

import (
	"errors"
	"strings"

	"github.com/zyraxfit/goSession/refresh"
	"github.com/zyraxfit/goSession/session"
)

var (
	// ErrSessionExpired is returned once the refresh token has been rejected. The
	// session store is empty by the time callers see it.
	ErrSessionExpired = refresh.ErrSessionExpired
	// ErrMissingToken is returned when a refresh was needed but no refresh token is
	// stored. It matches ErrSessionExpired.
	ErrMissingToken = refresh.ErrMissingToken
	// ErrStoreUnavailable wraps session store backend failures.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrNoTokens is returned by Login when the response lacks either token.
	ErrNoTokens = errors.New("no tokens received from server")
	// ErrDeviceLimit is matched by a LoginError whose message reports a device limit.
	ErrDeviceLimit = errors.New("device limit reached")
	// ErrLoginFailed is matched by every LoginError.
	ErrLoginFailed = errors.New("login failed")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

const defaultLoginFailureMessage = "Login failed. Please check your credentials."

// LoginError reports a login request the backend refused or that could not be sent.
type LoginError struct {
	// Message is the backend error or detail field, or a default message.
	Message string
	// StatusCode is zero when no response was received.
	StatusCode int
	// DeviceLimit is set when Message reports that the account's device limit was reached.
	DeviceLimit bool

	cause error
}

func newLoginError(message string, status int, cause error) *LoginError {
	if message == "" {
		message = defaultLoginFailureMessage
	}
	return &LoginError{
		Message:     message,
		StatusCode:  status,
		DeviceLimit: strings.Contains(strings.ToLower(message), "device limit"),
		cause:       cause,
	}
}

func (e *LoginError) Error() string {
	return e.Message
}

func (e *LoginError) Unwrap() []error {
	errs := []error{ErrLoginFailed}
	if e.DeviceLimit {
		errs = append(errs, ErrDeviceLimit)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}
