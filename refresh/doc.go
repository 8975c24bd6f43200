// Package refresh exchanges a stored refresh token for a new access token.
//
// # Contract
//
// [Coordinator.Refresh] reads the refresh token from the session store and, when one is
// present, issues a single POST carrying it. A successful response writes the new access
// token back into the store; the refresh token is left untouched because the backend
// rotates access tokens only. Any failure clears both tokens before returning
// [ErrSessionExpired], so later calls never replay a refresh token known to be bad.
//
// Concurrent callers share one in-flight exchange. Each exchange is bounded by the
// configured timeout regardless of the callers' contexts.
//
// # What this package must NOT do
//
//   - Retry an exchange. Retry policy belongs to the caller.
//   - Attach credentials to arbitrary requests (see package transport).
//   - Import goSession.
package refresh
