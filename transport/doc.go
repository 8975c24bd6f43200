// Package transport attaches session credentials to outgoing API requests.
//
// [Authenticator] is an [net/http.RoundTripper]. Each request it sends moves through a
// small state machine:
//
//	Unsent --attach bearer--> Sent
//	Sent --401--> Refreshing --ok--> Retrying --> Done (response returned as-is)
//	Refreshing --failure--> Failed (store cleared, session-expired hook fired)
//	Sent --any other status--> Done
//
// A request is retried at most once. A 401 on the retried request is returned to the
// caller unchanged and never starts a second refresh, so an invalid refresh token that
// the backend has not yet rejected cannot loop.
//
// When the token that drew the 401 is no longer the stored one, another request has
// already refreshed it; the retry then uses the stored token without a new exchange.
package transport
