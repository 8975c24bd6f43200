// Package middleware gates dashboard routes on the session state held by goSession.Engine.
//
// # Guards
//
//   - [Decide]: pure routing decision for a state and destination.
//   - [Guard]: HTTP adapter: waits while the session is being restored, redirects
//     to the login route, or renders.
//   - [NextDestination]: resolves the destination remembered across login.
//
// # Architecture boundaries
//
// This package translates session state into HTTP semantics. It does NOT establish
// sessions itself; state comes from a [StateSource], normally the Engine.
//
// # What this package must NOT do
//
//   - Read or write the session store.
//   - Parse tokens (the Engine owns token inspection).
//   - Redirect to anything but local absolute paths.
package middleware
