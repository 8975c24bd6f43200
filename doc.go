// Package goSession manages the client-side session of a Zyrax dashboard user: the
// stored token pair, transparent access-token refresh, and the state that gates routes.
//
// An [Engine] is built once per actor (admin or tutor) through [Builder]:
//
//	engine, err := goSession.New().
//		WithConfig(goSession.DefaultConfigFor(goSession.ActorTutor)).
//		WithStore(store).
//		Build()
//
// Call [Engine.Restore] at startup, then [Engine.Login] or [Engine.ForceLogin]. Calls
// made through [Engine.API] carry the access token; a 401 triggers one shared refresh
// and a single retry. When the refresh token is rejected the store is cleared and the
// redirect hook receives the login route.
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config] and value
// types. Token inspection lives in jwt, storage in session, the refresh exchange in
// refresh and the retrying round tripper in transport; each is usable on its own.
//
// # What this package must NOT do
//
//   - Log or audit token values.
//   - Route login or refresh calls through the authenticating transport.
//   - Import middleware or any package that re-imports goSession (no import cycles).
package goSession
