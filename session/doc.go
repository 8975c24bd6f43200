// Package session persists the access/refresh token pair of a signed-in dashboard user.
//
// # Layout
//
// Each actor owns two string entries, named by [Keys]: admins use accessToken and
// refreshToken, tutors use tutorAccessToken and tutorRefreshToken. Absence of either entry
// means the actor is signed out.
//
// # Implementations
//
//   - [MemoryStore]: process-local, for tests and short-lived tools.
//   - [FileStore]: a JSON document on disk, the CLI default.
//   - [RedisStore]: shared storage for long-running consoles.
//
// All stores are safe for concurrent use. [Store.SetAccess] refuses to write an access
// token when no refresh token is stored, so a refresh that races a logout cannot resurrect
// half a session.
//
// # What this package must NOT do
//
//   - Decode tokens or decide whether they are expired.
//   - Perform network I/O other than talking to its own backend.
//   - Import goSession, jwt, refresh or transport.
package session
