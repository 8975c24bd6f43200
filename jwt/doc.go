// Package jwt reads and issues the access/refresh tokens exchanged with the Zyrax API.
//
// # Inspection
//
// [Inspect] and [IsExpired] decode the payload segment of a token without verifying its
// signature. The client never holds the signing key, so expiry is the only claim it can
// act on. Decode failures are reported by Inspect and absorbed by IsExpired, which treats
// any unreadable token as expired.
//
// # Issuing
//
// [Manager] signs and verifies tokens with a shared key. It backs the mock API used in
// examples and tests; production tokens are minted by the backend.
//
// # What this package must NOT do
//
//   - Access the session store or perform network I/O.
//   - Import goSession or any sibling package.
package jwt
