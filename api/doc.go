// Package api builds resty clients for the Zyrax backend.
//
// Clients are assembled from [ClientOption] values in the order given. Authenticated
// clients route through a transport.Authenticator via [WithTransport]; the login and
// refresh endpoints use a plain client so their 401 responses are never retried.
package api
