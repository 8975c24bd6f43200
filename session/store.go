package session

import (
	"context"
	"errors"
)

var (
	// ErrNoSession is returned by SetAccess when no refresh token is stored.
	ErrNoSession = errors.New("no session stored")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// TokenPair is the credential pair issued by the login endpoint.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both tokens are present.
func (p TokenPair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Keys names the two storage entries of one actor.
type Keys struct {
	Access  string
	Refresh string
}

var (
	AdminKeys = Keys{Access: "accessToken", Refresh: "refreshToken"}
	TutorKeys = Keys{Access: "tutorAccessToken", Refresh: "tutorRefreshToken"}
)

func (k Keys) valid() bool {
	return k.Access != "" && k.Refresh != "" && k.Access != k.Refresh
}

// Store is the single owner of a token pair.
type Store interface {
	// Get returns whatever entries are stored; missing entries are empty strings.
	Get(ctx context.Context) (TokenPair, error)
	// Set replaces both entries.
	Set(ctx context.Context, pair TokenPair) error
	// SetAccess replaces the access entry, keeping the refresh entry.
	// It returns ErrNoSession when no refresh token is stored.
	SetAccess(ctx context.Context, access string) error
	// Clear removes both entries. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
