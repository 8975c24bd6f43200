package jwt

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenMalformed is returned by Inspect when a token cannot be decoded.
var ErrTokenMalformed = errors.New("malformed token")

// Claims holds the subset of payload claims the client acts on.
type Claims struct {
	Exp     int64
	Subject string
	Role    string
}

var unverifiedParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Inspect decodes the payload segment of token without verifying the signature.
//
// The token must have three dot-separated segments whose payload is a JSON object.
// The header and signature are not read, and claims other than exp, sub and role
// are ignored. A missing exp claim decodes to Exp == 0.
func Inspect(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 || parts[1] == "" {
		return Claims{}, ErrTokenMalformed
	}

	payload, err := unverifiedParser.DecodeSegment(parts[1])
	if err != nil {
		return Claims{}, errors.Join(ErrTokenMalformed, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Claims{}, errors.Join(ErrTokenMalformed, err)
	}

	var claims Claims
	if raw, ok := fields["exp"]; ok {
		var exp jwt.NumericDate
		if err := json.Unmarshal(raw, &exp); err != nil {
			return Claims{}, errors.Join(ErrTokenMalformed, err)
		}
		claims.Exp = exp.Unix()
	}
	// identity claims are informational; a wrong type leaves them empty
	_ = json.Unmarshal(fields["sub"], &claims.Subject)
	_ = json.Unmarshal(fields["role"], &claims.Role)
	return claims, nil
}

// IsExpired reports whether token is unusable as of the current wall-clock time.
func IsExpired(token string) bool {
	return IsExpiredAt(token, time.Now())
}

// IsExpiredAt reports whether token is empty, undecodable, carries no exp claim,
// or has exp*1000 <= now in milliseconds.
func IsExpiredAt(token string, now time.Time) bool {
	claims, err := Inspect(token)
	if err != nil {
		return true
	}
	if claims.Exp <= 0 {
		return true
	}
	if claims.Exp > math.MaxInt64/1000 {
		return false
	}
	return claims.Exp*1000 <= now.UnixMilli()
}

// ExpiresAt returns the expiry time of token, or false when it cannot be determined.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := Inspect(token)
	if err != nil || claims.Exp <= 0 {
		return time.Time{}, false
	}
	return time.Unix(claims.Exp, 0), true
}
