package jwt

import (
	"encoding/base64"
	"strconv"
	"testing"
	"time"
)

func rawToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + ".sig"
}

func tokenWithExp(exp int64) string {
	return rawToken(`{"sub":"alice","exp":` + strconv.FormatInt(exp, 10) + `}`)
}

func TestIsExpiredPastAndFuture(t *testing.T) {
	now := time.Now()

	if !IsExpired(tokenWithExp(now.Unix() - 10)) {
		t.Fatal("expected token with exp in the past to be expired")
	}
	if IsExpired(tokenWithExp(now.Unix() + 3600)) {
		t.Fatal("expected token with exp in the future to be valid")
	}
}

func TestIsExpiredAtBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	if !IsExpiredAt(tokenWithExp(now.Unix()), now) {
		t.Fatal("exp equal to now must be expired")
	}
	if IsExpiredAt(tokenWithExp(now.Unix()+1), now) {
		t.Fatal("exp one second ahead must not be expired")
	}
	if !IsExpiredAt(tokenWithExp(now.Unix()+1), now.Add(1500*time.Millisecond)) {
		t.Fatal("expected millisecond comparison to treat token as expired")
	}
}

func TestIsExpiredMalformedTokens(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"one segment":    "abc",
		"two segments":   "abc.def",
		"four segments":  "a.b.c.d",
		"bad encoding":   "!!!.@@@.###",
		"payload not js": rawToken("not-json"),
		"missing exp":    rawToken(`{"sub":"alice"}`),
		"string exp":     rawToken(`{"exp":"tomorrow"}`),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if !IsExpired(token) {
				t.Fatalf("expected %q to be treated as expired", token)
			}
		})
	}
}

func TestIsExpiredReadsOnlyExp(t *testing.T) {
	enc := base64.RawURLEncoding
	exp := strconv.FormatInt(time.Now().Unix()+3600, 10)
	payload := enc.EncodeToString([]byte(`{"sub":"alice","exp":` + exp + `}`))

	cases := map[string]string{
		"header without alg": enc.EncodeToString([]byte(`{"typ":"JWT"}`)) + "." + payload + ".sig",
		"unknown alg":        enc.EncodeToString([]byte(`{"alg":"XX512"}`)) + "." + payload + ".sig",
		"opaque header":      "header." + payload + ".sig",
		"empty signature":    enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." + payload + ".",
		"string iat":         rawToken(`{"exp":` + exp + `,"iat":"yesterday"}`),
		"numeric aud":        rawToken(`{"exp":` + exp + `,"aud":5}`),
		"object nbf":         rawToken(`{"exp":` + exp + `,"nbf":{}}`),
		"numeric sub":        rawToken(`{"exp":` + exp + `,"sub":42}`),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if IsExpired(token) {
				t.Fatalf("expected %q with future exp to be valid", token)
			}
		})
	}
}

func TestInspectIgnoresMistypedIdentity(t *testing.T) {
	claims, err := Inspect(rawToken(`{"exp":1900000000,"sub":42,"role":"admin"}`))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Exp != 1900000000 || claims.Subject != "" || claims.Role != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestInspectReturnsClaims(t *testing.T) {
	token := rawToken(`{"sub":"coach-7","role":"tutor","exp":1900000000}`)

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if claims.Exp != 1900000000 || claims.Subject != "coach-7" || claims.Role != "tutor" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	exp, ok := ExpiresAt(token)
	if !ok || exp.Unix() != 1900000000 {
		t.Fatalf("unexpected expiry %v %v", exp, ok)
	}
}

func TestInspectMalformedReportsError(t *testing.T) {
	if _, err := Inspect("abc.def"); err == nil {
		t.Fatal("expected malformed token error")
	}
	if _, ok := ExpiresAt(""); ok {
		t.Fatal("expected no expiry for empty token")
	}
}
