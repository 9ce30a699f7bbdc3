// Package auth implements the stateless session: a compact HS256 token
// carried in an HttpOnly cookie, and the OAuth2 client that establishes it.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Browser visits /auth/google → redirected to Google's consent screen
//  2. Google calls back /auth/callback with a code
//  3. Server exchanges the code for a profile, upserts the user
//  4. Server signs SessionClaims into a token and sets it as the auth_token cookie
//  5. Later requests carry the cookie; the signature and exp are checked on
//     every request, no server-side session store is involved
//
// TOKEN STRUCTURE (three base64url segments separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"id":...,"email":...,"name":...,"avatar":...,"exp":...}
//	- Signature: base64url(HMAC-SHA256(header+"."+payload, secret))
//
// Once issued a token stays valid until exp passes or the secret is rotated.
package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/messenger-auth/internal/apperror"
)

// SessionClaims is the token payload. It is built fresh on every login and
// never mutated; two claims are equal when all fields are equal.
type SessionClaims struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Exp    int64  `json:"exp"` // unix seconds, the only expiry source
}

// The methods below satisfy jwt.Claims so the jwt package can encode and
// decode SessionClaims directly. Only exp is meaningful.

// GetExpirationTime returns Exp as a jwt.NumericDate.
func (c SessionClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt returns nil; session tokens carry no iat.
func (c SessionClaims) GetIssuedAt() (*jwt.NumericDate, error) { return nil, nil }

// GetNotBefore returns nil; session tokens carry no nbf.
func (c SessionClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

// GetIssuer returns ""; session tokens carry no iss.
func (c SessionClaims) GetIssuer() (string, error) { return "", nil }

// GetSubject returns the internal user ID.
func (c SessionClaims) GetSubject() (string, error) { return c.ID, nil }

// GetAudience returns nil; session tokens carry no aud.
func (c SessionClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// Signer produces and verifies session tokens with a shared HMAC secret.
//
// The secret is injected once at construction; Signer never reads process
// state, so tests can run several signers with different secrets side by side.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer. Any secret is accepted, including the empty
// one: validating secret strength is the config layer's job, and a token
// signed under one secret never verifies under another regardless.
func NewSigner(secret string) *Signer {
	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock returns a copy of the signer that reads the current time from
// now. Used by tests to mint already-expired sessions.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	return &Signer{secret: s.secret, now: now}
}

// Sign encodes claims into a token. The output is deterministic: the same
// claims and secret always yield the same token.
//
// Each segment is encoded before the segments are joined, so a "." inside a
// claim value can never be mistaken for a separator.
func (s *Signer) Sign(claims SessionClaims) (string, error) {
	// SigningString renders base64url(header) + "." + base64url(payload).
	// The header map is marshalled with sorted keys, so it is always
	// {"alg":"HS256","typ":"JWT"}.
	signingString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SigningString()
	if err != nil {
		return "", fmt.Errorf("auth: encoding token: %w", err)
	}

	sig, err := s.signature(signingString)
	if err != nil {
		return "", err
	}
	return signingString + "." + sig, nil
}

// Verify checks a token and returns its claims.
//
// CHECK ORDER (each step fails with its own sentinel):
//  1. exactly three segments            → apperror.ErrMalformedToken
//  2. signature matches header.payload  → apperror.ErrBadSignature
//  3. header and payload decode         → apperror.ErrMalformedPayload
//  4. exp is not in the past            → apperror.ErrExpired
//
// The signature is checked before anything is decoded, so a tampered
// payload reports ErrBadSignature rather than a decode error.
func (s *Signer) Verify(token string) (SessionClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return SessionClaims{}, fmt.Errorf("auth: token has %d segments: %w", len(parts), apperror.ErrMalformedToken)
	}

	// hmac.Equal runs in constant time, so response timing does not reveal
	// how many leading characters of a forged signature were right.
	// Comparing the encoded segment (not the decoded bytes) also rejects
	// signatures that differ only in base64 padding bits.
	expected, err := s.signature(parts[0] + "." + parts[1])
	if err != nil {
		return SessionClaims{}, err
	}
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return SessionClaims{}, fmt.Errorf("auth: verifying token: %w", apperror.ErrBadSignature)
	}

	var claims SessionClaims
	parsed, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return SessionClaims{}, fmt.Errorf("auth: decoding token: %w: %w", apperror.ErrMalformedPayload, err)
	}

	// A correctly signed token with a foreign alg can only come from someone
	// holding the secret, but reject it anyway so the header stays fixed.
	if parsed.Method != jwt.SigningMethodHS256 {
		return SessionClaims{}, fmt.Errorf("auth: unexpected signing method %v: %w", parsed.Header["alg"], apperror.ErrBadSignature)
	}

	if claims.Exp < s.now().Unix() {
		return SessionClaims{}, fmt.Errorf("auth: token expired at %d: %w", claims.Exp, apperror.ErrExpired)
	}

	return claims, nil
}

// signature returns base64url(HMAC-SHA256(signingString, secret)), the
// third token segment.
func (s *Signer) signature(signingString string) (string, error) {
	mac, err := jwt.SigningMethodHS256.Sign(signingString, s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(mac), nil
}
