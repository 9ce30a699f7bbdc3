package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/messenger-auth/internal/apperror"
)

// newTestSigner creates a Signer with a fixed, known secret so tests are
// deterministic.
func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	return NewSigner("test-secret-at-least-16-chars!!")
}

// mustSignature signs signingString directly, bypassing claim encoding.
func mustSignature(t *testing.T, s *Signer, signingString string) string {
	t.Helper()
	sig, err := s.signature(signingString)
	if err != nil {
		t.Fatalf("signature() error = %v", err)
	}
	return sig
}

func futureClaims() SessionClaims {
	return SessionClaims{
		ID:     "cv37rs3pp9olc6atsptg",
		Email:  "alice@example.com",
		Name:   "Alice",
		Avatar: "https://lh3.googleusercontent.com/a/alice",
		Exp:    time.Now().Add(time.Hour).Unix(),
	}
}

// =========================================================================
// SIGN TESTS
// =========================================================================

func TestSign_ProducesThreeSegments(t *testing.T) {
	s := newTestSigner(t)

	token, err := s.Sign(futureClaims())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Sign() token has %d dots, want 2", got)
	}
}

func TestSign_FixedHeader(t *testing.T) {
	s := newTestSigner(t)

	token, _ := s.Sign(futureClaims())
	header, err := base64.RawURLEncoding.DecodeString(strings.Split(token, ".")[0])
	if err != nil {
		t.Fatalf("decoding header: %v", err)
	}
	if string(header) != `{"alg":"HS256","typ":"JWT"}` {
		t.Errorf("header = %s, want {\"alg\":\"HS256\",\"typ\":\"JWT\"}", header)
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := newTestSigner(t)
	c := futureClaims()

	token1, _ := s.Sign(c)
	token2, _ := s.Sign(c)

	if token1 != token2 {
		t.Error("Sign() produced different tokens for identical claims")
	}
}

func TestSign_DifferentUsersGetDifferentTokens(t *testing.T) {
	s := newTestSigner(t)

	a := futureClaims()
	b := futureClaims()
	b.ID = "someone-else"

	token1, _ := s.Sign(a)
	token2, _ := s.Sign(b)

	if token1 == token2 {
		t.Error("Sign() returned identical tokens for different claims")
	}
}

func TestSign_EmptySecretStillSigns(t *testing.T) {
	s := NewSigner("")

	token, err := s.Sign(futureClaims())
	if err != nil {
		t.Fatalf("Sign() with empty secret error = %v", err)
	}
	if _, err := s.Verify(token); err != nil {
		t.Errorf("Verify() with the same empty secret error = %v", err)
	}
	if _, err := NewSigner("not-empty").Verify(token); !errors.Is(err, apperror.ErrBadSignature) {
		t.Errorf("Verify() under a different secret error = %v, want ErrBadSignature", err)
	}
}

func TestSign_SignatureIsHMACSHA256(t *testing.T) {
	for _, secret := range []string{"test-secret-at-least-16-chars!!", ""} {
		s := NewSigner(secret)
		token, err := s.Sign(futureClaims())
		if err != nil {
			t.Fatalf("Sign() error = %v", err)
		}
		parts := strings.Split(token, ".")

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(parts[0] + "." + parts[1]))
		want := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

		if parts[2] != want {
			t.Errorf("secret %q: signature = %q, want %q", secret, parts[2], want)
		}
	}
}

// =========================================================================
// VERIFY TESTS
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	s := newTestSigner(t)

	cases := []struct {
		name   string
		claims SessionClaims
	}{
		{"plain", futureClaims()},
		{"dots in every field", SessionClaims{
			ID:     "a.b.c",
			Email:  "first.last@example.co.uk",
			Name:   "J. R. R.",
			Avatar: "https://example.com/a.b.png",
			Exp:    time.Now().Add(time.Minute).Unix(),
		}},
		{"unicode", SessionClaims{ID: "1", Name: "Иван 王", Exp: time.Now().Add(time.Minute).Unix()}},
		{"empty strings", SessionClaims{Exp: time.Now().Add(time.Minute).Unix()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := s.Sign(tc.claims)
			if err != nil {
				t.Fatalf("Sign() error = %v", err)
			}
			if strings.Count(token, ".") != 2 {
				t.Fatalf("token %q does not have three segments", token)
			}

			got, err := s.Verify(token)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if got != tc.claims {
				t.Errorf("Verify() = %+v, want %+v", got, tc.claims)
			}
		})
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	s := newTestSigner(t)

	c := futureClaims()
	c.Exp = time.Now().Add(-time.Second).Unix()
	token, _ := s.Sign(c)

	_, err := s.Verify(token)
	if !errors.Is(err, apperror.ErrExpired) {
		t.Fatalf("Verify() error = %v, want ErrExpired", err)
	}
}

func TestVerify_ExpBoundary(t *testing.T) {
	now := time.Unix(1_700_000_000, 500_000_000)
	s := newTestSigner(t).WithClock(func() time.Time { return now })

	// exp equal to the current second is still valid; one second earlier is not.
	c := futureClaims()
	c.Exp = now.Unix()
	token, _ := s.Sign(c)
	if _, err := s.Verify(token); err != nil {
		t.Errorf("Verify() at exp == now error = %v, want nil", err)
	}

	c.Exp = now.Unix() - 1
	token, _ = s.Sign(c)
	if _, err := s.Verify(token); !errors.Is(err, apperror.ErrExpired) {
		t.Errorf("Verify() at exp == now-1 error = %v, want ErrExpired", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	s1 := NewSigner("correct-secret-32-chars-long!!!!")
	s2 := NewSigner("wrong-secret-32-chars-long!!!!!!")

	token, _ := s1.Sign(futureClaims())

	_, err := s2.Verify(token)
	if !errors.Is(err, apperror.ErrBadSignature) {
		t.Fatalf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestVerify_SegmentCount(t *testing.T) {
	s := newTestSigner(t)

	for _, token := range []string{"", "abc", "a.b", "a.b.c.d", "not.a.jwt.token"} {
		_, err := s.Verify(token)
		if !errors.Is(err, apperror.ErrMalformedToken) {
			t.Errorf("Verify(%q) error = %v, want ErrMalformedToken", token, err)
		}
	}
}

// mutate replaces the character at i with a different base64url character.
func mutate(token string, i int) string {
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}

func TestVerify_TamperedSignature(t *testing.T) {
	s := newTestSigner(t)
	token, _ := s.Sign(futureClaims())
	sigStart := strings.LastIndex(token, ".") + 1

	// Every position, including the last character whose low bits are
	// padding in the decoded form.
	for i := sigStart; i < len(token); i++ {
		_, err := s.Verify(mutate(token, i))
		if !errors.Is(err, apperror.ErrBadSignature) {
			t.Fatalf("Verify() with signature char %d mutated error = %v, want ErrBadSignature", i-sigStart, err)
		}
	}
}

func TestVerify_TamperedHeaderOrPayload(t *testing.T) {
	s := newTestSigner(t)
	token, _ := s.Sign(futureClaims())
	sigStart := strings.LastIndex(token, ".")

	for i := 0; i < sigStart; i++ {
		if token[i] == '.' {
			continue
		}
		_, err := s.Verify(mutate(token, i))
		if !errors.Is(err, apperror.ErrBadSignature) {
			t.Fatalf("Verify() with char %d mutated error = %v, want ErrBadSignature", i, err)
		}
		if errors.Is(err, apperror.ErrMalformedPayload) {
			t.Fatalf("Verify() with char %d mutated reported a decode error", i)
		}
	}
}

func TestVerify_ForgedPayloadWithoutResigning(t *testing.T) {
	s := newTestSigner(t)
	token, _ := s.Sign(futureClaims())
	parts := strings.Split(token, ".")

	forged := futureClaims()
	forged.ID = "admin"
	forgedToken, _ := NewSigner("attacker").Sign(forged)
	forgedPayload := strings.Split(forgedToken, ".")[1]

	_, err := s.Verify(parts[0] + "." + forgedPayload + "." + parts[2])
	if !errors.Is(err, apperror.ErrBadSignature) {
		t.Fatalf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestVerify_MalformedPayload(t *testing.T) {
	s := newTestSigner(t)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	cases := map[string]string{
		"payload not base64": header + ".!!!not-base64!!!",
		"payload not JSON":   header + "." + base64.RawURLEncoding.EncodeToString([]byte("not json")),
		"header not JSON":    base64.RawURLEncoding.EncodeToString([]byte("nope")) + "." + header,
	}

	for name, signingString := range cases {
		t.Run(name, func(t *testing.T) {
			// Correctly signed, so only decoding can fail.
			token := signingString + "." + mustSignature(t, s, signingString)

			_, err := s.Verify(token)
			if !errors.Is(err, apperror.ErrMalformedPayload) {
				t.Fatalf("Verify() error = %v, want ErrMalformedPayload", err)
			}
			if errors.Is(err, apperror.ErrBadSignature) {
				t.Fatal("Verify() reported ErrBadSignature for a correctly signed token")
			}
		})
	}
}

func TestVerify_RejectsForeignAlgorithm(t *testing.T) {
	s := newTestSigner(t)
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"id":"x","exp":9999999999}`))
	signingString := header + "." + payload

	_, err := s.Verify(signingString + "." + mustSignature(t, s, signingString))
	if !errors.Is(err, apperror.ErrBadSignature) {
		t.Fatalf("Verify() error = %v, want ErrBadSignature", err)
	}
}
