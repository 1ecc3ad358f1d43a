package jwt

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
)

const testSecret = "test-secret"

func mustToken(t *testing.T, id, secret string, ttl time.Duration) string {
	t.Helper()

	token, err := GenerateToken(&Payload{ID: id, Username: "someone"}, secret, ttl)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func TestResolveFromCookie(t *testing.T) {
	res := NewResolver("session", testSecret)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.AddCookie(&http.Cookie{Name: "other", Value: "x"})
	req.AddCookie(&http.Cookie{Name: "session", Value: mustToken(t, "user-a", testSecret, time.Hour)})

	id, err := res.Resolve(req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "user-a" {
		t.Fatalf("expected user-a, got %q", id)
	}
}

func TestResolveFromBearerHeader(t *testing.T) {
	res := NewResolver("session", testSecret)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+mustToken(t, "user-b", testSecret, time.Hour))

	id, err := res.Resolve(req)
	if err != nil || id != "user-b" {
		t.Fatalf("expected user-b, got %q (%v)", id, err)
	}
}

func TestResolveRejectsBadCredentials(t *testing.T) {
	res := NewResolver("session", testSecret)

	noneToken := gojwt.NewWithClaims(gojwt.SigningMethodNone, &Payload{ID: "user-a"})
	unsigned, err := noneToken.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-token",
		"wrong secret": mustToken(t, "user-a", "other-secret", time.Hour),
		"expired":      mustToken(t, "user-a", testSecret, -time.Minute),
		"no user id":   mustToken(t, "", testSecret, time.Hour),
		"alg none":     unsigned,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if token != "" {
				req.AddCookie(&http.Cookie{Name: "session", Value: token})
			}

			id, err := res.Resolve(req)
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication, got id=%q err=%v", id, err)
			}
		})
	}
}

func TestAuthenticateHandshake(t *testing.T) {
	res := NewResolver("session", testSecret)

	if _, ok := res.AuthenticateHandshake("  "); ok {
		t.Fatal("blank credential must fail")
	}

	id, ok := res.AuthenticateHandshake(mustToken(t, "user-c", testSecret, time.Hour))
	if !ok || id != "user-c" {
		t.Fatalf("expected user-c, got %q %v", id, ok)
	}
}

func TestGenerateTokenStampsIssuerAndExpiry(t *testing.T) {
	before := time.Now().Unix()
	payload, err := ParseToken(mustToken(t, "user-a", testSecret, time.Minute), testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	if payload.Issuer != tokenIssuer {
		t.Fatalf("expected issuer %q, got %q", tokenIssuer, payload.Issuer)
	}
	if payload.ExpiresAt < before+60 || payload.ExpiresAt > time.Now().Unix()+60 {
		t.Fatalf("unexpected expiry %d", payload.ExpiresAt)
	}
}
