package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"socialchat/internal/pkg/logx"
)

// ErrAuthentication is returned when a handshake carries no usable session credential.
var ErrAuthentication = errors.New("authentication failed")

// Resolver extracts the signed-in user from a websocket handshake.
// The credential is looked up in the session cookie first and then in a
// "Bearer" Authorization header, for clients that cannot set cookies.
type Resolver struct {
	cookieName string
	secretKey  string
}

// NewResolver builds a Resolver for the given cookie name and signing secret.
func NewResolver(cookieName, secretKey string) *Resolver {
	return &Resolver{cookieName: cookieName, secretKey: secretKey}
}

// AuthenticateHandshake decodes one raw credential and returns the embedded user id.
func (res *Resolver) AuthenticateHandshake(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	payload, err := ParseToken(raw, res.secretKey)
	if err != nil {
		logx.Debug("Rejected session credential", "error", err.Error())
		return "", false
	}

	return payload.ID, true
}

// Resolve returns the user id authenticated by r's handshake metadata.
func (res *Resolver) Resolve(r *http.Request) (string, error) {
	raw := res.credential(r)
	if raw == "" {
		return "", fmt.Errorf("%w: no session credential", ErrAuthentication)
	}

	id, ok := res.AuthenticateHandshake(raw)
	if !ok {
		return "", fmt.Errorf("%w: invalid session credential", ErrAuthentication)
	}

	return id, nil
}

func (res *Resolver) credential(r *http.Request) string {
	if cookie, err := r.Cookie(res.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}
