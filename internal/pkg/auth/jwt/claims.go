package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a session token.
// The session service signs it; the chat server only verifies it.
type Payload struct {
	jwt.StandardClaims

	// ID is the persistent identifier of the signed-in user.
	ID string `json:"id"`

	// Username is the display name at the time the session was issued.
	Username string `json:"username,omitempty"`
}

// Valid rejects tokens without a user id in addition to the standard time checks.
func (p *Payload) Valid() error {
	if err := p.StandardClaims.Valid(); err != nil {
		return err
	}
	if p.ID == "" {
		return jwt.NewValidationError("missing user id", jwt.ValidationErrorClaimsInvalid)
	}
	return nil
}
