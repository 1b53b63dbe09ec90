package domain

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"schoolsync/errors"
)

// Session carries the authenticated user identity and credential token.
// It is injected explicitly into every component that needs it; there is
// no package-level session state. How the token was obtained is the
// identity provider's business, the client only consumes it.
type Session struct {
	UserID        string
	FirstName     string
	LastName      string
	Email         string
	Token         string
	Authenticated bool
}

// sessionClaims mirrors the identity fields the SchoolSync backend puts
// in its bearer tokens.
type sessionClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	jwt.RegisteredClaims
}

// SessionFromToken derives a session from the bearer token's claims.
// The signature is deliberately not verified: validation is the server's
// job, the client only needs the identity fields.
func SessionFromToken(token string) (Session, error) {
	if token == "" {
		return Session{}, errors.ErrNoToken
	}
	claims := &sessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, err
	}
	return Session{
		UserID:        claims.Subject,
		FirstName:     claims.FirstName,
		LastName:      claims.LastName,
		Email:         claims.Email,
		Token:         token,
		Authenticated: true,
	}, nil
}

// DisplayName resolves the name shown for the session owner: profile
// name first, then email, then a generic fallback.
func (s Session) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name != "" {
		return name
	}
	if s.Email != "" {
		return s.Email
	}
	return "You"
}

// IsSelf reports whether senderID identifies the session owner.
func (s Session) IsSelf(senderID string) bool {
	return senderID != "" && senderID == s.UserID
}

// ResolveSenderName applies the display-name rules to an inbound
// message: the session owner always prefers the locally known profile
// name over a server-supplied empty or placeholder name, other senders
// fall back to a generic label when the server sent none.
func (s Session) ResolveSenderName(m Message) string {
	name := strings.TrimSpace(m.SenderName)
	if s.IsSelf(m.SenderID) {
		if name == "" || name == "User" {
			return s.DisplayName()
		}
		return name
	}
	if name == "" {
		return "User"
	}
	return name
}
