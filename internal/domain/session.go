package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tokens is the pair issued by the backend on sign-in
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Session is a signed-in console user. The tokens never leave the server;
// the browser only holds the session id.
type Session struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Tokens    Tokens    `json:"tokens"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Authenticated reports whether the session still holds an access token
func (s *Session) Authenticated() bool {
	return s != nil && s.Tokens.AccessToken != ""
}
