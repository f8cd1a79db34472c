package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The console cannot verify backend tokens, it only reads their claims to
// size sessions and label the signed-in user.
var claimsParser = jwt.NewParser()

func unverifiedClaims(token string) (jwt.MapClaims, bool) {
	if token == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := claimsParser.ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// TokenExpiry returns the exp claim of a JWT
func TokenExpiry(token string) (time.Time, bool) {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenEmail returns the email claim of a JWT, or the empty string
func TokenEmail(token string) string {
	claims, ok := unverifiedClaims(token)
	if !ok {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}
