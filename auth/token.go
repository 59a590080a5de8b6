package auth

import (
	"chatchat/domain/chat"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultIssuer = "chatchat"

// CustomClaims defines the structure of the data stored inside the JWT.
// UserID falls back to the standard subject claim when absent.
type CustomClaims struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c CustomClaims) identity() chat.Identity {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	return chat.Identity{UserID: userID, DisplayName: c.Name, Email: c.Email}
}

// GenerateToken creates a HS256 signed JWT for identity.
// The server never issues tokens itself; this serves tests and local development.
func GenerateToken(secret string, identity chat.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: identity.UserID,
		Name:   identity.DisplayName,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    defaultIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
