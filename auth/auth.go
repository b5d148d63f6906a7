// Package auth consumes the caller identity established by the external
// authentication collaborator: a JWT carried in the "token" cookie.
package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ridwantaufk/todolist-with-chat/errs"
)

// Claims is the payload the auth collaborator puts into each token.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates caller tokens against the shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates the signature and expiration of a token string and
// returns its claims.
func (v *Verifier) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, errors.Join(errs.ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}

	return nil, errs.ErrInvalidToken
}

// VerifyCaller extracts and validates the caller identity from the request's
// token cookie. Returns ErrMissingToken when no cookie is present.
func (v *Verifier) VerifyCaller(c *fiber.Ctx) (*Claims, error) {
	token := c.Cookies("token")
	if token == "" {
		return nil, errs.ErrMissingToken
	}
	return v.Parse(token)
}

// Generate creates a signed token for a user. The server never issues
// tokens in production (the auth collaborator does); this mirrors its
// format for tests and local tooling.
func (v *Verifier) Generate(userID, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
