package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	apperrors "quitflow/internal/common/errors"
)

// Verifier validates HS256 bearer tokens issued by the mobile app's auth
// backend and maps their claims to a User.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

type claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token, returning the embedded identity.
func (v *Verifier) Verify(tokenString string) (User, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return User{}, apperrors.NewTokenInvalidError("parse token", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return User{}, apperrors.NewTokenInvalidError("claims missing", nil)
	}
	if v.issuer != "" && c.Issuer != v.issuer {
		return User{}, apperrors.NewTokenInvalidError("issuer mismatch", nil)
	}
	if c.Subject == "" {
		return User{}, apperrors.NewTokenInvalidError("subject missing", nil)
	}

	return User{ID: c.Subject, Name: c.Name, Email: c.Email}, nil
}
