package server

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var signingMethod = jwt.SigningMethodHS256

// SessionClaims binds a token to one game session through its subject.
type SessionClaims struct {
	jwt.RegisteredClaims
}

func (c *SessionClaims) SessionID() string {
	return c.Subject
}

type Tokens struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewTokens(secret []byte, lifetime time.Duration) *Tokens {
	return &Tokens{secret: secret, lifetime: lifetime, now: time.Now}
}

func (t *Tokens) Sign(sessionID string) (string, error) {
	now := t.now()
	claims := SessionClaims{
		jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
}

func (t *Tokens) getKey(*jwt.Token) (any, error) {
	return t.secret, nil
}

func (t *Tokens) Parse(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString, &SessionClaims{}, t.getKey,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, errors.New("unknown claims type")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no session")
	}
	return claims, nil
}
