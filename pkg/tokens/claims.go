package tokens

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

// Claims is the minimal identity carried by both token kinds. Role is never signed in;
// the session entry is the authority for it.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Type     Kind   `json:"typ"`
	jwt.RegisteredClaims
}

func ClaimsFromToken(tokenStr string, secret []byte, kind Kind) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	if claims.UserID == "" || claims.Username == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return &claims, nil
}
