package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

const (
	TOKEN_KEY = "Authorization"
)

// TokenClaims are the claims of an access token. The user id travels in
// "sub" the way hosted auth providers issue it.
type TokenClaims struct {
	User       string `json:"sub"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	ID         string `json:"jti,omitempty"`
	ExpireTime int64  `json:"exp"`
	NotBefore  int64  `json:"nbf,omitempty"`
}

func NewTokenClaims(userID, email, tokenID string, ttl time.Duration) TokenClaims {
	now := time.Now()
	return TokenClaims{
		User:       userID,
		Email:      email,
		Role:       "authenticated",
		ID:         tokenID,
		ExpireTime: now.Add(ttl).Unix(),
		NotBefore:  now.Unix() - 1,
	}
}

func (t TokenClaims) GetUser() string {
	return t.User
}

func (t TokenClaims) Valid() error {
	now := time.Now().Unix()
	if t.User == "" {
		return fmt.Errorf("missing subject, %w", ErrInvalidJWT)
	}
	if t.ExpireTime < now {
		return fmt.Errorf("expired token, %w", ErrInvalidJWT)
	}
	if t.NotBefore > now {
		return fmt.Errorf("token not active yet, %w", ErrInvalidJWT)
	}
	return nil
}

var (
	ErrInvalidJWT = errors.New("invalid token")
)

// GenerateJWT signs claims with HS256.
func GenerateJWT(info TokenClaims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, info).SignedString(secret)
}

// VerifyToken checks the signature and time window of a bearer token.
// A "Bearer " prefix is accepted.
func VerifyToken(tokenString string, secret []byte) (*TokenClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrInvalidJWT
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v, %w", t.Header["alg"], ErrInvalidJWT)
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidJWT)
	}
	return claims, nil
}
