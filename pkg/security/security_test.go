package security

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateAndVerify(t *testing.T) {
	claims := NewTokenClaims("user-1", "a@b.test", "tok-1", time.Hour)
	token, err := GenerateJWT(claims, secret)
	require.NoError(t, err)

	got, err := VerifyToken("Bearer "+token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.GetUser())
	assert.Equal(t, "tok-1", got.ID)
}

func TestVerifyRejects(t *testing.T) {
	expired, err := GenerateJWT(TokenClaims{User: "u", ExpireTime: time.Now().Add(-time.Minute).Unix()}, secret)
	require.NoError(t, err)

	noSubject, err := GenerateJWT(TokenClaims{ExpireTime: time.Now().Add(time.Hour).Unix()}, secret)
	require.NoError(t, err)

	valid, err := GenerateJWT(NewTokenClaims("u", "", "", time.Hour), secret)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, NewTokenClaims("u", "", "", time.Hour)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"empty", "", secret},
		{"garbage", "not.a.jwt", secret},
		{"expired", expired, secret},
		{"no subject", noSubject, secret},
		{"wrong secret", valid, []byte("other")},
		{"alg none", none, secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidJWT)
		})
	}
}
