package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAccessToken(t *testing.T) {
	m := NewJWTManager("secret", "nexuscrm")
	token, err := m.GenerateAccessToken("u1", "a@example.com", time.Minute)
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestVerifyAccessTokenRejects(t *testing.T) {
	m := NewJWTManager("secret", "nexuscrm")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTManager("other", "nexuscrm").GenerateAccessToken("u1", "", time.Minute)
		require.NoError(t, err)
		_, err = m.VerifyAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewJWTManager("secret", "someone-else").GenerateAccessToken("u1", "", time.Minute)
		require.NoError(t, err)
		_, err = m.VerifyAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		claims := &JWTClaims{
			UserID: "u1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "nexuscrm",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.VerifyAccessToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.VerifyAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("subject fallback", func(t *testing.T) {
		claims := &JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "nexuscrm",
			Subject:   "u9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		got, err := m.VerifyAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u9", got.UserID)
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"bearer abc", "abc", false},
		{"Bearer ", "", true},
		{"Basic abc", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractTokenFromHeader(tt.header)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidHeader, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
