package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "pos-terminal-test-secret"

func TestGenerateTokenPair_OperatorClaims(t *testing.T) {
	tests := []struct {
		name   string
		userID uint
		mobile string
		role   string
	}{
		{"cashier", 3, "9876543210", "cashier"},
		{"admin", 1, "6123456789", "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := GenerateTokenPair(tt.userID, tt.mobile, tt.role, testSecret, 15*time.Minute, 7*24*time.Hour)
			require.NoError(t, err)
			assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)

			access, err := ValidateToken(tokens.AccessToken, testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, access.UserID)
			assert.Equal(t, tt.mobile, access.Mobile)
			assert.Equal(t, tt.role, access.Role)
			assert.Equal(t, TokenTypeAccess, access.TokenType)

			refresh, err := ValidateToken(tokens.RefreshToken, testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.role, refresh.Role)
			assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
			assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
		})
	}
}

func TestValidateToken_Rejections(t *testing.T) {
	tokens, err := GenerateTokenPair(3, "9876543210", "cashier", testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 1,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"signed with another terminal secret", tokens.AccessToken, "other-secret"},
		{"unsigned admin token", unsigned, testSecret},
		{"garbage", "not.a.token", testSecret},
		{"empty", "", testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	tokens, err := GenerateTokenPair(3, "9876543210", "cashier", testSecret, -time.Minute, -time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken(tokens.AccessToken, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}
