package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func withBcryptCost(t *testing.T, cost int) {
	t.Helper()
	prev := BcryptCost
	BcryptCost = cost
	t.Cleanup(func() { BcryptCost = prev })
}

func TestHashPassword_UsesBcryptCost(t *testing.T) {
	withBcryptCost(t, bcrypt.MinCost)

	hash, err := HashPassword("till-pin-0042")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestHashPassword_DefaultCost(t *testing.T) {
	assert.Equal(t, 12, BcryptCost)
}

func TestVerifyPassword_CashierPasswords(t *testing.T) {
	withBcryptCost(t, bcrypt.MinCost)

	shortest := strings.Repeat("7", MinPasswordLength)
	hash, err := HashPassword(shortest)
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{"minimum length password", hash, shortest, true},
		{"one digit short", hash, shortest[:MinPasswordLength-1], false},
		{"different digits", hash, strings.Repeat("8", MinPasswordLength), false},
		{"empty password", hash, "", false},
		{"not a bcrypt hash", "9876543210", shortest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.hash, tt.password))
		})
	}
}

func TestHashPassword_Salted(t *testing.T) {
	withBcryptCost(t, bcrypt.MinCost)

	first, err := HashPassword("counter-1")
	require.NoError(t, err)
	second, err := HashPassword("counter-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword(first, "counter-1"))
	assert.True(t, VerifyPassword(second, "counter-1"))
}
