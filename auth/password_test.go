package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correcthorse1")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.NoError(t, CheckPassword("correcthorse1", hash))
	assert.Error(t, CheckPassword("wrongpassword1", hash))
}

func TestHashPassword_TooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"goodpass1", false},
		{"short1", true},
		{"lettersonly", true},
		{"1234567890", true},
	}

	for _, tt := range tests {
		err := ValidatePasswordStrength(tt.password)
		if tt.wantErr {
			assert.Error(t, err, "password %q", tt.password)
		} else {
			assert.NoError(t, err, "password %q", tt.password)
		}
	}
}
