package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidPasswordRequiresLengthAndRejectsWeakValues(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"too short", "ab1", false},
		{"empty", "", false},
		{"common blocklisted value", "password", false},
		{"common blocklisted value case-insensitive", "PASSWORD", false},
		{"another blocklisted value", "qwerty123", false},
		{"lowercase only but long enough", "abcdef", true},
		{"no character class diversity required", "password1", true},
		{"valid", "Str0ngPass", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.valid, IsValidPassword(c.value))
		})
	}
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ngPass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ngPass", hash)
	assert.NoError(t, VerifyPassword(hash, "Str0ngPass"))
	assert.Error(t, VerifyPassword(hash, "WrongPass1"))
}
