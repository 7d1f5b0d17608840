package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct-horse"))
	assert.False(t, CheckPassword(hash, "wrong-horse"))
	assert.False(t, CheckPassword("", "correct-horse"))

	_, err = HashPassword(strings.Repeat("é", 37))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestDummyHash(t *testing.T) {
	hash := DummyHash()
	require.NotEmpty(t, hash)
	assert.Equal(t, hash, DummyHash())
	assert.False(t, CheckPassword(hash, ""))
	assert.False(t, CheckPassword(hash, "correct-horse"))
}
