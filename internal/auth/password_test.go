package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("ãéíõúçà"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("ãéíõúçàü"))
	assert.NoError(t, ValidatePassword("long-enough"))
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("a", MaxPasswordBytes+1)), ErrPasswordTooLong)
}

func TestHashAndCompare(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hashed, "s3cret-pass"))
	assert.ErrorIs(t, ComparePassword(hashed, "wrong-pass"), ErrPasswordMismatch)
	assert.Error(t, ComparePassword("not-a-hash", "s3cret-pass"))
}

func TestNeedsRehash(t *testing.T) {
	hashed, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, NeedsRehash(hashed, bcrypt.MinCost))
	assert.True(t, NeedsRehash(hashed, bcrypt.MinCost+1))
	assert.True(t, NeedsRehash(hashed, 0), "zero cost means the default cost")
	assert.False(t, NeedsRehash("not-a-hash", bcrypt.MinCost))
}
