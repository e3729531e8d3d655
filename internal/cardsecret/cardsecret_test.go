package cardsecret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecretVerifies(t *testing.T) {
	secret, encoded, err := New()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))
	assert.NotContains(t, encoded, secret)

	ok, err := Verify(secret, encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	encoded, err := Hash("right")
	require.NoError(t, err)

	ok, err := Verify("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("same")
	require.NoError(t, err)
	b, err := Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$a2V5",
	} {
		_, err := Verify("x", encoded)
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}
