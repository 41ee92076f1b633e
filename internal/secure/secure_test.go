package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_Reveal(t *testing.T) {
	tok := NewToken([]byte("123456:bot-secret"))

	var got string
	err := tok.Reveal(func(secret []byte) error {
		got = string(secret)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "123456:bot-secret", got)

	// Reveal is repeatable
	err = tok.Reveal(func(secret []byte) error {
		assert.Equal(t, "123456:bot-secret", string(secret))
		return nil
	})
	require.NoError(t, err)
}

func TestToken_Destroy(t *testing.T) {
	tok := NewToken([]byte("sensitive"))
	tok.Destroy()
	tok.Destroy() // idempotent

	err := tok.Reveal(func(secret []byte) error {
		t.Fatal("callback must not run after Destroy")
		return nil
	})
	require.ErrorIs(t, err, ErrDestroyed)
}
