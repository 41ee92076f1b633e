// Package secure provides memory-safe handling of the notification bot
// credential. It wraps the memguard library so the token is encrypted at
// rest in memory, protected from swapping via mlock, and wiped on
// destruction. If mlock is unavailable the library degrades gracefully
// to standard Go memory.
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed token is revealed.
var ErrDestroyed = errors.New("token has been destroyed")

// Token holds a sensitive credential in a protected memory enclave.
type Token struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewToken creates a protected token from secret bytes. The input is
// copied into the enclave; the caller should zero its own copy.
func NewToken(data []byte) *Token {
	return &Token{
		enclave: memguard.NewEnclave(data),
	}
}

// Reveal decrypts the token and invokes fn with the plaintext. The
// plaintext buffer is destroyed before Reveal returns, so fn must not
// retain the slice.
func (t *Token) Reveal(fn func(secret []byte) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.destroyed {
		return ErrDestroyed
	}

	buf, err := t.enclave.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// Destroy marks the token as destroyed and prevents further use.
// Idempotent. For complete cleanup of all memguard data at process
// exit, call memguard.Purge() in main.
func (t *Token) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return
	}
	t.enclave = nil
	t.destroyed = true
}
