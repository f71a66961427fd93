// Package cryptography implements CryptoHandler: stream-encrypt/decrypt
// with a 192-bit monotonically-incremented nonce seeded from a
// per-direction MSB, using golang.org/x/crypto/nacl/secretbox for
// authenticated encryption.
package cryptography

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"

	eterrors "eternalterm/domain/errors"
)

// Direction selects which MSB seeds the nonce for this handler, so the
// same key is never reused across the two directions of one session.
type Direction byte

const (
	ClientToServer Direction = 0x00
	ServerToClient Direction = 0x01
)

const (
	keySize   = 32
	nonceSize = 24
)

// Handler is a CryptoHandler for one direction of one session. It must be
// serialized internally: concurrent Encrypt/Decrypt calls on the same
// Handler would otherwise race the nonce increment and risk nonce reuse.
type Handler struct {
	mu    sync.Mutex
	key   [keySize]byte
	nonce [nonceSize]byte
}

// New constructs a Handler with nonce initialized to all zeros except the
// highest byte set to msb.
func New(key [keySize]byte, msb Direction) *Handler {
	h := &Handler{key: key}
	h.nonce[nonceSize-1] = byte(msb)
	return h
}

// increment ripple-increments the nonce starting from byte 0, carrying
// only when a byte wraps to 0. Caller must hold h.mu.
func (h *Handler) increment() {
	for i := 0; i < nonceSize; i++ {
		h.nonce[i]++
		if h.nonce[i] != 0 {
			break
		}
	}
}

// Encrypt increments the nonce, then authenticated-secret-box-encrypts
// plaintext. Incrementing before the operation means the first message
// uses nonce value 1, not 0.
func (h *Handler) Encrypt(plaintext []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.increment()
	var nonceArr [nonceSize]byte
	copy(nonceArr[:], h.nonce[:])

	out := secretbox.Seal(nil, plaintext, &nonceArr, &h.key)
	return out, nil
}

// Decrypt increments the nonce, then authenticated-secret-box-decrypts
// ciphertext. A decrypt failure is fatal for the whole session: the
// nonces have diverged or the key is wrong, and no further bytes on this
// direction can be trusted.
func (h *Handler) Decrypt(ciphertext []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.increment()
	var nonceArr [nonceSize]byte
	copy(nonceArr[:], h.nonce[:])

	out, ok := secretbox.Open(nil, ciphertext, &nonceArr, &h.key)
	if !ok {
		return nil, eterrors.New(eterrors.KindCryptoFailure, "cryptography.Decrypt", fmt.Errorf("authenticated decrypt rejected ciphertext"))
	}
	return out, nil
}

// Nonce returns the current nonce value, for diagnostics and for
// cross-checking P1 (nonce monotonicity) in tests.
func (h *Handler) Nonce() [nonceSize]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nonce
}
