// Package clientid generates and validates the 16-character alphanumeric
// tokens that identify a resumable session.
package clientid

import (
	"crypto/rand"
	"fmt"
)

const (
	// Length is the fixed size of a client id, in characters.
	Length = 16

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// New returns a fresh random client id, created when the SSH bootstrap
// registers a new session on the server.
func New() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("clientid: %w", err)
	}
	out := make([]byte, Length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// Valid reports whether s has the exact shape of a client id: 16
// alphanumeric characters, nothing else.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
