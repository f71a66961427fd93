package transport

import (
	"encoding/binary"
	"io"
	"sync"

	"eternalterm/application"
)

// BackedReader is the concrete BackedReader.
//
// Go's io.ReadFull already blocks until either a full frame has arrived or
// the connection errors, so there is no separate `partial []byte` field
// to carry across calls here, only across goroutine-blocked reads on the
// same conn.
type BackedReader struct {
	mu    sync.Mutex
	crypto application.CryptoHandler
	conn  io.Reader
	valid bool

	preDecrypt [][]byte // ciphertexts received during recovery, not yet decrypted
	seq        int64
}

func NewBackedReader(conn io.Reader, crypto application.CryptoHandler) *BackedReader {
	return &BackedReader{conn: conn, crypto: crypto, valid: conn != nil}
}

func (r *BackedReader) Read() ([]byte, bool, error) {
	r.mu.Lock()
	conn := r.conn
	valid := r.valid
	var queued []byte
	if valid && len(r.preDecrypt) > 0 {
		queued = r.preDecrypt[0]
		r.preDecrypt = r.preDecrypt[1:]
	}
	r.mu.Unlock()

	if !valid {
		return nil, false, nil
	}

	var ciphertext []byte
	if queued != nil {
		ciphertext = queued
	} else {
		var lenBuf [4]byte
		if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
			r.Invalidate()
			se := classifyIOError("BackedReader.Read", err)
			if !isSocketDead(se) {
				return nil, false, se
			}
			return nil, false, nil
		}
		length := binary.BigEndian.Uint32(lenBuf[:])

		body := make([]byte, length)
		if _, err := io.ReadFull(conn, body); err != nil {
			r.Invalidate()
			se := classifyIOError("BackedReader.Read", err)
			if !isSocketDead(se) {
				return nil, false, se
			}
			return nil, false, nil
		}
		ciphertext = body
	}

	plaintext, err := r.crypto.Decrypt(ciphertext)
	if err != nil {
		// Crypto failure is fatal for the whole session: do not
		// invalidate-and-continue, surface it.
		return nil, false, err
	}

	r.mu.Lock()
	r.seq++
	r.mu.Unlock()

	return plaintext, true, nil
}

func (r *BackedReader) Sequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

func (r *BackedReader) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.valid = false
}

// Revive attaches a new socket and pushes the peer's replayed ciphertexts
// onto the pre-decrypt queue in order. Revive does not change the
// reader's sequence number: the frames are decrypted lazily on the next
// Read calls, each of which advances the sequence number by one, with
// nonces that pick up where the peer's encryption nonce left off.
func (r *BackedReader) Revive(conn io.Reader, pendingCiphertexts [][]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn = conn
	r.valid = true
	r.preDecrypt = append(r.preDecrypt, pendingCiphertexts...)
}
