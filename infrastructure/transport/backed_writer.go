// Package transport implements the single-direction reliable-resumable
// channel (BackedReader/BackedWriter) and the error classification used to
// decide when a socket must be invalidated.
//
// BackedWriter's write path encrypts, frames with a length prefix, and
// writes; on a write error it drops the socket rather than retrying. The
// ciphertext is committed to a replay buffer *before* the write so the
// bytes survive the failure and can be replayed across a reconnect.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"eternalterm/application"
	eterrors "eternalterm/domain/errors"
)

// ReplayCapBytes is the total ciphertext bytes a BackedWriter buffers for
// replay before evicting the oldest entries.
const ReplayCapBytes = 64 * 1024 * 1024

type replayEntry struct {
	ciphertext []byte
	seq        int64
}

// BackedWriter is the concrete BackedWriter.
type BackedWriter struct {
	mu    sync.Mutex
	crypto application.CryptoHandler
	conn  io.Writer
	valid bool

	replay      []replayEntry
	replayBytes int
	seq         int64
}

// NewBackedWriter constructs a writer over conn using crypto for its
// direction's encryption.
func NewBackedWriter(conn io.Writer, crypto application.CryptoHandler) *BackedWriter {
	return &BackedWriter{conn: conn, crypto: crypto, valid: conn != nil}
}

func (w *BackedWriter) Write(plaintext []byte) (application.WriteResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.valid {
		return application.WriteSkipped, nil
	}

	// Point of no return: once the nonce has advanced, the ciphertext is
	// committed to the replay buffer whether or not the write succeeds.
	ciphertext, err := w.crypto.Encrypt(plaintext)
	if err != nil {
		return application.WriteWithFailure, err
	}

	w.seq++
	w.replay = append(w.replay, replayEntry{ciphertext: ciphertext, seq: w.seq})
	w.replayBytes += len(ciphertext)
	for w.replayBytes > ReplayCapBytes && len(w.replay) > 0 {
		w.replayBytes -= len(w.replay[0].ciphertext)
		w.replay = w.replay[1:]
	}

	frame := make([]byte, 4+len(ciphertext))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(ciphertext)))
	copy(frame[4:], ciphertext)

	if _, werr := w.conn.Write(frame); werr != nil {
		w.valid = false
		return application.WriteWithFailure, nil
	}
	return application.WriteSuccess, nil
}

func (w *BackedWriter) Sequence() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

func (w *BackedWriter) Recover(lastValidSeq int64) ([][]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.seq - lastValidSeq
	if n < 0 {
		return nil, eterrors.New(eterrors.KindUnrecoverableReplay, "BackedWriter.Recover",
			fmt.Errorf("peer sequence %d is ahead of our writer sequence %d", lastValidSeq, w.seq))
	}
	if n == 0 {
		return nil, nil
	}
	if int64(len(w.replay)) < n {
		return nil, eterrors.New(eterrors.KindUnrecoverableReplay, "BackedWriter.Recover",
			fmt.Errorf("need %d replayed packets, only %d buffered", n, len(w.replay)))
	}

	start := len(w.replay) - int(n)
	out := make([][]byte, n)
	for i, entry := range w.replay[start:] {
		out[i] = entry.ciphertext
	}
	return out, nil
}

func (w *BackedWriter) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.valid = false
}

func (w *BackedWriter) Revive(conn io.Writer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = conn
	w.valid = true
}
