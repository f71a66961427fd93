package transport

import (
	"bytes"
	"io"
	"net"
	"testing"

	"eternalterm/infrastructure/cryptography"
)

func pipePair() (net.Conn, net.Conn) {
	a, b := net.Pipe()
	return a, b
}

func newPair(t *testing.T) (*BackedWriter, *BackedReader, net.Conn, net.Conn) {
	t.Helper()
	clientConn, serverConn := pipePair()
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	w := NewBackedWriter(clientConn, cryptography.New(key, cryptography.ClientToServer))
	r := NewBackedReader(serverConn, cryptography.New(key, cryptography.ClientToServer))
	return w, r, clientConn, serverConn
}

// P2: sequence = count of successful operations.
func TestSequenceTracksSuccessfulOperations(t *testing.T) {
	w, r, clientConn, serverConn := newPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			if _, _, err := r.Read(); err != nil {
				t.Errorf("Read %d: %v", i, err)
				return
			}
		}
	}()

	for i := 0; i < 3; i++ {
		res, err := w.Write([]byte{byte('A' + i)})
		if err != nil || res != 0 {
			t.Fatalf("Write %d: res=%v err=%v", i, res, err)
		}
	}
	<-done

	if w.Sequence() != 3 {
		t.Fatalf("writer sequence = %d, want 3", w.Sequence())
	}
	if r.Sequence() != 3 {
		t.Fatalf("reader sequence = %d, want 3", r.Sequence())
	}
}

func TestWriteSkippedWhenInvalidated(t *testing.T) {
	w, _, clientConn, serverConn := newPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	w.Invalidate()
	res, err := w.Write([]byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != 2 { // WriteSkipped
		t.Fatalf("res = %v, want WriteSkipped", res)
	}
	if w.Sequence() != 0 {
		t.Fatalf("sequence advanced on skipped write: %d", w.Sequence())
	}
}

func TestRecoverReplaysTail(t *testing.T) {
	w, _, clientConn, serverConn := newPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	// Drain reads concurrently so Write doesn't block on the pipe.
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := serverConn.Read(buf); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 4; i++ {
		if _, err := w.Write([]byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	ciphertexts, err := w.Recover(2)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(ciphertexts) != 2 {
		t.Fatalf("got %d ciphertexts, want 2", len(ciphertexts))
	}
}

func TestRecoverZeroPendingIsEmpty(t *testing.T) {
	w, _, clientConn, serverConn := newPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	out, err := w.Recover(0)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty recovery, got %d", len(out))
	}
}

func TestRecoverPeerAheadIsUnrecoverable(t *testing.T) {
	w, _, clientConn, serverConn := newPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	if _, err := w.Recover(5); err == nil {
		t.Fatal("expected unrecoverable error when peer sequence is ahead")
	}
}

// Revive must push replayed ciphertexts into the pre-decrypt queue in
// order, and Read must drain that queue before touching the new socket.
func TestReviveDrainsPreDecryptQueueInOrder(t *testing.T) {
	var key [32]byte
	encHandler := cryptography.New(key, cryptography.ClientToServer)
	decHandler := cryptography.New(key, cryptography.ClientToServer)

	var ciphertexts [][]byte
	for _, p := range [][]byte{[]byte("one"), []byte("two")} {
		ct, err := encHandler.Encrypt(p)
		if err != nil {
			t.Fatal(err)
		}
		ciphertexts = append(ciphertexts, ct)
	}

	r := NewBackedReader(nil, decHandler)
	r.valid = false
	r.Revive(bytes.NewReader(nil), ciphertexts)

	got1, ok, err := r.Read()
	if !ok || err != nil {
		t.Fatalf("first queued read: ok=%v err=%v", ok, err)
	}
	if string(got1) != "one" {
		t.Fatalf("got %q, want %q", got1, "one")
	}
	got2, ok, err := r.Read()
	if !ok || err != nil {
		t.Fatalf("second queued read: ok=%v err=%v", ok, err)
	}
	if string(got2) != "two" {
		t.Fatalf("got %q, want %q", got2, "two")
	}
}

var _ io.Reader = (*bytes.Reader)(nil)
