package cryptography

import (
	"bytes"
	"testing"
)

func key() [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	k := key()
	enc := New(k, ClientToServer)
	dec := New(k, ClientToServer)

	for i, want := range [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")} {
		ct, err := enc.Encrypt(want)
		if err != nil {
			t.Fatalf("Encrypt %d: %v", i, err)
		}
		pt, err := dec.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt %d: %v", i, err)
		}
		if !bytes.Equal(pt, want) {
			t.Fatalf("round trip %d: got %q want %q", i, pt, want)
		}
	}
}

// P1: nonce monotonicity — the Nth encrypt/decrypt uses nonce value N,
// and the two directions never share a nonce space because of the MSB.
func TestNonceMonotonicityAndDirectionSeparation(t *testing.T) {
	k := key()
	cs := New(k, ClientToServer)
	sc := New(k, ServerToClient)

	if cs.Nonce()[23] != 0x00 {
		t.Fatalf("client->server MSB = %x, want 0x00", cs.Nonce()[23])
	}
	if sc.Nonce()[23] != 0x01 {
		t.Fatalf("server->client MSB = %x, want 0x01", sc.Nonce()[23])
	}

	for i := 1; i <= 3; i++ {
		if _, err := cs.Encrypt([]byte("x")); err != nil {
			t.Fatal(err)
		}
		if int(cs.Nonce()[0]) != i {
			t.Fatalf("after %d encrypts, low nonce byte = %d, want %d", i, cs.Nonce()[0], i)
		}
	}
}

// P6: crypto-failure is fatal — flipping a ciphertext bit makes the
// receiver reject it rather than silently reordering or dropping.
func TestBitFlipCausesDecryptFailure(t *testing.T) {
	k := key()
	enc := New(k, ClientToServer)
	dec := New(k, ClientToServer)

	ct, err := enc.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	ct[len(ct)-1] ^= 0x01

	if _, err := dec.Decrypt(ct); err == nil {
		t.Fatal("expected decrypt failure on tampered ciphertext")
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	k1, k2 := key(), key()
	k2[0] ^= 0xFF

	enc := New(k1, ClientToServer)
	dec := New(k2, ClientToServer)

	ct, err := enc.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.Decrypt(ct); err == nil {
		t.Fatal("expected decrypt failure with mismatched key")
	}
}
