package session

import "testing"

func TestRegistryKeyMayExistWithoutConnection(t *testing.T) {
	r := NewRegistry()
	var key [32]byte
	key[0] = 1

	r.RegisterKey("aaaaaaaaaaaaaaaa", key)

	if _, ok := r.Get("aaaaaaaaaaaaaaaa"); ok {
		t.Fatal("expected no connection for a pre-registered key")
	}
	got, ok := r.Key("aaaaaaaaaaaaaaaa")
	if !ok || got != key {
		t.Fatalf("Key lookup mismatch: ok=%v got=%v", ok, got)
	}
}

func TestRegistryDeleteRemovesBoth(t *testing.T) {
	r := NewRegistry()
	var key [32]byte
	r.RegisterKey("bbbbbbbbbbbbbbbb", key)
	r.Delete("bbbbbbbbbbbbbbbb")

	if _, ok := r.Key("bbbbbbbbbbbbbbbb"); ok {
		t.Fatal("expected key removed")
	}
}

func TestRegistryUnknownClientNotFound(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Key("unknownunknownun"); ok {
		t.Fatal("expected unknown client to be absent")
	}
	if _, ok := r.Get("unknownunknownun"); ok {
		t.Fatal("expected unknown client to be absent")
	}
}
