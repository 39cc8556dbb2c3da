package sealbox

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpen(t *testing.T) {
	box, err := New(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, _ := box.Seal("what size are you?")
	b, _ := box.Seal("what size are you?")
	if a == b {
		t.Fatalf("Seal: want distinct ciphertexts for equal plaintext")
	}
	got, err := box.Open(a)
	if err != nil || got != "what size are you?" {
		t.Fatalf("Open: want original got=%q err=%v", got, err)
	}
}

func TestOpenRejectsTamperingAndWrongKey(t *testing.T) {
	box, _ := New(bytes.Repeat([]byte{1}, 32))
	other, _ := New(bytes.Repeat([]byte{2}, 32))
	sealed, _ := box.Seal("hi")
	if _, err := other.Open(sealed); err == nil {
		t.Fatalf("Open with wrong key: want error")
	}
	if _, err := box.Open("not base64!"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Open(garbage): want=ErrMalformed got=%v", err)
	}
	if _, err := New([]byte("short")); err == nil {
		t.Fatalf("New(short key): want error")
	}
}
