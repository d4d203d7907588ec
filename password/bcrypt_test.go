package password

import (
	"errors"
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	// MinCost keeps the suite fast; production default is 12.
	h, err := New(Config{Cost: 4})
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	hash, err := h.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "Abcd1234!" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("hash does not look like bcrypt output: %q", hash)
	}

	ok, err := h.Verify("Abcd1234!", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("mismatch must not error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Verify("whatever", "not-a-bcrypt-hash")
	if !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ by salt")
	}
}

func TestNew_CostValidation(t *testing.T) {
	if _, err := New(Config{Cost: 99}); err == nil {
		t.Fatal("expected error for out-of-range cost")
	}
	h, err := New(Config{})
	if err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
	if h.cost != DefaultCost {
		t.Fatalf("expected default cost %d, got %d", DefaultCost, h.cost)
	}
}
