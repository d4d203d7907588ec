package authcore

import (
	"context"
	"errors"
	"testing"
)

func TestLogoutRevokesRefreshToken(t *testing.T) {
	h := newEngineHarness(t)
	id, pair := h.signup(t, "sara@example.com", "a long password")
	ctx := context.Background()

	if err := h.engine.Logout(ctx, id, pair.RefreshToken); err != nil {
		t.Fatalf("Logout() = %v", err)
	}
	if u := h.store.snapshot(t, id); len(u.RefreshTokens) != 0 {
		t.Errorf("ledger size = %d, want 0", len(u.RefreshTokens))
	}
}

func TestLogoutRequiresRefreshToken(t *testing.T) {
	h := newEngineHarness(t)
	id, _ := h.signup(t, "tony@example.com", "a long password")

	err := h.engine.Logout(context.Background(), id, "")
	if !errors.Is(err, ErrRefreshRequired) {
		t.Fatalf("err = %v, want ErrRefreshRequired", err)
	}
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	h := newEngineHarness(t)
	idA, pairA := h.signup(t, "uma@example.com", "a long password")
	idB, _ := h.signup(t, "vic@example.com", "a long password")
	ctx := context.Background()

	err := h.engine.Logout(ctx, idB, pairA.RefreshToken)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}

	// A's ledger is untouched and the token still refreshes.
	if u := h.store.snapshot(t, idA); len(u.RefreshTokens) != 1 {
		t.Errorf("victim ledger size = %d, want 1", len(u.RefreshTokens))
	}
	if _, err := h.engine.Refresh(ctx, pairA.RefreshToken); err != nil {
		t.Fatalf("victim token: Refresh() = %v", err)
	}
}

func TestLogoutTwiceIsIdempotent(t *testing.T) {
	h := newEngineHarness(t)
	id, pair := h.signup(t, "wes@example.com", "a long password")
	ctx := context.Background()

	if err := h.engine.Logout(ctx, id, pair.RefreshToken); err != nil {
		t.Fatalf("first Logout() = %v", err)
	}
	if err := h.engine.Logout(ctx, id, pair.RefreshToken); err != nil {
		t.Fatalf("second Logout() = %v", err)
	}
}

func TestLogoutGarbageToken(t *testing.T) {
	h := newEngineHarness(t)
	id, _ := h.signup(t, "xena@example.com", "a long password")

	err := h.engine.Logout(context.Background(), id, "garbage")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}
