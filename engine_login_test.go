package authcore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	h := newEngineHarness(t)
	id, _ := h.signup(t, "dana@example.com", "a long password")

	pub, pair, err := h.engine.Login(context.Background(), "dana@example.com", "a long password")
	if err != nil {
		t.Fatalf("Login() = %v", err)
	}
	if pub.ID != id {
		t.Errorf("user id = %s, want %s", pub.ID, id)
	}
	if pair.RefreshToken == "" {
		t.Fatal("expected a refresh token")
	}

	u := h.store.snapshot(t, id)
	if len(u.RefreshTokens) != 2 {
		t.Errorf("ledger size = %d, want 2 (signup + login)", len(u.RefreshTokens))
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h := newEngineHarness(t)
	id, _ := h.signup(t, "erin@example.com", "a long password")

	_, _, err := h.engine.Login(context.Background(), "erin@example.com", "not the password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if u := h.store.snapshot(t, id); u.LoginAttempts != 1 {
		t.Errorf("attempts = %d, want 1", u.LoginAttempts)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	h := newEngineHarness(t)

	_, _, err := h.engine.Login(context.Background(), "nobody@example.com", "whatever pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginLockoutAtThreshold(t *testing.T) {
	h := newEngineHarness(t, func(cfg *Config) {
		// Keep the limiter budget above the lockout threshold so the
		// account state machine, not the limiter, decides these calls.
		cfg.RateLimit.MaxLoginAttempts = 100
	})
	id, _ := h.signup(t, "frank@example.com", "a long password")
	ctx := context.Background()

	// The attempt that crosses the threshold still reports bad
	// credentials; only the next one observes the lock.
	for i := 0; i < 5; i++ {
		_, _, err := h.engine.Login(ctx, "frank@example.com", "wrong password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	u := h.store.snapshot(t, id)
	if u.LockUntil == nil {
		t.Fatal("expected a lock timestamp after 5 failures")
	}
	if got, want := time.Until(*u.LockUntil), 15*time.Minute; got > want || got < want-time.Minute {
		t.Errorf("lock window = %v, want about %v", got, want)
	}

	_, _, err := h.engine.Login(ctx, "frank@example.com", "wrong password")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("err = %v, want ErrAccountLocked", err)
	}

	// The right password is rejected too while locked.
	_, _, err = h.engine.Login(ctx, "frank@example.com", "a long password")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("correct password while locked: err = %v, want ErrAccountLocked", err)
	}
}

func TestLoginExpiredLockStartsFreshWindow(t *testing.T) {
	h := newEngineHarness(t, func(cfg *Config) {
		cfg.RateLimit.MaxLoginAttempts = 100
	})
	id, _ := h.signup(t, "gina@example.com", "a long password")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.engine.Login(ctx, "gina@example.com", "wrong password")
	}

	// Expire the lock by hand.
	h.store.mu.Lock()
	past := time.Now().UTC().Add(-time.Second)
	h.store.users[id].LockUntil = &past
	h.store.mu.Unlock()

	// The next failure resets the window instead of compounding.
	_, _, err := h.engine.Login(ctx, "gina@example.com", "wrong password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	u := h.store.snapshot(t, id)
	if u.LoginAttempts != 1 {
		t.Errorf("attempts = %d, want 1 after window reset", u.LoginAttempts)
	}
	if u.LockUntil != nil {
		t.Error("lock should be cleared on window reset")
	}
}

func TestLoginSuccessResetsCounters(t *testing.T) {
	h := newEngineHarness(t)
	id, _ := h.signup(t, "hugo@example.com", "a long password")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.engine.Login(ctx, "hugo@example.com", "wrong password")
	}
	if _, _, err := h.engine.Login(ctx, "hugo@example.com", "a long password"); err != nil {
		t.Fatalf("Login() = %v", err)
	}

	u := h.store.snapshot(t, id)
	if u.LoginAttempts != 0 || u.LockUntil != nil {
		t.Errorf("counters not reset: attempts=%d lockUntil=%v", u.LoginAttempts, u.LockUntil)
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := newEngineHarness(t, func(cfg *Config) {
		cfg.RateLimit.MaxLoginAttempts = 2
	})
	h.signup(t, "iris@example.com", "a long password")
	ctx := WithClientIP(context.Background(), "203.0.113.9")

	for i := 0; i < 3; i++ {
		_, _, err := h.engine.Login(ctx, "iris@example.com", "wrong password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: err = %v", i+1, err)
		}
	}

	// The failure counter now exceeds the budget; even the right
	// password is turned away until the window lapses.
	_, _, err := h.engine.Login(ctx, "iris@example.com", "a long password")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}

	// The window expires and logins work again.
	h.mini.FastForward(16 * time.Minute)
	if _, _, err := h.engine.Login(ctx, "iris@example.com", "a long password"); err != nil {
		t.Fatalf("after window: Login() = %v", err)
	}
}

func TestLoginIdPOnlyAccountRejectsPassword(t *testing.T) {
	h := newEngineHarness(t)
	_, _, err := h.engine.GoogleLogin(context.Background(), GoogleProfile{
		GoogleID:  "g-123",
		Email:     "judy@example.com",
		FirstName: "Judy",
		LastName:  "Lane",
	})
	if err != nil {
		t.Fatalf("GoogleLogin() = %v", err)
	}

	_, _, err = h.engine.Login(context.Background(), "judy@example.com", "any password at all")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestConcurrentFailuresConvergeToLocked(t *testing.T) {
	h := newEngineHarness(t, func(cfg *Config) {
		cfg.RateLimit.Enabled = false
	})
	id, _ := h.signup(t, "kate@example.com", "a long password")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.engine.Login(context.Background(), "kate@example.com", "wrong password")
		}()
	}
	wg.Wait()

	u := h.store.snapshot(t, id)
	if u.LoginAttempts < 5 {
		t.Errorf("attempts = %d, want at least the threshold", u.LoginAttempts)
	}
	if !IsLocked(u.LockUntil, time.Now()) {
		t.Error("account should converge to locked under concurrent failures")
	}
}
