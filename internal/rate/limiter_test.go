package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr
}

func TestLogin_BudgetExhaustion(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts: 3,
		LoginWindow:      15 * time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckLogin(ctx, "a@x.com", ""); err != nil {
			t.Fatalf("attempt %d: unexpected check failure: %v", i+1, err)
		}
		if err := limiter.IncrementLogin(ctx, "a@x.com", ""); err != nil {
			t.Fatalf("attempt %d: unexpected increment failure: %v", i+1, err)
		}
	}

	if err := limiter.IncrementLogin(ctx, "a@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	// Other identifiers are unaffected.
	if err := limiter.CheckLogin(ctx, "b@x.com", ""); err != nil {
		t.Fatalf("unrelated identifier limited: %v", err)
	}
}

func TestLogin_IPThrottle(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 2,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	// Different identifiers, same IP: the IP counter trips first.
	for i := 0; i < 2; i++ {
		_ = limiter.IncrementLogin(ctx, "a@x.com", "10.0.0.1")
	}
	if err := limiter.IncrementLogin(ctx, "c@x.com", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP throttle, got %v", err)
	}
}

func TestResetLogin_ClearsCounters(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableIPThrottle: true,
		MaxLoginAttempts: 1,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	_ = limiter.IncrementLogin(ctx, "a@x.com", "10.0.0.1")
	if err := limiter.ResetLogin(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	n, err := limiter.GetLoginAttempts(ctx, "a@x.com")
	if err != nil || n != 0 {
		t.Fatalf("expected 0 attempts after reset, got n=%d err=%v", n, err)
	}
	if err := limiter.IncrementLogin(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("fresh window attempt failed: %v", err)
	}
}

func TestLogin_WindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		MaxLoginAttempts: 1,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()

	_ = limiter.IncrementLogin(ctx, "a@x.com", "")
	if err := limiter.IncrementLogin(ctx, "a@x.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(61 * time.Second)

	if err := limiter.CheckLogin(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("expected clean slate after window expiry, got %v", err)
	}
}

func TestCheckRefresh(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableRefreshThrottle: true,
		MaxRefreshAttempts:    2,
		RefreshWindow:         time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.CheckRefresh(ctx, "tok-1"); err != nil {
			t.Fatalf("refresh %d failed: %v", i+1, err)
		}
	}
	if err := limiter.CheckRefresh(ctx, "tok-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Disabled throttle short-circuits.
	off, _ := newTestLimiter(t, Config{})
	for i := 0; i < 10; i++ {
		if err := off.CheckRefresh(ctx, "tok-1"); err != nil {
			t.Fatalf("disabled throttle must allow all, got %v", err)
		}
	}
}

func TestCheckGeneral(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxGeneralRequests: 3,
		GeneralWindow:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckGeneral(ctx, "10.0.0.9"); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}
	if err := limiter.CheckGeneral(ctx, "10.0.0.9"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := limiter.CheckGeneral(ctx, ""); err != nil {
		t.Fatalf("empty IP must bypass the general limiter, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		MaxLoginAttempts: 5,
		LoginWindow:      time.Minute,
	})
	ctx := context.Background()
	mr.Close()

	if err := limiter.IncrementLogin(ctx, "a@x.com", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
