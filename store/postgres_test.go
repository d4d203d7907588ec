package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/openconvo/authcore"
	"github.com/openconvo/authcore/ledger"
)

// openTestPostgres connects to the database named by AUTHCORE_TEST_PG_DSN,
// or skips the test when the variable is unset.
func openTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("AUTHCORE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("AUTHCORE_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() = %v", err)
	}
	t.Cleanup(p.Close)

	if err := p.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() = %v", err)
	}
	return p
}

func TestPostgresUserLifecycle(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	email := fmt.Sprintf("pg-%d@example.com", time.Now().UnixNano())

	u, err := p.CreateUser(ctx, authcore.CreateUserInput{
		Email:        email,
		PasswordHash: "$2a$12$fake",
		FirstName:    "Pg",
		LastName:     "User",
	})
	if err != nil {
		t.Fatalf("CreateUser() = %v", err)
	}

	if _, err := p.CreateUser(ctx, authcore.CreateUserInput{Email: email}); !errors.Is(err, authcore.ErrEmailTaken) {
		t.Fatalf("duplicate: err = %v, want ErrEmailTaken", err)
	}

	got, err := p.GetUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("GetUserByEmail() = %v", err)
	}
	if got.ID != u.ID || got.PasswordHash != "$2a$12$fake" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestPostgresDuplicateGoogleID(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	googleID := fmt.Sprintf("g-sub-%d", suffix)

	if _, err := p.CreateUser(ctx, authcore.CreateUserInput{
		Email:    fmt.Sprintf("pg-goog-a-%d@example.com", suffix),
		GoogleID: googleID,
	}); err != nil {
		t.Fatalf("CreateUser() = %v", err)
	}

	// A second account with the same Google subject trips the google_id
	// unique constraint, which is not an address conflict.
	_, err := p.CreateUser(ctx, authcore.CreateUserInput{
		Email:    fmt.Sprintf("pg-goog-b-%d@example.com", suffix),
		GoogleID: googleID,
	})
	if err == nil {
		t.Fatal("duplicate google_id: err = nil, want error")
	}
	if errors.Is(err, authcore.ErrEmailTaken) {
		t.Fatalf("duplicate google_id: err = %v, must not be ErrEmailTaken", err)
	}
}

func TestPostgresLedgerBound(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	email := fmt.Sprintf("pg-ledger-%d@example.com", time.Now().UnixNano())

	u, err := p.CreateUser(ctx, authcore.CreateUserInput{Email: email})
	if err != nil {
		t.Fatalf("CreateUser() = %v", err)
	}

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 7; i++ {
		rec := ledger.Record{
			TokenID:   fmt.Sprintf("%s-t%d", u.ID, i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := p.PushRefreshToken(ctx, u.ID, rec, 5); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	got, err := p.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() = %v", err)
	}
	if len(got.RefreshTokens) != 5 {
		t.Fatalf("ledger size = %d, want 5", len(got.RefreshTokens))
	}
	// Newest first; the two oldest were trimmed.
	if got.RefreshTokens[0].TokenID != u.ID+"-t6" {
		t.Errorf("newest = %s, want t6", got.RefreshTokens[0].TokenID)
	}
	if ok, _ := p.HasRefreshToken(ctx, u.ID, u.ID+"-t0"); ok {
		t.Error("t0 should have been trimmed")
	}
}

func TestPostgresLockoutCounters(t *testing.T) {
	p := openTestPostgres(t)
	ctx := context.Background()
	email := fmt.Sprintf("pg-lock-%d@example.com", time.Now().UnixNano())

	u, err := p.CreateUser(ctx, authcore.CreateUserInput{Email: email})
	if err != nil {
		t.Fatalf("CreateUser() = %v", err)
	}

	until := time.Now().UTC().Add(15 * time.Minute).Truncate(time.Microsecond)
	if err := p.RecordLoginFailure(ctx, u.ID, false, nil); err != nil {
		t.Fatalf("failure: %v", err)
	}
	if err := p.RecordLoginFailure(ctx, u.ID, false, &until); err != nil {
		t.Fatalf("locking failure: %v", err)
	}

	got, _ := p.GetUserByID(ctx, u.ID)
	if got.LoginAttempts != 2 || got.LockUntil == nil {
		t.Errorf("attempts=%d lockUntil=%v", got.LoginAttempts, got.LockUntil)
	}

	if err := p.RecordLoginSuccess(ctx, u.ID); err != nil {
		t.Fatalf("success: %v", err)
	}
	got, _ = p.GetUserByID(ctx, u.ID)
	if got.LoginAttempts != 0 || got.LockUntil != nil {
		t.Errorf("after success: attempts=%d lockUntil=%v", got.LoginAttempts, got.LockUntil)
	}
}
