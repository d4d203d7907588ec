package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openconvo/authcore"
	"github.com/openconvo/authcore/ledger"
)

const pgUniqueViolation = "23505"

// Schema creates the tables the Postgres store reads and writes. Run it
// once at deploy time, or call [Postgres.EnsureSchema] on startup.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL UNIQUE,
	password_hash  TEXT NOT NULL DEFAULT '',
	first_name     TEXT NOT NULL DEFAULT '',
	last_name      TEXT NOT NULL DEFAULT '',
	image          TEXT NOT NULL DEFAULT '',
	color          INT  NOT NULL DEFAULT 0,
	profile_setup  TEXT NOT NULL DEFAULT '',
	google_id      TEXT UNIQUE,
	google_email   TEXT NOT NULL DEFAULT '',
	google_first   TEXT NOT NULL DEFAULT '',
	google_last    TEXT NOT NULL DEFAULT '',
	google_photo   TEXT NOT NULL DEFAULT '',
	first_login    BOOLEAN NOT NULL DEFAULT FALSE,
	login_attempts INT NOT NULL DEFAULT 0,
	lock_until     TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	token_id    TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	fingerprint TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS refresh_tokens_user_idx
	ON refresh_tokens (user_id, created_at DESC);
`

// Postgres implements authcore.CredentialStore on a pgx connection pool.
// Counter and ledger mutations are single statements or small
// transactions, never read-modify-write from the client side.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool. The pool's lifecycle stays with the
// caller.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects a new pool from a DSN and verifies connectivity.
// Connection failures wrap [authcore.ErrStoreUnavailable].
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema applies [Schema].
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, Schema)
	return err
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const userColumns = `id, email, password_hash, first_name, last_name, image, color,
	profile_setup, COALESCE(google_id, ''), google_email, google_first, google_last,
	google_photo, first_login, login_attempts, lock_until, created_at, updated_at`

func (p *Postgres) CreateUser(ctx context.Context, in authcore.CreateUserInput) (*authcore.User, error) {
	id := uuid.NewString()
	var googleID any
	if in.GoogleID != "" {
		googleID = in.GoogleID
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, image, profile_setup,
			google_id, google_email, google_first, google_last, google_photo, first_login
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING `+userColumns,
		id, in.Email, in.PasswordHash, in.FirstName, in.LastName, in.Image,
		in.ProfileSetup, googleID, in.GoogleProfile.Email, in.GoogleProfile.FirstName,
		in.GoogleProfile.LastName, in.GoogleProfile.Photo, in.FirstLogin,
	)

	u, err := scanUser(row)
	if err != nil {
		// The users table has two unique columns; only the email one means
		// "address already registered".
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "email") {
			return nil, authcore.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*authcore.User, error) {
	return p.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*authcore.User, error) {
	return p.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (p *Postgres) GetUserByGoogleID(ctx context.Context, googleID string) (*authcore.User, error) {
	return p.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
}

func (p *Postgres) getUser(ctx context.Context, query, arg string) (*authcore.User, error) {
	u, err := scanUser(p.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT token_id, fingerprint, created_at FROM refresh_tokens
		WHERE user_id = $1 ORDER BY created_at DESC`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("get user ledger: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rec ledger.Record
		if err := rows.Scan(&rec.TokenID, &rec.Fingerprint, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		u.RefreshTokens = append(u.RefreshTokens, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get user ledger: %w", err)
	}
	return u, nil
}

func (p *Postgres) UpdateGoogleProfile(ctx context.Context, userID string, profile authcore.GoogleProfile) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE users SET
			google_email = $2, google_first = $3, google_last = $4, google_photo = $5,
			first_name = $3, last_name = $4, image = $5, updated_at = now()
		WHERE id = $1`,
		userID, profile.Email, profile.FirstName, profile.LastName, profile.Photo)
	if err != nil {
		return fmt.Errorf("update google profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) RecordLoginFailure(ctx context.Context, userID string, reset bool, lockUntil *time.Time) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if reset {
		tag, err = p.pool.Exec(ctx, `
			UPDATE users SET login_attempts = 1, lock_until = NULL, updated_at = now()
			WHERE id = $1`, userID)
	} else {
		tag, err = p.pool.Exec(ctx, `
			UPDATE users SET
				login_attempts = login_attempts + 1,
				lock_until = COALESCE($2, lock_until),
				updated_at = now()
			WHERE id = $1`, userID, lockUntil)
	}
	if err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

func (p *Postgres) RecordLoginSuccess(ctx context.Context, userID string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE users SET login_attempts = 0, lock_until = NULL, updated_at = now()
		WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("record login success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrUserNotFound
	}
	return nil
}

// PushRefreshToken inserts the record and trims the user's ledger to its
// bound in one transaction, dropping the oldest rows first.
func (p *Postgres) PushRefreshToken(ctx context.Context, userID string, rec ledger.Record, max int) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("push refresh token: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO refresh_tokens (token_id, user_id, fingerprint, created_at)
		VALUES ($1, $2, $3, $4)`,
		rec.TokenID, userID, rec.Fingerprint, rec.CreatedAt); err != nil {
		return fmt.Errorf("push refresh token: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE user_id = $1 AND token_id NOT IN (
			SELECT token_id FROM refresh_tokens
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)`, userID, max); err != nil {
		return fmt.Errorf("trim refresh tokens: %w", err)
	}

	return tx.Commit(ctx)
}

func (p *Postgres) PullRefreshToken(ctx context.Context, userID, tokenID string) error {
	_, err := p.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE user_id = $1 AND token_id = $2`,
		userID, tokenID)
	if err != nil {
		return fmt.Errorf("pull refresh token: %w", err)
	}
	return nil
}

func (p *Postgres) HasRefreshToken(ctx context.Context, userID, tokenID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM refresh_tokens WHERE user_id = $1 AND token_id = $2
		)`, userID, tokenID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has refresh token: %w", err)
	}
	return exists, nil
}

func (p *Postgres) SweepRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanUser(row pgx.Row) (*authcore.User, error) {
	var u authcore.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Image,
		&u.Color, &u.ProfileSetup, &u.GoogleID, &u.GoogleProfile.Email,
		&u.GoogleProfile.FirstName, &u.GoogleProfile.LastName, &u.GoogleProfile.Photo,
		&u.FirstLogin, &u.LoginAttempts, &u.LockUntil, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GoogleProfile.GoogleID = u.GoogleID
	return &u, nil
}
