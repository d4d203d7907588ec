package authcore

import (
	"context"
	"time"

	"github.com/openconvo/authcore/ledger"
)

// User is the full account record held by the credential store. The
// password hash and the refresh-token ledger never leave the Engine;
// callers receive [PublicUser].
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Image        string
	Color        int
	ProfileSetup string

	GoogleID      string
	GoogleProfile GoogleProfile
	FirstLogin    bool

	MFAEnabled bool
	MFASecret  string

	LoginAttempts int
	LockUntil     *time.Time
	RefreshTokens []ledger.Record

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Public returns the caller-facing view of the user with the password
// hash, MFA secret, and refresh-token ledger stripped.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Image:        u.Image,
		Color:        u.Color,
		ProfileSetup: u.ProfileSetup,
		FirstLogin:   u.FirstLogin,
	}
}

// PublicUser is the serializable identity returned to route handlers.
type PublicUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Image        string `json:"image,omitempty"`
	Color        int    `json:"color,omitempty"`
	ProfileSetup string `json:"profileSetup,omitempty"`
	FirstLogin   bool   `json:"firstLogin,omitempty"`
}

// GoogleProfile is the externally verified identity assertion handed to
// [Engine.GoogleLogin] after the upstream protocol exchange.
type GoogleProfile struct {
	GoogleID  string
	Email     string
	FirstName string
	LastName  string
	Photo     string
}

// SignupInput carries the credential-based registration fields.
type SignupInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	ProfileSetup string
}

// CreateUserInput is the record handed to the credential store. Exactly one
// of PasswordHash or GoogleID is expected to be set.
type CreateUserInput struct {
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Image         string
	ProfileSetup  string
	GoogleID      string
	GoogleProfile GoogleProfile
	FirstLogin    bool
}

// TokenPair is the result of one issuance: a short-lived access token and
// a long-lived, ledger-backed refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CredentialStore is the interface callers implement to integrate authcore
// with their user database. The Engine consumes it; it never owns the data.
//
// Lockout and ledger mutations are expected to be store-native atomic
// updates (field increment, push-with-bound, pull-by-key), not
// read-modify-write round trips.
type CredentialStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	UpdateGoogleProfile(ctx context.Context, userID string, profile GoogleProfile) error

	// RecordLoginFailure applies one failed-attempt transition. When reset
	// is true the attempt window restarts (attempts=1, lock cleared);
	// otherwise attempts increments and, when lockUntil is non-nil, the
	// lock timestamp is set.
	RecordLoginFailure(ctx context.Context, userID string, reset bool, lockUntil *time.Time) error
	// RecordLoginSuccess resets attempts to zero and clears the lock.
	RecordLoginSuccess(ctx context.Context, userID string) error

	// PushRefreshToken appends rec to the user's ledger, keeping it
	// newest-first and truncated to max entries, atomically from the
	// caller's perspective.
	PushRefreshToken(ctx context.Context, userID string, rec ledger.Record, max int) error
	// PullRefreshToken removes the matching record. Pulling an absent
	// token id is a no-op, not an error.
	PullRefreshToken(ctx context.Context, userID, tokenID string) error
	HasRefreshToken(ctx context.Context, userID, tokenID string) (bool, error)
	// SweepRefreshTokens removes ledger entries older than cutoff across
	// all users and reports how many were removed.
	SweepRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// Mailer delivers notification email. Delivery is a secondary effect:
// failures are audited and swallowed, never surfaced to the caller.
type Mailer interface {
	SendWelcome(ctx context.Context, user *PublicUser) error
	SendLoginNotification(ctx context.Context, user *PublicUser, ip string) error
}

// NopMailer discards all mail. The default when no mailer is configured.
type NopMailer struct{}

// SendWelcome implements [Mailer].
func (NopMailer) SendWelcome(context.Context, *PublicUser) error { return nil }

// SendLoginNotification implements [Mailer].
func (NopMailer) SendLoginNotification(context.Context, *PublicUser, string) error { return nil }
