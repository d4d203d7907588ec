package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/openconvo/authcore/internal/rate"
)

// Login authenticates an email/password pair and issues a fresh token pair.
//
// Failed attempts are counted against the account; crossing the configured
// threshold locks it for the lockout duration, after which the next failure
// starts a new counting window. A locked account rejects logins with
// [ErrAccountLocked] before the password is checked. Accounts provisioned
// through an identity provider carry no password hash and always fail the
// credential check.
//
// Rate limiting, when enabled, is keyed by the lowercased email plus the
// caller IP from ctx and returns [ErrRateLimited] without touching the
// account's failure counter.
func (e *Engine) Login(ctx context.Context, email, pass string) (*PublicUser, *TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}

	email = normalizeEmail(email)
	if email == "" || pass == "" {
		return nil, nil, ErrInvalidInput
	}

	ip := clientIPFromContext(ctx)
	if e.rateLimiter != nil {
		err := e.rateLimiter.CheckLogin(ctx, email, ip)
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricLoginRateLimited)
			e.emitAudit(ctx, EventLoginRateLimit, "", "", false, err)
			return nil, nil, ErrRateLimited
		}
		if err != nil {
			return nil, nil, err
		}
	}

	user, err := e.store.GetUserByEmail(ctx, email)
	if err != nil {
		// Burn a rate-limit attempt for unknown addresses too, so probing
		// for valid emails costs the same as guessing passwords.
		e.incrementLoginLimiter(ctx, email, ip)
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, EventLoginFailure, "", "", false, ErrInvalidCredentials)
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if IsLocked(user.LockUntil, now) {
		e.metrics.Inc(MetricLoginLocked)
		e.emitAudit(ctx, EventLoginLocked, user.ID, "", false, ErrAccountLocked)
		return nil, nil, ErrAccountLocked
	}

	// An empty hash (IdP-only account) is an unconditional mismatch.
	ok := false
	if user.PasswordHash != "" {
		ok, err = e.hasher.Verify(pass, user.PasswordHash)
		if err != nil {
			return nil, nil, err
		}
	}
	if !ok {
		return nil, nil, e.recordLoginFailure(ctx, user, email, ip, now)
	}

	if err := e.store.RecordLoginSuccess(ctx, user.ID); err != nil {
		return nil, nil, err
	}
	if e.rateLimiter != nil {
		// Reset failures are advisory; the login already succeeded.
		_ = e.rateLimiter.ResetLogin(ctx, email, ip)
	}

	pair, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, EventLoginSuccess, user.ID, "", true, nil)
	pub := user.Public()
	if err := e.mailer.SendLoginNotification(ctx, pub, ip); err != nil {
		e.emitAudit(ctx, EventMailFailure, user.ID, "", false, err)
	}
	return pub, pair, nil
}

// recordLoginFailure applies the counter transition for a failed password
// check and persists it. The caller still receives [ErrInvalidCredentials]
// on the attempt that trips the lock; only subsequent logins observe
// [ErrAccountLocked].
func (e *Engine) recordLoginFailure(ctx context.Context, user *User, email, ip string, now time.Time) error {
	tr := failedAttemptTransition(user, e.config.Lockout.Threshold, e.config.Lockout.Duration, now)
	if err := e.store.RecordLoginFailure(ctx, user.ID, tr.reset, tr.lockUntil); err != nil {
		return err
	}
	if tr.lockUntil != nil {
		e.metrics.Inc(MetricAccountLocked)
	}
	e.incrementLoginLimiter(ctx, email, ip)
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, EventLoginFailure, user.ID, "", false, ErrInvalidCredentials)
	return ErrInvalidCredentials
}

func (e *Engine) incrementLoginLimiter(ctx context.Context, email, ip string) {
	if e.rateLimiter == nil {
		return
	}
	_ = e.rateLimiter.IncrementLogin(ctx, email, ip)
}
