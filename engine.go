package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/openconvo/authcore/internal"
	"github.com/openconvo/authcore/internal/rate"
	"github.com/openconvo/authcore/jwt"
	"github.com/openconvo/authcore/ledger"
	"github.com/openconvo/authcore/password"
)

// Engine is the entry point for all account and token operations. Construct
// one through [New] and share it; every method is safe for concurrent use.
type Engine struct {
	config      Config
	store       CredentialStore
	hasher      *password.Hasher
	jwtManager  *jwt.Manager
	rateLimiter *rate.Limiter
	mailer      Mailer
	policy      PasswordPolicy
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close flushes the audit dispatcher. The engine must not be used after
// Close returns.
func (e *Engine) Close() {
	e.audit.Close()
}

// ready guards against use of a zero-value Engine that skipped the builder.
func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	return nil
}

// Snapshot returns the current metric counter values.
func (e *Engine) Snapshot() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	return e.audit.Dropped()
}

// AccessTokenTTL returns the configured access-token lifetime.
func (e *Engine) AccessTokenTTL() time.Duration { return e.config.JWT.AccessTTL }

// RefreshTokenTTL returns the configured refresh-token lifetime.
func (e *Engine) RefreshTokenTTL() time.Duration { return e.config.JWT.RefreshTTL }

// CheckRequest enforces the blanket per-IP request budget. Transport
// middleware calls it once per inbound request; [ErrRateLimited] maps to
// 429 at the edge.
func (e *Engine) CheckRequest(ctx context.Context, ip string) error {
	if e.rateLimiter == nil {
		return nil
	}
	err := e.rateLimiter.CheckGeneral(ctx, ip)
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrRateLimited
	}
	return err
}

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, tokenID string, success bool, opErr error) {
	if !e.config.Audit.Enabled {
		return
	}
	ev := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	e.audit.Emit(ctx, ev)
}

// issueTokens mints an access/refresh pair for u and records the refresh
// token in the user's ledger. The ledger write must succeed before the
// refresh token leaves this function; a token the caller holds but the
// store does not know about could never be revoked.
func (e *Engine) issueTokens(ctx context.Context, u *User) (*TokenPair, error) {
	access, err := e.jwtManager.CreateAccess(u.ID, u.Email, u.FirstName, u.LastName)
	if err != nil {
		return nil, err
	}

	tokenID, err := internal.NewTokenID()
	if err != nil {
		return nil, err
	}
	refresh, err := e.jwtManager.CreateRefresh(u.ID, tokenID)
	if err != nil {
		return nil, err
	}

	rec := ledger.Record{
		TokenID:     tokenID,
		CreatedAt:   time.Now().UTC(),
		Fingerprint: userAgentFromContext(ctx),
	}
	if err := e.store.PushRefreshToken(ctx, u.ID, rec, e.config.Ledger.MaxRefreshTokens); err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricTokensIssued)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// checkPassword applies the configured policy, or a minimal non-empty
// check when none is set.
func (e *Engine) checkPassword(plaintext string) error {
	if plaintext == "" {
		return ErrInvalidInput
	}
	if e.policy != nil {
		if err := e.policy(plaintext); err != nil {
			return ErrPasswordPolicy
		}
	}
	return nil
}
