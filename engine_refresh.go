package authcore

import (
	"context"
	"errors"

	"github.com/openconvo/authcore/internal/rate"
	"github.com/openconvo/authcore/jwt"
)

// Refresh rotates a refresh token: the presented token is verified, checked
// against the user's ledger, removed, and a new pair is issued. The old
// refresh token is unusable once Refresh returns, whether or not the call
// succeeded past the ledger removal.
//
// A signature-valid token whose id is no longer in the ledger returns
// [ErrRefreshRevoked]; the caller must re-authenticate. Expired and
// malformed tokens map to [ErrTokenExpired] and [ErrTokenInvalid].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, ErrRefreshRequired
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, EventRefreshFailure, "", "", false, err)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if e.rateLimiter != nil {
		err := e.rateLimiter.CheckRefresh(ctx, claims.TokenID)
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricRefreshRateLimited)
			return nil, ErrRateLimited
		}
		if err != nil {
			return nil, err
		}
	}

	user, err := e.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, EventRefreshFailure, claims.UserID, claims.TokenID, false, err)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrRefreshRevoked
		}
		return nil, err
	}

	ok, err := e.store.HasRefreshToken(ctx, user.ID, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metrics.Inc(MetricRefreshRevoked)
		e.emitAudit(ctx, EventRefreshRevoked, user.ID, claims.TokenID, false, ErrRefreshRevoked)
		return nil, ErrRefreshRevoked
	}

	if err := e.store.PullRefreshToken(ctx, user.ID, claims.TokenID); err != nil {
		return nil, err
	}

	pair, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, EventRefreshSuccess, user.ID, claims.TokenID, true, nil)
	return pair, nil
}

// Revoke removes a single refresh token from a user's ledger by its token
// id. Revoking an id that is already absent is a no-op.
func (e *Engine) Revoke(ctx context.Context, userID, tokenID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if userID == "" || tokenID == "" {
		return ErrInvalidInput
	}
	return e.store.PullRefreshToken(ctx, userID, tokenID)
}
