package authcore

import (
	"context"
	"errors"

	"github.com/openconvo/authcore/jwt"
)

// Logout revokes the refresh token identified by refreshToken on behalf of
// the authenticated user callerID. The access token may already be expired;
// logout only needs the refresh token to locate the ledger entry.
//
// A missing token returns [ErrRefreshRequired]. A token minted for a
// different user than the caller returns [ErrUnauthenticated] and leaves
// both ledgers untouched. Revoking an already-revoked token succeeds.
func (e *Engine) Logout(ctx context.Context, callerID, refreshToken string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if refreshToken == "" {
		return ErrRefreshRequired
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			// An expired entry will be dropped by the sweeper; nothing left
			// for the caller to revoke.
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if claims.UserID != callerID {
		return ErrUnauthenticated
	}

	if err := e.store.PullRefreshToken(ctx, callerID, claims.TokenID); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(ctx, EventLogout, callerID, claims.TokenID, true, nil)
	return nil
}
