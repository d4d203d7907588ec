package authcore

import (
	"context"
	"errors"

	"github.com/openconvo/authcore/jwt"
)

// Verify validates an access token and resolves it to the current account
// record. The four failure modes are distinct so callers can choose a
// response per case: [ErrUnauthenticated] for an absent token,
// [ErrTokenExpired] for a stale one, [ErrTokenInvalid] for a forged or
// malformed one, and [ErrUserNotFound] when the token outlived its account.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.metrics.Inc(MetricVerifyFailure)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	user, err := e.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		e.metrics.Inc(MetricVerifyFailure)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	e.metrics.Inc(MetricVerifySuccess)
	return user.Public(), nil
}

// VerifyClaims validates an access token without a store lookup and returns
// its embedded claims. Middleware that only needs the caller's identity can
// use this to avoid a read per request.
func (e *Engine) VerifyClaims(accessToken string) (*jwt.AccessClaims, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
