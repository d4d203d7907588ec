package authcore

import (
	"context"
	"errors"
)

// GoogleLogin reconciles a verified Google profile against the account base
// and issues a token pair. An existing account keyed by the Google subject
// gets its stored profile refreshed from the provider's current values; an
// unknown subject provisions a fresh passwordless account flagged as a
// first login.
//
// The caller is responsible for having verified the profile against Google;
// the engine trusts its contents.
func (e *Engine) GoogleLogin(ctx context.Context, profile GoogleProfile) (*PublicUser, *TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	if profile.GoogleID == "" || profile.Email == "" {
		return nil, nil, ErrInvalidInput
	}
	profile.Email = normalizeEmail(profile.Email)

	user, err := e.store.GetUserByGoogleID(ctx, profile.GoogleID)
	switch {
	case err == nil:
		if err := e.store.UpdateGoogleProfile(ctx, user.ID, profile); err != nil {
			return nil, nil, err
		}
		user.GoogleProfile = profile
		pair, err := e.issueTokens(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		e.metrics.Inc(MetricGoogleLogin)
		e.emitAudit(ctx, EventGoogleLogin, user.ID, "", true, nil)
		if err := e.mailer.SendLoginNotification(ctx, user.Public(), clientIPFromContext(ctx)); err != nil {
			e.emitAudit(ctx, EventMailFailure, user.ID, "", false, err)
		}
		return user.Public(), pair, nil

	case errors.Is(err, ErrUserNotFound):
		user, err := e.store.CreateUser(ctx, CreateUserInput{
			Email:         profile.Email,
			FirstName:     profile.FirstName,
			LastName:      profile.LastName,
			Image:         profile.Photo,
			GoogleID:      profile.GoogleID,
			GoogleProfile: profile,
			FirstLogin:    true,
		})
		if err != nil {
			return nil, nil, err
		}
		pair, err := e.issueTokens(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		e.metrics.Inc(MetricGoogleLogin)
		e.emitAudit(ctx, EventGoogleSignup, user.ID, "", true, nil)
		if err := e.mailer.SendWelcome(ctx, user.Public()); err != nil {
			e.emitAudit(ctx, EventMailFailure, user.ID, "", false, err)
		}
		return user.Public(), pair, nil

	default:
		return nil, nil, err
	}
}
