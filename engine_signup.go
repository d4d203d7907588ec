package authcore

import (
	"context"
	"errors"
	"strings"
)

// Signup registers a new email/password account and issues the first token
// pair for it. The email is lowercased before lookup and storage so that
// case variants of the same address collide.
//
// Returns [ErrInvalidInput] on missing fields, [ErrPasswordPolicy] when the
// configured policy rejects the password, and [ErrEmailTaken] when an
// account with the address already exists.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*PublicUser, *TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, nil, err
	}

	email := normalizeEmail(in.Email)
	if email == "" || in.FirstName == "" || in.LastName == "" {
		return nil, nil, ErrInvalidInput
	}
	if err := e.checkPassword(in.Password); err != nil {
		return nil, nil, err
	}

	if _, err := e.store.GetUserByEmail(ctx, email); err == nil {
		e.metrics.Inc(MetricSignupDuplicate)
		e.emitAudit(ctx, EventSignupDuplicate, "", "", false, ErrEmailTaken)
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, nil, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user, err := e.store.CreateUser(ctx, CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		ProfileSetup: in.ProfileSetup,
	})
	if err != nil {
		// The store may race us to the duplicate check.
		if errors.Is(err, ErrEmailTaken) {
			e.metrics.Inc(MetricSignupDuplicate)
			e.emitAudit(ctx, EventSignupDuplicate, "", "", false, err)
		}
		return nil, nil, err
	}

	pair, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	e.metrics.Inc(MetricSignupSuccess)
	e.emitAudit(ctx, EventSignupSuccess, user.ID, "", true, nil)
	pub := user.Public()
	if err := e.mailer.SendWelcome(ctx, pub); err != nil {
		e.emitAudit(ctx, EventMailFailure, user.ID, "", false, err)
	}
	return pub, pair, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
