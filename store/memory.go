// Package store ships two CredentialStore implementations: an in-memory
// store for tests and single-process deployments, and a Postgres store for
// production.
package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/openconvo/authcore"
	"github.com/openconvo/authcore/ledger"
)

// Memory is a mutex-guarded in-memory credential store. All mutations are
// applied atomically under the lock, matching the update semantics the
// engine expects from a real database.
type Memory struct {
	mu     sync.Mutex
	users  map[string]*authcore.User
	byMail map[string]string // email -> id
	nextID int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]*authcore.User),
		byMail: make(map[string]string),
	}
}

func (m *Memory) CreateUser(_ context.Context, in authcore.CreateUserInput) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byMail[in.Email]; taken {
		return nil, authcore.ErrEmailTaken
	}

	m.nextID++
	now := time.Now().UTC()
	u := &authcore.User{
		ID:            strconv.Itoa(m.nextID),
		Email:         in.Email,
		PasswordHash:  in.PasswordHash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Image:         in.Image,
		ProfileSetup:  in.ProfileSetup,
		GoogleID:      in.GoogleID,
		GoogleProfile: in.GoogleProfile,
		FirstLogin:    in.FirstLogin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.users[u.ID] = u
	m.byMail[u.Email] = u.ID
	return copyUser(u), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byMail[email]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	return copyUser(m.users[id]), nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, authcore.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (m *Memory) GetUserByGoogleID(_ context.Context, googleID string) (*authcore.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			return copyUser(u), nil
		}
	}
	return nil, authcore.ErrUserNotFound
}

func (m *Memory) UpdateGoogleProfile(_ context.Context, userID string, profile authcore.GoogleProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	u.GoogleProfile = profile
	u.FirstName = profile.FirstName
	u.LastName = profile.LastName
	u.Image = profile.Photo
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) RecordLoginFailure(_ context.Context, userID string, reset bool, lockUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	if reset {
		u.LoginAttempts = 1
		u.LockUntil = nil
	} else {
		u.LoginAttempts++
		if lockUntil != nil {
			u.LockUntil = lockUntil
		}
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) RecordLoginSuccess(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	u.LoginAttempts = 0
	u.LockUntil = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) PushRefreshToken(_ context.Context, userID string, rec ledger.Record, max int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	u.RefreshTokens = ledger.Insert(u.RefreshTokens, rec, max)
	return nil
}

func (m *Memory) PullRefreshToken(_ context.Context, userID, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return authcore.ErrUserNotFound
	}
	u.RefreshTokens = ledger.Remove(u.RefreshTokens, tokenID)
	return nil
}

func (m *Memory) HasRefreshToken(_ context.Context, userID, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, authcore.ErrUserNotFound
	}
	return ledger.Contains(u.RefreshTokens, tokenID), nil
}

func (m *Memory) SweepRefreshTokens(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var dropped int64
	for _, u := range m.users {
		kept, n := ledger.SweepOlderThan(u.RefreshTokens, cutoff)
		u.RefreshTokens = kept
		dropped += int64(n)
	}
	return dropped, nil
}

func copyUser(u *authcore.User) *authcore.User {
	c := *u
	if u.LockUntil != nil {
		t := *u.LockUntil
		c.LockUntil = &t
	}
	c.RefreshTokens = append([]ledger.Record(nil), u.RefreshTokens...)
	return &c
}
