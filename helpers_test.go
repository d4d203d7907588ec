package authcore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/openconvo/authcore/ledger"
	"github.com/redis/go-redis/v9"
)

// fakeStore is an in-memory CredentialStore for engine tests. It applies
// the same atomic update semantics a real store would: counter increments
// and ledger mutations happen under one lock, against current state.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*User // keyed by id
	nextID int

	failCreateUser error
	failPush       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*User)}
}

func (s *fakeStore) CreateUser(_ context.Context, in CreateUserInput) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateUser != nil {
		return nil, s.failCreateUser
	}
	for _, u := range s.users {
		if u.Email == in.Email {
			return nil, ErrEmailTaken
		}
	}
	s.nextID++
	now := time.Now().UTC()
	u := &User{
		ID:            "u" + strconv.Itoa(s.nextID),
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
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) GetUserByGoogleID(_ context.Context, googleID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.GoogleID == googleID {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *fakeStore) UpdateGoogleProfile(_ context.Context, userID string, profile GoogleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.GoogleProfile = profile
	u.FirstName = profile.FirstName
	u.LastName = profile.LastName
	u.Image = profile.Photo
	return nil
}

func (s *fakeStore) RecordLoginFailure(_ context.Context, userID string, reset bool, lockUntil *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if reset {
		u.LoginAttempts = 1
		u.LockUntil = nil
		return nil
	}
	u.LoginAttempts++
	if lockUntil != nil {
		u.LockUntil = lockUntil
	}
	return nil
}

func (s *fakeStore) RecordLoginSuccess(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.LoginAttempts = 0
	u.LockUntil = nil
	return nil
}

func (s *fakeStore) PushRefreshToken(_ context.Context, userID string, rec ledger.Record, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPush != nil {
		return s.failPush
	}
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.RefreshTokens = ledger.Insert(u.RefreshTokens, rec, max)
	return nil
}

func (s *fakeStore) PullRefreshToken(_ context.Context, userID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.RefreshTokens = ledger.Remove(u.RefreshTokens, tokenID)
	return nil
}

func (s *fakeStore) HasRefreshToken(_ context.Context, userID, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, ErrUserNotFound
	}
	return ledger.Contains(u.RefreshTokens, tokenID), nil
}

func (s *fakeStore) SweepRefreshTokens(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped int64
	for _, u := range s.users {
		kept, n := ledger.SweepOlderThan(u.RefreshTokens, cutoff)
		u.RefreshTokens = kept
		dropped += int64(n)
	}
	return dropped, nil
}

// snapshot returns a stable copy of the user record for assertions.
func (s *fakeStore) snapshot(t *testing.T, userID string) *User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		t.Fatalf("user %s not in store", userID)
	}
	return cloneUser(u)
}

func (s *fakeStore) userIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneUser(u *User) *User {
	c := *u
	if u.LockUntil != nil {
		t := *u.LockUntil
		c.LockUntil = &t
	}
	c.RefreshTokens = append([]ledger.Record(nil), u.RefreshTokens...)
	return &c
}

// recordingMailer captures notifications for assertions.
type recordingMailer struct {
	mu       sync.Mutex
	welcomes []string
	logins   []string
}

func (m *recordingMailer) SendWelcome(_ context.Context, user *PublicUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, user.Email)
	return nil
}

func (m *recordingMailer) SendLoginNotification(_ context.Context, user *PublicUser, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, user.Email)
	return nil
}

type engineHarness struct {
	engine *Engine
	store  *fakeStore
	mini   *miniredis.Miniredis
	mailer *recordingMailer
}

// testConfig returns the default config with test secrets and a low bcrypt
// cost so hashing does not dominate test time.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests")
	cfg.Password.Cost = 4
	return cfg
}

func redisClientFor(t *testing.T, mr *miniredis.Miniredis) redis.UniversalClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func newEngineHarness(t *testing.T, mutate ...func(*Config)) *engineHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}

	store := newFakeStore()
	mailer := &recordingMailer{}
	engine, err := New().
		WithConfig(cfg).
		WithCredentialStore(store).
		WithRedis(client).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineHarness{engine: engine, store: store, mini: mr, mailer: mailer}
}

// signup registers a user and returns its id and token pair.
func (h *engineHarness) signup(t *testing.T, email, password string) (string, *TokenPair) {
	t.Helper()
	pub, pair, err := h.engine.Signup(context.Background(), SignupInput{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("Signup(%s) = %v", email, err)
	}
	return pub.ID, pair
}
