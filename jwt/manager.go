// Package jwt manages access- and refresh-token issuance and verification
// with strict validation semantics suitable for per-request authentication
// paths.
//
// # Dual secrets
//
// Access and refresh tokens are signed with distinct HS256 secrets:
// compromise of one must not allow forging the other. Access tokens are
// verified statelessly on every request; refresh tokens are verified rarely
// and always cross-checked against the persisted ledger by the Engine.
package jwt

import (
	"bytes"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired indicates a token whose signature is valid but whose
	// expiry has passed. Callers use this to choose silent refresh over
	// forced re-login.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other signature or format failure.
	ErrInvalid = errors.New("invalid token")
)

// Config holds signing secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Manager signs and parses access and refresh tokens. Safe for concurrent
// use after construction.
type Manager struct {
	config Config
}

// AccessClaims is the stateless identity claim set carried by an access
// token. JSON keys match what the companion frontend decodes.
type AccessClaims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	jwt.RegisteredClaims
}

// RefreshClaims binds a refresh token to one ledger entry via TokenID.
type RefreshClaims struct {
	UserID  string `json:"id"`
	TokenID string `json:"tokenId"`
	jwt.RegisteredClaims
}

// NewManager validates the configuration and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("hs256 requires both token secrets")
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.config.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.config.RefreshTTL }

// CreateAccess signs a short-lived access token embedding the user's
// public identity.
func (m *Manager) CreateAccess(userID, email, firstName, lastName string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:    userID,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.AccessSecret)
}

// CreateRefresh signs a long-lived refresh token carrying only the user id
// and the ledger token id.
func (m *Manager) CreateRefresh(userID, tokenID string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID:  userID,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.RefreshSecret)
}

// ParseAccess verifies an access token and returns its claims. Expiry is
// reported as [ErrExpired]; any other failure as [ErrInvalid].
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims, m.config.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims with the
// same error discrimination as [Manager.ParseAccess].
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims, m.config.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	// Pin the signing method; "alg: none" and RS/HS confusion both fail here.
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !token.Valid {
		return ErrInvalid
	}
	return nil
}
