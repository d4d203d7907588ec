package authcore

import (
	"errors"
	"time"

	"github.com/openconvo/authcore/ledger"
)

// Config is the immutable engine configuration. Build one at startup,
// validate it through [Builder.Build], and share it by reference; nothing
// reads the process environment after that point.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	Ledger    LedgerConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig carries the dual HS256 secrets and token lifetimes.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig tunes the bcrypt work factor.
type PasswordConfig struct {
	Cost int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig tunes the failed-attempt state machine.
type LockoutConfig struct {
	// Threshold is the consecutive-failure count that trips the lock.
	Threshold int
	// Duration is the length of the lockout window.
	Duration time.Duration
}

/*
====================================
LEDGER CONFIG
====================================
*/

// LedgerConfig bounds the per-user refresh-token ledger.
type LedgerConfig struct {
	// MaxRefreshTokens caps concurrent live refresh tokens per user;
	// insertion beyond the bound evicts the oldest record.
	MaxRefreshTokens int
	// SweepInterval is the period of the background expiry sweep.
	SweepInterval time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig tunes the Redis fixed-window limiters.
type RateLimitConfig struct {
	Enabled               bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginWindow           time.Duration
	EnableRefreshThrottle bool
	MaxRefreshAttempts    int
	RefreshWindow         time.Duration
	MaxGeneralRequests    int
	GeneralWindow         time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig tunes the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events under backpressure instead of blocking
	// request paths. The drop count is observable via Engine.AuditDropped.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 15 minute access tokens,
// 7 day refresh tokens, bcrypt cost 12, lockout at 5 failures for
// 15 minutes, and a ledger bound of 5.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Cost: 12,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		Ledger: LedgerConfig{
			MaxRefreshTokens: ledger.DefaultMaxRecords,
			SweepInterval:    time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:               true,
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginWindow:           15 * time.Minute,
			EnableRefreshThrottle: true,
			MaxRefreshAttempts:    10,
			RefreshWindow:         time.Minute,
			MaxGeneralRequests:    100,
			GeneralWindow:         time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.JWT.AccessSecret) == 0 || len(cfg.JWT.RefreshSecret) == 0 {
		return errors.New("authcore: both token secrets are required")
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("authcore: token TTLs must be positive")
	}
	if cfg.JWT.AccessTTL >= cfg.JWT.RefreshTTL {
		return errors.New("authcore: access TTL must be shorter than refresh TTL")
	}
	if cfg.Lockout.Threshold <= 0 {
		return errors.New("authcore: lockout threshold must be positive")
	}
	if cfg.Lockout.Duration <= 0 {
		return errors.New("authcore: lockout duration must be positive")
	}
	if cfg.Ledger.MaxRefreshTokens <= 0 {
		return errors.New("authcore: refresh token bound must be positive")
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.MaxLoginAttempts <= 0 || cfg.RateLimit.LoginWindow <= 0 {
			return errors.New("authcore: login rate limit requires positive budget and window")
		}
	}
	return nil
}
