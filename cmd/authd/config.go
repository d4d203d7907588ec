package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// serviceConfig is the flattened AUTHD_* environment configuration.
type serviceConfig struct {
	Addr string
	Env  string // "production" enables Secure cookies

	AccessTokenSecret  string
	RefreshTokenSecret string
	SessionSecret      string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	CORSOrigin string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallback     string
	GoogleSuccessURL   string
	GoogleFailureURL   string

	LockoutThreshold int
	LockoutDuration  time.Duration
	MaxLoginAttempts int
	LoginWindow      time.Duration
	SweepInterval    time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func loadConfig() (serviceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("authd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("env", "development")
	v.SetDefault("access_token_ttl", 15*time.Minute)
	v.SetDefault("refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("lockout_threshold", 5)
	v.SetDefault("lockout_duration", 15*time.Minute)
	v.SetDefault("max_login_attempts", 5)
	v.SetDefault("login_window", 15*time.Minute)
	v.SetDefault("sweep_interval", time.Hour)
	v.SetDefault("smtp_port", 587)

	cfg := serviceConfig{
		Addr: v.GetString("addr"),
		Env:  v.GetString("env"),

		AccessTokenSecret:  v.GetString("access_token_secret"),
		RefreshTokenSecret: v.GetString("refresh_token_secret"),
		SessionSecret:      v.GetString("session_secret"),
		AccessTokenTTL:     v.GetDuration("access_token_ttl"),
		RefreshTokenTTL:    v.GetDuration("refresh_token_ttl"),

		DatabaseURL: v.GetString("database_url"),
		RedisAddr:   v.GetString("redis_addr"),
		RedisPass:   v.GetString("redis_password"),

		CORSOrigin: v.GetString("cors_origin"),

		GoogleClientID:     v.GetString("google_client_id"),
		GoogleClientSecret: v.GetString("google_client_secret"),
		GoogleCallback:     v.GetString("google_callback"),
		GoogleSuccessURL:   v.GetString("google_success_url"),
		GoogleFailureURL:   v.GetString("google_failure_url"),

		LockoutThreshold: v.GetInt("lockout_threshold"),
		LockoutDuration:  v.GetDuration("lockout_duration"),
		MaxLoginAttempts: v.GetInt("max_login_attempts"),
		LoginWindow:      v.GetDuration("login_window"),
		SweepInterval:    v.GetDuration("sweep_interval"),

		SMTPHost: v.GetString("smtp_host"),
		SMTPPort: v.GetInt("smtp_port"),
		SMTPUser: v.GetString("smtp_user"),
		SMTPPass: v.GetString("smtp_password"),
		SMTPFrom: v.GetString("smtp_from"),
	}

	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return cfg, errors.New("AUTHD_ACCESS_TOKEN_SECRET and AUTHD_REFRESH_TOKEN_SECRET are required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return cfg, errors.New("access and refresh token secrets must differ")
	}
	if cfg.SessionSecret == "" {
		return cfg, errors.New("AUTHD_SESSION_SECRET is required")
	}
	return cfg, nil
}

func (c serviceConfig) production() bool {
	return strings.EqualFold(c.Env, "production")
}
