package authcore

import (
	"errors"

	"github.com/openconvo/authcore/internal/rate"
	"github.com/openconvo/authcore/jwt"
	"github.com/openconvo/authcore/password"
	"github.com/redis/go-redis/v9"
)

// PasswordPolicy is the pluggable predicate applied to plaintext passwords
// at signup. Returning a non-nil error rejects the password.
type PasswordPolicy func(plaintext string) error

// Builder assembles an [Engine]. Configure it once, call [Builder.Build],
// and discard it; a builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     CredentialStore
	mailer    Mailer
	auditSink AuditSink
	policy    PasswordPolicy

	built bool
}

// New returns a [Builder] loaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the rate limiters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets the user-record store the engine consumes.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithMailer sets the notification mailer. Defaults to [NopMailer].
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the destination for dispatched audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithPasswordPolicy sets the signup password predicate. Without one, any
// non-empty password is accepted.
func (b *Builder) WithPasswordPolicy(policy PasswordPolicy) *Builder {
	b.policy = policy
	return b
}

// Build validates the configuration and wires the engine components.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("authcore: credential store is required")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	if b.config.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("authcore: rate limiting requires a redis client")
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		AccessSecret:  b.config.JWT.AccessSecret,
		RefreshSecret: b.config.JWT.RefreshSecret,
		AccessTTL:     b.config.JWT.AccessTTL,
		RefreshTTL:    b.config.JWT.RefreshTTL,
		Issuer:        b.config.JWT.Issuer,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.New(password.Config{Cost: b.config.Password.Cost})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if b.config.RateLimit.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      b.config.RateLimit.EnableIPThrottle,
			MaxLoginAttempts:      b.config.RateLimit.MaxLoginAttempts,
			LoginWindow:           b.config.RateLimit.LoginWindow,
			EnableRefreshThrottle: b.config.RateLimit.EnableRefreshThrottle,
			MaxRefreshAttempts:    b.config.RateLimit.MaxRefreshAttempts,
			RefreshWindow:         b.config.RateLimit.RefreshWindow,
			MaxGeneralRequests:    b.config.RateLimit.MaxGeneralRequests,
			GeneralWindow:         b.config.RateLimit.GeneralWindow,
		})
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = NopMailer{}
	}

	b.built = true
	return &Engine{
		config:      b.config,
		store:       b.store,
		hasher:      hasher,
		jwtManager:  jwtManager,
		rateLimiter: limiter,
		mailer:      mailer,
		policy:      b.policy,
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:     NewMetrics(b.config.Metrics),
	}, nil
}
