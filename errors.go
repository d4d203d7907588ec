package authcore

import "errors"

var (
	// ErrEngineNotReady indicates the Engine was not built through [Builder.Build].
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidInput indicates missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPasswordPolicy indicates the pluggable password predicate rejected the password.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidCredentials covers unknown email and password mismatch uniformly.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the account is inside its lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrEmailTaken indicates a signup against an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates the user id or email resolves to no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnauthenticated indicates a request that carried no usable credential
	// or a credential bound to a different identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenExpired indicates a token whose signature is valid but whose
	// expiry has passed. Distinct from ErrTokenInvalid so callers can choose
	// silent refresh over forced re-login.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other token signature or format failure.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrRefreshRequired indicates a logout request without a refresh token.
	ErrRefreshRequired = errors.New("refresh token required")
	// ErrRefreshRevoked indicates a refresh token whose ledger entry is gone:
	// revoked, rotated out, evicted by the bound, or swept.
	ErrRefreshRevoked = errors.New("refresh token revoked")
	// ErrRateLimited indicates an exhausted request budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable wraps credential store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
