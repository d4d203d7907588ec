// Package authcore implements the account and token lifecycle for
// credential and Google sign-in: bcrypt password verification with
// attempt-based lockout, HS256 access/refresh token issuance, a bounded
// per-user refresh-token ledger with rotation and revocation, and
// Redis-backed rate limiting.
//
// The engine owns the security decisions but not the data. User records
// live behind the [CredentialStore] interface supplied by the caller;
// reference implementations for Postgres and in-memory use ship in the
// store package. Construct an engine through the builder:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithCredentialStore(store).
//		WithRedis(client).
//		Build()
//
// All Engine methods are safe for concurrent use. Operations report
// failures through the package sentinel errors (for example
// [ErrInvalidCredentials], [ErrAccountLocked], [ErrRefreshRevoked]);
// match them with errors.Is.
package authcore
