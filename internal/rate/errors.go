package rate

import "errors"

var (
	// ErrRateLimited signals that a counter exceeded its budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures against the backend.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
