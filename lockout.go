package authcore

import "time"

// IsLocked reports whether an account with the given lock timestamp is
// inside its lockout window. Lock state is always derived from the stored
// timestamp, never cached, so it can't go stale.
func IsLocked(lockUntil *time.Time, now time.Time) bool {
	return lockUntil != nil && lockUntil.After(now)
}

// lockoutTransition describes the store update for one failed attempt.
type lockoutTransition struct {
	// reset restarts the attempt window: a lock existed but has expired,
	// so this failure counts as the first of a fresh window.
	reset bool
	// lockUntil is non-nil when this failure crosses the threshold and
	// the account transitions to Locked.
	lockUntil *time.Time
}

// failedAttemptTransition computes the lockout state-machine step for one
// failed authentication against the observed user record.
//
// The observed record may be stale under concurrent failures; the store
// applies the resulting update atomically, giving at-least-once increment
// semantics with last-write-wins on the lock timestamp. Concurrent
// failures converge to Locked rather than under-counting.
func failedAttemptTransition(user *User, threshold int, lockDuration time.Duration, now time.Time) lockoutTransition {
	if user.LockUntil != nil && user.LockUntil.Before(now) {
		return lockoutTransition{reset: true}
	}

	var lockUntil *time.Time
	if user.LoginAttempts+1 >= threshold && !IsLocked(user.LockUntil, now) {
		t := now.Add(lockDuration)
		lockUntil = &t
	}
	return lockoutTransition{lockUntil: lockUntil}
}
