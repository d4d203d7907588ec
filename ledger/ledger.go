// Package ledger implements the bounded, per-user collection of live
// refresh-token records.
//
// # Ordering and bound
//
// A ledger is kept newest-first by creation time. Insertion re-sorts and
// truncates to the configured bound in one step, so a caller holding the
// result never observes more than the bound. Removal matches by token id
// and is idempotent.
//
// # Architecture boundaries
//
// This package owns the pure slice transitions only. Persistence of the
// resulting ledger is the credential store's job; the store is expected to
// apply these transitions as atomic push/pull operations.
package ledger

import "time"

// DefaultMaxRecords is the bound applied when a caller passes a
// non-positive maximum.
const DefaultMaxRecords = 5

// Record is one outstanding refresh credential. Records exist only inside
// a user's ledger; there is no free-standing record store.
type Record struct {
	TokenID     string    `json:"tokenId"`
	CreatedAt   time.Time `json:"createdAt"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// Insert returns the ledger with rec added, sorted newest-first and
// truncated to max entries. The input slice is not mutated.
func Insert(records []Record, rec Record, max int) []Record {
	if max <= 0 {
		max = DefaultMaxRecords
	}

	out := make([]Record, 0, len(records)+1)
	out = append(out, records...)
	out = append(out, rec)
	sortNewestFirst(out)

	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Remove returns the ledger without the record matching tokenID. Removing
// an absent id returns the ledger unchanged; it is not an error.
func Remove(records []Record, tokenID string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.TokenID == tokenID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Contains reports whether the ledger holds a record with tokenID.
func Contains(records []Record, tokenID string) bool {
	for _, r := range records {
		if r.TokenID == tokenID {
			return true
		}
	}
	return false
}

// SweepOlderThan returns the ledger without records created before cutoff,
// plus the number of records dropped.
func SweepOlderThan(records []Record, cutoff time.Time) ([]Record, int) {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out, len(records) - len(out)
}

// sortNewestFirst is an insertion sort: ledgers are at most a handful of
// entries and usually already ordered.
func sortNewestFirst(records []Record) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].CreatedAt.After(records[j-1].CreatedAt); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}
