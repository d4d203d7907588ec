package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricSignupSuccess counts completed registrations.
	MetricSignupSuccess MetricID = iota
	// MetricSignupDuplicate counts signups rejected for an existing email.
	MetricSignupDuplicate
	// MetricLoginSuccess counts successful credential logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected credential logins.
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by the lockout window.
	MetricLoginLocked
	// MetricLoginRateLimited counts logins rejected by the rate limiter.
	MetricLoginRateLimited
	// MetricAccountLocked counts lockout transitions (threshold crossings).
	MetricAccountLocked
	// MetricTokensIssued counts access/refresh pair issuances.
	MetricTokensIssued
	// MetricRefreshSuccess counts successful refresh rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricRefreshRevoked counts refresh attempts against a revoked or
	// rotated-out token id.
	MetricRefreshRevoked
	// MetricRefreshRateLimited counts refresh attempts over budget.
	MetricRefreshRateLimited
	// MetricVerifySuccess counts access-token verifications that resolved
	// to a user.
	MetricVerifySuccess
	// MetricVerifyFailure counts failed access-token verifications.
	MetricVerifyFailure
	// MetricLogout counts explicit revocations.
	MetricLogout
	// MetricGoogleLogin counts external-IdP logins (new and returning).
	MetricGoogleLogin
	// MetricLedgerSwept counts ledger records removed by the expiry sweep.
	MetricLedgerSwept
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. All methods are safe for
// concurrent use; a nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates the counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being collected.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add adds n to the counter.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
