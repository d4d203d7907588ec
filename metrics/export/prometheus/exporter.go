// Package prometheus renders engine counters in Prometheus text exposition
// format without pulling in the client library.
package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/openconvo/authcore"
)

type metricsSource interface {
	Snapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var counterDefs = []counterDef{
	{authcore.MetricSignupSuccess, "authcore_signup_success_total", "Completed registrations."},
	{authcore.MetricSignupDuplicate, "authcore_signup_duplicate_total", "Signups rejected for an existing email."},
	{authcore.MetricLoginSuccess, "authcore_login_success_total", "Successful credential logins."},
	{authcore.MetricLoginFailure, "authcore_login_failure_total", "Rejected credential logins."},
	{authcore.MetricLoginLocked, "authcore_login_locked_total", "Logins rejected by the lockout window."},
	{authcore.MetricLoginRateLimited, "authcore_login_rate_limited_total", "Logins rejected by the rate limiter."},
	{authcore.MetricAccountLocked, "authcore_account_locked_total", "Lockout threshold crossings."},
	{authcore.MetricTokensIssued, "authcore_tokens_issued_total", "Access/refresh pair issuances."},
	{authcore.MetricRefreshSuccess, "authcore_refresh_success_total", "Successful refresh rotations."},
	{authcore.MetricRefreshFailure, "authcore_refresh_failure_total", "Rejected refresh attempts."},
	{authcore.MetricRefreshRevoked, "authcore_refresh_revoked_total", "Refresh attempts against revoked token ids."},
	{authcore.MetricRefreshRateLimited, "authcore_refresh_rate_limited_total", "Refresh attempts over budget."},
	{authcore.MetricVerifySuccess, "authcore_verify_success_total", "Access token verifications resolved to a user."},
	{authcore.MetricVerifyFailure, "authcore_verify_failure_total", "Failed access token verifications."},
	{authcore.MetricLogout, "authcore_logout_total", "Explicit refresh token revocations."},
	{authcore.MetricGoogleLogin, "authcore_google_login_total", "External IdP logins, new and returning."},
	{authcore.MetricLedgerSwept, "authcore_ledger_swept_total", "Ledger records removed by the expiry sweep."},
}

// Exporter renders engine metrics in Prometheus text exposition format.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an exporter reading from the given [authcore.Engine].
func NewExporter(engine *authcore.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource creates an exporter from a custom source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler that serves the rendered metrics.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render writes the current counters in text exposition format.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.Snapshot()
	dropped := e.source.AuditDropped()

	var b strings.Builder
	b.Grow(4096)

	for _, def := range counterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	writeCounter(&b, "authcore_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", dropped)

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}
