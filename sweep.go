package authcore

import (
	"context"
	"time"
)

// SweepExpired removes every refresh-token ledger entry older than the
// refresh TTL across all users and reports how many were dropped. Entries
// past the TTL back a token that can no longer verify anyway; the sweep
// keeps ledgers from accumulating dead weight on idle accounts.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-e.config.JWT.RefreshTTL)
	dropped, err := e.store.SweepRefreshTokens(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		e.metrics.Add(MetricLedgerSwept, uint64(dropped))
		e.emitAudit(ctx, EventLedgerSweep, "", "", true, nil)
	}
	return dropped, nil
}

// StartSweeper runs [Engine.SweepExpired] on the configured interval until
// ctx is cancelled. Sweep errors are reported through onError when it is
// non-nil and never stop the loop.
func (e *Engine) StartSweeper(ctx context.Context, onError func(error)) {
	interval := e.config.Ledger.SweepInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := e.SweepExpired(ctx); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
}
