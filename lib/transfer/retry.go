// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bureau-foundation/vlfs/lib/clock"
)

// Policy bounds retries of transient failures.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BaseDelay is the wait after the first failure. Each further
	// failure doubles it, up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy suits S3-compatible stores and HTTP.
var DefaultPolicy = Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

// DrivePolicy is longer and slower, matching Google Drive's per-user
// request quotas.
var DrivePolicy = Policy{Attempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 60 * time.Second}

// delay returns the wait before attempt n+1 after n failures (n >= 1).
func (p Policy) delay(failures int) time.Duration {
	wait := p.BaseDelay
	for range failures - 1 {
		wait *= 2
		if wait >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(wait, p.MaxDelay)
}

// retry runs operation until it succeeds, fails permanently, the
// policy's attempts are spent, or ctx is cancelled. It returns the last
// error.
func retry(ctx context.Context, clk clock.Clock, policy Policy, logger *slog.Logger, describe func() []any, operation func() error) error {
	attempts := max(policy.Attempts, 1)
	var err error
	for attempt := 1; ; attempt++ {
		err = operation()
		if err == nil || IsPermanent(err) || attempt >= attempts {
			return err
		}
		wait := policy.delay(attempt)
		attrs := append(describe(), "attempt", attempt, "backoff", wait, "error", err)
		if errors.Is(err, ErrRateLimited) {
			logger.Warn("rate limited, retrying", attrs...)
		} else {
			logger.Warn("transfer failed, retrying", attrs...)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(wait):
		}
	}
}
