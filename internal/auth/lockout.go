// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"context"
	"fmt"
	"time"
)

// FailureCounter is the subset of the session cache the lockout tracker needs.
type FailureCounter interface {
	IncrementFailures(ctx context.Context, identifier string, window time.Duration) (int64, error)
	FailureCount(ctx context.Context, identifier string) (int64, error)
	ResetFailures(ctx context.Context, identifier string) error
}

// Lockout tracks failed login attempts per identifier and engages a
// temporary denial once a threshold is reached.
//
// # Identifiers
//
// The default identifier is the caller's network address. When account-level
// lockout is enabled, the account key is tracked additively — either counter
// reaching the threshold locks the attempt, so an attacker rotating IPs is
// still slowed by the per-account counter.
type Lockout struct {
	counter   FailureCounter
	threshold int64
	window    time.Duration
}

// NewLockout constructs a tracker with the configured threshold and window.
func NewLockout(counter FailureCounter, threshold int, window time.Duration) *Lockout {
	return &Lockout{
		counter:   counter,
		threshold: int64(threshold),
		window:    window,
	}
}

// Window returns the configured lockout window.
func (lockout *Lockout) Window() time.Duration { return lockout.window }

/*
RecordFailure increments the failed-attempt counter for every identifier.

The counter expires with the cache's native TTL — there is no cleanup pass
to forget, and no counter persists past its window.
*/
func (lockout *Lockout) RecordFailure(ctx context.Context, identifiers ...string) error {
	for _, identifier := range identifiers {
		if identifier == "" {
			continue
		}
		if _, err := lockout.counter.IncrementFailures(ctx, identifier, lockout.window); err != nil {
			return fmt.Errorf("lockout_record_failure: %w", err)
		}
	}
	return nil
}

/*
IsLocked reports whether ANY identifier has reached the threshold.

A counter error propagates: a cache outage must fail the login closed, not
silently disable brute-force protection.
*/
func (lockout *Lockout) IsLocked(ctx context.Context, identifiers ...string) (bool, error) {
	for _, identifier := range identifiers {
		if identifier == "" {
			continue
		}

		count, err := lockout.counter.FailureCount(ctx, identifier)
		if err != nil {
			return false, fmt.Errorf("lockout_check: %w", err)
		}

		if count >= lockout.threshold {
			return true, nil
		}
	}
	return false, nil
}

// Reset clears the counters after a successful authentication.
func (lockout *Lockout) Reset(ctx context.Context, identifiers ...string) error {
	for _, identifier := range identifiers {
		if identifier == "" {
			continue
		}
		if err := lockout.counter.ResetFailures(ctx, identifier); err != nil {
			return fmt.Errorf("lockout_reset: %w", err)
		}
	}
	return nil
}

// accountKey namespaces a username for the optional account-level counter so
// it can never collide with an IP identifier.
func accountKey(username string) string {
	return "acct:" + username
}
