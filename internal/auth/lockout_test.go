// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendra/vendra/internal/auth"
)

/*
TestLockout_ThresholdEngages verifies the counter trips exactly at the
configured threshold.
*/
func TestLockout_ThresholdEngages(t *testing.T) {
	clock := newFakeClock()
	cache := newMemorySessionCache(clock)
	lockout := auth.NewLockout(cache, 3, 10*time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1"))
		locked, err := lockout.IsLocked(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, locked, "below threshold after %d failures", i+1)
	}

	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1"))
	locked, err := lockout.IsLocked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, locked)
}

/*
TestLockout_WindowSlidesFromFirstFailure verifies the counter's TTL is
anchored at the first failure, not refreshed by later ones.
*/
func TestLockout_WindowSlidesFromFirstFailure(t *testing.T) {
	clock := newFakeClock()
	cache := newMemorySessionCache(clock)
	lockout := auth.NewLockout(cache, 3, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1"))
	clock.Advance(9 * time.Minute)
	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1"))
	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1"))

	locked, err := lockout.IsLocked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, locked)

	// Two minutes later the window anchored at the first failure has passed.
	clock.Advance(2 * time.Minute)
	locked, err = lockout.IsLocked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, locked)
}

/*
TestLockout_AnyIdentifierLocks verifies that with multiple identifiers the
attempt is locked when ANY counter reaches the threshold.
*/
func TestLockout_AnyIdentifierLocks(t *testing.T) {
	clock := newFakeClock()
	cache := newMemorySessionCache(clock)
	lockout := auth.NewLockout(cache, 2, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1", "acct:ava"))
	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.2", "acct:ava"))

	// Neither address is locked on its own.
	locked, err := lockout.IsLocked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, locked)

	// The account counter saw both failures.
	locked, err = lockout.IsLocked(ctx, "10.0.0.3", "acct:ava")
	require.NoError(t, err)
	assert.True(t, locked)
}

/*
TestLockout_Reset clears the counters for all given identifiers.
*/
func TestLockout_Reset(t *testing.T) {
	clock := newFakeClock()
	cache := newMemorySessionCache(clock)
	lockout := auth.NewLockout(cache, 1, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, lockout.RecordFailure(ctx, "10.0.0.1", "acct:ava"))
	require.NoError(t, lockout.Reset(ctx, "10.0.0.1", "acct:ava"))

	locked, err := lockout.IsLocked(ctx, "10.0.0.1", "acct:ava")
	require.NoError(t, err)
	assert.False(t, locked)
}

/*
TestLockout_EmptyIdentifiersSkipped ensures blank identifiers never create
counters.
*/
func TestLockout_EmptyIdentifiersSkipped(t *testing.T) {
	clock := newFakeClock()
	cache := newMemorySessionCache(clock)
	lockout := auth.NewLockout(cache, 1, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, lockout.RecordFailure(ctx, ""))
	locked, err := lockout.IsLocked(ctx, "")
	require.NoError(t, err)
	assert.False(t, locked)
}

/*
TestLockout_CounterErrorPropagates confirms cache failures surface instead
of silently weakening the gate.
*/
func TestLockout_CounterErrorPropagates(t *testing.T) {
	clock := newFakeClock()
	cache := newMemorySessionCache(clock)
	cache.failAll = assert.AnError
	lockout := auth.NewLockout(cache, 3, 10*time.Minute)
	ctx := context.Background()

	assert.Error(t, lockout.RecordFailure(ctx, "10.0.0.1"))

	_, err := lockout.IsLocked(ctx, "10.0.0.1")
	assert.Error(t, err)
}
