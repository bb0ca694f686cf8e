// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendra/vendra/internal/platform/sec"
)

/*
TestHasher_RoundTrip hashes a password and verifies it against the stored hash.
*/
func TestHasher_RoundTrip(t *testing.T) {
	hasher := sec.NewHasher(sec.MinHashCost)

	hash, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	// The plaintext must never appear in the hash.
	assert.NotContains(t, hash, "correct horse")

	assert.True(t, hasher.Verify("correct horse battery staple", hash))
	assert.False(t, hasher.Verify("wrong password", hash))
}

/*
TestHasher_SaltedHashesDiffer confirms two hashes of the same password are
not equal (random salt per hash).
*/
func TestHasher_SaltedHashesDiffer(t *testing.T) {
	hasher := sec.NewHasher(sec.MinHashCost)

	first, err := hasher.Hash("same-password")
	require.NoError(t, err)
	second, err := hasher.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("same-password", first))
	assert.True(t, hasher.Verify("same-password", second))
}

/*
TestHasher_MalformedHash ensures a corrupt stored hash verifies as false,
never as a panic or a success.
*/
func TestHasher_MalformedHash(t *testing.T) {
	hasher := sec.NewHasher(sec.MinHashCost)

	for _, malformed := range []string{"", "not-a-bcrypt-hash", strings.Repeat("x", 60)} {
		assert.False(t, hasher.Verify("any-password", malformed))
	}
}

/*
TestNewHasher_ClampsWeakCost confirms a below-minimum cost is raised to the
floor rather than silently weakening the hashes.
*/
func TestNewHasher_ClampsWeakCost(t *testing.T) {
	hasher := sec.NewHasher(1)

	hash, err := hasher.Hash("password")
	require.NoError(t, err)
	assert.True(t, hasher.Verify("password", hash))
}
