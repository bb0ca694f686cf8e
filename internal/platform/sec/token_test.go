// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendra/vendra/internal/platform/sec"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) *sec.TokenService {
	t.Helper()

	service, err := sec.NewTokenService(
		"access-secret-for-tests",
		"refresh-secret-for-tests",
		"vendra.app",
		accessTTL,
		refreshTTL,
	)
	require.NoError(t, err)
	return service
}

func testIdentity() sec.Identity {
	return sec.Identity{
		UserID:      "user-123",
		Username:    "ava",
		Roles:       sec.NewRoleSet([]string{"agent"}),
		Permissions: sec.NewPermissionSet([]string{"orders:read", "orders:write"}),
		SessionID:   "session-456",
	}
}

/*
TestNewTokenService_RejectsBadSecrets ensures the constructor enforces the
two-secret rule.
*/
func TestNewTokenService_RejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name          string
		accessSecret  string
		refreshSecret string
	}{
		{"empty_access", "", "refresh"},
		{"empty_refresh", "access", ""},
		{"identical_secrets", "same", "same"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sec.NewTokenService(tt.accessSecret, tt.refreshSecret, "vendra.app", time.Hour, 24*time.Hour)
			assert.Error(t, err)
		})
	}
}

/*
TestTokenService_AccessRoundTrip issues an access token and verifies that
every identity claim survives the trip.
*/
func TestTokenService_AccessRoundTrip(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)
	identity := testIdentity()

	tokenString, err := service.IssueAccess(identity)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := service.Verify(tokenString, sec.TokenTypeAccess)
	require.NoError(t, err)

	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ava", claims.Username)
	assert.Equal(t, "session-456", claims.SessionID)
	assert.Equal(t, sec.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, []string{"agent"}, claims.Roles)
	assert.Equal(t, []string{"orders:read", "orders:write"}, claims.Permissions)

	rebuilt := claims.Identity()
	assert.True(t, rebuilt.Permissions.Allows("orders:read"))
	assert.False(t, rebuilt.Permissions.Allows("admin:write"))
}

/*
TestTokenService_TamperedToken flips one byte of a valid token and expects
a generic invalid-token failure.
*/
func TestTokenService_TamperedToken(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	tokenString, err := service.IssueAccess(testIdentity())
	require.NoError(t, err)

	tampered := []byte(tokenString)
	tampered[len(tampered)-1] ^= 0x01

	_, err = service.Verify(string(tampered), sec.TokenTypeAccess)
	assert.ErrorIs(t, err, sec.ErrTokenInvalid)
}

/*
TestTokenService_WrongType ensures a refresh token never passes an access
check and vice versa.
*/
func TestTokenService_WrongType(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	accessToken, err := service.IssueAccess(testIdentity())
	require.NoError(t, err)

	refreshToken, err := service.IssueRefresh("user-123", "session-456")
	require.NoError(t, err)

	// A refresh token on an access check fails before the type comparison:
	// it was signed with the other secret.
	_, err = service.Verify(refreshToken, sec.TokenTypeAccess)
	assert.Error(t, err)

	_, err = service.Verify(accessToken, sec.TokenTypeRefresh)
	assert.Error(t, err)
}

/*
TestTokenService_Expired issues a token with a negative TTL and expects the
distinguishable expiry error.
*/
func TestTokenService_Expired(t *testing.T) {
	service := newTestTokenService(t, -time.Minute, 24*time.Hour)

	tokenString, err := service.IssueAccess(testIdentity())
	require.NoError(t, err)

	_, err = service.Verify(tokenString, sec.TokenTypeAccess)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenService_Garbage verifies malformed input maps to ErrTokenInvalid.
*/
func TestTokenService_Garbage(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	for _, input := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := service.Verify(input, sec.TokenTypeAccess)
		assert.ErrorIs(t, err, sec.ErrTokenInvalid)
	}
}

/*
TestAuthClaims_RemainingLifetime covers the blacklist TTL bound.
*/
func TestAuthClaims_RemainingLifetime(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	tokenString, err := service.IssueAccess(testIdentity())
	require.NoError(t, err)

	claims, err := service.Verify(tokenString, sec.TokenTypeAccess)
	require.NoError(t, err)

	remaining := claims.RemainingLifetime()
	assert.Greater(t, remaining, 55*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)

	// No expiry claim means nothing to blacklist.
	var empty sec.AuthClaims
	assert.Equal(t, time.Duration(0), empty.RemainingLifetime())
}
