// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendra/vendra/internal/platform/sec"
)

/*
TestPermissionSet_Allows covers named grants and the wildcard sentinel.
*/
func TestPermissionSet_Allows(t *testing.T) {
	tests := []struct {
		name    string
		granted []string
		check   sec.Permission
		allowed bool
	}{
		{"exact_match", []string{"orders:read"}, "orders:read", true},
		{"missing_permission", []string{"orders:read"}, "orders:write", false},
		{"wildcard_grants_everything", []string{"*"}, "anything:at_all", true},
		{"wildcard_among_others", []string{"orders:read", "*"}, "users:delete", true},
		{"empty_set", nil, "orders:read", false},
		{"no_prefix_matching", []string{"orders:read"}, "orders", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := sec.NewPermissionSet(tt.granted)
			assert.Equal(t, tt.allowed, set.Allows(tt.check))
		})
	}
}

/*
TestPermissionSet_Values checks the deterministic sorted output used in
token claims.
*/
func TestPermissionSet_Values(t *testing.T) {
	set := sec.NewPermissionSet([]string{"b:write", "a:read", "c:delete"})
	assert.Equal(t, []string{"a:read", "b:write", "c:delete"}, set.Values())
}

/*
TestRoleSet_ContainsAny covers the role-gate intersection semantics.
*/
func TestRoleSet_ContainsAny(t *testing.T) {
	set := sec.NewRoleSet([]string{"agent", "support"})

	assert.True(t, set.ContainsAny("agent"))
	assert.True(t, set.ContainsAny("admin", "support"))
	assert.False(t, set.ContainsAny("admin"))
	assert.False(t, set.ContainsAny())
}
