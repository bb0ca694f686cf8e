// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package sec

import "sort"

// # Permissions

// Permission is an opaque capability token granted through role membership
// (e.g. "orders:write").
type Permission string

// PermissionAll is the reserved wildcard meaning "every permission".
//
// It is an explicit sentinel checked once inside [PermissionSet.Allows],
// never compared at call sites.
const PermissionAll Permission = "*"

// PermissionSet is the effective permission set of a session, computed at
// login as the union of the permissions of all assigned roles.
//
// # Immutability
//
// A PermissionSet is built once per session snapshot and never mutated
// afterwards, so it is safe to share across concurrent requests.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from raw permission names.
func NewPermissionSet(names []string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		set[Permission(name)] = struct{}{}
	}
	return set
}

// Allows reports whether the set grants the given permission.
//
// The wildcard short-circuits every check.
func (set PermissionSet) Allows(permission Permission) bool {
	if _, ok := set[PermissionAll]; ok {
		return true
	}
	_, ok := set[permission]
	return ok
}

// Values returns the sorted permission names, used for token claims and
// audit payloads.
func (set PermissionSet) Values() []string {
	values := make([]string, 0, len(set))
	for permission := range set {
		values = append(values, string(permission))
	}
	sort.Strings(values)
	return values
}

// # Roles

// Role is a named bundle of permissions assigned to users.
type Role string

// RoleSet is the set of roles snapshotted into a session at login.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from raw role names.
func NewRoleSet(names []string) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		set[Role(name)] = struct{}{}
	}
	return set
}

// ContainsAny reports whether the set intersects the given roles.
func (set RoleSet) ContainsAny(roles ...Role) bool {
	for _, role := range roles {
		if _, ok := set[role]; ok {
			return true
		}
	}
	return false
}

// Values returns the sorted role names.
func (set RoleSet) Values() []string {
	values := make([]string, 0, len(set))
	for role := range set {
		values = append(values, string(role))
	}
	sort.Strings(values)
	return values
}

// # Identity

// Identity is the authenticated principal attached to a request context by
// the access-control guard.
//
// # Immutability
//
// An Identity is constructed once from verified token claims and the session
// snapshot, and must never be mutated afterwards.
type Identity struct {
	UserID      string
	Username    string
	Roles       RoleSet
	Permissions PermissionSet
	SessionID   string
}
