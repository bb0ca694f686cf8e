// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

/*
Package auth implements the authentication and session security core.

It owns the full credential lifecycle: login, token issuance and refresh,
revocation, brute-force lockout, and the append-only audit trail.

# Architecture

  - Service: The login/refresh/logout/password-change orchestrator.
  - Stores: Abstracted interfaces for Postgres (credentials, audit) and
    Redis (sessions, refresh mappings, blacklist, lockout counters).
  - Security: Bcrypt hashing and dual-secret HS256 JWTs via [sec].

All shared mutable state lives in the external cache, so service replicas
need no in-process coordination.
*/
package auth

import (
	"time"

	"github.com/vendra/vendra/internal/platform/sec"
)

// # Domain Entities

// User represents an identity record in the credential store.
//
// Users are never deleted, only deactivated. The Roles and Permissions
// fields are hydrated from the role→permission graph at lookup time.
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // Explicitly omitted from JSON for security.
	IsActive          bool      `json:"is_active"`
	Roles             []string  `json:"roles"`
	Permissions       []string  `json:"permissions"`
	PasswordChangedAt time.Time `json:"password_changed_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Sanitized returns a copy safe to embed in API responses.
//
// The hash is already JSON-omitted; clearing it as well means a future
// serialization change cannot leak it.
func (user *User) Sanitized() *User {
	clone := *user
	clone.PasswordHash = ""
	return &clone
}

// Session is the server-side record of one successful login.
//
// # Snapshot Semantics
//
// Roles and permissions are captured once at login and never re-derived:
// an access-token refresh reissues claims from this snapshot even if the
// user's role assignments changed afterwards. Session lifetime is fixed at
// creation and is NOT extended by access-token refreshes.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity builds the immutable request identity from the session snapshot.
func (session *Session) Identity() sec.Identity {
	return sec.Identity{
		UserID:      session.UserID,
		Username:    session.Username,
		Roles:       sec.NewRoleSet(session.Roles),
		Permissions: sec.NewPermissionSet(session.Permissions),
		SessionID:   session.ID,
	}
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldRefreshToken    = "refresh_token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldMessage         = "message"
)
