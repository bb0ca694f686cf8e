// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"context"
	"time"

	"github.com/vendra/vendra/pkg/pagination"
)

// # Credential Data Access

// UserStore defines the data access contract for the durable credential store.
type UserStore interface {

	/*
		FindByUsername returns the account with the given (normalized) username,
		hydrated with its effective roles and permissions.

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByID returns the account with the given ID, hydrated with its
		effective roles and permissions.
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		UpdatePassword replaces only the user's password hash and stamps
		the password-changed timestamp.
	*/
	UpdatePassword(context context.Context, userID, newHash string) error
}

// # Audit Data Access

// AuditStore defines the append-only contract for the two audit streams.
//
// Implementations must never expose update or delete operations.
type AuditStore interface {

	// InsertSecurityEvent appends one row to the security-sensitive stream.
	InsertSecurityEvent(context context.Context, event *SecurityEvent) error

	// InsertAuditEvent appends one row to the API-traffic stream.
	InsertAuditEvent(context context.Context, event *AuditEvent) error

	/*
		ListSecurityEvents returns a page of the security stream, newest first,
		with the total row count for pagination metadata.
	*/
	ListSecurityEvents(context context.Context, params pagination.Params) ([]SecurityEvent, int, error)
}

// # Session Cache

// SessionCache defines the volatile session-state contract.
//
// # Invariant
//
// A session's existence is the single source of truth for "is this login
// still valid". Every record class carries an explicit TTL mirroring the
// corresponding token lifetime; expiry is the cache's native mechanism,
// never a manual sweep.
type SessionCache interface {

	// CreateSession stores a session snapshot under its id with the given TTL.
	CreateSession(context context.Context, session *Session, ttl time.Duration) error

	/*
		GetSession returns the snapshot for the given session id.

		Returns:
		  - *Session: Hydrated snapshot
		  - error: apperr.NotFound when absent or expired; connectivity errors
	*/
	GetSession(context context.Context, sessionID string) (*Session, error)

	// SessionExists reports whether the session id still resolves.
	SessionExists(context context.Context, sessionID string) (bool, error)

	// DeleteSession removes the session record immediately.
	DeleteSession(context context.Context, sessionID string) error

	// MapRefreshToken stores the refresh-token → session-id reverse mapping.
	MapRefreshToken(context context.Context, token, sessionID string, ttl time.Duration) error

	/*
		ResolveRefreshToken returns the session id a refresh token maps to.

		Returns:
		  - string: Session id
		  - error: apperr.NotFound when the mapping is absent or expired
	*/
	ResolveRefreshToken(context context.Context, token string) (string, error)

	// UnmapRefreshToken removes the reverse mapping, revoking the token.
	UnmapRefreshToken(context context.Context, token string) error

	// Blacklist marks a revoked access token for its remaining lifetime.
	// A non-positive TTL is a no-op: an expired token needs no entry.
	Blacklist(context context.Context, token string, ttl time.Duration) error

	// IsBlacklisted reports whether the access token was revoked.
	IsBlacklisted(context context.Context, token string) (bool, error)

	/*
		IncrementFailures atomically increments the failed-attempt counter for
		an identifier. The TTL window is applied only when the key is created,
		so the window slides from the FIRST failure, not the most recent one.

		Returns:
		  - int64: The counter value after the increment
	*/
	IncrementFailures(context context.Context, identifier string, window time.Duration) (int64, error)

	// FailureCount returns the current counter value (0 when absent).
	FailureCount(context context.Context, identifier string) (int64, error)

	// ResetFailures clears the counter for an identifier.
	ResetFailures(context context.Context, identifier string) error
}
