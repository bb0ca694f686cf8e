// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendra/vendra/internal/platform/apperr"
	"github.com/vendra/vendra/pkg/pagination"
)

// # Credential Store

// PostgresUserStore implements the [UserStore] interface using pgx.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL implementation of the [UserStore].
func NewUserStore(pool *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{pool: pool}
}

/*
FindByUsername retrieves a user record by their unique username, hydrated
with the effective roles and permissions from the RBAC join tables.

Parameters:
  - context: context.Context
  - username: string (already normalized)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *PostgresUserStore) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, isactive, passwordchangedat, createdat, updatedat
		FROM users.account
		WHERE username = $1`

	return store.findOne(context, query, username)
}

/*
FindByID retrieves a user record by primary key, hydrated with the effective
roles and permissions.

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (store *PostgresUserStore) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, isactive, passwordchangedat, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	return store.findOne(context, query, id)
}

// findOne scans one account row and hydrates the role/permission snapshot.
func (store *PostgresUserStore) findOne(context context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := store.pool.QueryRow(context, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_store_find_failed: %w", err)
	}

	if err := store.loadGrants(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
loadGrants hydrates the user's role names and the union of the permissions
of all assigned roles.

The wildcard permission, if granted to any role, appears in the set like any
other name; the sentinel handling lives in [sec.PermissionSet.Allows].
*/
func (store *PostgresUserStore) loadGrants(context context.Context, user *User) error {
	const roleQuery = `
		SELECT r.name
		FROM users.role r
		JOIN users.userrole ur ON ur.roleid = r.id
		WHERE ur.userid = $1
		ORDER BY r.name`

	roles, err := store.queryNames(context, roleQuery, user.ID)
	if err != nil {
		return fmt.Errorf("postgres_user_store_load_roles_failed: %w", err)
	}

	const permissionQuery = `
		SELECT DISTINCT p.name
		FROM users.permission p
		JOIN users.rolepermission rp ON rp.permissionid = p.id
		JOIN users.userrole ur ON ur.roleid = rp.roleid
		WHERE ur.userid = $1
		ORDER BY p.name`

	permissions, err := store.queryNames(context, permissionQuery, user.ID)
	if err != nil {
		return fmt.Errorf("postgres_user_store_load_permissions_failed: %w", err)
	}

	user.Roles = roles
	user.Permissions = permissions
	return nil
}

// queryNames collects a single-column string result set.
func (store *PostgresUserStore) queryNames(context context.Context, query, userID string) ([]string, error) {
	rows, err := store.pool.Query(context, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0, 8)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

/*
UpdatePassword updates only the password hash for a specific user and stamps
the password-changed timestamp.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Persistence failures
*/
func (store *PostgresUserStore) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, passwordchangedat = $3, updatedat = $3
		WHERE id = $1`

	tag, err := store.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_store_update_password_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// # Audit Store

// PostgresAuditStore implements the append-only [AuditStore] using pgx.
//
// Only INSERT and SELECT statements exist here; the audit streams are
// immutable by construction.
type PostgresAuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new PostgreSQL implementation of the [AuditStore].
func NewAuditStore(pool *pgxpool.Pool) *PostgresAuditStore {
	return &PostgresAuditStore{pool: pool}
}

// InsertSecurityEvent appends one row to the security-sensitive stream.
func (store *PostgresAuditStore) InsertSecurityEvent(context context.Context, event *SecurityEvent) error {
	const query = `
		INSERT INTO system.securityevent (
			id, eventtype, userid, username, ipaddress, useragent, details, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("postgres_audit_store_marshal_failed: %w", err)
	}

	_, err = store.pool.Exec(context, query,
		event.ID,
		event.Type,
		nullable(event.UserID),
		nullable(event.Username),
		nullable(event.IPAddress),
		nullable(event.UserAgent),
		details,
		event.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_audit_store_insert_security_failed: %w", err)
	}

	return nil
}

// InsertAuditEvent appends one row to the API-traffic stream.
func (store *PostgresAuditStore) InsertAuditEvent(context context.Context, event *AuditEvent) error {
	const query = `
		INSERT INTO system.auditevent (
			id, method, path, status, userid, ipaddress, useragent, requestid, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := store.pool.Exec(context, query,
		event.ID,
		event.Method,
		event.Path,
		event.Status,
		nullable(event.UserID),
		nullable(event.IPAddress),
		nullable(event.UserAgent),
		nullable(event.RequestID),
		event.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_audit_store_insert_audit_failed: %w", err)
	}

	return nil
}

/*
ListSecurityEvents returns a page of the security stream, newest first.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []SecurityEvent: One page, newest first
  - int: Total row count for pagination metadata
  - error: Retrieval failures
*/
// userid is a uuid column; it must be cast to text before COALESCE, or the
// empty-string fallback fails uuid input parsing at execution time.
const listSecurityEventsQuery = `
	SELECT id, eventtype, COALESCE(userid::text, ''), COALESCE(username, ''),
	       COALESCE(ipaddress, ''), COALESCE(useragent, ''), details, createdat
	FROM system.securityevent
	ORDER BY createdat DESC
	LIMIT $1 OFFSET $2`

func (store *PostgresAuditStore) ListSecurityEvents(context context.Context, params pagination.Params) ([]SecurityEvent, int, error) {
	const countQuery = `SELECT COUNT(*) FROM system.securityevent`

	var total int
	if err := store.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_store_count_failed: %w", err)
	}

	rows, err := store.pool.Query(context, listSecurityEventsQuery, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_store_list_failed: %w", err)
	}
	defer rows.Close()

	events := make([]SecurityEvent, 0, params.Limit)
	for rows.Next() {
		var event SecurityEvent
		var details []byte

		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.UserID,
			&event.Username,
			&event.IPAddress,
			&event.UserAgent,
			&details,
			&event.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_audit_store_scan_failed: %w", err)
		}

		if len(details) > 0 {
			_ = json.Unmarshal(details, &event.Details)
		}

		events = append(events, event)
	}

	return events, total, rows.Err()
}

// nullable maps an empty string to SQL NULL.
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
