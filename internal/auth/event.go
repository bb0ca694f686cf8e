// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import "time"

// # Audit Event Taxonomy

// EventType enumerates the security-sensitive outcomes recorded by the core.
//
// Event types are a closed enum, never free text, so that forensic queries
// and alerting rules stay stable across releases.
type EventType string

const (
	EventLoginSuccess     EventType = "LOGIN_SUCCESS"
	EventLoginFailed      EventType = "LOGIN_FAILED"
	EventLoginLocked      EventType = "LOGIN_LOCKED"
	EventTokenRefreshed   EventType = "TOKEN_REFRESHED"
	EventTokenRevoked     EventType = "TOKEN_REVOKED"
	EventLogout           EventType = "LOGOUT"
	EventPasswordChanged  EventType = "PASSWORD_CHANGED"
	EventTokenRejected    EventType = "TOKEN_REJECTED"
	EventAccessDenied     EventType = "ACCESS_DENIED"
	EventRoleAccessDenied EventType = "ROLE_ACCESS_DENIED"
)

// SecurityEvent is one immutable row in the security-sensitive audit stream.
//
// Rows are appended by the running system and never updated or deleted;
// retention is an operational concern outside this core.
type SecurityEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditEvent is one immutable row in the high-level API-traffic stream.
type AuditEvent struct {
	ID        string    `json:"id"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	UserID    string    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
