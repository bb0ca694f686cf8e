// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vendra/vendra/internal/platform/apperr"
	"github.com/vendra/vendra/internal/platform/constants"
	"github.com/vendra/vendra/internal/platform/metrics"
	"github.com/vendra/vendra/internal/platform/sec"
	"github.com/vendra/vendra/pkg/normalize"
	"github.com/vendra/vendra/pkg/pagination"
	"github.com/vendra/vendra/pkg/uuidv7"
)

// TokenProvider is the token-issuance contract the service depends on.
//
// Defined here rather than importing [sec.TokenService] directly so the
// orchestrator can be unit-tested with a deterministic fake.
type TokenProvider interface {
	IssueAccess(identity sec.Identity) (string, error)
	IssueRefresh(userID, sessionID string) (string, error)
	Verify(tokenString, expectedType string) (*sec.AuthClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// Options toggles the behaviors that are deployment decisions, not code.
type Options struct {
	// LockoutByAccount additionally tracks failed attempts per account key,
	// so an attacker rotating source addresses is still slowed down.
	LockoutByAccount bool
	// RefreshRotation invalidates the presented refresh token on each
	// refresh and issues a replacement.
	RefreshRotation bool
}

// Service orchestrates the credential lifecycle: login, refresh, revocation,
// password change, and the security-event feed.
type Service struct {
	users   UserStore
	cache   SessionCache
	tokens  TokenProvider
	hasher  *sec.Hasher
	lockout *Lockout
	audit   *Recorder
	events  AuditStore
	logger  *slog.Logger
	options Options
}

// NewService wires the orchestrator with its injected dependencies.
func NewService(
	users UserStore,
	cache SessionCache,
	tokens TokenProvider,
	hasher *sec.Hasher,
	lockout *Lockout,
	audit *Recorder,
	events AuditStore,
	logger *slog.Logger,
	options Options,
) *Service {
	return &Service{
		users:   users,
		cache:   cache,
		tokens:  tokens,
		hasher:  hasher,
		lockout: lockout,
		audit:   audit,
		events:  events,
		logger:  logger,
		options: options,
	}
}

// # Request Metadata

// RequestMeta carries the caller-context facts every audit row records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// # Results

// TokenPair is the issued credential material for one session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult is the full login response payload.
type LoginResult struct {
	TokenPair
	User *User `json:"user"`
}

// # Login

/*
Login authenticates a username/password pair and establishes a session.

# Flow

 1. Check the lockout state FIRST; an engaged lockout rejects the attempt
    without evaluating the password, even a correct one.
 2. Look up the account by normalized username.
 3. An unknown account, a deactivated account, and a wrong password all
    produce the SAME generic failure, record a lockout strike, and emit a
    LOGIN_FAILED event.
 4. On success: reset the counters, create the session snapshot, issue the
    access/refresh pair, and map the refresh token to the session.

Parameters:
  - username: Raw username as submitted (normalized internally)
  - password: Plaintext password

Returns:
  - *LoginResult: Token pair plus the sanitized account
  - error: apperr.RateLimited when locked, apperr.Unauthorized on bad
    credentials, apperr.Dependency when the cache is unreachable
*/
func (service *Service) Login(ctx context.Context, username, password string, meta RequestMeta) (*LoginResult, error) {
	username = normalize.Username(username)
	identifiers := service.lockoutIdentifiers(username, meta)

	// ── 1. Lockout Gate ───────────────────────────────────────────────────
	locked, err := service.lockout.IsLocked(ctx, identifiers...)
	if err != nil {
		// Counter state unknown means the gate cannot be trusted: fail closed.
		return nil, apperr.Dependency(err)
	}
	if locked {
		metrics.LoginAttempt("locked")
		service.audit.Security(&SecurityEvent{
			Type:      EventLoginLocked,
			Username:  username,
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		})
		return nil, apperr.RateLimited(int(service.lockout.Window().Seconds()))
	}

	// ── 2. Credential Check ───────────────────────────────────────────────
	user, err := service.users.FindByUsername(ctx, username)
	if err != nil && !isNotFound(err) {
		return nil, apperr.Internal(fmt.Errorf("login_lookup: %w", err))
	}
	if user == nil || !user.IsActive || !service.hasher.Verify(password, user.PasswordHash) {
		return nil, service.failLogin(ctx, username, user, identifiers, meta)
	}

	// ── 3. Session Establishment ──────────────────────────────────────────
	if err := service.lockout.Reset(ctx, identifiers...); err != nil {
		// Stale counters only shorten the next window; the login proceeds.
		service.logger.WarnContext(ctx, "lockout_reset_failed", slog.Any("error", err))
	}

	session := &Session{
		ID:          uuidv7.New(),
		UserID:      user.ID,
		Username:    user.Username,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		CreatedAt:   time.Now(),
	}
	if err := service.cache.CreateSession(ctx, session, service.tokens.RefreshTTL()); err != nil {
		return nil, apperr.Dependency(err)
	}

	pair, err := service.issuePair(ctx, session)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttempt("success")
	service.audit.Security(&SecurityEvent{
		Type:      EventLoginSuccess,
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   map[string]any{"session_id": session.ID},
	})

	return &LoginResult{TokenPair: *pair, User: user.Sanitized()}, nil
}

// failLogin applies the strike-and-audit path shared by every login failure
// mode. The returned error is identical for unknown accounts, deactivated
// accounts, and wrong passwords.
func (service *Service) failLogin(ctx context.Context, username string, user *User, identifiers []string, meta RequestMeta) error {
	if err := service.lockout.RecordFailure(ctx, identifiers...); err != nil {
		// An untracked failure weakens the lockout gate: fail closed.
		return apperr.Dependency(err)
	}

	event := &SecurityEvent{
		Type:      EventLoginFailed,
		Username:  username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if user != nil {
		event.UserID = user.ID
		if !user.IsActive {
			event.Details = map[string]any{"reason": "account_inactive"}
		}
	}
	metrics.LoginAttempt("failed")
	service.audit.Security(event)

	return apperr.Unauthorized("Invalid username or password")
}

// issuePair signs the access/refresh pair for a session snapshot and maps
// the refresh token back to the session id.
func (service *Service) issuePair(ctx context.Context, session *Session) (*TokenPair, error) {
	accessToken, err := service.tokens.IssueAccess(session.Identity())
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue_access: %w", err))
	}
	refreshToken, err := service.tokens.IssueRefresh(session.UserID, session.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue_refresh: %w", err))
	}
	if err := service.cache.MapRefreshToken(ctx, refreshToken, session.ID, service.tokens.RefreshTTL()); err != nil {
		return nil, apperr.Dependency(err)
	}

	metrics.TokenIssued(sec.TokenTypeAccess)
	metrics.TokenIssued(sec.TokenTypeRefresh)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    constants.BearerScheme,
		ExpiresIn:    int64(service.tokens.AccessTTL().Seconds()),
	}, nil
}

// lockoutIdentifiers returns the counter keys a login attempt is tracked
// under: always the source address, plus the account key when enabled.
func (service *Service) lockoutIdentifiers(username string, meta RequestMeta) []string {
	identifiers := []string{meta.IP}
	if service.options.LockoutByAccount && username != "" {
		identifiers = append(identifiers, accountKey(username))
	}
	return identifiers
}

// # Refresh

/*
Refresh exchanges a valid refresh token for a new access token.

The new access token carries the roles and permissions captured in the
session snapshot at login, NOT the account's current assignments, and the
session lifetime is not extended. When rotation is enabled the presented
refresh token is invalidated and a replacement is returned.

Returns:
  - *TokenPair: New access token (and replacement refresh token when rotating)
  - error: apperr.Unauthorized when the token is expired, revoked, or the
    session no longer exists
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*TokenPair, error) {
	// ── 1. Token Verification ─────────────────────────────────────────────
	claims, err := service.tokens.Verify(refreshToken, sec.TokenTypeRefresh)
	if err != nil {
		return nil, refreshTokenError(err)
	}

	// ── 2. Revocation Check ───────────────────────────────────────────────
	sessionID, err := service.cache.ResolveRefreshToken(ctx, refreshToken)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Unauthorized("Refresh token revoked")
		}
		return nil, apperr.Dependency(err)
	}
	if sessionID != claims.SessionID {
		return nil, apperr.Unauthorized("Refresh token revoked")
	}

	// ── 3. Session Snapshot ───────────────────────────────────────────────
	session, err := service.cache.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Unauthorized("Session expired")
		}
		return nil, apperr.Dependency(err)
	}

	// ── 4. Reissue ────────────────────────────────────────────────────────
	accessToken, err := service.tokens.IssueAccess(session.Identity())
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("reissue_access: %w", err))
	}
	metrics.TokenIssued(sec.TokenTypeAccess)

	pair := &TokenPair{
		AccessToken: accessToken,
		TokenType:   constants.BearerScheme,
		ExpiresIn:   int64(service.tokens.AccessTTL().Seconds()),
	}

	if service.options.RefreshRotation {
		rotated, err := service.rotateRefreshToken(ctx, refreshToken, claims, session)
		if err != nil {
			return nil, err
		}
		pair.RefreshToken = rotated
	}

	service.audit.Security(&SecurityEvent{
		Type:      EventTokenRefreshed,
		UserID:    session.UserID,
		Username:  session.Username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   map[string]any{"session_id": session.ID, "rotated": service.options.RefreshRotation},
	})

	return pair, nil
}

// rotateRefreshToken replaces the presented refresh token with a fresh one
// scoped to the REMAINING session lifetime, so rotation never extends it.
func (service *Service) rotateRefreshToken(ctx context.Context, oldToken string, claims *sec.AuthClaims, session *Session) (string, error) {
	newToken, err := service.tokens.IssueRefresh(session.UserID, session.ID)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("rotate_refresh: %w", err))
	}

	remaining := claims.RemainingLifetime()
	if err := service.cache.MapRefreshToken(ctx, newToken, session.ID, remaining); err != nil {
		return "", apperr.Dependency(err)
	}
	if err := service.cache.UnmapRefreshToken(ctx, oldToken); err != nil {
		return "", apperr.Dependency(err)
	}

	metrics.TokenIssued(sec.TokenTypeRefresh)
	return newToken, nil
}

// refreshTokenError maps refresh-token verification failures onto
// distinguishable 401 responses.
func refreshTokenError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, sec.ErrTokenExpired):
		return apperr.Unauthorized("Refresh token expired")
	case errors.Is(err, sec.ErrWrongTokenType):
		return apperr.Unauthorized("Wrong token type")
	default:
		return apperr.Unauthorized("Invalid refresh token")
	}
}

// accessTokenError is the access-token counterpart of [refreshTokenError].
func accessTokenError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, sec.ErrTokenExpired):
		return apperr.Unauthorized("Token expired")
	case errors.Is(err, sec.ErrWrongTokenType):
		return apperr.Unauthorized("Wrong token type")
	default:
		return apperr.Unauthorized("Invalid token")
	}
}

// # Logout

/*
Logout revokes the presented access token and destroys its session.

The access token's signature and hash are blacklisted for its remaining
lifetime, the backing session record is deleted (which invalidates EVERY
access token minted for it once they are re-checked against the cache),
and the refresh-token mapping is removed when one is supplied.
*/
func (service *Service) Logout(ctx context.Context, accessToken, refreshToken string, meta RequestMeta) error {
	claims, err := service.tokens.Verify(accessToken, sec.TokenTypeAccess)
	if err != nil {
		return accessTokenError(err)
	}

	// Blacklist only for the remaining validity; an expired token needs none.
	if err := service.cache.Blacklist(ctx, accessToken, claims.RemainingLifetime()); err != nil {
		return apperr.Dependency(err)
	}
	if err := service.cache.DeleteSession(ctx, claims.SessionID); err != nil {
		return apperr.Dependency(err)
	}
	if refreshToken != "" {
		if err := service.cache.UnmapRefreshToken(ctx, refreshToken); err != nil {
			return apperr.Dependency(err)
		}
	}

	service.audit.Security(&SecurityEvent{
		Type:      EventLogout,
		UserID:    claims.UserID,
		Username:  claims.Username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   map[string]any{"session_id": claims.SessionID},
	})
	service.audit.Security(&SecurityEvent{
		Type:      EventTokenRevoked,
		UserID:    claims.UserID,
		Username:  claims.Username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Details:   map[string]any{"session_id": claims.SessionID, "refresh_revoked": refreshToken != ""},
	})

	return nil
}

// # Password Change

/*
ChangePassword verifies the current password and stores a new hash.

A wrong current password is a validation failure on that field and leaves
the stored hash untouched. Existing sessions stay valid: revoking other
devices is an explicit logout decision, not a side effect.
*/
func (service *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string, meta RequestMeta) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return apperr.NotFound("User")
		}
		return apperr.Internal(fmt.Errorf("change_password_lookup: %w", err))
	}

	if !service.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperr.ValidationError("Password change rejected", apperr.FieldError{
			Field:   FieldCurrentPassword,
			Message: "Current password is incorrect",
		})
	}

	newHash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("change_password_hash: %w", err))
	}
	if err := service.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return apperr.Internal(fmt.Errorf("change_password_update: %w", err))
	}

	service.audit.Security(&SecurityEvent{
		Type:      EventPasswordChanged,
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	})

	return nil
}

// # Account Lookup

// Profile returns the sanitized account backing an authenticated identity.
func (service *Service) Profile(ctx context.Context, userID string) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal(fmt.Errorf("profile_lookup: %w", err))
	}
	return user.Sanitized(), nil
}

// # Security Feed

// SecurityEvents returns a page of the security-sensitive audit stream,
// newest first.
func (service *Service) SecurityEvents(ctx context.Context, params pagination.Params) ([]SecurityEvent, int, error) {
	events, total, err := service.events.ListSecurityEvents(ctx, params)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Errorf("list_security_events: %w", err))
	}
	return events, total, nil
}

// isNotFound reports whether an error is the stores' not-found sentinel.
func isNotFound(err error) bool {
	appError := apperr.As(err)
	return appError != nil && appError.HTTPStatus == 404
}
