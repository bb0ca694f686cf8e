// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vendra/vendra/internal/platform/apperr"
	"github.com/vendra/vendra/internal/platform/constants"
	"github.com/vendra/vendra/internal/platform/ctxutil"
	"github.com/vendra/vendra/internal/platform/metrics"
	"github.com/vendra/vendra/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in the guard.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the concrete
// [sec.TokenService], allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenString, expectedType string) (*sec.AuthClaims, error)
}

// SessionChecker defines the session-cache lookups the guard depends on.
//
// A session's existence is the single source of truth for "is this login
// still valid": an access token with a valid signature but a missing session
// must be rejected.
type SessionChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}

// DenialAuditor receives authorization-denial events for forensic review.
type DenialAuditor interface {
	AccessDenied(ctx context.Context, identity *sec.Identity, required []string)
	RoleAccessDenied(ctx context.Context, identity *sec.Identity, required []string)
	TokenRejected(ctx context.Context, reason, ip, userAgent string)
}

// Guard applies token verification, blacklist and session checks, and RBAC
// gates to protected routes.
//
// # Fail Closed
//
// Any session-cache failure is converted into a 503 rejection. A request
// that cannot be verified is never allowed through on token signature alone.
type Guard struct {
	verifier TokenVerifier
	sessions SessionChecker
	audit    DenialAuditor
}

// NewGuard constructs a Guard with its injected dependencies.
func NewGuard(verifier TokenVerifier, sessions SessionChecker, audit DenialAuditor) *Guard {
	return &Guard{
		verifier: verifier,
		sessions: sessions,
		audit:    audit,
	}
}

// Authenticate extracts and verifies the bearer token from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, the request proceeds as anonymous (gates block it later).
//  3. Check the revocation blacklist.
//  4. Verify signature, expiry, and type discriminator (must be "access").
//  5. Confirm the claims' session id still resolves in the session cache.
//  6. Inject the immutable [sec.Identity] into the request context.
//
// Expired, invalid, revoked, and session-expired tokens produce
// distinguishable 401 reasons.
func (guard *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		authHeader := request.Header.Get(constants.HeaderAuthorization)

		// ── 1. Anonymous Access ───────────────────────────────────────────
		if authHeader == "" {
			next.ServeHTTP(writer, request)
			return
		}

		// ── 2. Format Validation ──────────────────────────────────────────
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], constants.BearerScheme) {
			guard.rejectToken(writer, request, apperr.Unauthorized("Invalid authorization format"))
			return
		}
		tokenString := parts[1]

		// ── 3. Revocation Blacklist ───────────────────────────────────────
		revoked, err := guard.sessions.IsBlacklisted(request.Context(), tokenString)
		if err != nil {
			guard.reject(writer, request, apperr.Dependency(err))
			return
		}
		if revoked {
			guard.rejectToken(writer, request, apperr.Unauthorized("Token has been revoked"))
			return
		}

		// ── 4. Token Verification ─────────────────────────────────────────
		claims, err := guard.verifier.Verify(tokenString, sec.TokenTypeAccess)
		if err != nil {
			guard.rejectToken(writer, request, verificationError(err))
			return
		}

		// ── 5. Session Liveness ───────────────────────────────────────────
		alive, err := guard.sessions.SessionExists(request.Context(), claims.SessionID)
		if err != nil {
			guard.reject(writer, request, apperr.Dependency(err))
			return
		}
		if !alive {
			guard.rejectToken(writer, request, apperr.Unauthorized("Session expired"))
			return
		}

		// ── 6. Context Injection ──────────────────────────────────────────
		identity := claims.Identity()
		ctx := ctxutil.WithIdentity(request.Context(), &identity)
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// verificationError maps token verification failures to distinguishable
// client-safe 401 responses.
func verificationError(err error) *apperr.AppError {
	switch err {
	case sec.ErrTokenExpired:
		return apperr.Unauthorized("Token expired")
	case sec.ErrWrongTokenType:
		return apperr.Unauthorized("Wrong token type")
	default:
		return apperr.Unauthorized("Invalid token")
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Guard.Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity := ctxutil.GetIdentity(request.Context())
		if identity == nil {
			writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequirePermission blocks requests whose identity lacks the given permission.
//
// # Flow
//  1. Check that an identity exists in context (implies AuthN).
//  2. Pass if the wildcard permission is present OR the named permission is
//     in the attached snapshot.
//  3. Otherwise abort with HTTP 403 and emit an ACCESS_DENIED audit event
//     carrying the required vs. actual sets.
func (guard *Guard) RequirePermission(permission sec.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.Permissions.Allows(permission) {
				metrics.AccessDenied("permission")
				guard.audit.AccessDenied(request.Context(), identity, []string{string(permission)})
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequireRole blocks requests whose identity holds none of the given roles.
//
// The gate passes when the intersection of the identity's role snapshot and
// the required roles is non-empty.
func (guard *Guard) RequireRole(roles ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.Roles.ContainsAny(roles...) {
				required := make([]string, 0, len(roles))
				for _, role := range roles {
					required = append(required, string(role))
				}

				metrics.AccessDenied("role")
				guard.audit.RoleAccessDenied(request.Context(), identity, required)
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient role")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// rejectToken records a security event for a credential presented and
// refused (revoked, expired, malformed, dead session) before rejecting.
// Dependency failures go through reject directly; an outage is not a denial.
func (guard *Guard) rejectToken(writer http.ResponseWriter, request *http.Request, appError *apperr.AppError) {
	guard.audit.TokenRejected(request.Context(), appError.Message, RealIP(request), request.UserAgent())
	guard.reject(writer, request, appError)
}

// reject writes a standardized JSON error for guard-level denials.
func (guard *Guard) reject(writer http.ResponseWriter, request *http.Request, appError *apperr.AppError) {
	if appError.HTTPStatus >= 500 {
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "guard_dependency_failure",
			"code", appError.Code,
			"cause", appError.Cause,
		)
	}
	writeError(writer, appError.HTTPStatus, appError.Code, appError.Message)
}
