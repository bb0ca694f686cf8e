// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing,
// Permission sets) from the domain logic. It acts as an Infrastructure
// service injected into the Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Token Types

const (
	// TokenTypeAccess marks short-lived bearer credentials for API requests.
	TokenTypeAccess = "access"

	// TokenTypeRefresh marks long-lived credentials used solely to obtain
	// new access tokens.
	TokenTypeRefresh = "refresh"
)

// # Verification Failures

var (
	// ErrTokenExpired is returned when the signature is valid but the token
	// is past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid is returned for bad signatures, malformed tokens, or
	// unexpected signing methods.
	ErrTokenInvalid = errors.New("sec: token invalid")

	// ErrWrongTokenType is returned when a token of one class is presented
	// where the other is expected. A refresh token must never pass an
	// access-token check, even though both are validly signed.
	ErrWrongTokenType = errors.New("sec: wrong token type")
)

// AuthClaims represents the payload embedded inside a Vendra JWT.
//
// # Why custom claims?
//
// By embedding the identity, role, and permission snapshot directly inside
// the access token, the guard can rebuild the request [Identity] without a
// database query. Revocability is preserved separately: the session id is
// still checked against the session cache on every protected request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID      string   `json:"uid"`
	Username    string   `json:"unm,omitempty"`
	Roles       []string `json:"rol,omitempty"`
	Permissions []string `json:"prm,omitempty"`
	SessionID   string   `json:"sid"`
	TokenType   string   `json:"typ"`
}

// Identity converts verified claims into the immutable request [Identity].
func (claims *AuthClaims) Identity() Identity {
	return Identity{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Roles:       NewRoleSet(claims.Roles),
		Permissions: NewPermissionSet(claims.Permissions),
		SessionID:   claims.SessionID,
	}
}

// TokenService issues and verifies HS256-signed access and refresh tokens.
//
// # Two Secrets
//
// Access and refresh tokens are signed with distinct secrets: compromise of
// one token class's signing key must not let an attacker forge the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenService creates a TokenService with separate signing secrets and
// fixed lifetimes per token class.
func NewTokenService(accessSecret, refreshSecret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("sec: signing secrets must not be empty")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}

	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (service *TokenService) RefreshTTL() time.Duration { return service.refreshTTL }

// IssueAccess creates a signed access token embedding the full identity
// snapshot and the session reference.
func (service *TokenService) IssueAccess(identity Identity) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.accessTTL)),
		},
		UserID:      identity.UserID,
		Username:    identity.Username,
		Roles:       identity.Roles.Values(),
		Permissions: identity.Permissions.Values(),
		SessionID:   identity.SessionID,
		TokenType:   TokenTypeAccess,
	}

	return service.sign(claims, service.accessSecret)
}

// IssueRefresh creates a signed refresh token carrying only the user and
// session references. Roles and permissions are deliberately omitted — a
// refresh re-reads the snapshot from the session, not from the token.
func (service *TokenService) IssueRefresh(userID, sessionID string) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(service.refreshTTL)),
		},
		UserID:    userID,
		SessionID: sessionID,
		TokenType: TokenTypeRefresh,
	}

	return service.sign(claims, service.refreshSecret)
}

// Verify checks the signature, expiry, and type discriminator of a token.
//
// # Failure Modes
//
//   - [ErrTokenExpired]: valid signature, past expiry.
//   - [ErrTokenInvalid]: bad signature, malformed input, wrong algorithm.
//   - [ErrWrongTokenType]: type mismatch; never silently coerced.
func (service *TokenService) Verify(tokenString, expectedType string) (*AuthClaims, error) {
	secret := service.accessSecret
	if expectedType == TokenTypeRefresh {
		secret = service.refreshSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != expectedType {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

// RemainingLifetime returns how long a verified token has until expiry.
//
// The value bounds the blacklist TTL: an already-expired token needs no
// blacklist entry at all.
func (claims *AuthClaims) RemainingLifetime() time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// sign serializes and signs claims with the given secret.
func (service *TokenService) sign(claims AuthClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}
