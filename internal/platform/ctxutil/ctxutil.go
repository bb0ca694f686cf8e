// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/vendra/vendra/internal/platform/ctxkey"
	"github.com/vendra/vendra/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// # Identity & Access

// identityCarrier is a mutable slot seeded at the top of the middleware
// chain. Context values only flow downward, so middleware wrapping the
// access-control guard (request logging, audit trail) would never see the
// identity the guard attaches further down; the carrier lets them observe
// it after the inner handlers return.
//
// It is written and read only on the request goroutine.
type identityCarrier struct {
	identity *sec.Identity
}

// WithIdentityCarrier seeds an empty identity slot into the context.
// Installed once per request by the outermost middleware.
func WithIdentityCarrier(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxkey.KeyIdentityCarrier, &identityCarrier{})
}

// WithIdentity returns a new context with the authenticated identity attached.
//
// The identity is attached exactly once by the access-control guard and is
// never replaced or mutated downstream. If an identity carrier is present,
// the identity is also published to it so middleware outside the guard can
// record the authenticated principal.
func WithIdentity(ctx context.Context, identity *sec.Identity) context.Context {
	if carrier, ok := ctx.Value(ctxkey.KeyIdentityCarrier).(*identityCarrier); ok {
		carrier.identity = identity
	}
	return context.WithValue(ctx, ctxkey.KeyIdentity, identity)
}

// GetIdentity retrieves the [*sec.Identity] from the [context.Context].
// Returns nil for anonymous requests.
//
// Falls back to the identity carrier, so callers holding a context from
// outside the guard still resolve the principal once authentication ran.
func GetIdentity(ctx context.Context) *sec.Identity {
	if identity, ok := ctx.Value(ctxkey.KeyIdentity).(*sec.Identity); ok {
		return identity
	}
	if carrier, ok := ctx.Value(ctxkey.KeyIdentityCarrier).(*identityCarrier); ok {
		return carrier.identity
	}
	return nil
}
