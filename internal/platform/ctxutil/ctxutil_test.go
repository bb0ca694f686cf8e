// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package ctxutil_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendra/vendra/internal/platform/ctxutil"
	"github.com/vendra/vendra/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()
	requestID := "test-request-id"

	// 1. Initially should be empty
	assert.Empty(t, ctxutil.GetRequestID(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithRequestID(ctx, requestID)
	assert.Equal(t, requestID, ctxutil.GetRequestID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Identity verifies that a request identity can be stored in context.
*/
func TestContext_Identity(t *testing.T) {
	ctx := context.Background()
	identity := &sec.Identity{
		UserID:      "user-123",
		Username:    "ava",
		Roles:       sec.NewRoleSet([]string{"admin"}),
		Permissions: sec.NewPermissionSet([]string{"audit:read"}),
		SessionID:   "session-456",
	}

	// 1. Initially should be nil
	assert.Nil(t, ctxutil.GetIdentity(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithIdentity(ctx, identity)
	retrieved := ctxutil.GetIdentity(ctx)

	assert.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.UserID)
	assert.Equal(t, "session-456", retrieved.SessionID)
	assert.True(t, retrieved.Roles.ContainsAny("admin"))
}

/*
TestContext_IdentityCarrier verifies an identity attached on a derived
context is visible through a carrier seeded on the parent. Middleware that
runs outside the guard depends on this to resolve the principal.
*/
func TestContext_IdentityCarrier(t *testing.T) {
	outer := ctxutil.WithIdentityCarrier(context.Background())

	// 1. Nothing published yet
	assert.Nil(t, ctxutil.GetIdentity(outer))

	// 2. The guard attaches the identity further down the chain
	inner := ctxutil.WithIdentity(outer, &sec.Identity{UserID: "user-123"})

	// 3. Both the derived and the original context resolve it
	assert.Equal(t, "user-123", ctxutil.GetIdentity(inner).UserID)

	retrieved := ctxutil.GetIdentity(outer)
	assert.NotNil(t, retrieved)
	assert.Equal(t, "user-123", retrieved.UserID)
}
