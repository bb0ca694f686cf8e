// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendra/vendra/internal/auth"
	"github.com/vendra/vendra/internal/platform/ctxutil"
	"github.com/vendra/vendra/internal/platform/sec"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestRecorder_SecurityEventWritten verifies an emitted event reaches the
durable store with an assigned id and timestamp.
*/
func TestRecorder_SecurityEventWritten(t *testing.T) {
	store := newMemoryAuditStore()
	recorder := auth.NewRecorder(store, discardLogger())

	recorder.Security(&auth.SecurityEvent{
		Type:     auth.EventLoginSuccess,
		UserID:   "user-1",
		Username: "ava",
	})
	recorder.Close()

	events := store.eventTypes()
	require.Len(t, events, 1)
	assert.Equal(t, auth.EventLoginSuccess, events[0])

	last := store.lastSecurityEvent()
	assert.NotEmpty(t, last.ID)
	assert.False(t, last.CreatedAt.IsZero())
}

/*
TestRecorder_StoreFailureIsNotFatal confirms a failing store degrades the
audit trail without panicking or blocking emitters.
*/
func TestRecorder_StoreFailureIsNotFatal(t *testing.T) {
	store := newMemoryAuditStore()
	store.insertErr = assert.AnError
	recorder := auth.NewRecorder(store, discardLogger())

	recorder.Security(&auth.SecurityEvent{Type: auth.EventLoginFailed})
	recorder.Close()

	assert.Empty(t, store.eventTypes())
}

/*
TestRecorder_CloseDrainsQueue enqueues a burst and verifies Close waits for
every event to be written.
*/
func TestRecorder_CloseDrainsQueue(t *testing.T) {
	store := newMemoryAuditStore()
	recorder := auth.NewRecorder(store, discardLogger())

	for i := 0; i < 100; i++ {
		recorder.Security(&auth.SecurityEvent{Type: auth.EventLoginFailed})
	}
	recorder.Close()

	assert.Len(t, store.eventTypes(), 100)
}

/*
TestRecorder_DenialCallbacks verifies the guard callbacks record the
required vs. actual sets and the request id.
*/
func TestRecorder_DenialCallbacks(t *testing.T) {
	store := newMemoryAuditStore()
	recorder := auth.NewRecorder(store, discardLogger())

	identity := &sec.Identity{
		UserID:      "user-1",
		Username:    "ava",
		Roles:       sec.NewRoleSet([]string{"agent"}),
		Permissions: sec.NewPermissionSet([]string{"orders:read"}),
		SessionID:   "session-1",
	}
	ctx := ctxutil.WithRequestID(context.Background(), "req-42")

	recorder.AccessDenied(ctx, identity, []string{"audit:read"})
	recorder.RoleAccessDenied(ctx, identity, []string{"admin"})
	recorder.Close()

	events := store.eventTypes()
	require.Equal(t, []auth.EventType{auth.EventAccessDenied, auth.EventRoleAccessDenied}, events)

	store.mu.Lock()
	denied := store.security[0]
	roleDenied := store.security[1]
	store.mu.Unlock()

	assert.Equal(t, []string{"audit:read"}, denied.Details["required_permissions"])
	assert.Equal(t, []string{"orders:read"}, denied.Details["actual_permissions"])
	assert.Equal(t, "req-42", denied.Details["request_id"])

	assert.Equal(t, []string{"admin"}, roleDenied.Details["required_roles"])
	assert.Equal(t, []string{"agent"}, roleDenied.Details["actual_roles"])
}

/*
TestRecorder_APIRequest verifies the traffic stream picks up the request id
and identity from context.
*/
func TestRecorder_APIRequest(t *testing.T) {
	store := newMemoryAuditStore()
	recorder := auth.NewRecorder(store, discardLogger())

	ctx := ctxutil.WithRequestID(context.Background(), "req-7")
	ctx = ctxutil.WithIdentity(ctx, &sec.Identity{UserID: "user-1"})

	recorder.APIRequest(ctx, http.MethodPost, "/api/v1/auth/login", http.StatusOK, "203.0.113.7", "test-agent")
	recorder.Close()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.traffic, 1)

	event := store.traffic[0]
	assert.Equal(t, http.MethodPost, event.Method)
	assert.Equal(t, "/api/v1/auth/login", event.Path)
	assert.Equal(t, http.StatusOK, event.Status)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "req-7", event.RequestID)
	assert.Equal(t, "203.0.113.7", event.IPAddress)
	assert.False(t, event.CreatedAt.IsZero())
}

/*
TestRecorder_EmissionNeverBlocks confirms a slow consumer cannot stall the
caller: the emit call returns promptly even under a burst.
*/
func TestRecorder_EmissionNeverBlocks(t *testing.T) {
	store := newMemoryAuditStore()
	recorder := auth.NewRecorder(store, discardLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5000; i++ {
			recorder.Security(&auth.SecurityEvent{Type: auth.EventLoginFailed})
		}
		close(done)
	}()

	select {
	case <-done:
		recorder.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("emission blocked on a slow consumer")
	}
}
