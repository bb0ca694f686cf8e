// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vendra/vendra/internal/platform/ctxutil"
	"github.com/vendra/vendra/internal/platform/metrics"
	"github.com/vendra/vendra/internal/platform/sec"
	"github.com/vendra/vendra/pkg/uuidv7"
)

// auditWriteTimeout bounds each durable write. The request that triggered
// the event has usually finished by the time the write runs.
const auditWriteTimeout = 5 * time.Second

// defaultAuditBuffer is the channel capacity of the background writer.
const defaultAuditBuffer = 1024

// auditRecord is one queued write for the background worker.
type auditRecord struct {
	security *SecurityEvent
	traffic  *AuditEvent
}

// Recorder is the asynchronous audit/security event logger.
//
// # Fire and Forget
//
// Emission never blocks the request path. Events are queued to a buffered
// channel and written to the durable store by a background goroutine. A
// write failure is a degraded-mode condition, not a request failure: it is
// logged locally and counted for operational alerting — never silently lost.
type Recorder struct {
	store  AuditStore
	logger *slog.Logger

	queue chan auditRecord
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewRecorder starts a Recorder with the given durable store.
func NewRecorder(store AuditStore, logger *slog.Logger) *Recorder {
	recorder := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan auditRecord, defaultAuditBuffer),
	}

	recorder.wg.Add(1)
	go recorder.run()

	return recorder
}

// run drains the queue until Close.
func (recorder *Recorder) run() {
	defer recorder.wg.Done()

	for record := range recorder.queue {
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)

		var err error
		switch {
		case record.security != nil:
			err = recorder.store.InsertSecurityEvent(ctx, record.security)
		case record.traffic != nil:
			err = recorder.store.InsertAuditEvent(ctx, record.traffic)
		}
		cancel()

		if err != nil {
			// Degraded mode: the event is lost durably but not silently.
			metrics.AuditWriteFailure()
			recorder.logger.Error("audit_write_failed", slog.Any("error", err))
		}
	}
}

// Close stops accepting events and waits for the queue to drain.
func (recorder *Recorder) Close() {
	recorder.closeOnce.Do(func() {
		close(recorder.queue)
	})
	recorder.wg.Wait()
}

// enqueue hands a record to the worker without ever blocking the caller.
func (recorder *Recorder) enqueue(record auditRecord) {
	select {
	case recorder.queue <- record:
	default:
		// Buffer full. Dropping is the degraded mode; count and log it.
		metrics.AuditWriteFailure()
		recorder.logger.Error("audit_queue_full_event_dropped")
	}
}

// # Security Stream

// Security queues one security-sensitive event.
//
// The event id and timestamp are assigned here so callers only describe the
// outcome.
func (recorder *Recorder) Security(event *SecurityEvent) {
	event.ID = uuidv7.New()
	event.CreatedAt = time.Now()
	recorder.enqueue(auditRecord{security: event})
}

// # Guard Callbacks

// TokenRejected records a presented credential the guard refused (revoked,
// expired, malformed, or orphaned from its session).
// Implements [middleware.DenialAuditor].
func (recorder *Recorder) TokenRejected(ctx context.Context, reason, ip, userAgent string) {
	recorder.Security(&SecurityEvent{
		Type:      EventTokenRejected,
		IPAddress: ip,
		UserAgent: userAgent,
		Details: map[string]any{
			"reason":     reason,
			"request_id": ctxutil.GetRequestID(ctx),
		},
	})
}

// AccessDenied records a permission-gate denial with the required vs.
// actual sets for forensic review. Implements [middleware.DenialAuditor].
func (recorder *Recorder) AccessDenied(ctx context.Context, identity *sec.Identity, required []string) {
	recorder.Security(&SecurityEvent{
		Type:     EventAccessDenied,
		UserID:   identity.UserID,
		Username: identity.Username,
		Details: map[string]any{
			"required_permissions": required,
			"actual_permissions":   identity.Permissions.Values(),
			"session_id":           identity.SessionID,
			"request_id":           ctxutil.GetRequestID(ctx),
		},
	})
}

// RoleAccessDenied records a role-gate denial with the required vs. actual
// sets. Implements [middleware.DenialAuditor].
func (recorder *Recorder) RoleAccessDenied(ctx context.Context, identity *sec.Identity, required []string) {
	recorder.Security(&SecurityEvent{
		Type:     EventRoleAccessDenied,
		UserID:   identity.UserID,
		Username: identity.Username,
		Details: map[string]any{
			"required_roles": required,
			"actual_roles":   identity.Roles.Values(),
			"session_id":     identity.SessionID,
			"request_id":     ctxutil.GetRequestID(ctx),
		},
	})
}

// # Traffic Stream

// APIRequest queues one high-level API-traffic event.
// Implements [middleware.RequestAuditor].
func (recorder *Recorder) APIRequest(ctx context.Context, method, path string, status int, ip, userAgent string) {
	event := &AuditEvent{
		ID:        uuidv7.New(),
		Method:    method,
		Path:      path,
		Status:    status,
		IPAddress: ip,
		UserAgent: userAgent,
		RequestID: ctxutil.GetRequestID(ctx),
		CreatedAt: time.Now(),
	}

	if identity := ctxutil.GetIdentity(ctx); identity != nil {
		event.UserID = identity.UserID
	}

	recorder.enqueue(auditRecord{traffic: event})
}
