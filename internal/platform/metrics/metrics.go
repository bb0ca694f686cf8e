// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

// Package metrics exposes Prometheus counters for the security core.
//
// # Operational Role
//
// These counters exist for alerting, not debugging: a rising
// audit_write_failures_total means the durable audit trail is degrading and
// must page an operator, because the request path deliberately does not fail
// when an audit write fails.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendra_login_attempts_total",
			Help: "Login attempts by outcome (success, failed, locked).",
		},
		[]string{"outcome"},
	)

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendra_tokens_issued_total",
			Help: "Signed tokens issued by type (access, refresh).",
		},
		[]string{"type"},
	)

	accessDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendra_access_denials_total",
			Help: "Authorization denials by gate (permission, role).",
		},
		[]string{"gate"},
	)

	auditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vendra_audit_write_failures_total",
			Help: "Audit events that could not be persisted durably.",
		},
	)
)

// Init registers all security-core metrics with the default registry.
//
// It must be called exactly once during startup, before traffic is served.
func Init() {
	prometheus.MustRegister(loginAttempts, tokensIssued, accessDenials, auditWriteFailures)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// # Recording Helpers

// LoginAttempt records a login attempt outcome ("success", "failed", "locked").
func LoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// TokenIssued records issuance of a token of the given type.
func TokenIssued(tokenType string) {
	tokensIssued.WithLabelValues(tokenType).Inc()
}

// AccessDenied records an authorization denial at the given gate.
func AccessDenied(gate string) {
	accessDenials.WithLabelValues(gate).Inc()
}

// AuditWriteFailure records a failed durable audit write.
func AuditWriteFailure() {
	auditWriteFailures.Inc()
}
