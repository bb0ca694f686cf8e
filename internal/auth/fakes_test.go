// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/vendra/vendra/internal/auth"
	"github.com/vendra/vendra/internal/platform/apperr"
	"github.com/vendra/vendra/pkg/pagination"
)

// fakeClock lets tests advance time to expire cache entries deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(duration)
}

// # In-Memory Session Cache

type cacheEntry struct {
	session   *auth.Session
	value     string
	count     int64
	expiresAt time.Time
}

// memorySessionCache is an in-memory [auth.SessionCache] with clock-driven
// TTL expiry. Setting failAll simulates a cache outage.
type memorySessionCache struct {
	mu        sync.Mutex
	clock     *fakeClock
	sessions  map[string]cacheEntry
	refresh   map[string]cacheEntry
	blacklist map[string]cacheEntry
	counters  map[string]cacheEntry
	failAll   error
}

func newMemorySessionCache(clock *fakeClock) *memorySessionCache {
	return &memorySessionCache{
		clock:     clock,
		sessions:  make(map[string]cacheEntry),
		refresh:   make(map[string]cacheEntry),
		blacklist: make(map[string]cacheEntry),
		counters:  make(map[string]cacheEntry),
	}
}

func (cache *memorySessionCache) live(entry cacheEntry, ok bool) bool {
	return ok && (entry.expiresAt.IsZero() || cache.clock.Now().Before(entry.expiresAt))
}

func (cache *memorySessionCache) CreateSession(_ context.Context, session *auth.Session, ttl time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return cache.failAll
	}
	clone := *session
	cache.sessions[session.ID] = cacheEntry{session: &clone, expiresAt: cache.clock.Now().Add(ttl)}
	return nil
}

func (cache *memorySessionCache) GetSession(_ context.Context, sessionID string) (*auth.Session, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return nil, cache.failAll
	}
	entry, ok := cache.sessions[sessionID]
	if !cache.live(entry, ok) {
		return nil, apperr.NotFound("Session")
	}
	clone := *entry.session
	return &clone, nil
}

func (cache *memorySessionCache) SessionExists(_ context.Context, sessionID string) (bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return false, cache.failAll
	}
	entry, ok := cache.sessions[sessionID]
	return cache.live(entry, ok), nil
}

func (cache *memorySessionCache) DeleteSession(_ context.Context, sessionID string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return cache.failAll
	}
	delete(cache.sessions, sessionID)
	return nil
}

func (cache *memorySessionCache) MapRefreshToken(_ context.Context, token, sessionID string, ttl time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return cache.failAll
	}
	cache.refresh[token] = cacheEntry{value: sessionID, expiresAt: cache.clock.Now().Add(ttl)}
	return nil
}

func (cache *memorySessionCache) ResolveRefreshToken(_ context.Context, token string) (string, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return "", cache.failAll
	}
	entry, ok := cache.refresh[token]
	if !cache.live(entry, ok) {
		return "", apperr.NotFound("Refresh token")
	}
	return entry.value, nil
}

func (cache *memorySessionCache) UnmapRefreshToken(_ context.Context, token string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return cache.failAll
	}
	delete(cache.refresh, token)
	return nil
}

func (cache *memorySessionCache) Blacklist(_ context.Context, token string, ttl time.Duration) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return cache.failAll
	}
	if ttl <= 0 {
		return nil
	}
	cache.blacklist[token] = cacheEntry{expiresAt: cache.clock.Now().Add(ttl)}
	return nil
}

func (cache *memorySessionCache) IsBlacklisted(_ context.Context, token string) (bool, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return false, cache.failAll
	}
	entry, ok := cache.blacklist[token]
	return cache.live(entry, ok), nil
}

func (cache *memorySessionCache) IncrementFailures(_ context.Context, identifier string, window time.Duration) (int64, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return 0, cache.failAll
	}
	entry, ok := cache.counters[identifier]
	if !cache.live(entry, ok) {
		// Window starts at the FIRST failure of a fresh counter.
		entry = cacheEntry{expiresAt: cache.clock.Now().Add(window)}
	}
	entry.count++
	cache.counters[identifier] = entry
	return entry.count, nil
}

func (cache *memorySessionCache) FailureCount(_ context.Context, identifier string) (int64, error) {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return 0, cache.failAll
	}
	entry, ok := cache.counters[identifier]
	if !cache.live(entry, ok) {
		return 0, nil
	}
	return entry.count, nil
}

func (cache *memorySessionCache) ResetFailures(_ context.Context, identifier string) error {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.failAll != nil {
		return cache.failAll
	}
	delete(cache.counters, identifier)
	return nil
}

// # In-Memory User Store

type memoryUserStore struct {
	mu      sync.Mutex
	byName  map[string]*auth.User
	byID    map[string]*auth.User
	findErr error
}

func newMemoryUserStore(users ...*auth.User) *memoryUserStore {
	store := &memoryUserStore{
		byName: make(map[string]*auth.User),
		byID:   make(map[string]*auth.User),
	}
	for _, user := range users {
		store.byName[user.Username] = user
		store.byID[user.ID] = user
	}
	return store
}

func (store *memoryUserStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.findErr != nil {
		return nil, store.findErr
	}
	user, ok := store.byName[username]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (store *memoryUserStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.findErr != nil {
		return nil, store.findErr
	}
	user, ok := store.byID[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (store *memoryUserStore) UpdatePassword(_ context.Context, userID, newHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	user, ok := store.byID[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	user.PasswordChangedAt = time.Now()
	return nil
}

// setRoles replaces a stored user's grants, simulating an admin change made
// AFTER a session snapshot was taken.
func (store *memoryUserStore) setRoles(userID string, roles, permissions []string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if user, ok := store.byID[userID]; ok {
		user.Roles = roles
		user.Permissions = permissions
	}
}

// currentHash reads back the stored hash for assertions.
func (store *memoryUserStore) currentHash(userID string) string {
	store.mu.Lock()
	defer store.mu.Unlock()
	if user, ok := store.byID[userID]; ok {
		return user.PasswordHash
	}
	return ""
}

// # In-Memory Audit Store

type memoryAuditStore struct {
	mu        sync.Mutex
	security  []auth.SecurityEvent
	traffic   []auth.AuditEvent
	insertErr error
}

func newMemoryAuditStore() *memoryAuditStore {
	return &memoryAuditStore{}
}

func (store *memoryAuditStore) InsertSecurityEvent(_ context.Context, event *auth.SecurityEvent) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.insertErr != nil {
		return store.insertErr
	}
	store.security = append(store.security, *event)
	return nil
}

func (store *memoryAuditStore) InsertAuditEvent(_ context.Context, event *auth.AuditEvent) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.insertErr != nil {
		return store.insertErr
	}
	store.traffic = append(store.traffic, *event)
	return nil
}

func (store *memoryAuditStore) ListSecurityEvents(_ context.Context, params pagination.Params) ([]auth.SecurityEvent, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	total := len(store.security)
	// Newest first.
	reversed := make([]auth.SecurityEvent, 0, total)
	for i := total - 1; i >= 0; i-- {
		reversed = append(reversed, store.security[i])
	}

	start := params.Offset()
	if start > total {
		start = total
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return reversed[start:end], total, nil
}

// eventTypes returns the recorded security event types in insertion order.
func (store *memoryAuditStore) eventTypes() []auth.EventType {
	store.mu.Lock()
	defer store.mu.Unlock()
	types := make([]auth.EventType, 0, len(store.security))
	for _, event := range store.security {
		types = append(types, event.Type)
	}
	return types
}

func (store *memoryAuditStore) lastSecurityEvent() *auth.SecurityEvent {
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.security) == 0 {
		return nil
	}
	event := store.security[len(store.security)-1]
	return &event
}
