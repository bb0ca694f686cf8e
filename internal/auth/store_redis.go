// Copyright (c) 2026 Vendra. All rights reserved.
// Author: platform-security@vendra.app

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vendra/vendra/internal/platform/apperr"
	"github.com/vendra/vendra/internal/platform/constants"
)

// RedisSessionCache implements [SessionCache] using Redis.
//
// # Key Taxonomy
//
//   - auth:session:<id>         session snapshot JSON, TTL = refresh lifetime
//   - auth:refresh:<token>      refresh-token → session-id, TTL = refresh lifetime
//   - auth:blacklist:<token>    revoked access token, TTL = remaining lifetime
//   - auth:login_attempts:<id>  failed-login counter, TTL = lockout window
type RedisSessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a new Redis-backed [SessionCache].
func NewSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

// # Session Records

/*
CreateSession stores the session snapshot under its id.

Parameters:
  - context: context.Context
  - session: *Session
  - ttl: time.Duration (fixed at login; never extended by refreshes)

Returns:
  - error: Serialization or execution errors
*/
func (cache *RedisSessionCache) CreateSession(context context.Context, session *Session, ttl time.Duration) error {

	// Serialize the snapshot once; it is immutable for the session lifetime
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	key := constants.RedisPrefixSession + session.ID

	// Set the snapshot with TTL
	if err := cache.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_create_failed: %w", err)
	}

	return nil
}

/*
GetSession retrieves and decodes the session snapshot.

Description: Returns apperr.NotFound if the session is absent or expired.

Returns:
  - *Session: Hydrated snapshot
  - error: apperr.NotFound or connectivity errors
*/
func (cache *RedisSessionCache) GetSession(context context.Context, sessionID string) (*Session, error) {
	key := constants.RedisPrefixSession + sessionID

	payload, err := cache.client.Get(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("redis_session_unmarshal_failed: %w", err)
	}

	return session, nil
}

// SessionExists reports whether the session id still resolves.
func (cache *RedisSessionCache) SessionExists(context context.Context, sessionID string) (bool, error) {
	key := constants.RedisPrefixSession + sessionID

	count, err := cache.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis_session_exists_failed: %w", err)
	}

	return count > 0, nil
}

// DeleteSession removes the session record immediately.
func (cache *RedisSessionCache) DeleteSession(context context.Context, sessionID string) error {
	key := constants.RedisPrefixSession + sessionID

	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	return nil
}

// # Refresh Token Mapping

/*
MapRefreshToken stores the refresh-token → session-id reverse mapping.

The mapping makes each refresh token single-session-scoped and individually
revocable.
*/
func (cache *RedisSessionCache) MapRefreshToken(context context.Context, token, sessionID string, ttl time.Duration) error {
	key := constants.RedisPrefixRefresh + token

	if err := cache.client.Set(context, key, sessionID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_refresh_map_failed: %w", err)
	}

	return nil
}

/*
ResolveRefreshToken returns the session id a refresh token maps to.

Returns:
  - string: Session id
  - error: apperr.NotFound when the mapping is absent or expired
*/
func (cache *RedisSessionCache) ResolveRefreshToken(context context.Context, token string) (string, error) {
	key := constants.RedisPrefixRefresh + token

	sessionID, err := cache.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Refresh token")
		}
		return "", fmt.Errorf("redis_refresh_resolve_failed: %w", err)
	}

	return sessionID, nil
}

// UnmapRefreshToken removes the reverse mapping, revoking the token.
func (cache *RedisSessionCache) UnmapRefreshToken(context context.Context, token string) error {
	key := constants.RedisPrefixRefresh + token

	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_refresh_unmap_failed: %w", err)
	}

	return nil
}

// # Revocation Blacklist

/*
Blacklist marks a revoked access token for its remaining natural lifetime.

A non-positive TTL is a no-op: an already-expired token fails verification
on its own and needs no blacklist entry.
*/
func (cache *RedisSessionCache) Blacklist(context context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	key := constants.RedisPrefixBlacklist + token

	if err := cache.client.Set(context, key, "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("redis_blacklist_set_failed: %w", err)
	}

	return nil
}

// IsBlacklisted reports whether the access token was revoked.
func (cache *RedisSessionCache) IsBlacklisted(context context.Context, token string) (bool, error) {
	key := constants.RedisPrefixBlacklist + token

	count, err := cache.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis_blacklist_check_failed: %w", err)
	}

	return count > 0, nil
}

// # Lockout Counters

/*
IncrementFailures atomically increments the failed-attempt counter.

Description: INCR and EXPIRE NX run in one pipeline, so the TTL is applied
exactly once when the key is created. The counter therefore self-destructs
when the window elapses — no manual cleanup pass exists.

Returns:
  - int64: The counter value after the increment
*/
func (cache *RedisSessionCache) IncrementFailures(context context.Context, identifier string, window time.Duration) (int64, error) {
	key := constants.RedisPrefixLoginAttempts + identifier

	pipe := cache.client.TxPipeline()
	increment := pipe.Incr(context, key)
	pipe.ExpireNX(context, key, window)

	if _, err := pipe.Exec(context); err != nil {
		return 0, fmt.Errorf("redis_lockout_increment_failed: %w", err)
	}

	return increment.Val(), nil
}

// FailureCount returns the current counter value (0 when absent).
func (cache *RedisSessionCache) FailureCount(context context.Context, identifier string) (int64, error) {
	key := constants.RedisPrefixLoginAttempts + identifier

	count, err := cache.client.Get(context, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_lockout_count_failed: %w", err)
	}

	return count, nil
}

// ResetFailures clears the counter for an identifier.
func (cache *RedisSessionCache) ResetFailures(context context.Context, identifier string) error {
	key := constants.RedisPrefixLoginAttempts + identifier

	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_lockout_reset_failed: %w", err)
	}

	return nil
}
