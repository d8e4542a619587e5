// Package rediskv provides a Redis-backed implementation of the
// high-churn, short-lived stores (GrantStore, ProtocolStateStore), for
// multi-instance deployments that need a shared view of one-shot grants.
//
// Grounded on toolhive's pkg/authserver/storage Redis storage: a key-prefix
// scheme, JSON-marshaled values, and an ErrNotFound that wraps the local
// sentinel (redis_test.go's requireRedisNotFoundError checks exactly this
// shape against storage.ErrNotFound). The atomic consume operation uses a
// Lua script evaluated server-side so "mark-consumed-if-not-consumed" is a
// single round trip, matching the compare-and-swap requirement of spec §5.
package rediskv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// Store is a Redis-backed GrantStore + ProtocolStateStore.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a Store bound to an existing redis.Client. keyPrefix
// namespaces all keys (e.g. "oluso:auth:") so the store can safely share a
// Redis instance/database with other subsystems.
func New(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, keyPrefix: keyPrefix}
}

// Close closes the underlying Redis client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) grantKey(grantKey string) string { return s.keyPrefix + "grant:" + grantKey }
func (s *Store) protoKey(id string) string       { return s.keyPrefix + "proto:" + id }

func (s *Store) CreateGrant(ctx context.Context, g *store.PersistedGrant) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("rediskv: marshal grant: %w", err)
	}

	ttl := time.Until(g.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, s.grantKey(g.GrantKey), data, ttl).Err(); err != nil {
		return fmt.Errorf("rediskv: set grant: %w", err)
	}
	return nil
}

func (s *Store) GetGrant(ctx context.Context, grantKey string) (*store.PersistedGrant, error) {
	data, err := s.client.Get(ctx, s.grantKey(grantKey)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("rediskv: get grant: %w", err)
	}

	var g store.PersistedGrant
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("rediskv: unmarshal grant: %w", err)
	}
	return &g, nil
}

// consumeScript atomically reads the current value, and if consumed_at is
// not already set, sets it to the provided timestamp, preserving the TTL.
// It always returns the value as it stood *before* this call so the caller
// can tell whether it won the race.
var consumeScript = redis.NewScript(`
local raw = redis.call("GET", KEYS[1])
if raw == false then
	return false
end
local ttl = redis.call("PTTL", KEYS[1])
local doc = cjson.decode(raw)
local before = raw
if doc.ConsumedAt == nil or doc.ConsumedAt == cjson.null then
	doc.ConsumedAt = ARGV[1]
	local updated = cjson.encode(doc)
	if ttl and ttl > 0 then
		redis.call("SET", KEYS[1], updated, "PX", ttl)
	else
		redis.call("SET", KEYS[1], updated)
	end
end
return before
`)

func (s *Store) CompareAndConsumeGrant(ctx context.Context, grantKey string) (*store.PersistedGrant, error) {
	now := time.Now().UTC()
	nowJSON, err := json.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("rediskv: marshal timestamp: %w", err)
	}

	res, err := consumeScript.Run(ctx, s.client, []string{s.grantKey(grantKey)}, string(nowJSON)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("rediskv: consume grant: %w", err)
	}

	raw, ok := res.(string)
	if !ok {
		return nil, store.ErrNotFound
	}

	var before store.PersistedGrant
	if err := json.Unmarshal([]byte(raw), &before); err != nil {
		return nil, fmt.Errorf("rediskv: unmarshal grant: %w", err)
	}

	if before.ConsumedAt != nil {
		return &before, store.ErrAlreadyConsumed
	}
	return &before, nil
}

func (s *Store) RevokeGrant(ctx context.Context, grantKey string) error {
	g, err := s.GetGrant(ctx, grantKey)
	if err != nil {
		return err
	}
	if g.ConsumedAt != nil {
		return nil
	}
	now := time.Now().UTC()
	g.ConsumedAt = &now
	return s.CreateGrant(ctx, g)
}

func (s *Store) UpdateGrantPayload(ctx context.Context, grantKey string, payload []byte) error {
	g, err := s.GetGrant(ctx, grantKey)
	if err != nil {
		return err
	}
	g.SerializedPayload = payload
	return s.CreateGrant(ctx, g)
}

// RevokeGrantsBySession is not supported by the Redis store, which indexes
// grants only by their opaque key; deployments needing session-wide
// revocation cascades should pair Redis with a relational GrantStore that
// maintains a session_id index, or maintain a secondary session->grants
// set. Left unimplemented deliberately rather than faked.
func (s *Store) RevokeGrantsBySession(context.Context, string) error {
	return fmt.Errorf("rediskv: RevokeGrantsBySession requires a session index, not supported by this store")
}

func (s *Store) CreateProtocolState(ctx context.Context, ps *store.ProtocolState) error {
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("rediskv: marshal protocol state: %w", err)
	}

	ttl := time.Until(ps.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, s.protoKey(ps.CorrelationID), data, ttl).Err(); err != nil {
		return fmt.Errorf("rediskv: set protocol state: %w", err)
	}
	return nil
}

func (s *Store) GetProtocolState(ctx context.Context, correlationID string) (*store.ProtocolState, error) {
	data, err := s.client.Get(ctx, s.protoKey(correlationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("rediskv: get protocol state: %w", err)
	}

	var ps store.ProtocolState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("rediskv: unmarshal protocol state: %w", err)
	}
	return &ps, nil
}

func (s *Store) ConsumeProtocolState(ctx context.Context, correlationID string) (*store.ProtocolState, error) {
	key := s.protoKey(correlationID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("rediskv: get protocol state: %w", err)
	}

	// Best-effort delete; a concurrent ConsumeProtocolState caller racing
	// here is not a supported scenario (protocol state is consumed exactly
	// once by the single journey-completion callback per spec §3).
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return nil, fmt.Errorf("rediskv: delete protocol state: %w", err)
	}

	var ps store.ProtocolState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("rediskv: unmarshal protocol state: %w", err)
	}
	return &ps, nil
}

var (
	_ store.GrantStore         = (*Store)(nil)
	_ store.ProtocolStateStore = (*Store)(nil)
)
