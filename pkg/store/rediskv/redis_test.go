package rediskv

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "oluso:test:")
}

func TestRedisStore_CreateAndGetGrant(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	g := &store.PersistedGrant{
		GrantKey:  "code-1",
		Type:      store.GrantAuthorizationCode,
		ClientID:  "demo",
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, s.CreateGrant(ctx, g))

	got, err := s.GetGrant(ctx, "code-1")
	require.NoError(t, err)
	require.Equal(t, "demo", got.ClientID)
}

func TestRedisStore_CompareAndConsumeGrant_ExactlyOnce(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.CreateGrant(ctx, &store.PersistedGrant{
		GrantKey:  "code-2",
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	before, err := s.CompareAndConsumeGrant(ctx, "code-2")
	require.NoError(t, err)
	require.Nil(t, before.ConsumedAt)

	_, err = s.CompareAndConsumeGrant(ctx, "code-2")
	require.ErrorIs(t, err, store.ErrAlreadyConsumed)
}

func TestRedisStore_CompareAndConsumeGrant_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.CompareAndConsumeGrant(t.Context(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisStore_ProtocolStateConsumedOnce(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := t.Context()

	ps := &store.ProtocolState{
		CorrelationID: "corr-1",
		ProtocolName:  "oidc",
		EndpointType:  "authorize",
		ExpiresAt:     time.Now().Add(10 * time.Minute),
	}
	require.NoError(t, s.CreateProtocolState(ctx, ps))

	got, err := s.ConsumeProtocolState(ctx, "corr-1")
	require.NoError(t, err)
	require.Equal(t, "corr-1", got.CorrelationID)

	_, err = s.ConsumeProtocolState(ctx, "corr-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisStore_GrantExpiresByTTL(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := New(client, "oluso:test:")
	ctx := t.Context()

	require.NoError(t, s.CreateGrant(ctx, &store.PersistedGrant{
		GrantKey:  "short-lived",
		ExpiresAt: time.Now().Add(time.Second),
	}))

	mr.FastForward(2 * time.Second)

	_, err := s.GetGrant(ctx, "short-lived")
	require.ErrorIs(t, err, store.ErrNotFound)
}
