package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

func TestCompareAndConsumeGrant_ExactlyOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := t.Context()

	grant := &store.PersistedGrant{
		GrantKey:  "code-1",
		Type:      store.GrantAuthorizationCode,
		ClientID:  "demo-client",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, s.CreateGrant(ctx, grant))

	const workers = 25
	var wg sync.WaitGroup
	successes := make([]bool, workers)
	errs := make([]error, workers)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.CompareAndConsumeGrant(ctx, "code-1")
			errs[i] = err
			successes[i] = err == nil
		}(i)
	}
	wg.Wait()

	successCount := 0
	for i, ok := range successes {
		if ok {
			successCount++
		} else {
			assert.ErrorIs(t, errs[i], store.ErrAlreadyConsumed)
		}
	}
	assert.Equal(t, 1, successCount, "exactly one concurrent redemption must succeed")
}

func TestCompareAndConsumeGrant_NotFound(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.CompareAndConsumeGrant(t.Context(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeProtocolState_DeletesOnRead(t *testing.T) {
	t.Parallel()

	s := New()
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
	assert.Equal(t, "corr-1", got.CorrelationID)

	_, err = s.ConsumeProtocolState(ctx, "corr-1")
	assert.ErrorIs(t, err, store.ErrNotFound, "protocol state must be consumed exactly once")
}

func TestClientStore_TenantIsolation(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := t.Context()

	require.NoError(t, s.PutClient(ctx, &store.Client{ClientID: "c1", TenantID: "tenant-a"}))
	require.NoError(t, s.PutClient(ctx, &store.Client{ClientID: "c1", TenantID: "tenant-b"}))

	a, err := s.GetClient(ctx, "tenant-a", "c1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", a.TenantID)

	_, err = s.GetClient(ctx, "tenant-b", "c1-does-not-exist")
	assert.ErrorIs(t, err, store.ErrNotFound)

	listA, err := s.ListClients(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, listA, 1)
}

func TestRevokeGrantsBySession(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := t.Context()

	require.NoError(t, s.CreateGrant(ctx, &store.PersistedGrant{GrantKey: "r1", SessionID: "sess-1", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.CreateGrant(ctx, &store.PersistedGrant{GrantKey: "r2", SessionID: "sess-1", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.CreateGrant(ctx, &store.PersistedGrant{GrantKey: "r3", SessionID: "sess-2", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, s.RevokeGrantsBySession(ctx, "sess-1"))

	g1, err := s.GetGrant(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, g1.IsConsumed())

	g3, err := s.GetGrant(ctx, "r3")
	require.NoError(t, err)
	assert.False(t, g3.IsConsumed())
}
