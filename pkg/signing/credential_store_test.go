package signing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

func TestSigningCredentialStore_ActiveKey_TenantThenGlobalFallback(t *testing.T) {
	km, keys := newTestKeyManager(t)
	now := time.Now()

	global, err := km.Issue(context.Background(), IssueRequest{
		Use:       store.KeyUseSigning,
		Algorithm: "RS256",
		Spec:      KeySpec{Type: store.KeyTypeRSA, Size: 2048},
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	cs := NewSigningCredentialStore(keys, km.Registry)

	rec, private, err := cs.ActiveKey(context.Background(), "tenant-without-own-key", "RS256")
	require.NoError(t, err)
	require.Equal(t, global.KeyID, rec.KeyID)
	require.NotEmpty(t, private)

	tenantKey, err := km.Issue(context.Background(), IssueRequest{
		TenantID:  "tenant-a",
		Use:       store.KeyUseSigning,
		Algorithm: "RS256",
		Spec:      KeySpec{Type: store.KeyTypeRSA, Size: 2048},
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	cs.Invalidate("tenant-a", "RS256")
	rec2, _, err := cs.ActiveKey(context.Background(), "tenant-a", "RS256")
	require.NoError(t, err)
	require.Equal(t, tenantKey.KeyID, rec2.KeyID)
}

func TestSigningCredentialStore_ActiveKey_CachesUntilInvalidated(t *testing.T) {
	km, keys := newTestKeyManager(t)
	now := time.Now()

	rec, err := km.Issue(context.Background(), IssueRequest{
		Use:       store.KeyUseSigning,
		Algorithm: "ES256",
		Spec:      KeySpec{Type: store.KeyTypeEC, Curve: "P-256"},
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	cs := NewSigningCredentialStore(keys, km.Registry)
	first, _, err := cs.ActiveKey(context.Background(), "", "ES256")
	require.NoError(t, err)
	require.Equal(t, rec.KeyID, first.KeyID)

	require.NoError(t, km.Retire(context.Background(), rec.KeyID))

	stillCached, _, err := cs.ActiveKey(context.Background(), "", "ES256")
	require.NoError(t, err)
	require.Equal(t, rec.KeyID, stillCached.KeyID)

	cs.Invalidate("", "ES256")
	_, _, err = cs.ActiveKey(context.Background(), "", "ES256")
	require.Error(t, err)
}

func TestSigningCredentialStore_ActiveKey_NoneFound(t *testing.T) {
	km, keys := newTestKeyManager(t)
	cs := NewSigningCredentialStore(keys, km.Registry)
	_, _, err := cs.ActiveKey(context.Background(), "tenant-a", "RS256")
	require.Error(t, err)
}
