package signing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

func TestPublishJWKS_IncludesActiveExcludesSymmetric(t *testing.T) {
	km, _ := newTestKeyManager(t)
	now := time.Now()

	rsaKey, err := km.Issue(context.Background(), IssueRequest{
		Use:       store.KeyUseSigning,
		Algorithm: "RS256",
		Spec:      KeySpec{Type: store.KeyTypeRSA, Size: 2048},
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = km.Issue(context.Background(), IssueRequest{
		Use:       store.KeyUseSigning,
		Algorithm: "HS256",
		Spec:      KeySpec{Type: store.KeyTypeSymmetric, Size: 256},
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	set, err := PublishJWKS([]*store.SigningKeyRecord{rsaKey}, now)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	key, ok := set.LookupKeyID(rsaKey.KeyID)
	require.True(t, ok)
	var use string
	require.NoError(t, key.Get("use", &use))
	require.Equal(t, "sig", use)
}

func TestPublishJWKS_RetiredKeyWithinGraceWindowStillPublished(t *testing.T) {
	now := time.Now()
	rec := &store.SigningKeyRecord{
		KeyID:     "retiring",
		Use:       store.KeyUseSigning,
		KeyType:   store.KeyTypeRSA,
		Algorithm: "RS256",
		Active:    false,
		NotBefore: now.Add(-48 * time.Hour),
		NotAfter:  now.Add(-time.Hour),
	}
	km, _ := newTestKeyManager(t)
	generated, err := km.Registry.providers[LocalProviderType].GenerateKey(context.Background(), KeySpec{Type: store.KeyTypeRSA, Size: 2048})
	require.NoError(t, err)
	rec.PublicKeyData = generated.PublicKeyDER

	set, err := PublishJWKS([]*store.SigningKeyRecord{rec}, now)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	set, err = PublishJWKS([]*store.SigningKeyRecord{rec}, now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 0, set.Len())
}
