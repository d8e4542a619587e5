package signing

import (
	"context"
	"crypto/x509/pkix"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
)

func newTestKeyManager(t *testing.T) (*KeyManager, store.SigningKeyStore) {
	t.Helper()
	registry := NewRegistry()
	registry.Register(&LocalProvider{Encryption: testEncryption(t)})

	var counter int64
	mem := memory.New()
	return &KeyManager{
		Registry: registry,
		Keys:     mem,
		NewKeyID: func() string {
			return "key-" + strconv.FormatInt(atomic.AddInt64(&counter, 1), 10)
		},
	}, mem
}

func TestKeyManager_Issue_WithCertificate(t *testing.T) {
	km, keys := newTestKeyManager(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rec, err := km.Issue(context.Background(), IssueRequest{
		TenantID:         "tenant-a",
		Use:              store.KeyUseSigning,
		Algorithm:        "RS256",
		Spec:             KeySpec{Type: store.KeyTypeRSA, Size: 2048},
		NotBefore:        now,
		NotAfter:         now.Add(365 * 24 * time.Hour),
		IssueCertificate: true,
		Subject:          pkix.Name{CommonName: "tenant-a signing key"},
		KeyUsage:         KeyUsageFromFlags(true, false, false, false),
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.CertificateDER)
	require.NotEmpty(t, rec.X5tSHA1)
	require.NotEmpty(t, rec.X5tSHA256)
	require.True(t, rec.Active)

	stored, err := keys.GetSigningKey(context.Background(), rec.KeyID)
	require.NoError(t, err)
	require.Equal(t, rec.KeyID, stored.KeyID)
}

func TestKeyManager_Issue_SymmetricRejectsCertificate(t *testing.T) {
	km, _ := newTestKeyManager(t)
	_, err := km.Issue(context.Background(), IssueRequest{
		Use:              store.KeyUseEncryption,
		Algorithm:        "HS256",
		Spec:             KeySpec{Type: store.KeyTypeSymmetric, Size: 256},
		IssueCertificate: true,
	})
	require.Error(t, err)
}

func TestKeyManager_Retire(t *testing.T) {
	km, keys := newTestKeyManager(t)
	now := time.Now()
	rec, err := km.Issue(context.Background(), IssueRequest{
		Use:       store.KeyUseSigning,
		Algorithm: "ES256",
		Spec:      KeySpec{Type: store.KeyTypeEC, Curve: "P-256"},
		NotBefore: now,
		NotAfter:  now.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, km.Retire(context.Background(), rec.KeyID))

	stored, err := keys.GetSigningKey(context.Background(), rec.KeyID)
	require.NoError(t, err)
	require.False(t, stored.Active)
}
