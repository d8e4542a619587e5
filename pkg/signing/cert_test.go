package signing

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

func TestGenerateSelfSignedCert_RSA(t *testing.T) {
	p := &LocalProvider{Encryption: testEncryption(t)}
	gen, err := p.GenerateKey(context.Background(), KeySpec{Type: store.KeyTypeRSA, Size: 2048})
	require.NoError(t, err)

	pub, signer, err := parseKeyPair(store.KeyTypeRSA, gen.PublicKeyDER, gen.PrivateKeyDER)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	result, err := GenerateSelfSignedCert(CertSpec{
		Subject:         pkix.Name{CommonName: "test-signing-key"},
		NotBefore:       now,
		NotAfter:        now.Add(24 * time.Hour),
		KeyUsage:        KeyUsageFromFlags(true, false, false, false),
		SubjectAltNames: []string{"idp.example.com"},
	}, pub, signer)
	require.NoError(t, err)
	require.NotEmpty(t, result.DER)
	require.Len(t, result.SHA256Thumbprint, 43) // base64url, no padding, of a 32-byte digest

	cert, err := x509.ParseCertificate(result.DER)
	require.NoError(t, err)
	require.Equal(t, "test-signing-key", cert.Subject.CommonName)
	require.True(t, cert.KeyUsage&x509.KeyUsageDigitalSignature != 0)
	require.Contains(t, cert.DNSNames, "idp.example.com")
	require.NotEmpty(t, cert.SubjectKeyId)
}

func TestKeyUsageFromFlags(t *testing.T) {
	ku := KeyUsageFromFlags(true, true, false, true)
	require.NotZero(t, ku&x509.KeyUsageDigitalSignature)
	require.NotZero(t, ku&x509.KeyUsageKeyEncipherment)
	require.Zero(t, ku&x509.KeyUsageDataEncipherment)
	require.NotZero(t, ku&x509.KeyUsageContentCommitment)
}
