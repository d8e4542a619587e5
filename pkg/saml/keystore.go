package saml

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	dsig "github.com/russellhaering/goxmldsig"

	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// signerKeyStore adapts a resolved signing key record to goxmldsig's
// X509KeyStore, so Assertion/Response signing reuses the same unsealing path
// as every other signed artifact in the platform (pkg/tokensvc's JWT
// signing, pkg/signing's JWKS publication) instead of a parallel key-loading
// mechanism.
type signerKeyStore struct {
	privateKey *rsa.PrivateKey
	cert       []byte
}

func (k *signerKeyStore) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	if k.privateKey == nil {
		return nil, nil, fmt.Errorf("saml: no RSA signing key available")
	}
	return k.privateKey, k.cert, nil
}

// resolveSigningKeyStore unseals the tenant's active RSA signing key and
// wraps it plus its self-signed certificate (spec §4.4 "Certificate
// material") for goxmldsig. SAML interop in practice assumes RSA-SHA256
// signatures; a tenant whose active signing key is EC/Symmetric cannot sign
// SAML assertions, consistent with most IdP deployments pinning a dedicated
// RSA key for this purpose.
func resolveSigningKeyStore(ctx context.Context, credentials *signing.SigningCredentialStore, tenantID string) (*signerKeyStore, *store.SigningKeyRecord, error) {
	rec, privateDER, err := credentials.ActiveKey(ctx, tenantID, "RS256")
	if err != nil {
		return nil, nil, fmt.Errorf("saml: no active RSA signing key for tenant %q: %w", tenantID, err)
	}
	if len(rec.CertificateDER) == 0 {
		return nil, nil, fmt.Errorf("saml: signing key %s has no certificate material", rec.KeyID)
	}

	signer, err := signing.ParsePrivateKey(rec.KeyType, privateDER)
	if err != nil {
		return nil, nil, fmt.Errorf("saml: parsing signing key %s: %w", rec.KeyID, err)
	}
	rsaKey, ok := signer.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("saml: signing key %s is not RSA", rec.KeyID)
	}

	return &signerKeyStore{privateKey: rsaKey, cert: rec.CertificateDER}, rec, nil
}

// newSigningContext builds a goxmldsig SigningContext over the resolved key,
// enveloped C14N10-exclusive canonicalization with RSA-SHA256 (goxmldsig's
// own default), matching what every SAML IdP in the wild emits.
func newSigningContext(ks *signerKeyStore) *dsig.SigningContext {
	return dsig.NewDefaultSigningContext(ks)
}

// validationContextForCert builds a ValidationContext trusting exactly one
// certificate, used to verify an SP's signed AuthnRequest/LogoutRequest
// against its registered certificate.
func validationContextForCert(certDER []byte) (*dsig.ValidationContext, error) {
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("saml: parsing SP certificate: %w", err)
	}
	certStore := &dsig.MemoryX509CertificateStore{Roots: []*x509.Certificate{cert}}
	return dsig.NewDefaultValidationContext(certStore), nil
}
