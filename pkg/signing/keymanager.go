package signing

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// IssueRequest describes a new signing or encryption key to mint (spec
// §4.4 "Key generation" + "Certificate generation").
type IssueRequest struct {
	TenantID     string
	Use          store.SigningKeyUse
	Algorithm    string // e.g. "RS256", "ES256", "HS256"
	Spec         KeySpec
	ProviderType string // empty selects the registry default
	NotBefore    time.Time
	NotAfter     time.Time
	// IssueCertificate, when true, additionally wraps the public key in a
	// self-signed X.509 certificate (meaningless for symmetric keys).
	IssueCertificate bool
	Subject          pkix.Name
	SubjectAltNames  []string
	KeyUsage         x509.KeyUsage
}

// KeyManager generates key material through a provider, seals it, computes
// thumbprints/certificates, and persists the resulting record — the
// write-side counterpart to SigningCredentialStore's read-side cache.
type KeyManager struct {
	Registry *Registry
	Keys     store.SigningKeyStore
	NewKeyID func() string
}

// Issue generates, seals and persists a new SigningKeyRecord.
func (m *KeyManager) Issue(ctx context.Context, req IssueRequest) (*store.SigningKeyRecord, error) {
	provider, err := m.resolveProvider(req.ProviderType)
	if err != nil {
		return nil, err
	}

	generated, err := provider.GenerateKey(ctx, req.Spec)
	if err != nil {
		return nil, fmt.Errorf("signing: generating key: %w", err)
	}

	rec := &store.SigningKeyRecord{
		KeyID:        m.NewKeyID(),
		TenantID:     req.TenantID,
		Use:          req.Use,
		KeyType:      req.Spec.Type,
		Algorithm:    req.Algorithm,
		ProviderType: provider.Type(),
		NotBefore:    req.NotBefore,
		NotAfter:     req.NotAfter,
		Active:       true,
	}
	if len(generated.PublicKeyDER) > 0 {
		rec.PublicKeyData = generated.PublicKeyDER
	}
	if generated.VaultKeyURI != "" {
		rec.KeyVaultURI = generated.VaultKeyURI
	}

	if err := provider.Seal(ctx, rec, generated.PrivateKeyDER); err != nil {
		return nil, fmt.Errorf("signing: sealing key: %w", err)
	}

	if req.IssueCertificate {
		if req.Spec.Type == store.KeyTypeSymmetric {
			return nil, fmt.Errorf("signing: cannot issue a certificate for a symmetric key")
		}
		if len(generated.PrivateKeyDER) == 0 {
			return nil, fmt.Errorf("signing: cannot self-sign a certificate without local private key material")
		}
		pub, signer, err := parseKeyPair(req.Spec.Type, generated.PublicKeyDER, generated.PrivateKeyDER)
		if err != nil {
			return nil, err
		}
		certResult, err := GenerateSelfSignedCert(CertSpec{
			Subject:         req.Subject,
			NotBefore:       req.NotBefore,
			NotAfter:        req.NotAfter,
			KeyUsage:        req.KeyUsage,
			SubjectAltNames: req.SubjectAltNames,
		}, pub, signer)
		if err != nil {
			return nil, err
		}
		rec.CertificateDER = certResult.DER
		rec.X5tSHA1 = certResult.SHA1Thumbprint
		rec.X5tSHA256 = certResult.SHA256Thumbprint
	}

	if err := m.Keys.PutSigningKey(ctx, rec); err != nil {
		return nil, fmt.Errorf("signing: persisting key: %w", err)
	}
	return rec, nil
}

// Retire deactivates a key without deleting it; spec §4.4 retains inactive
// keys in JWKS until NotAfter plus a grace window, so the row itself stays.
func (m *KeyManager) Retire(ctx context.Context, keyID string) error {
	rec, err := m.Keys.GetSigningKey(ctx, keyID)
	if err != nil {
		return err
	}
	rec.Active = false
	return m.Keys.PutSigningKey(ctx, rec)
}

func (m *KeyManager) resolveProvider(providerType string) (KeyMaterialProvider, error) {
	if providerType == "" {
		return m.Registry.Default()
	}
	return m.Registry.Resolve(providerType)
}

// parseKeyPair reconstructs the crypto.PublicKey/crypto.Signer pair used to
// self-sign a certificate, from the same DER bytes generated moments ago.
func parseKeyPair(keyType KeyType, pubDER, privDER []byte) (crypto.PublicKey, crypto.Signer, error) {
	pubAny, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return nil, nil, fmt.Errorf("signing: parsing public key: %w", err)
	}

	signer, err := signerFromDER(keyType, privDER)
	if err != nil {
		return nil, nil, err
	}

	switch keyType {
	case store.KeyTypeRSA:
		if _, ok := pubAny.(*rsa.PublicKey); !ok {
			return nil, nil, fmt.Errorf("signing: public key is not RSA")
		}
	case store.KeyTypeEC:
		if _, ok := pubAny.(*ecdsa.PublicKey); !ok {
			return nil, nil, fmt.Errorf("signing: public key is not EC")
		}
	}
	return pubAny, signer, nil
}
