package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// LocalProvider generates key material with the standard library's crypto
// packages and protects private keys at rest with an EncryptionService
// (spec §4.4: "Private-key bytes are passed through an encryption
// service..."). This is the default provider every deployment has
// available without external configuration.
type LocalProvider struct {
	Encryption EncryptionService
}

const LocalProviderType = "local"

func (p *LocalProvider) Type() string { return LocalProviderType }

func (p *LocalProvider) IsAvailable(context.Context) bool { return p.Encryption != nil }

func (p *LocalProvider) GenerateKey(_ context.Context, spec KeySpec) (GeneratedKey, error) {
	switch spec.Type {
	case store.KeyTypeRSA:
		return generateRSAKey(spec.Size)
	case store.KeyTypeEC:
		return generateECKey(spec.Curve)
	case store.KeyTypeSymmetric:
		return generateSymmetricKey(spec.Size)
	default:
		return GeneratedKey{}, fmt.Errorf("signing: unknown key type %q", spec.Type)
	}
}

func generateRSAKey(bits int) (GeneratedKey, error) {
	switch bits {
	case 2048, 3072, 4096:
	default:
		return GeneratedKey{}, fmt.Errorf("signing: unsupported RSA key size %d", bits)
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: generating RSA key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: marshaling RSA public key: %w", err)
	}

	return GeneratedKey{
		PublicKeyDER:  pubDER,
		PrivateKeyDER: x509.MarshalPKCS1PrivateKey(key),
	}, nil
}

func generateECKey(curveName string) (GeneratedKey, error) {
	var curve elliptic.Curve
	switch curveName {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return GeneratedKey{}, fmt.Errorf("signing: unsupported EC curve %q", curveName)
	}

	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: generating EC key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: marshaling EC public key: %w", err)
	}
	privDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: marshaling EC private key: %w", err)
	}

	return GeneratedKey{PublicKeyDER: pubDER, PrivateKeyDER: privDER}, nil
}

func generateSymmetricKey(bits int) (GeneratedKey, error) {
	switch bits {
	case 256, 384, 512:
	default:
		return GeneratedKey{}, fmt.Errorf("signing: unsupported symmetric key size %d", bits)
	}

	key := make([]byte, bits/8)
	if _, err := rand.Read(key); err != nil {
		return GeneratedKey{}, fmt.Errorf("signing: generating symmetric key: %w", err)
	}
	return GeneratedKey{PrivateKeyDER: key}, nil
}

func (p *LocalProvider) Seal(_ context.Context, rec *store.SigningKeyRecord, private []byte) error {
	sealed, err := p.Encryption.Encrypt(private)
	if err != nil {
		return fmt.Errorf("signing: sealing private key: %w", err)
	}
	rec.EncryptedPrivateKeyData = sealed
	rec.KeyVaultURI = ""
	return nil
}

func (p *LocalProvider) Unseal(_ context.Context, rec *store.SigningKeyRecord) ([]byte, error) {
	plaintext, err := p.Encryption.Decrypt(rec.EncryptedPrivateKeyData)
	if err != nil {
		return nil, fmt.Errorf("signing: unsealing private key: %w", err)
	}
	return plaintext, nil
}

var _ KeyMaterialProvider = (*LocalProvider)(nil)
