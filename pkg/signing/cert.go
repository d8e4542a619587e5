package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SHA-1 thumbprint is the X.509 convention spec §4.4 requires, not a security primitive here
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// CertSpec describes a self-signed certificate request (spec §4.4
// "Certificate generation").
type CertSpec struct {
	Subject           pkix.Name
	NotBefore         time.Time
	NotAfter          time.Time
	KeyUsage          x509.KeyUsage
	SubjectAltNames   []string
	SerialNumberBytes int // defaults to 16 if zero
}

// CertResult bundles the generated certificate with its computed
// thumbprints (spec §4.4 "Computed metadata").
type CertResult struct {
	DER            []byte
	SHA1Thumbprint   string // hex uppercase
	SHA256Thumbprint string // base64url, no padding
}

// GenerateSelfSignedCert issues a self-signed X.509 v3 certificate for the
// given public/private key pair, SHA-256 signed, with Key Usage marked
// critical and a non-critical Subject Key Identifier (spec §4.4).
func GenerateSelfSignedCert(spec CertSpec, publicKey crypto.PublicKey, signer crypto.Signer) (CertResult, error) {
	serialBytes := spec.SerialNumberBytes
	if serialBytes == 0 {
		serialBytes = 16
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), uint(serialBytes*8)))
	if err != nil {
		return CertResult{}, fmt.Errorf("signing: generating serial number: %w", err)
	}

	ski, err := subjectKeyIdentifier(publicKey)
	if err != nil {
		return CertResult{}, fmt.Errorf("signing: computing subject key identifier: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               spec.Subject,
		NotBefore:             spec.NotBefore,
		NotAfter:              spec.NotAfter,
		KeyUsage:              spec.KeyUsage,
		BasicConstraintsValid: true,
		SubjectKeyId:          ski,
		DNSNames:              spec.SubjectAltNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, publicKey, signer)
	if err != nil {
		return CertResult{}, fmt.Errorf("signing: creating certificate: %w", err)
	}

	sha1Sum := sha1.Sum(der) //nolint:gosec // thumbprint convention, see package-level justification
	sha256Sum := sha256.Sum256(der)

	return CertResult{
		DER:              der,
		SHA1Thumbprint:   hex.EncodeToString(sha1Sum[:]),
		SHA256Thumbprint: base64.RawURLEncoding.EncodeToString(sha256Sum[:]),
	}, nil
}

// subjectKeyIdentifier computes the conventional SHA-1 hash of the
// subjectPublicKey BIT STRING, the common (if not RFC-mandated) choice for
// the Subject Key Identifier extension.
func subjectKeyIdentifier(publicKey crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum(der) //nolint:gosec // SKI convention, not a security boundary
	return sum[:], nil
}

// KeyUsageFromFlags maps the spec's named flags onto x509.KeyUsage bits
// (spec §4.4: "DigitalSignature, KeyEncipherment, DataEncipherment,
// NonRepudiation as indicated").
func KeyUsageFromFlags(digitalSignature, keyEncipherment, dataEncipherment, nonRepudiation bool) x509.KeyUsage {
	var ku x509.KeyUsage
	if digitalSignature {
		ku |= x509.KeyUsageDigitalSignature
	}
	if keyEncipherment {
		ku |= x509.KeyUsageKeyEncipherment
	}
	if dataEncipherment {
		ku |= x509.KeyUsageDataEncipherment
	}
	if nonRepudiation {
		ku |= x509.KeyUsageContentCommitment
	}
	return ku
}

// ParsePrivateKey reconstructs a crypto.Signer from unsealed PKCS#1 (RSA) or
// SEC1 (EC) private key DER bytes, for callers (e.g. pkg/tokensvc) that need
// to sign with a key obtained through SigningCredentialStore.ActiveKey.
func ParsePrivateKey(keyType KeyType, der []byte) (crypto.Signer, error) {
	return signerFromDER(keyType, der)
}

// signerFromDER reconstructs a crypto.Signer from PKCS#1/SEC1 private key
// DER bytes, dispatching on the key type recorded alongside it.
func signerFromDER(keyType KeyType, der []byte) (crypto.Signer, error) {
	switch keyType {
	case "RSA":
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("signing: parsing RSA private key: %w", err)
		}
		return key, nil
	case "EC":
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("signing: parsing EC private key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("signing: key type %q has no certificate signer", keyType)
	}
}
