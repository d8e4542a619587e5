package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE key type and algorithm identifiers (RFC 9053 / RFC 8812), limited to
// the two signature algorithms WebAuthn authenticators commonly present.
const (
	coseKtyEC2 = 2
	coseKtyRSA = 3

	coseAlgES256 = -7
	coseAlgRS256 = -257
)

// coseKey is the subset of a COSE_Key this platform can verify signatures
// with (RFC 8812 §2 names ES256 and RS256 as the two algorithms WebAuthn
// relying parties must support at minimum).
type coseKey struct {
	Kty int
	Alg int
	Crv int
	X, Y []byte // EC2
	N, E []byte // RSA
}

func parseCOSEKey(raw []byte) (*coseKey, error) {
	var m map[int]cbor.RawMessage
	if err := cbor.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("webauthn: decoding COSE_Key: %w", err)
	}
	k := &coseKey{}
	decodeInto(m, 1, &k.Kty)
	decodeInto(m, 3, &k.Alg)
	switch k.Kty {
	case coseKtyEC2:
		decodeInto(m, -1, &k.Crv)
		decodeInto(m, -2, &k.X)
		decodeInto(m, -3, &k.Y)
	case coseKtyRSA:
		decodeInto(m, -1, &k.N)
		decodeInto(m, -2, &k.E)
	}
	return k, nil
}

func decodeInto(m map[int]cbor.RawMessage, key int, dst any) {
	if v, ok := m[key]; ok {
		_ = cbor.Unmarshal(v, dst)
	}
}

// VerifySignature checks sig over message using this COSE key, per spec
// §4.2's "signature verify over authData || SHA-256(clientDataJSON)".
func (k *coseKey) VerifySignature(message, sig []byte) error {
	digest := sha256.Sum256(message)
	switch k.Kty {
	case coseKtyEC2:
		if k.Alg != 0 && k.Alg != coseAlgES256 {
			return fmt.Errorf("webauthn: unsupported EC2 algorithm %d", k.Alg)
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(k.X),
			Y:     new(big.Int).SetBytes(k.Y),
		}
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return fmt.Errorf("webauthn: ES256 signature verification failed")
		}
		return nil
	case coseKtyRSA:
		if k.Alg != 0 && k.Alg != coseAlgRS256 {
			return fmt.Errorf("webauthn: unsupported RSA algorithm %d", k.Alg)
		}
		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(k.N),
			E: int(new(big.Int).SetBytes(k.E).Int64()),
		}
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
			return fmt.Errorf("webauthn: RS256 signature verification failed: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("webauthn: unsupported COSE key type %d", k.Kty)
	}
}
