package signing

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// JWKSGraceWindow is how long an inactive key remains published in the JWKS
// after NotAfter, so relying parties mid-rollover still validate tokens
// signed under it (spec §4.4 "Inactive keys remain in the JWKS until
// not_after + a grace window").
const JWKSGraceWindow = 24 * time.Hour

// PublishJWKS builds a JSON Web Key Set from the given signing keys,
// including the active key plus any inactive key still within its grace
// window, as of now. Encryption-use and symmetric keys are never published
// (symmetric keys have no public half; encryption keys aren't served here).
func PublishJWKS(keys []*store.SigningKeyRecord, now time.Time) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, rec := range keys {
		if rec.Use != store.KeyUseSigning {
			continue
		}
		if rec.KeyType == store.KeyTypeSymmetric {
			continue
		}
		if !rec.Active && now.After(rec.NotAfter.Add(JWKSGraceWindow)) {
			continue
		}
		if len(rec.PublicKeyData) == 0 {
			continue
		}

		key, err := jwkFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("signing: building JWK for key %s: %w", rec.KeyID, err)
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("signing: adding key %s to set: %w", rec.KeyID, err)
		}
	}
	return set, nil
}

func jwkFromRecord(rec *store.SigningKeyRecord) (jwk.Key, error) {
	pub, err := x509.ParsePKIXPublicKey(rec.PublicKeyData)
	if err != nil {
		return nil, fmt.Errorf("parsing SPKI public key: %w", err)
	}

	key, err := jwk.Import(pub)
	if err != nil {
		return nil, fmt.Errorf("importing public key: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, rec.KeyID); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}
	if rec.Algorithm != "" {
		alg, err := algorithmFromName(rec.Algorithm)
		if err != nil {
			return nil, err
		}
		if err := key.Set(jwk.AlgorithmKey, alg); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// algorithmFromName maps the algorithm names used throughout the token
// service (RS256/RS384/RS512, ES256/ES384/ES512, HS256/HS384/HS512) onto
// jwx's typed jwa.SignatureAlgorithm constants.
func algorithmFromName(name string) (jwa.SignatureAlgorithm, error) {
	switch name {
	case "RS256":
		return jwa.RS256(), nil
	case "RS384":
		return jwa.RS384(), nil
	case "RS512":
		return jwa.RS512(), nil
	case "ES256":
		return jwa.ES256(), nil
	case "ES384":
		return jwa.ES384(), nil
	case "ES512":
		return jwa.ES512(), nil
	case "PS256":
		return jwa.PS256(), nil
	case "PS384":
		return jwa.PS384(), nil
	case "PS512":
		return jwa.PS512(), nil
	case "HS256":
		return jwa.HS256(), nil
	case "HS384":
		return jwa.HS384(), nil
	case "HS512":
		return jwa.HS512(), nil
	default:
		return jwa.SignatureAlgorithm{}, fmt.Errorf("unsupported algorithm %q", name)
	}
}
