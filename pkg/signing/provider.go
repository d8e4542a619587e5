// Package signing implements the signing key and certificate lifecycle
// (spec §4.4): key/cert generation, the pluggable key-material provider
// registry, the encryption service that protects locally-held private key
// bytes at rest, JWKS publication, and the signing-credential cache that
// selects the active key per tenant+algorithm.
package signing

import (
	"context"
	"fmt"
	"sync"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// KeyType mirrors store.SigningKeyType at the generation layer.
type KeyType = store.SigningKeyType

// KeySpec describes the key material to generate (spec §4.4 "Key
// generation").
type KeySpec struct {
	Type KeyType
	// Size is the RSA modulus size in bits (2048/3072/4096) or the
	// symmetric key size in bits (256/384/512); ignored for EC keys.
	Size int
	// Curve is one of "P-256", "P-384", "P-521"; ignored for RSA/symmetric.
	Curve string
}

// GeneratedKey is the raw output of KeyMaterialProvider.GenerateKey: DER
// bytes ready to be persisted (opaquely encrypted, in the Local provider's
// case) as a store.SigningKeyRecord.
type GeneratedKey struct {
	// PublicKeyDER is SPKI-encoded; empty for symmetric keys.
	PublicKeyDER []byte
	// PrivateKeyDER is PKCS#1 (RSA) / SEC1 (EC) / raw bytes (symmetric),
	// before being handed to an EncryptionService. Empty when VaultKeyURI
	// is set, since vault-backed providers never release private key
	// bytes to the caller.
	PrivateKeyDER []byte
	// VaultKeyURI is set instead of PrivateKeyDER by providers whose
	// private key material never leaves the provider (e.g. VaultProvider);
	// Seal records it on the store.SigningKeyRecord directly.
	VaultKeyURI string
}

// KeyMaterialProvider generates and later dereferences signing key
// material. Each provider reports its own availability (spec §4.4
// "Provider registry"); provider selection is per-key at generation time,
// and every subsequent operation routes by the key's recorded
// ProviderType.
type KeyMaterialProvider interface {
	// Type is the discriminator stored in store.SigningKeyRecord.ProviderType.
	Type() string
	// IsAvailable reports whether this provider can currently generate or
	// serve keys (e.g. a vault provider that can't reach its backend).
	IsAvailable(ctx context.Context) bool
	// GenerateKey creates new key material for spec.
	GenerateKey(ctx context.Context, spec KeySpec) (GeneratedKey, error)
	// Seal converts a generated private key into the opaque bytes/URI pair
	// a store.SigningKeyRecord persists (EncryptedPrivateKeyData or
	// KeyVaultURI — exactly one is populated).
	Seal(ctx context.Context, rec *store.SigningKeyRecord, private []byte) error
	// Unseal recovers usable private key bytes from a persisted record.
	Unseal(ctx context.Context, rec *store.SigningKeyRecord) ([]byte, error)
}

// Registry resolves provider type discriminators to KeyMaterialProviders,
// grounded on toolhive's pkg/auth/token.go TokenIntrospector Registry
// (name-keyed provider lookup with a configurable default).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]KeyMaterialProvider
	def       string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]KeyMaterialProvider)}
}

// Register adds a provider. The first provider registered becomes the
// default unless SetDefault is called explicitly.
func (r *Registry) Register(p KeyMaterialProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Type()] = p
	if r.def == "" {
		r.def = p.Type()
	}
}

// SetDefault designates which registered provider type GenerateKey uses
// when the caller doesn't specify one.
func (r *Registry) SetDefault(providerType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def = providerType
}

// Resolve looks up a provider by its type discriminator.
func (r *Registry) Resolve(providerType string) (KeyMaterialProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("signing: no provider registered for type %q", providerType)
	}
	return p, nil
}

// Default returns the default provider.
func (r *Registry) Default() (KeyMaterialProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.def == "" {
		return nil, fmt.Errorf("signing: no default provider registered")
	}
	return r.providers[r.def], nil
}

// Available lists every registered provider currently reporting available.
func (r *Registry) Available(ctx context.Context) []KeyMaterialProvider {
	r.mu.RLock()
	providers := make([]KeyMaterialProvider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.mu.RUnlock()

	out := make([]KeyMaterialProvider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable(ctx) {
			out = append(out, p)
		}
	}
	return out
}
