package signing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// signingCredential is the unsealed, ready-to-use form of an active key:
// the record plus its plaintext private key material.
type signingCredential struct {
	record  *store.SigningKeyRecord
	private []byte
	cachedAt time.Time
}

// SigningCredentialStore selects and caches the active signing key per
// tenant+algorithm (spec §4.4: "the token service asks for 'the active
// signing key for tenant X using algorithm Y' and gets back a cached
// answer"), unsealing private key material through the owning provider on
// cache miss.
type SigningCredentialStore struct {
	Keys     store.SigningKeyStore
	Registry *Registry
	TTL      time.Duration // cache entry lifetime; defaults to 5 minutes

	now func() time.Time

	mu    sync.RWMutex
	cache map[string]signingCredential
}

// NewSigningCredentialStore builds a store with a default 5-minute cache TTL.
func NewSigningCredentialStore(keys store.SigningKeyStore, registry *Registry) *SigningCredentialStore {
	return &SigningCredentialStore{
		Keys:     keys,
		Registry: registry,
		TTL:      5 * time.Minute,
		now:      time.Now,
		cache:    make(map[string]signingCredential),
	}
}

// ActiveKey returns the active key record and unsealed private key bytes for
// tenant+algorithm, falling back to the platform-global key set (tenantID
// "") when the tenant has none of its own.
func (s *SigningCredentialStore) ActiveKey(ctx context.Context, tenantID, algorithm string) (*store.SigningKeyRecord, []byte, error) {
	cacheKey := tenantID + "|" + algorithm

	s.mu.RLock()
	entry, ok := s.cache[cacheKey]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.cachedAt) < s.ttl() {
		return entry.record, entry.private, nil
	}

	rec, err := s.findActive(ctx, tenantID, algorithm)
	if err != nil {
		return nil, nil, err
	}

	provider, err := s.Registry.Resolve(rec.ProviderType)
	if err != nil {
		return nil, nil, err
	}
	private, err := provider.Unseal(ctx, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("signing: unsealing active key %s: %w", rec.KeyID, err)
	}

	s.mu.Lock()
	s.cache[cacheKey] = signingCredential{record: rec, private: private, cachedAt: s.now()}
	s.mu.Unlock()

	return rec, private, nil
}

// Invalidate drops the cached entry for tenant+algorithm, used after key
// rotation so the next ActiveKey call re-resolves from the store.
func (s *SigningCredentialStore) Invalidate(tenantID, algorithm string) {
	s.mu.Lock()
	delete(s.cache, tenantID+"|"+algorithm)
	s.mu.Unlock()
}

// KeyByID returns the signing key record for keyID, used by token
// verification to resolve the exact key a JWT's "kid" header names
// (which may not be the currently active key, e.g. during grace-window
// rollover). No unsealing happens here: callers that only need to verify
// a signature use the public key material directly.
func (s *SigningCredentialStore) KeyByID(ctx context.Context, keyID string) (*store.SigningKeyRecord, error) {
	rec, err := s.Keys.GetSigningKey(ctx, keyID)
	if err != nil {
		return nil, fmt.Errorf("signing: looking up key %s: %w", keyID, err)
	}
	return rec, nil
}

func (s *SigningCredentialStore) findActive(ctx context.Context, tenantID, algorithm string) (*store.SigningKeyRecord, error) {
	now := s.now()

	if tenantID != "" {
		if rec, err := s.pickActive(ctx, tenantID, algorithm, now); err == nil {
			return rec, nil
		}
	}
	rec, err := s.pickActive(ctx, "", algorithm, now)
	if err != nil {
		return nil, fmt.Errorf("signing: no active %s key for tenant %q: %w", algorithm, tenantID, err)
	}
	return rec, nil
}

func (s *SigningCredentialStore) pickActive(ctx context.Context, tenantID, algorithm string, now time.Time) (*store.SigningKeyRecord, error) {
	keys, err := s.Keys.ListSigningKeys(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if k.Use != store.KeyUseSigning || !k.Active || k.Algorithm != algorithm {
			continue
		}
		if !k.IsUsableAt(now) {
			continue
		}
		return k, nil
	}
	return nil, fmt.Errorf("no active key found")
}

func (s *SigningCredentialStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return 5 * time.Minute
	}
	return s.TTL
}
