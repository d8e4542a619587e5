package oidc

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// CorsOriginCacheTTL is how long an allow/deny verdict for an origin is
// cached before OidcCorsPolicyProvider re-queries client storage.
const CorsOriginCacheTTL = 5 * time.Minute

type corsCacheEntry struct {
	allowed  bool
	cachedAt time.Time
}

// originOf reduces a redirect URI to its scheme+host(+port) origin, the
// unit CORS Origin headers are compared against.
func originOf(rawURI string) string {
	u, err := url.Parse(rawURI)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// OidcCorsPolicyProvider answers "is this Origin allowed to call the OIDC
// endpoints" by scanning every registered client's redirect URIs across all
// tenants. This is a deliberate cross-tenant metadata read: CORS
// allow-listing happens before the request has been resolved to a tenant,
// so there is no tenant to scope the lookup to. The read is limited to
// origin matching only — no tenant-scoped data is exposed (see Redesign
// Flags).
type OidcCorsPolicyProvider struct {
	Clients store.ClientStore

	mu    sync.RWMutex
	cache map[string]corsCacheEntry
	now   func() time.Time
}

func NewOidcCorsPolicyProvider(clients store.ClientStore) *OidcCorsPolicyProvider {
	return &OidcCorsPolicyProvider{
		Clients: clients,
		cache:   make(map[string]corsCacheEntry),
		now:     time.Now,
	}
}

// IsAllowedOrigin reports whether origin matches a redirect_uri scheme+host
// registered by any client in any tenant.
func (p *OidcCorsPolicyProvider) IsAllowedOrigin(ctx context.Context, origin string) (bool, error) {
	if cached, ok := p.cachedVerdict(origin); ok {
		return cached, nil
	}

	allowed, err := p.queryAllowed(ctx, origin)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	p.cache[origin] = corsCacheEntry{allowed: allowed, cachedAt: p.now()}
	p.mu.Unlock()

	return allowed, nil
}

func (p *OidcCorsPolicyProvider) cachedVerdict(origin string) (bool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.cache[origin]
	if !ok {
		return false, false
	}
	if p.now().Sub(entry.cachedAt) > CorsOriginCacheTTL {
		return false, false
	}
	return entry.allowed, true
}

func (p *OidcCorsPolicyProvider) queryAllowed(ctx context.Context, origin string) (bool, error) {
	clients, err := p.Clients.ListAllClientsAnyTenant(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range clients {
		for _, redirectURI := range c.RedirectURIs {
			if originOf(redirectURI) == origin {
				return true, nil
			}
		}
	}
	return false, nil
}

// Invalidate drops a cached verdict, forcing the next lookup to re-query
// client storage. Called after client registration/update so a newly
// registered redirect URI's origin is honored without waiting out the TTL.
func (p *OidcCorsPolicyProvider) Invalidate(origin string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, origin)
}
