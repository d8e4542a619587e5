// Package tenant resolves the tenant and issuer URI for a request and
// carries the resolved tenant ID through context.Context.
//
// Resolution order and the context-propagation pattern are grounded on
// toolhive's pkg/auth/context.go (WithIdentity/IdentityFromContext): an
// unexported context-key type prevents collisions, and a nil-safe With*
// function is paired with a (value, ok) accessor.
package tenant

import (
	"context"
	"net/http"
	"strings"
)

// Platform is the sentinel tenant ID meaning "platform-global" (null tenant).
const Platform = ""

type contextKey struct{}

// WithTenantID returns a context carrying the given tenant ID. An empty ID
// is a valid, explicit "platform" tenant and is still stored so that
// FromContext can distinguish "resolved to platform" from "never resolved".
func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, &id)
}

// FromContext retrieves the resolved tenant ID. ok is false if no tenant
// resolution has happened yet for this context.
func FromContext(ctx context.Context) (id string, ok bool) {
	v, ok := ctx.Value(contextKey{}).(*string)
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// RequireTenant returns an error-compatible bool: false if the context has
// no resolved tenant, or resolved to the platform-global tenant, i.e. it is
// not safe to serve tenant-scoped data for this request.
func RequireTenant(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	if !ok || id == Platform {
		return "", false
	}
	return id, true
}

// ClientBinding reports the tenant a client is bound to, if any.
type ClientBinding interface {
	BoundTenantID() (string, bool)
}

// HostMapper maps a request Host header to a tenant ID.
type HostMapper interface {
	TenantForHost(host string) (string, bool)
}

// Resolver resolves the tenant for an inbound HTTP request following the
// order mandated by spec §4.7: explicit header, bearer-token tenant_id
// claim, client's bound tenant, host-based mapping.
type Resolver struct {
	// HeaderName is the explicit tenant header, default X-Tenant-Id.
	HeaderName string
	HostMapper HostMapper
}

// NewResolver constructs a Resolver with the default header name.
func NewResolver(hostMapper HostMapper) *Resolver {
	return &Resolver{HeaderName: "X-Tenant-Id", HostMapper: hostMapper}
}

// ResolveOptions carries the pieces of request state the resolver needs
// beyond the raw *http.Request, since not every caller has all of them.
type ResolveOptions struct {
	// ClaimTenantID is the tenant_id claim from a validated bearer token,
	// if one was presented and validated upstream.
	ClaimTenantID string
	// Client, if non-nil, is consulted for its bound tenant.
	Client ClientBinding
	// AllowedTenants restricts which tenants the explicit header may name;
	// nil means unrestricted (platform-admin capability).
	AllowedTenants []string
}

// Resolve implements the §4.7 resolution order. It never errors: an
// unresolved tenant simply means ok=false, leaving it to the caller to
// decide whether the endpoint being served requires a tenant.
func (r *Resolver) Resolve(req *http.Request, opts ResolveOptions) (id string, ok bool) {
	if h := req.Header.Get(r.HeaderName); h != "" {
		if len(opts.AllowedTenants) == 0 || contains(opts.AllowedTenants, h) {
			return h, true
		}
	}

	if opts.ClaimTenantID != "" {
		return opts.ClaimTenantID, true
	}

	if opts.Client != nil {
		if id, ok := opts.Client.BoundTenantID(); ok {
			return id, true
		}
	}

	if r.HostMapper != nil {
		host := req.Host
		if h, _, found := strings.Cut(host, ":"); found {
			host = h
		}
		if id, ok := r.HostMapper.TenantForHost(host); ok {
			return id, true
		}
	}

	return "", false
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// IssuerSource supplies the candidate issuer values consulted in order by
// ResolveIssuer.
type IssuerSource struct {
	TenantTokenSettingsIssuer string
	TenantCustomDomain        string
	PlatformIssuer            string
	RequestSchemeHost         string
}

// ResolveIssuer implements the §4.7 issuer resolution order, always
// trimming a trailing slash from the winning candidate.
func ResolveIssuer(src IssuerSource) string {
	for _, candidate := range []string{
		src.TenantTokenSettingsIssuer,
		src.TenantCustomDomain,
		src.PlatformIssuer,
		src.RequestSchemeHost,
	} {
		if candidate != "" {
			return strings.TrimRight(candidate, "/")
		}
	}
	return ""
}
