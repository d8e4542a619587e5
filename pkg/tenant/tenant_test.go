package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTenantID_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithTenantID(t.Context(), "acme")
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme", id)
}

func TestFromContext_Unresolved(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(t.Context())
	assert.False(t, ok)
}

func TestRequireTenant_RejectsPlatform(t *testing.T) {
	t.Parallel()

	ctx := WithTenantID(t.Context(), Platform)
	_, ok := RequireTenant(ctx)
	assert.False(t, ok)
}

type fakeHostMapper map[string]string

func (f fakeHostMapper) TenantForHost(host string) (string, bool) {
	id, ok := f[host]
	return id, ok
}

type fakeClientBinding struct {
	id string
	ok bool
}

func (f fakeClientBinding) BoundTenantID() (string, bool) { return f.id, f.ok }

func TestResolver_Order(t *testing.T) {
	t.Parallel()

	r := NewResolver(fakeHostMapper{"acme.example.com": "acme"})

	t.Run("explicit header wins", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-Id", "globex")
		id, ok := r.Resolve(req, ResolveOptions{ClaimTenantID: "acme"})
		require.True(t, ok)
		assert.Equal(t, "globex", id)
	})

	t.Run("header rejected when not in allow-list", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-Id", "globex")
		id, ok := r.Resolve(req, ResolveOptions{ClaimTenantID: "acme", AllowedTenants: []string{"acme"}})
		require.True(t, ok)
		assert.Equal(t, "acme", id)
	})

	t.Run("falls back to claim", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		id, ok := r.Resolve(req, ResolveOptions{ClaimTenantID: "acme"})
		require.True(t, ok)
		assert.Equal(t, "acme", id)
	})

	t.Run("falls back to client binding", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		id, ok := r.Resolve(req, ResolveOptions{Client: fakeClientBinding{id: "initech", ok: true}})
		require.True(t, ok)
		assert.Equal(t, "initech", id)
	})

	t.Run("falls back to host mapping", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "acme.example.com:8443"
		id, ok := r.Resolve(req, ResolveOptions{})
		require.True(t, ok)
		assert.Equal(t, "acme", id)
	})

	t.Run("unresolved", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "unknown.example.com"
		_, ok := r.Resolve(req, ResolveOptions{})
		assert.False(t, ok)
	})
}

func TestResolveIssuer_Order(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://tenant.example.com", ResolveIssuer(IssuerSource{
		TenantTokenSettingsIssuer: "https://tenant.example.com/",
		TenantCustomDomain:        "https://custom.example.com/",
		PlatformIssuer:            "https://platform.example.com/",
		RequestSchemeHost:         "https://req.example.com/",
	}))

	assert.Equal(t, "https://req.example.com", ResolveIssuer(IssuerSource{
		RequestSchemeHost: "https://req.example.com/",
	}))

	assert.Equal(t, "", ResolveIssuer(IssuerSource{}))
}
