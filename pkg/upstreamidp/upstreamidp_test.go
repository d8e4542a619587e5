package upstreamidp

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func unsignedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return signed
}

func TestProvider_AuthorizationURL(t *testing.T) {
	p := &Provider{
		Name:                  "example",
		ClientID:              "client-123",
		AuthorizationEndpoint: "https://idp.example/authorize",
		RedirectURI:           "https://oluso.local/callback",
		Scopes:                []string{"openid", "email"},
	}

	authURL := p.AuthorizationURL("state-abc")
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "idp.example", parsed.Host)
	q := parsed.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "client-123", q.Get("client_id"))
	require.Equal(t, "state-abc", q.Get("state"))
	require.Equal(t, "https://oluso.local/callback", q.Get("redirect_uri"))
	require.Equal(t, "openid email", q.Get("scope"))
}

func TestProvider_ExchangeCode(t *testing.T) {
	idToken := unsignedIDToken(t, jwt.MapClaims{"sub": "user-1", "email": "user@example.com"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.FormValue("grant_type"))
		require.Equal(t, "the-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","id_token":"` + idToken + `","token_type":"Bearer"}`))
	}))
	defer server.Close()

	p := &Provider{
		Name:          "example",
		ClientID:      "client-123",
		TokenEndpoint: server.URL,
		RedirectURI:   "https://oluso.local/callback",
	}

	claims, err := p.ExchangeCode(t.Context(), "the-code")
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "user@example.com", claims["email"])
}

func TestProvider_ExchangeCode_NoIDTokenIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	}))
	defer server.Close()

	p := &Provider{Name: "example", TokenEndpoint: server.URL}
	_, err := p.ExchangeCode(t.Context(), "the-code")
	require.Error(t, err)
}

func TestIntrospector_CanHandle(t *testing.T) {
	i := &Introspector{Provider: &Provider{Name: "google", TokenPrefix: "ya29."}}
	require.True(t, i.CanHandle("ya29.abc123"))
	require.False(t, i.CanHandle("some-other-token"))

	noPrefix := &Introspector{Provider: &Provider{Name: "okta"}}
	require.False(t, noPrefix.CanHandle("anything"))
}

func TestIntrospector_Introspect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-123", user)
		require.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":true,"sub":"user-1","client_id":"client-123","scope":"openid email","exp":9999999999}`))
	}))
	defer server.Close()

	p := &Provider{
		Name:                  "example",
		ClientID:              "client-123",
		ClientSecret:          "secret",
		IntrospectionEndpoint: server.URL,
	}
	i := &Introspector{Provider: p}

	result, err := i.Introspect(t.Context(), "opaque-token")
	require.NoError(t, err)
	require.True(t, result.Active)
	require.Equal(t, "user-1", result.Claims["sub"])
	require.False(t, result.ExpiresAt.IsZero())
}

func TestIntrospector_InactiveToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":false}`))
	}))
	defer server.Close()

	i := &Introspector{Provider: &Provider{Name: "example", IntrospectionEndpoint: server.URL}}
	result, err := i.Introspect(t.Context(), "opaque-token")
	require.NoError(t, err)
	require.False(t, result.Active)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	p := &Provider{Name: "example"}
	r.Register(p)

	got, ok := r.Get("example")
	require.True(t, ok)
	require.Same(t, p, got)

	_, ok = r.Get("missing")
	require.False(t, ok)
}
