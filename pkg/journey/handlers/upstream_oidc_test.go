package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/upstreamidp"
)

type fakeProvisioner struct {
	userID string
	err    error

	gotTenantID, gotExternalID string
	gotAttrs                   map[string]any
}

func (f *fakeProvisioner) EnsureUser(_ context.Context, tenantID, externalID string, attrs map[string]any) (string, error) {
	f.gotTenantID, f.gotExternalID, f.gotAttrs = tenantID, externalID, attrs
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

func unsignedIDTokenForTest(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return signed
}

func TestUpstreamOIDC_NoCodeRedirectsToProvider(t *testing.T) {
	registry := upstreamidp.NewRegistry()
	registry.Register(&upstreamidp.Provider{
		Name:                  "google",
		ClientID:              "client-123",
		AuthorizationEndpoint: "https://accounts.example/authorize",
		RedirectURI:           "https://oluso.local/callback",
	})

	h := &UpstreamOIDC{Providers: registry}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:   context.Background(),
		UserInput: map[string]any{},
		Step: journey.PolicyStep{
			ID:     "step-1",
			Config: map[string]any{"provider": "google"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeRequireInput, outcome.Kind)
	assert.Equal(t, "upstream_redirect", outcome.ViewName)
	assert.Equal(t, "google", outcome.ViewModel["provider"])
	assert.Contains(t, outcome.ViewModel["redirect_url"], "https://accounts.example/authorize")
}

func TestUpstreamOIDC_CodeExchangesAndProvisionsUser(t *testing.T) {
	idToken := unsignedIDTokenForTest(t, jwt.MapClaims{"sub": "upstream-sub-1", "email": "alice@example.com"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "the-code", r.FormValue("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","id_token":"` + idToken + `","token_type":"Bearer"}`))
	}))
	defer server.Close()

	registry := upstreamidp.NewRegistry()
	registry.Register(&upstreamidp.Provider{
		Name:          "google",
		ClientID:      "client-123",
		TokenEndpoint: server.URL,
		RedirectURI:   "https://oluso.local/callback",
	})

	provisioner := &fakeProvisioner{userID: "user-42"}
	h := &UpstreamOIDC{Providers: registry, Provisioner: provisioner}

	outcome, err := h.Execute(&journey.ExecContext{
		Context:   context.Background(),
		TenantID:  "tenant-a",
		UserInput: map[string]any{"code": "the-code"},
		Step: journey.PolicyStep{
			ID:     "step-1",
			Config: map[string]any{"provider": "google"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeSuccess, outcome.Kind)
	assert.Equal(t, "user-42", outcome.Outputs["user_id"])
	assert.Equal(t, "upstream-sub-1", outcome.Outputs["upstream_subject"])
	assert.Equal(t, "upstream:google", outcome.Outputs["amr"])

	assert.Equal(t, "tenant-a", provisioner.gotTenantID)
	assert.Equal(t, "upstream-sub-1", provisioner.gotExternalID)
	assert.Equal(t, "alice@example.com", provisioner.gotAttrs["email"])
}

func TestUpstreamOIDC_ExchangeFailureFailsStep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	registry := upstreamidp.NewRegistry()
	registry.Register(&upstreamidp.Provider{Name: "google", TokenEndpoint: server.URL})

	h := &UpstreamOIDC{Providers: registry, Provisioner: &fakeProvisioner{}}
	outcome, err := h.Execute(&journey.ExecContext{
		Context:   context.Background(),
		UserInput: map[string]any{"code": "bad-code"},
		Step:      journey.PolicyStep{ID: "step-1", Config: map[string]any{"provider": "google"}},
	})
	require.NoError(t, err)
	assert.Equal(t, journey.OutcomeFail, outcome.Kind)
	assert.Equal(t, "upstream_auth_failed", outcome.ErrorCode)
}

func TestUpstreamOIDC_UnknownProviderIsError(t *testing.T) {
	h := &UpstreamOIDC{Providers: upstreamidp.NewRegistry()}
	_, err := h.Execute(&journey.ExecContext{
		Context:   context.Background(),
		UserInput: map[string]any{},
		Step:      journey.PolicyStep{ID: "step-1", Config: map[string]any{"provider": "google"}},
	})
	require.Error(t, err)
}
