package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/oidc"
	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
	"github.com/SyndewTech/Oluso-sub010/pkg/tenant"
	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
)

type autoCompleteHandler struct{}

func (autoCompleteHandler) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	return journey.Complete(map[string]any{"sub": "user-1", "sid": "sess-1"}), nil
}

type fakePolicyStore struct{ policy *journey.JourneyPolicy }

func (f *fakePolicyStore) GetPolicy(_ context.Context, _ string, _ string) (*journey.JourneyPolicy, error) {
	return f.policy, nil
}

func (f *fakePolicyStore) ListCandidates(_ context.Context, _ string, policyType journey.PolicyType) ([]*journey.JourneyPolicy, error) {
	if f.policy.Type == policyType {
		return []*journey.JourneyPolicy{f.policy}, nil
	}
	return nil, nil
}

type fakeStateStore struct{ states map[string]*journey.JourneyState }

func newFakeStateStore() *fakeStateStore { return &fakeStateStore{states: map[string]*journey.JourneyState{}} }

func (f *fakeStateStore) GetState(_ context.Context, journeyID string) (*journey.JourneyState, error) {
	s, ok := f.states[journeyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeStateStore) CreateState(_ context.Context, state *journey.JourneyState) error {
	f.states[state.ID] = state
	return nil
}

func (f *fakeStateStore) SaveState(_ context.Context, state *journey.JourneyState, _ int) error {
	f.states[state.ID] = state
	return nil
}

const testTenant = "tenant-a"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	evaluator, err := condition.NewEngine()
	require.NoError(t, err)

	registry := journey.NewRegistry()
	registry.Register("auto_complete", autoCompleteHandler{})

	policy := &journey.JourneyPolicy{
		ID:      "default-signin",
		Type:    journey.PolicySignIn,
		Enabled: true,
		Steps: []journey.PolicyStep{
			{ID: "step1", Type: "auto_complete", Order: 1},
		},
		OutputClaims: []journey.OutputClaim{
			{ClaimType: "sub", Source: "sub"},
			{ClaimType: "sid", Source: "sid"},
		},
		DefaultStepTimeout: 30 * time.Second,
		MaxJourneyDuration: 30 * time.Minute,
	}

	orchestrator := journey.New(&fakePolicyStore{policy: policy}, newFakeStateStore(), registry, evaluator, journey.Capabilities{})

	mem := memory.New()

	encKey := make([]byte, 32)
	for i := range encKey {
		encKey[i] = byte(i)
	}
	enc, err := signing.NewAESGCMEncryptionService(encKey)
	require.NoError(t, err)
	sigRegistry := signing.NewRegistry()
	sigRegistry.Register(&signing.LocalProvider{Encryption: enc})

	var counter int64
	km := &signing.KeyManager{
		Registry: sigRegistry,
		Keys:     mem,
		NewKeyID: func() string { return "key-" + strconv.FormatInt(atomic.AddInt64(&counter, 1), 10) },
	}
	now := time.Now()
	_, err = km.Issue(context.Background(), signing.IssueRequest{
		TenantID:  testTenant,
		Use:       store.KeyUseSigning,
		Algorithm: "RS256",
		Spec:      signing.KeySpec{Type: store.KeyTypeRSA, Size: 2048},
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	credentials := signing.NewSigningCredentialStore(mem, sigRegistry)
	tokens := &tokensvc.Service{Grants: mem, Credentials: credentials, DefaultAlgorithm: "RS256"}

	require.NoError(t, mem.PutClient(context.Background(), &store.Client{
		ClientID:          "client-a",
		TenantID:          testTenant,
		Public:            true,
		RedirectURIs:      []string{"https://app.example/cb"},
		AllowedGrantTypes: []string{oidc.GrantTypeAuthorizationCode, oidc.GrantTypeRefreshToken},
		AllowedScopes:     []string{"openid", "profile"},
	}))

	oidcSvc := &oidc.Service{
		Clients:        mem,
		Resources:      mem,
		ProtocolStates: mem,
		Sessions:       mem,
		Journeys:       orchestrator,
		Tokens:         tokens,
	}

	rt := &Router{
		OIDC:       oidcSvc,
		Clients:    mem,
		Roles:      mem,
		ScimUsers:  mem,
		ScimGroups: mem,
		TenantResolver: tenant.NewResolver(nil),
		Paths: oidc.EndpointPaths{
			Authorization:              "/connect/authorize",
			Token:                      "/connect/token",
			Userinfo:                   "/connect/userinfo",
			JWKS:                       "/connect/jwks",
			Revocation:                 "/connect/revoke",
			Introspection:              "/connect/introspect",
			EndSession:                 "/connect/endsession",
			DeviceAuthorization:        "/connect/deviceauthorization",
			PushedAuthorizationRequest: "/connect/par",
			BackchannelAuthentication:  "/connect/ciba",
			Registration:               "/connect/register",
		},
		Issuer: func(r *http.Request, tenantID string) string { return "https://idp.example/" + tenantID },
	}
	return NewRouter(rt)
}

func TestDiscoveryDocument(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/openid-configuration", nil)
	req.Header.Set("X-Tenant-Id", testTenant)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "authorization_endpoint")
}

func TestJWKSRequiresTenant(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/connect/jwks", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthorizeAndTokenRoundTripOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	authorizeURL := "/connect/authorize?" + url.Values{
		"response_type": {"code"},
		"client_id":     {"client-a"},
		"redirect_uri":  {"https://app.example/cb"},
		"scope":         {"openid profile"},
		"state":         {"xyz"},
	}.Encode()

	req := httptest.NewRequest(http.MethodGet, authorizeURL, nil)
	req.Header.Set("X-Tenant-Id", testTenant)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	code := loc.Query().Get("code")
	require.NotEmpty(t, code)
	require.Equal(t, "xyz", loc.Query().Get("state"))

	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"https://app.example/cb"},
		"client_id":    {"client-a"},
	}
	tokenReq := httptest.NewRequest(http.MethodPost, "/connect/token", strings.NewReader(form.Encode()))
	tokenReq.Header.Set("X-Tenant-Id", testTenant)
	tokenReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	tokenRec := httptest.NewRecorder()
	h.ServeHTTP(tokenRec, tokenReq)
	require.Equal(t, http.StatusOK, tokenRec.Code, tokenRec.Body.String())
	require.Contains(t, tokenRec.Body.String(), "access_token")
}
