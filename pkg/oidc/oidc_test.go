package oidc

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
)

// --- minimal in-memory journey.PolicyStore/JourneyStateStore fakes, just
// enough to drive a one-step auto-completing SignIn journey end to end.

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

// autoCompleteHandler immediately completes the journey, yielding a fixed
// subject/session so AuthorizeComplete has something to mint a code from.
type autoCompleteHandler struct{}

func (autoCompleteHandler) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	return journey.Complete(map[string]any{"sub": "user-1", "sid": "sess-1"}), nil
}

func newTestOIDCService(t *testing.T) *Service {
	t.Helper()

	evaluator, err := condition.NewEngine()
	require.NoError(t, err)

	registry := journey.NewRegistry()
	registry.Register("auto_complete", autoCompleteHandler{})

	policy := &journey.JourneyPolicy{
		ID:                 "default-signin",
		Type:               journey.PolicySignIn,
		Enabled:             true,
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
		Public:            true,
		RedirectURIs:      []string{"https://app.example/cb"},
		AllowedGrantTypes: []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken, GrantTypeDeviceCode, GrantTypeCIBA},
		AllowedScopes:     []string{"openid", "profile", "offline_access"},
	}))

	return &Service{
		Clients:        mem,
		Resources:      mem,
		ProtocolStates: mem,
		Sessions:       mem,
		Journeys:       orchestrator,
		Tokens:         tokens,
	}
}

func TestAuthorizeAndTokenRoundTrip(t *testing.T) {
	svc := newTestOIDCService(t)
	ctx := context.Background()

	result, client, err := svc.AuthorizeStart(ctx, "", AuthorizeRequest{
		ResponseType: "code",
		ClientID:     "client-a",
		RedirectURI:  "https://app.example/cb",
		Scope:        "openid profile offline_access",
		State:        "xyz",
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	require.Equal(t, journey.StatusCompleted, result.State.Status)

	correlationID := result.State.CorrelationID
	redirectURI, err := svc.AuthorizeComplete(ctx, correlationID, result)
	require.NoError(t, err)
	require.Contains(t, redirectURI, "code=")
	require.Contains(t, redirectURI, "state=xyz")

	code := extractQueryParam(t, redirectURI, "code")

	resp, err := svc.Token(ctx, "", TokenRequest{
		GrantType:   GrantTypeAuthorizationCode,
		Code:        code,
		RedirectURI: "https://app.example/cb",
		ClientID:    "client-a",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.IDToken)
	require.NotEmpty(t, resp.RefreshToken)

	// authorization codes are one-shot
	_, err = svc.Token(ctx, "", TokenRequest{
		GrantType:   GrantTypeAuthorizationCode,
		Code:        code,
		RedirectURI: "https://app.example/cb",
		ClientID:    "client-a",
	})
	require.Error(t, err)
}

func TestAuthorizeAndTokenRoundTrip_PKCE_S256(t *testing.T) {
	svc := newTestOIDCService(t)
	ctx := context.Background()

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := s256Challenge(verifier)

	result, client, err := svc.AuthorizeStart(ctx, "", AuthorizeRequest{
		ResponseType:        "code",
		ClientID:             "client-a",
		RedirectURI:          "https://app.example/cb",
		Scope:                "openid profile",
		State:                "xyz",
		CodeChallenge:        challenge,
		CodeChallengeMethod:  "S256",
	})
	require.NoError(t, err)
	require.NotNil(t, client)

	redirectURI, err := svc.AuthorizeComplete(ctx, result.State.CorrelationID, result)
	require.NoError(t, err)
	code := extractQueryParam(t, redirectURI, "code")

	// the right verifier succeeds
	resp, err := svc.Token(ctx, "", TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		Code:         code,
		RedirectURI:  "https://app.example/cb",
		ClientID:     "client-a",
		CodeVerifier: verifier,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
}

func TestAuthorizeAndTokenRoundTrip_PKCE_WrongVerifierRejected(t *testing.T) {
	svc := newTestOIDCService(t)
	ctx := context.Background()

	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := s256Challenge(verifier)

	result, _, err := svc.AuthorizeStart(ctx, "", AuthorizeRequest{
		ResponseType:        "code",
		ClientID:             "client-a",
		RedirectURI:          "https://app.example/cb",
		Scope:                "openid profile",
		State:                "xyz",
		CodeChallenge:        challenge,
		CodeChallengeMethod:  "S256",
	})
	require.NoError(t, err)

	redirectURI, err := svc.AuthorizeComplete(ctx, result.State.CorrelationID, result)
	require.NoError(t, err)
	code := extractQueryParam(t, redirectURI, "code")

	_, err = svc.Token(ctx, "", TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		Code:         code,
		RedirectURI:  "https://app.example/cb",
		ClientID:     "client-a",
		CodeVerifier: "not-the-right-verifier",
	})
	require.Error(t, err)
}

func TestAuthorizeStart_RejectsPlainPKCEMethod(t *testing.T) {
	svc := newTestOIDCService(t)
	_, _, err := svc.AuthorizeStart(context.Background(), "", AuthorizeRequest{
		ResponseType:        "code",
		ClientID:             "client-a",
		RedirectURI:          "https://app.example/cb",
		CodeChallenge:        "some-challenge",
		CodeChallengeMethod:  "plain",
	})
	require.Error(t, err)
	oidcErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrInvalidRequest, oidcErr.Code)
}

func TestAuthorizeStart_RejectsUnregisteredRedirect(t *testing.T) {
	svc := newTestOIDCService(t)
	_, _, err := svc.AuthorizeStart(context.Background(), "", AuthorizeRequest{
		ResponseType: "code",
		ClientID:     "client-a",
		RedirectURI:  "https://evil.example/cb",
	})
	require.Error(t, err)
	oidcErr, ok := err.(*Error)
	require.True(t, ok)
	require.False(t, oidcErr.RedirectURIValidated)
}

func TestDeviceCodeFlow(t *testing.T) {
	svc := newTestOIDCService(t)
	ctx := context.Background()

	auth, err := svc.DeviceAuthorization(ctx, "", "https://app.example/device", DeviceAuthorizationRequest{
		ClientID: "client-a",
		Scope:    "openid",
	})
	require.NoError(t, err)
	require.NotEmpty(t, auth.DeviceCode)
	require.NotEmpty(t, auth.UserCode)

	_, err = svc.Token(ctx, "", TokenRequest{GrantType: GrantTypeDeviceCode, DeviceCode: auth.DeviceCode, ClientID: "client-a"})
	require.Error(t, err)
	require.Equal(t, Code("authorization_pending"), err.(*Error).Code)

	require.NoError(t, svc.Tokens.ApproveDeviceCode(ctx, auth.UserCode, "user-1", "sess-1"))

	resp, err := svc.Token(ctx, "", TokenRequest{GrantType: GrantTypeDeviceCode, DeviceCode: auth.DeviceCode, ClientID: "client-a"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
}

func TestCIBAFlow(t *testing.T) {
	svc := newTestOIDCService(t)
	ctx := context.Background()

	auth, err := svc.BackchannelAuthentication(ctx, "", BackchannelAuthenticationRequest{
		ClientID:  "client-a",
		Scope:     "openid",
		LoginHint: "user-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Tokens.ApproveBackchannelAuthRequest(ctx, auth.AuthReqID, "user-1", "sess-1"))

	resp, err := svc.Token(ctx, "", TokenRequest{GrantType: GrantTypeCIBA, AuthReqID: auth.AuthReqID, ClientID: "client-a"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
}

func TestRegister_PublicClient(t *testing.T) {
	svc := newTestOIDCService(t)
	resp, err := svc.Register(context.Background(), "", ClientRegistrationRequest{
		RedirectURIs:            []string{"https://new.example/cb"},
		TokenEndpointAuthMethod: "none",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientID)
	require.Empty(t, resp.ClientSecret)
}

func TestUserInfo_ReturnsSubjectClaim(t *testing.T) {
	svc := newTestOIDCService(t)
	ctx := context.Background()

	tok, err := svc.Tokens.CreateAccessToken(ctx, tokensvc.CreateAccessTokenRequest{
		ClientID:  "client-a",
		SubjectID: "user-1",
	})
	require.NoError(t, err)

	claims, err := svc.UserInfo(ctx, "Bearer "+tok.Value)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
}

func extractQueryParam(t *testing.T, uri, key string) string {
	t.Helper()
	idx := indexOf(uri, key+"=")
	require.GreaterOrEqual(t, idx, 0)
	rest := uri[idx+len(key)+1:]
	for i, c := range rest {
		if c == '&' {
			return rest[:i]
		}
	}
	return rest
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
