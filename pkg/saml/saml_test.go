package saml

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/xml"
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
)

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

type autoCompleteHandler struct{}

func (autoCompleteHandler) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	return journey.Complete(map[string]any{"sub": "alice@example.com", "sid": "sess-1", "department": "engineering"}), nil
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
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
		Use:              store.KeyUseSigning,
		Algorithm:        "RS256",
		Spec:             signing.KeySpec{Type: store.KeyTypeRSA, Size: 2048},
		NotBefore:        now.Add(-time.Hour),
		NotAfter:         now.Add(24 * time.Hour),
		IssueCertificate: true,
		Subject:          pkix.Name{CommonName: "idp.example.test"},
		KeyUsage:         x509.KeyUsageDigitalSignature,
	})
	require.NoError(t, err)

	credentials := signing.NewSigningCredentialStore(mem, sigRegistry)

	require.NoError(t, mem.PutSAMLServiceProvider(context.Background(), &store.SAMLServiceProvider{
		EntityID:             "https://sp.example/metadata",
		AssertionConsumerURL: "https://sp.example/acs",
		NameIDFormat:         NameIDFormatEmail,
	}))

	return &Service{
		ServiceProviders: mem,
		ProtocolStates:   mem,
		Sessions:         mem,
		Journeys:         orchestrator,
		Credentials:      credentials,
		IssuerEntityID:   "https://idp.example.test/metadata",
		SSOURL:           "https://idp.example.test/saml/sso",
		SLOURL:           "https://idp.example.test/saml/slo",
	}, mem
}

func buildTestAuthnRequest(t *testing.T) []byte {
	t.Helper()
	req := &AuthnRequest{
		ID:                          "_req1",
		Version:                     "2.0",
		IssueInstant:                time.Now(),
		Destination:                 "https://idp.example.test/saml/sso",
		AssertionConsumerServiceURL: "https://sp.example/acs",
		Issuer:                      &Issuer{Value: "https://sp.example/metadata"},
		NameIDPolicy:                &NameIDPolicy{Format: NameIDFormatEmail},
	}
	raw, err := xml.Marshal(req)
	require.NoError(t, err)
	return raw
}

func TestSSOPostBindingRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rawReq := buildTestAuthnRequest(t)
	encoded := EncodePostBinding(rawReq)

	parsed, sp, err := svc.ParseAuthnRequest(ctx, "", HTTPPostBinding, encoded, "relay-123")
	require.NoError(t, err)
	require.Equal(t, "https://sp.example/metadata", sp.EntityID)

	result, err := svc.SSOStart(ctx, "", parsed, sp)
	require.NoError(t, err)
	require.Equal(t, journey.StatusCompleted, result.State.Status)

	formHTML, err := svc.SSOComplete(ctx, "", result.State.CorrelationID, result)
	require.NoError(t, err)
	require.Contains(t, formHTML, "https://sp.example/acs")
	require.Contains(t, formHTML, "relay-123")
	require.Contains(t, formHTML, "SAMLResponse")
}

func TestSSORedirectBindingRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rawReq := buildTestAuthnRequest(t)
	encoded, err := EncodeRedirectBinding(rawReq)
	require.NoError(t, err)

	parsed, sp, err := svc.ParseAuthnRequest(ctx, "", HTTPRedirectBinding, encoded, "")
	require.NoError(t, err)
	require.Equal(t, "https://sp.example/metadata", sp.EntityID)
}

func TestParseAuthnRequest_UnknownSP(t *testing.T) {
	svc, _ := newTestService(t)
	req := &AuthnRequest{
		ID:           "_req2",
		Version:      "2.0",
		IssueInstant: time.Now(),
		Destination:  "https://idp.example.test/saml/sso",
		Issuer:       &Issuer{Value: "https://unregistered.example/metadata"},
	}
	raw, err := xml.Marshal(req)
	require.NoError(t, err)

	_, _, err = svc.ParseAuthnRequest(context.Background(), "", HTTPPostBinding, EncodePostBinding(raw), "")
	require.Error(t, err)
}

func TestMetadata_PublishesSigningCertificate(t *testing.T) {
	svc, _ := newTestService(t)
	doc, err := svc.Metadata(context.Background(), "")
	require.NoError(t, err)
	require.Contains(t, string(doc), "IDPSSODescriptor")
	require.Contains(t, string(doc), "X509Certificate")
}
