package tokensvc

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
)

func newTestService(t *testing.T) (*Service, store.GrantStore) {
	t.Helper()

	encKey := make([]byte, 32)
	for i := range encKey {
		encKey[i] = byte(i)
	}
	enc, err := signing.NewAESGCMEncryptionService(encKey)
	require.NoError(t, err)

	registry := signing.NewRegistry()
	registry.Register(&signing.LocalProvider{Encryption: enc})

	mem := memory.New()
	var counter int64
	km := &signing.KeyManager{
		Registry: registry,
		Keys:     mem,
		NewKeyID: func() string {
			return "key-" + strconv.FormatInt(atomic.AddInt64(&counter, 1), 10)
		},
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

	credentials := signing.NewSigningCredentialStore(mem, registry)

	return &Service{
		Grants:           mem,
		Credentials:      credentials,
		DefaultAlgorithm: "RS256",
	}, mem
}

func TestCreateAccessToken_SelfContainedJWT(t *testing.T) {
	svc, _ := newTestService(t)

	tok, err := svc.CreateAccessToken(context.Background(), CreateAccessTokenRequest{
		ClientID:  "client-a",
		SubjectID: "user-1",
		Scopes:    []string{"openid", "profile"},
		Claims:    map[string]any{"iss": "https://issuer.example"},
	})
	require.NoError(t, err)
	require.False(t, tok.IsReference)
	require.NotEmpty(t, tok.KeyID)
	require.Len(t, strings.Split(tok.Value, "."), 3)
}

func TestCreateAccessToken_ClaimPriorityNeverOverridesEarlier(t *testing.T) {
	svc, _ := newTestService(t)

	tok, err := svc.CreateAccessToken(context.Background(), CreateAccessTokenRequest{
		ClientID:  "client-a",
		SubjectID: "user-1",
		Claims:    map[string]any{"client_id": "attacker-supplied"},
	})
	require.NoError(t, err)
	require.Equal(t, "client-a", tok.Claims["client_id"])
}

func TestCreateAccessToken_DPoPConfirmation(t *testing.T) {
	svc, _ := newTestService(t)
	tok, err := svc.CreateAccessToken(context.Background(), CreateAccessTokenRequest{
		ClientID:          "client-a",
		SubjectID:         "user-1",
		DPoPKeyThumbprint: "thumbprint-value",
	})
	require.NoError(t, err)
	cnf, ok := tok.Claims["cnf"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "thumbprint-value", cnf["jkt"])
}

func TestCreateAccessToken_Reference(t *testing.T) {
	svc, grants := newTestService(t)
	tok, err := svc.CreateAccessToken(context.Background(), CreateAccessTokenRequest{
		ClientID:    "client-a",
		SubjectID:   "user-1",
		IsReference: true,
	})
	require.NoError(t, err)
	require.True(t, tok.IsReference)

	grant, err := grants.GetGrant(context.Background(), tok.Value)
	require.NoError(t, err)
	require.Equal(t, store.GrantReferenceToken, grant.Type)
}

func TestCreateIDToken_RequiresSubject(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateIDToken(context.Background(), CreateIDTokenRequest{ClientID: "client-a"})
	require.Error(t, err)
}

func TestCreateIDToken_ATHash(t *testing.T) {
	svc, _ := newTestService(t)
	idToken, err := svc.CreateIDToken(context.Background(), CreateIDTokenRequest{
		ClientID:    "client-a",
		SubjectID:   "user-1",
		AccessToken: "some-access-token-value",
	})
	require.NoError(t, err)
	require.NotEmpty(t, idToken)
}

func TestRedeemCode_ExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	code, err := svc.CreateAuthorizationCode(context.Background(), CreateAuthorizationCodeRequest{
		ClientID:    "client-a",
		SubjectID:   "user-1",
		RedirectURI: "https://app.example/cb",
	})
	require.NoError(t, err)

	grant, err := svc.RedeemCode(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, "https://app.example/cb", grant.RedirectURI)

	_, err = svc.RedeemCode(context.Background(), code)
	require.ErrorIs(t, err, ErrAlreadyConsumed)
}

func TestRedeemRefresh_WrongGrantType(t *testing.T) {
	svc, _ := newTestService(t)
	code, err := svc.CreateAuthorizationCode(context.Background(), CreateAuthorizationCodeRequest{ClientID: "client-a"})
	require.NoError(t, err)

	_, err = svc.RedeemRefresh(context.Background(), code)
	require.ErrorIs(t, err, ErrWrongGrantType)
}

func TestRevoke_CascadesToSession(t *testing.T) {
	svc, grants := newTestService(t)
	handle, err := svc.CreateRefreshToken(context.Background(), CreateRefreshTokenRequest{
		ClientID:  "client-a",
		SubjectID: "user-1",
		SessionID: "sess-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), handle))

	grant, err := grants.GetGrant(context.Background(), handle)
	require.NoError(t, err)
	require.True(t, grant.IsConsumed())
}

func TestRevoke_UnknownHandleIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Revoke(context.Background(), "does-not-exist"))
}
