// Package tokensvc implements the token service (spec §4.3): minting
// access, ID and refresh tokens; one-shot code/refresh redemption through
// the grant store's atomic consume primitive; and revocation, including
// refresh-token-family cascades.
package tokensvc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// Errors returned by the token service (spec §7 sentinel-error convention).
var (
	ErrNoSigningCredentials = errors.New("tokensvc: no_signing_credentials")
	ErrGrantNotFound        = store.ErrNotFound
	ErrAlreadyConsumed      = store.ErrAlreadyConsumed
	ErrGrantExpired         = errors.New("tokensvc: grant expired")
	ErrWrongGrantType       = errors.New("tokensvc: grant is not of the expected type")
)

// ClaimsProvider contributes extra claims to an access or ID token. Invoked
// with a context carrying subject, client, scopes and tenant (spec §4.3
// step 4); providers never override claims already set.
type ClaimsProvider interface {
	Claims(ctx context.Context, req ClaimsProviderRequest) (map[string]any, error)
}

// ClaimsProviderRequest is the input passed to every registered ClaimsProvider.
type ClaimsProviderRequest struct {
	SubjectID string
	ClientID  string
	TenantID  string
	Scopes    []string
}

// Service mints and redeems tokens on top of a grant store and the signing
// credential cache.
type Service struct {
	Grants          store.GrantStore
	Credentials     *signing.SigningCredentialStore
	ClaimsProviders []ClaimsProvider
	Now             func() time.Time

	// DefaultAccessTokenLifetime is used when a request does not specify one.
	DefaultAccessTokenLifetime time.Duration
	// DefaultAlgorithm is the signing algorithm used when a request does not
	// specify one (e.g. "RS256").
	DefaultAlgorithm string

	// UpstreamIntrospectors is consulted, in registration order, for any
	// token that is neither a locally-issued JWT nor a known reference-token
	// handle — a token minted by a federated upstream IdP (spec §10
	// "Upstream IdP delegation"). Nil/empty means no federation is
	// configured and such tokens simply come back inactive, the same
	// behavior as before this field existed.
	UpstreamIntrospectors []UpstreamIntrospector
}

// UpstreamIntrospector lets IntrospectAccessToken delegate a token it
// doesn't recognize to an external provider's own introspection endpoint,
// the same named-provider registry shape as toolhive's
// pkg/auth.Registry/TokenIntrospector, generalized from "pick a provider
// for this introspection URL" to "pick a provider that recognizes this
// token".
type UpstreamIntrospector interface {
	Name() string
	CanHandle(token string) bool
	Introspect(ctx context.Context, token string) (*IntrospectionResult, error)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) algorithm(requested string) string {
	if requested != "" {
		return requested
	}
	if s.DefaultAlgorithm != "" {
		return s.DefaultAlgorithm
	}
	return "RS256"
}

func (s *Service) accessTokenLifetime(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	if s.DefaultAccessTokenLifetime > 0 {
		return s.DefaultAccessTokenLifetime
	}
	return time.Hour
}

// newJTI generates the random unique token identifier used for the `jti`
// claim and as the basis for opaque grant keys.
func newJTI() string {
	return uuid.NewString()
}

// newOpaqueHandle returns a cryptographically random, base64url-encoded
// opaque handle of at least the requested number of random bytes (spec
// §4.3 "opaque handle (base64url of >= 32 random bytes)").
func newOpaqueHandle(minBytes int) (string, error) {
	buf := make([]byte, minBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("tokensvc: generating random handle: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// signJWT signs a claim set with the tenant's active credential for
// algorithm, returning the compact serialization and the key ID used.
func (s *Service) signJWT(ctx context.Context, tenantID, algorithm string, claims jwt.MapClaims) (string, string, error) {
	rec, private, err := s.Credentials.ActiveKey(ctx, tenantID, algorithm)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoSigningCredentials, err)
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return "", "", fmt.Errorf("tokensvc: unsupported signing algorithm %q", algorithm)
	}

	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = rec.KeyID

	var key any
	if rec.KeyType == store.KeyTypeSymmetric {
		key = private
	} else {
		signer, err := signing.ParsePrivateKey(rec.KeyType, private)
		if err != nil {
			return "", "", fmt.Errorf("tokensvc: loading signing key: %w", err)
		}
		key = signer
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", "", fmt.Errorf("tokensvc: signing token: %w", err)
	}
	return signed, rec.KeyID, nil
}
