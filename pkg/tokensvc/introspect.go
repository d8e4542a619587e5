package tokensvc

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// ErrTokenInactive is returned by IntrospectAccessToken for any token that
// fails signature verification, is expired, or is a consumed/unknown
// reference handle — the RFC 7662 "active: false" case is not an error to
// HTTP callers, but internal callers that want to distinguish a malformed
// request from a simply-inactive token can check for this sentinel.
var ErrTokenInactive = errors.New("tokensvc: token is not active")

// IntrospectionResult is the internal, typed form of an RFC 7662
// introspection response.
type IntrospectionResult struct {
	Active    bool
	Claims    map[string]any
	KeyID     string
	ExpiresAt time.Time
}

// IntrospectAccessToken validates an access token of either shape: a
// self-contained JWT (verified against the key its "kid" header names) or
// an opaque reference-token handle (looked up in the grant store without
// being consumed). Reference-token lookups never call
// CompareAndConsumeGrant — introspection is a read, not a redemption.
func (s *Service) IntrospectAccessToken(ctx context.Context, token string) (*IntrospectionResult, error) {
	if looksLikeJWT(token) {
		return s.introspectJWT(ctx, token)
	}

	result, err := s.introspectReference(ctx, token)
	if err != nil {
		return nil, err
	}
	if result.Active {
		return result, nil
	}

	for _, p := range s.UpstreamIntrospectors {
		if p.CanHandle(token) {
			return p.Introspect(ctx, token)
		}
	}
	return result, nil
}

func looksLikeJWT(token string) bool {
	return len(strings.Split(token, ".")) == 3
}

func (s *Service) introspectJWT(ctx context.Context, token string) (*IntrospectionResult, error) {
	var keyID string
	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		keyID = kid
		if kid == "" {
			return nil, fmt.Errorf("tokensvc: token has no kid header")
		}

		rec, err := s.Credentials.KeyByID(ctx, kid)
		if err != nil {
			return nil, err
		}

		if rec.KeyType == store.KeyTypeSymmetric {
			provider, err := s.Credentials.Registry.Resolve(rec.ProviderType)
			if err != nil {
				return nil, err
			}
			return provider.Unseal(ctx, rec)
		}
		return x509.ParsePKIXPublicKey(rec.PublicKeyData)
	})

	if err != nil || !parsed.Valid {
		return &IntrospectionResult{Active: false, KeyID: keyID}, nil
	}

	expiresAt := time.Time{}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
		if s.now().After(expiresAt) {
			return &IntrospectionResult{Active: false, KeyID: keyID}, nil
		}
	}

	return &IntrospectionResult{
		Active:    true,
		Claims:    map[string]any(claims),
		KeyID:     keyID,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) introspectReference(ctx context.Context, handle string) (*IntrospectionResult, error) {
	grant, err := s.Grants.GetGrant(ctx, handle)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &IntrospectionResult{Active: false}, nil
		}
		return nil, fmt.Errorf("tokensvc: introspecting reference token: %w", err)
	}
	if grant.Type != store.GrantReferenceToken || grant.IsConsumed() || grant.IsExpired(s.now()) {
		return &IntrospectionResult{Active: false}, nil
	}

	claims, err := unmarshalClaims(grant.SerializedPayload)
	if err != nil {
		return nil, err
	}

	return &IntrospectionResult{
		Active:    true,
		Claims:    claims,
		ExpiresAt: grant.ExpiresAt,
	}, nil
}
