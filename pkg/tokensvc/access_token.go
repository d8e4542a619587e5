package tokensvc

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// CreateAccessTokenRequest is the input to Service.CreateAccessToken (spec §4.3).
type CreateAccessTokenRequest struct {
	TenantID          string
	ClientID          string
	SubjectID         string // empty for client_credentials grants
	Scopes            []string
	SessionID         string
	Algorithm         string
	Lifetime          time.Duration
	DPoPKeyThumbprint string // sets cnf.jkt when non-empty
	// IsReference mints an opaque reference token instead of a self-contained
	// JWT; the serialized claim set is stored as a reference_token grant.
	IsReference bool
	// Claims are caller-supplied claims, applied last (lowest priority; spec
	// §4.3 step 5).
	Claims map[string]any
}

// AccessToken is the result of CreateAccessToken: either a signed JWT or an
// opaque reference handle, plus the assembled claim set (useful for at_hash
// computation and logging-safe introspection).
type AccessToken struct {
	Value       string
	IsReference bool
	KeyID       string // empty for reference tokens
	Claims      map[string]any
	ExpiresAt   time.Time
	JTI         string
}

// CreateAccessToken assembles claims in the spec §4.3 priority order and
// either signs a JWT or persists a reference_token grant.
func (s *Service) CreateAccessToken(ctx context.Context, req CreateAccessTokenRequest) (*AccessToken, error) {
	now := s.now()
	lifetime := s.accessTokenLifetime(req.Lifetime)
	expiresAt := now.Add(lifetime)
	jti := newJTI()

	claims := make(map[string]any)

	// 1. Protocol-required claims.
	protocol := map[string]any{
		"client_id": req.ClientID,
		"jti":       jti,
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       expiresAt.Unix(),
	}
	if req.SubjectID != "" {
		protocol["sub"] = req.SubjectID
	}
	if len(req.Scopes) > 0 {
		protocol["scope"] = req.Scopes
	}
	if req.TenantID != "" {
		protocol["tenant_id"] = req.TenantID
	}
	mergeClaimsKeepFirst(claims, protocol)

	// 2. DPoP confirmation.
	if req.DPoPKeyThumbprint != "" {
		mergeClaimsKeepFirst(claims, map[string]any{
			"cnf": map[string]any{"jkt": req.DPoPKeyThumbprint},
		})
	}

	// 3. Session id.
	if req.SessionID != "" {
		mergeClaimsKeepFirst(claims, map[string]any{"sid": req.SessionID})
	}

	// 4. Registered claims providers.
	for _, provider := range s.ClaimsProviders {
		extra, err := provider.Claims(ctx, ClaimsProviderRequest{
			SubjectID: req.SubjectID,
			ClientID:  req.ClientID,
			TenantID:  req.TenantID,
			Scopes:    req.Scopes,
		})
		if err != nil {
			return nil, fmt.Errorf("tokensvc: claims provider failed: %w", err)
		}
		mergeClaimsKeepFirst(claims, extra)
	}

	// 5. Caller-supplied claims.
	mergeClaimsKeepFirst(claims, req.Claims)

	if req.IsReference {
		grantKey, err := newOpaqueHandle(32)
		if err != nil {
			return nil, err
		}
		payload, err := marshalClaims(claims)
		if err != nil {
			return nil, err
		}
		grant := &store.PersistedGrant{
			GrantKey:          grantKey,
			Type:              store.GrantReferenceToken,
			SubjectID:         req.SubjectID,
			ClientID:          req.ClientID,
			SessionID:         req.SessionID,
			TenantID:          req.TenantID,
			Scopes:            req.Scopes,
			CreatedAt:         now,
			ExpiresAt:         expiresAt,
			SerializedPayload: payload,
		}
		if err := s.Grants.CreateGrant(ctx, grant); err != nil {
			return nil, fmt.Errorf("tokensvc: persisting reference token grant: %w", err)
		}
		return &AccessToken{Value: grantKey, IsReference: true, Claims: claims, ExpiresAt: expiresAt, JTI: jti}, nil
	}

	algorithm := s.algorithm(req.Algorithm)
	signed, keyID, err := s.signJWT(ctx, req.TenantID, algorithm, jwt.MapClaims(claims))
	if err != nil {
		return nil, err
	}
	return &AccessToken{Value: signed, KeyID: keyID, Claims: claims, ExpiresAt: expiresAt, JTI: jti}, nil
}
