package tokensvc

import (
	"context"
	"fmt"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// CreateRefreshTokenRequest is the input to Service.CreateRefreshToken (spec §4.3).
type CreateRefreshTokenRequest struct {
	TenantID  string
	ClientID  string
	SubjectID string
	Scopes    []string
	SessionID string
	Lifetime  time.Duration
}

// CreateRefreshToken mints an opaque refresh token handle and persists its
// grant (spec §4.3: "Opaque handle (base64url of >= 32 random bytes).
// Persists grant of type refresh_token with scopes, session id, tenant").
func (s *Service) CreateRefreshToken(ctx context.Context, req CreateRefreshTokenRequest) (string, error) {
	handle, err := newOpaqueHandle(32)
	if err != nil {
		return "", err
	}

	now := s.now()
	lifetime := req.Lifetime
	if lifetime <= 0 {
		lifetime = 7 * 24 * time.Hour
	}

	grant := &store.PersistedGrant{
		GrantKey:  handle,
		Type:      store.GrantRefreshToken,
		SubjectID: req.SubjectID,
		ClientID:  req.ClientID,
		SessionID: req.SessionID,
		TenantID:  req.TenantID,
		Scopes:    req.Scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
	if err := s.Grants.CreateGrant(ctx, grant); err != nil {
		return "", fmt.Errorf("tokensvc: persisting refresh token grant: %w", err)
	}
	return handle, nil
}
