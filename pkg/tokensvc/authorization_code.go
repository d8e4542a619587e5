package tokensvc

import (
	"context"
	"fmt"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// CreateAuthorizationCodeRequest is the input to Service.CreateAuthorizationCode,
// minted by the OIDC authorize endpoint on journey completion (spec §4.5).
type CreateAuthorizationCodeRequest struct {
	TenantID            string
	ClientID            string
	SubjectID           string
	SessionID           string
	Scopes              []string
	Nonce               string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Lifetime            time.Duration
}

// codeGrantPayload is the envelope persisted for an authorization_code grant,
// carrying everything the token endpoint needs to validate PKCE and finish
// the authorization_code exchange.
type codeGrantPayload struct {
	Nonce               string `json:"nonce,omitempty"`
	RedirectURI         string `json:"redirect_uri"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
}

// CreateAuthorizationCode mints an opaque authorization code grant.
func (s *Service) CreateAuthorizationCode(ctx context.Context, req CreateAuthorizationCodeRequest) (string, error) {
	handle, err := newOpaqueHandle(32)
	if err != nil {
		return "", err
	}

	now := s.now()
	lifetime := req.Lifetime
	if lifetime <= 0 {
		lifetime = 10 * time.Minute
	}

	payload, err := marshalCodePayload(codeGrantPayload{
		Nonce:               req.Nonce,
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		return "", err
	}

	grant := &store.PersistedGrant{
		GrantKey:          handle,
		Type:              store.GrantAuthorizationCode,
		SubjectID:         req.SubjectID,
		ClientID:          req.ClientID,
		SessionID:         req.SessionID,
		TenantID:          req.TenantID,
		Scopes:            req.Scopes,
		CreatedAt:         now,
		ExpiresAt:         now.Add(lifetime),
		SerializedPayload: payload,
	}
	if err := s.Grants.CreateGrant(ctx, grant); err != nil {
		return "", fmt.Errorf("tokensvc: persisting authorization code grant: %w", err)
	}
	return handle, nil
}
