package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// ClientRegistrationRequest is the RFC 7591 §3.1 request body, fields
// narrowed to what this platform's Client model supports.
type ClientRegistrationRequest struct {
	RedirectURIs           []string `json:"redirect_uris"`
	PostLogoutRedirectURIs []string `json:"post_logout_redirect_uris,omitempty"`
	GrantTypes             []string `json:"grant_types,omitempty"`
	Scope                  string   `json:"scope,omitempty"`
	TokenEndpointAuthMethod string  `json:"token_endpoint_auth_method,omitempty"`
}

// ClientRegistrationResponse is the RFC 7591 §3.2.1 response body.
type ClientRegistrationResponse struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret,omitempty"`
	RedirectURIs []string `json:"redirect_uris"`
	GrantTypes   []string `json:"grant_types"`
}

// Register answers POST /connect/register (RFC 7591): it assigns a fresh
// client_id (and, for confidential clients, a client_secret), applies the
// platform's default grant types when the request omits them, and persists
// the new Client. Loopback/native-app redirect URIs are accepted without
// further validation at registration time; they are validated per-request
// at the authorize endpoint via MatchRedirectURI.
func (s *Service) Register(ctx context.Context, tenantID string, req ClientRegistrationRequest) (*ClientRegistrationResponse, error) {
	if len(req.RedirectURIs) == 0 {
		return nil, NewError(ErrInvalidRequest, "redirect_uris is required")
	}

	public := req.TokenEndpointAuthMethod == "none"

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken}
	}

	client := &store.Client{
		ClientID:          uuid.NewString(),
		Public:            public,
		AllowedGrantTypes: grantTypes,
		RedirectURIs:      req.RedirectURIs,
		PostLogoutRedirectURIs: req.PostLogoutRedirectURIs,
		AllowedScopes:     splitScope(req.Scope),
		TenantID:          tenantID,
	}

	var secret string
	if !public {
		var err error
		secret, err = newClientSecret()
		if err != nil {
			return nil, NewError(ErrServerError, err.Error())
		}
		client.Secrets = []string{secret}
	}

	if err := s.Clients.PutClient(ctx, client); err != nil {
		return nil, NewError(ErrServerError, fmt.Sprintf("persisting client: %v", err))
	}

	return &ClientRegistrationResponse{
		ClientID:     client.ClientID,
		ClientSecret: secret,
		RedirectURIs: client.RedirectURIs,
		GrantTypes:   client.AllowedGrantTypes,
	}, nil
}

func newClientSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oidc: generating client secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
