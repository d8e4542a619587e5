package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
)

// TokenRequest is the decoded body of a /connect/token request, form fields
// collapsed to their OAuth-spec names regardless of transport.
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
	Scope        string
	ClientID     string
	ClientSecret string
	AuthTime     string
	DeviceCode   string
	AuthReqID    string
}

// TokenResponse is the §6 token-endpoint success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeCIBA              = "urn:openid:params:grant-type:ciba"
	GrantTypeDeviceCode        = "urn:ietf:params:oauth:grant-type:device_code"
)

// Token dispatches a /connect/token request to the grant handler named by
// grant_type (spec §4.5 "Token endpoint").
func (s *Service) Token(ctx context.Context, tenantID string, req TokenRequest) (*TokenResponse, error) {
	client, err := s.authenticateClient(ctx, tenantID, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}
	if !clientAllowsGrantType(client, req.GrantType) {
		return nil, NewError(ErrUnauthorizedClient, "client is not authorized for this grant_type")
	}

	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.tokenFromAuthorizationCode(ctx, tenantID, client, req)
	case GrantTypeRefreshToken:
		return s.tokenFromRefreshToken(ctx, tenantID, client, req)
	case GrantTypeClientCredentials:
		return s.tokenFromClientCredentials(ctx, tenantID, client, req)
	case GrantTypeDeviceCode:
		return s.tokenFromDeviceCode(ctx, tenantID, client, req.DeviceCode)
	case GrantTypeCIBA:
		return s.tokenFromCIBA(ctx, tenantID, client, req.AuthReqID)
	default:
		return nil, NewError(ErrUnsupportedGrantType, fmt.Sprintf("unsupported grant_type %q", req.GrantType))
	}
}

func (s *Service) authenticateClient(ctx context.Context, tenantID, clientID, clientSecret string) (*store.Client, *Error) {
	if clientID == "" {
		return nil, NewError(ErrInvalidClient, "client_id is required")
	}
	client, err := s.Clients.GetClient(ctx, tenantID, clientID)
	if err != nil {
		return nil, NewError(ErrInvalidClient, "unknown client_id")
	}
	if client.Public {
		return client, nil
	}
	for _, secret := range client.Secrets {
		if secret == clientSecret {
			return client, nil
		}
	}
	return nil, NewError(ErrInvalidClient, "client authentication failed")
}

func clientAllowsGrantType(c *store.Client, grantType string) bool {
	if len(c.AllowedGrantTypes) == 0 {
		return true
	}
	for _, g := range c.AllowedGrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

func (s *Service) tokenFromAuthorizationCode(ctx context.Context, tenantID string, client *store.Client, req TokenRequest) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, NewError(ErrInvalidRequest, "code is required")
	}

	grant, err := s.Tokens.RedeemCode(ctx, req.Code)
	if err != nil {
		return nil, mapRedeemError(err)
	}
	if grant.Grant.ClientID != client.ClientID {
		return nil, NewError(ErrInvalidGrant, "code was not issued to this client")
	}
	if req.RedirectURI != "" && req.RedirectURI != grant.RedirectURI {
		return nil, NewError(ErrInvalidGrant, "redirect_uri does not match the authorization request")
	}
	if !VerifyPKCE(grant.CodeChallenge, grant.CodeChallengeMethod, req.CodeVerifier) {
		return nil, NewError(ErrInvalidGrant, "PKCE verification failed")
	}

	return s.issueTokenSet(ctx, tenantID, client, grant.Grant.SubjectID, grant.Grant.SessionID, grant.Grant.Scopes, grant.Nonce, true)
}

func (s *Service) tokenFromRefreshToken(ctx context.Context, tenantID string, client *store.Client, req TokenRequest) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, NewError(ErrInvalidRequest, "refresh_token is required")
	}

	grant, err := s.Tokens.RedeemRefresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, mapRedeemError(err)
	}
	if grant.Grant.ClientID != client.ClientID {
		return nil, NewError(ErrInvalidGrant, "refresh_token was not issued to this client")
	}

	scopes := grant.Grant.Scopes
	if req.Scope != "" {
		scopes = splitScope(req.Scope)
	}

	return s.issueTokenSet(ctx, tenantID, client, grant.Grant.SubjectID, grant.Grant.SessionID, scopes, "", true)
}

func (s *Service) tokenFromClientCredentials(ctx context.Context, tenantID string, client *store.Client, req TokenRequest) (*TokenResponse, error) {
	scopes := splitScope(req.Scope)
	if len(scopes) == 0 {
		scopes = client.AllowedScopes
	}
	for _, scope := range scopes {
		if !clientAllowsScope(client, scope) {
			return nil, NewError(ErrInvalidScope, fmt.Sprintf("scope %q not allowed for client", scope))
		}
	}

	tok, err := s.Tokens.CreateAccessToken(ctx, tokensvc.CreateAccessTokenRequest{
		TenantID: tenantID,
		ClientID: client.ClientID,
		Scopes:   scopes,
	})
	if err != nil {
		return nil, NewError(ErrServerError, err.Error())
	}

	return &TokenResponse{
		AccessToken: tok.Value,
		TokenType:   "Bearer",
		ExpiresIn:   int64(tok.ExpiresAt.Sub(s.now()).Seconds()),
		Scope:       joinScope(scopes),
	}, nil
}

// issueTokenSet mints access + (optionally) id + refresh tokens for a
// subject-bearing grant redemption, per spec §4.5's token-endpoint rules.
func (s *Service) issueTokenSet(ctx context.Context, tenantID string, client *store.Client, subjectID, sessionID string, scopes []string, nonce string, mintRefresh bool) (*TokenResponse, error) {
	accessTok, err := s.Tokens.CreateAccessToken(ctx, tokensvc.CreateAccessTokenRequest{
		TenantID:  tenantID,
		ClientID:  client.ClientID,
		SubjectID: subjectID,
		SessionID: sessionID,
		Scopes:    scopes,
	})
	if err != nil {
		return nil, NewError(ErrServerError, err.Error())
	}

	resp := &TokenResponse{
		AccessToken: accessTok.Value,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTok.ExpiresAt.Sub(s.now()).Seconds()),
		Scope:       joinScope(scopes),
	}

	if hasScope(scopes, "openid") {
		idTok, err := s.Tokens.CreateIDToken(ctx, tokensvc.CreateIDTokenRequest{
			TenantID:    tenantID,
			ClientID:    client.ClientID,
			SubjectID:   subjectID,
			SessionID:   sessionID,
			Nonce:       nonce,
			AccessToken: accessTok.Value,
		})
		if err != nil {
			return nil, NewError(ErrServerError, err.Error())
		}
		resp.IDToken = idTok
	}

	if mintRefresh && hasScope(scopes, "offline_access") {
		refreshTok, err := s.Tokens.CreateRefreshToken(ctx, tokensvc.CreateRefreshTokenRequest{
			TenantID:  tenantID,
			ClientID:  client.ClientID,
			SubjectID: subjectID,
			Scopes:    scopes,
			SessionID: sessionID,
		})
		if err != nil {
			return nil, NewError(ErrServerError, err.Error())
		}
		resp.RefreshToken = refreshTok
	}

	return resp, nil
}

func mapRedeemError(err error) *Error {
	switch {
	case errors.Is(err, tokensvc.ErrAlreadyConsumed):
		return NewError(ErrInvalidGrant, "grant already redeemed")
	case errors.Is(err, tokensvc.ErrGrantNotFound):
		return NewError(ErrInvalidGrant, "unknown grant")
	case errors.Is(err, tokensvc.ErrGrantExpired):
		return NewError(ErrInvalidGrant, "grant expired")
	case errors.Is(err, tokensvc.ErrWrongGrantType):
		return NewError(ErrInvalidGrant, "grant type mismatch")
	default:
		return NewError(ErrServerError, err.Error())
	}
}

func hasScope(scopes []string, target string) bool {
	for _, s := range scopes {
		if s == target {
			return true
		}
	}
	return false
}

func joinScope(scopes []string) string {
	out := ""
	for i, s := range scopes {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}
