package oidc

import (
	"context"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// EndSessionRequest is the decoded GET/POST /connect/endsession request.
type EndSessionRequest struct {
	IDTokenHint           string
	PostLogoutRedirectURI string
	State                 string
	ClientID              string
	SessionID             string
}

// EndSession answers /connect/endsession: it tears down the server-side
// session and, if a post_logout_redirect_uri was supplied and validates
// against the client's registered list, returns a redirect target (spec §6
// "RP-initiated logout").
func (s *Service) EndSession(ctx context.Context, tenantID string, req EndSessionRequest) (redirectURI string, err error) {
	if req.SessionID != "" {
		if delErr := s.Sessions.DeleteSession(ctx, req.SessionID); delErr != nil {
			return "", NewError(ErrServerError, delErr.Error())
		}
		if revokeErr := s.Tokens.Revoke(ctx, req.SessionID); revokeErr != nil {
			return "", NewError(ErrServerError, revokeErr.Error())
		}
	}

	if req.PostLogoutRedirectURI == "" {
		return "", nil
	}
	if req.ClientID == "" {
		return "", NewError(ErrInvalidRequest, "client_id is required to validate post_logout_redirect_uri")
	}

	client, clientErr := s.Clients.GetClient(ctx, tenantID, req.ClientID)
	if clientErr != nil {
		return "", NewError(ErrInvalidClient, "unknown client_id")
	}
	if !matchesAnyURI(client, req.PostLogoutRedirectURI) {
		return "", NewError(ErrInvalidRequest, "post_logout_redirect_uri does not match a registered URI")
	}

	params := map[string]string{}
	if req.State != "" {
		params["state"] = req.State
	}
	return appendQuery(req.PostLogoutRedirectURI, params), nil
}

func matchesAnyURI(c *store.Client, requested string) bool {
	for _, registered := range c.PostLogoutRedirectURIs {
		if requested == registered {
			return true
		}
	}
	return false
}
