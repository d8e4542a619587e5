package oidc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/tokensvc"
)

// Service implements the protocol-front-end side of §4.5: it validates
// wire requests, stashes/resumes ProtocolState around the journey
// orchestrator, and delegates all token minting to pkg/tokensvc.
type Service struct {
	Clients        store.ClientStore
	Resources      store.ResourceStore
	ProtocolStates store.ProtocolStateStore
	Sessions       store.SessionStore
	Journeys       *journey.Orchestrator
	Tokens         *tokensvc.Service
	Issuer         func(ctx context.Context, tenantID string) string
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AuthorizeStart validates an incoming /connect/authorize request and
// starts the journey that will authenticate the user. The caller (the HTTP
// handler) is responsible for rendering whatever ViewName/ViewModel the
// returned *journey.JourneyResult carries when the journey does not
// complete synchronously.
func (s *Service) AuthorizeStart(ctx context.Context, tenantID string, req AuthorizeRequest) (*journey.JourneyResult, *store.Client, error) {
	if req.RequestURI != "" {
		pushed, err := s.ResolvePushedAuthorizationRequest(ctx, tenantID, req.RequestURI)
		if err != nil {
			return nil, nil, err
		}
		// client_id is required alongside request_uri (RFC 9126 §4) and must
		// match what was pushed; everything else comes from the pushed
		// request, never from the caller's other parameters.
		if req.ClientID != "" && req.ClientID != pushed.ClientID {
			return nil, nil, NewError(ErrInvalidRequest, "client_id does not match the pushed authorization request")
		}
		req = *pushed
	}

	client, verr := s.validateAuthorizeRequest(ctx, tenantID, req)
	if verr != nil {
		return nil, client, verr
	}

	correlationID, err := stashAuthorizeRequest(ctx, s.ProtocolStates, tenantID, req, s.now())
	if err != nil {
		return nil, client, err
	}

	scopes := splitScope(req.Scope)
	jc := journey.JourneyContext{
		TenantID:             tenantID,
		ClientID:             req.ClientID,
		Type:                 journey.PolicySignIn,
		Scopes:               scopes,
		ACRValues:            req.ACRValues,
		AdditionalParameters: req.AdditionalParams,
		CorrelationID:        correlationID,
	}

	result, err := s.Journeys.Start(ctx, jc)
	if err != nil {
		return nil, client, (&Error{Code: ErrAccessDenied, Description: err.Error()}).WithRedirectValidated(req.State)
	}
	return result, client, nil
}

// AuthorizeComplete is invoked once the journey backing correlationID has
// reached a terminal state. On success it mints an authorization code and
// returns the redirect target with code+state appended; on failure it
// returns an *Error flagged RedirectURIValidated, since the redirect_uri
// was already validated in AuthorizeStart.
func (s *Service) AuthorizeComplete(ctx context.Context, correlationID string, result *journey.JourneyResult) (redirectURI string, err error) {
	req, ps, err := resumeAuthorizeRequest(ctx, s.ProtocolStates, correlationID, s.now())
	if err != nil {
		return "", err
	}

	if result.State.Status != journey.StatusCompleted {
		return "", (&Error{
			Code:        ErrAccessDenied,
			Description: fmt.Sprintf("journey ended in status %s", result.State.Status),
		}).WithRedirectValidated(req.State)
	}

	subjectID, _ := result.OutputClaims["sub"].(string)
	sessionID, _ := result.OutputClaims["sid"].(string)
	if subjectID == "" {
		return "", (&Error{Code: ErrServerError, Description: "journey completed without a subject"}).WithRedirectValidated(req.State)
	}

	code, err := s.Tokens.CreateAuthorizationCode(ctx, tokensvc.CreateAuthorizationCodeRequest{
		TenantID:            ps.TenantID,
		ClientID:            req.ClientID,
		SubjectID:           subjectID,
		SessionID:           sessionID,
		Scopes:              splitScope(req.Scope),
		Nonce:               req.Nonce,
		RedirectURI:         req.RedirectURI,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
	})
	if err != nil {
		return "", (&Error{Code: ErrServerError, Description: err.Error()}).WithRedirectValidated(req.State)
	}

	return appendQuery(req.RedirectURI, map[string]string{
		"code":  code,
		"state": req.State,
	}), nil
}

// validateAuthorizeRequest implements spec §4.5's authorize-endpoint
// validation: client_id, response_type, redirect_uri (exact match or
// IsNativeClient loopback), scope, and PKCE method. Errors before the
// redirect_uri is validated are NOT flagged RedirectURIValidated: the
// handler must render them as an HTTP error body rather than redirect.
func (s *Service) validateAuthorizeRequest(ctx context.Context, tenantID string, req AuthorizeRequest) (*store.Client, *Error) {
	if req.ClientID == "" {
		return nil, NewError(ErrInvalidRequest, "client_id is required")
	}

	client, err := s.Clients.GetClient(ctx, tenantID, req.ClientID)
	if err != nil {
		return nil, NewError(ErrInvalidClient, "unknown client_id")
	}

	if req.RedirectURI == "" || !MatchRedirectURI(client, req.RedirectURI) {
		return client, NewError(ErrInvalidRedirectURI, "redirect_uri does not match a registered URI")
	}

	// redirect_uri is validated past this point: every further error is
	// safe to deliver via redirect.
	if !isSupportedResponseType(req.ResponseType) {
		return client, NewError(ErrUnsupportedResponseType, "unsupported response_type").WithRedirectValidated(req.State)
	}

	if req.CodeChallenge != "" {
		if req.CodeChallengeMethod == "" {
			req.CodeChallengeMethod = "S256"
		}
		// Only S256 is accepted: VerifyPKCE (pkce.go) rejects "plain"
		// unconditionally, and discovery only advertises ["S256"], so
		// admitting "plain" here would just defer a guaranteed invalid_grant
		// to the token endpoint.
		if req.CodeChallengeMethod != "S256" {
			return client, NewError(ErrInvalidRequest, "unsupported code_challenge_method").WithRedirectValidated(req.State)
		}
	}

	for _, scope := range splitScope(req.Scope) {
		if !clientAllowsScope(client, scope) {
			return client, NewError(ErrInvalidScope, fmt.Sprintf("scope %q not allowed for client", scope)).WithRedirectValidated(req.State)
		}
	}

	return client, nil
}

func isSupportedResponseType(rt string) bool {
	switch rt {
	case "code", "id_token", "token", "code id_token", "code token", "code id_token token":
		return true
	default:
		return false
	}
}

func clientAllowsScope(c *store.Client, scope string) bool {
	if len(c.AllowedScopes) == 0 {
		return true
	}
	for _, s := range c.AllowedScopes {
		if s == scope {
			return true
		}
	}
	return false
}

func splitScope(scope string) []string {
	fields := strings.Fields(scope)
	return fields
}

func appendQuery(uri string, params map[string]string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(uri)
	first := true
	for k, v := range params {
		if first {
			b.WriteString(sep)
			first = false
		} else {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(url.QueryEscape(v))
	}
	return b.String()
}
