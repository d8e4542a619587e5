package oidc

import (
	"context"
	"fmt"
	"time"
)

// ParRequestURILifetime is how long a pushed authorization request stays
// redeemable (RFC 9126 §2.2 recommends a short, server-chosen lifetime).
const ParRequestURILifetime = 90 * time.Second

const requestURIPrefix = "urn:ietf:params:oauth:request_uri:"

// PushAuthorizationRequest answers POST /connect/par (RFC 9126): it
// validates the authorize request exactly as /connect/authorize would,
// stashes it, and returns a request_uri the client later presents to
// /connect/authorize in place of the individual parameters.
func (s *Service) PushAuthorizationRequest(ctx context.Context, tenantID string, req AuthorizeRequest) (requestURI string, expiresIn int64, err error) {
	if _, verr := s.validateAuthorizeRequest(ctx, tenantID, req); verr != nil {
		return "", 0, verr
	}

	now := s.now()
	correlationID, stashErr := stashAuthorizeRequest(ctx, s.ProtocolStates, tenantID, req, now)
	if stashErr != nil {
		return "", 0, stashErr
	}

	return requestURIPrefix + correlationID, int64(ParRequestURILifetime.Seconds()), nil
}

// ResolvePushedAuthorizationRequest reloads a request_uri issued by
// PushAuthorizationRequest. Unlike the journey-bound ProtocolState consumed
// in AuthorizeComplete, this is a peek: /connect/authorize still needs to
// run the request through the normal journey-start flow, so the PAR
// ProtocolState row is consumed here and immediately restashed under a
// fresh correlation id for the journey to use.
func (s *Service) ResolvePushedAuthorizationRequest(ctx context.Context, tenantID, requestURI string) (*AuthorizeRequest, error) {
	correlationID := requestURI
	if len(requestURI) > len(requestURIPrefix) && requestURI[:len(requestURIPrefix)] == requestURIPrefix {
		correlationID = requestURI[len(requestURIPrefix):]
	}

	req, _, err := resumeAuthorizeRequest(ctx, s.ProtocolStates, correlationID, s.now())
	if err != nil {
		return nil, NewError(ErrInvalidRequest, fmt.Sprintf("unknown or expired request_uri: %v", err))
	}
	return req, nil
}
