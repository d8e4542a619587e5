package oidc

import "context"

// IntrospectionResponse is the RFC 7662 §2.2 response body.
type IntrospectionResponse struct {
	Active   bool           `json:"active"`
	Scope    string         `json:"scope,omitempty"`
	ClientID string         `json:"client_id,omitempty"`
	Sub      string         `json:"sub,omitempty"`
	Exp      int64          `json:"exp,omitempty"`
	Extra    map[string]any `json:"-"`
}

// Introspect answers POST /connect/introspect (RFC 7662). Per the RFC, an
// inactive/unknown token is NOT an error — the response body simply
// carries {"active": false}.
func (s *Service) Introspect(ctx context.Context, token string) (*IntrospectionResponse, error) {
	if token == "" {
		return nil, NewError(ErrInvalidRequest, "token is required")
	}

	result, err := s.Tokens.IntrospectAccessToken(ctx, token)
	if err != nil {
		return nil, NewError(ErrServerError, err.Error())
	}
	if !result.Active {
		return &IntrospectionResponse{Active: false}, nil
	}

	resp := &IntrospectionResponse{Active: true, Extra: result.Claims}
	if sub, ok := result.Claims["sub"].(string); ok {
		resp.Sub = sub
	}
	if clientID, ok := result.Claims["client_id"].(string); ok {
		resp.ClientID = clientID
	}
	if !result.ExpiresAt.IsZero() {
		resp.Exp = result.ExpiresAt.Unix()
	}
	return resp, nil
}
