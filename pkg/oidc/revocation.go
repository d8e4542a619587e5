package oidc

import "context"

// Revoke answers POST /connect/revocation (RFC 7009). Per the RFC, an
// unknown token handle is not an error: the endpoint always returns 200.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return NewError(ErrInvalidRequest, "token is required")
	}
	if err := s.Tokens.Revoke(ctx, token); err != nil {
		return NewError(ErrServerError, err.Error())
	}
	return nil
}
