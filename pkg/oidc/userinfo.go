package oidc

import (
	"context"
	"strings"
)

// UserInfo answers GET/POST /connect/userinfo: the bearer token is
// introspected and its claim set filtered down to the standard OIDC
// UserInfo shape (spec §6 "UserInfo").
func (s *Service) UserInfo(ctx context.Context, bearerToken string) (map[string]any, error) {
	token := strings.TrimPrefix(bearerToken, "Bearer ")
	if token == "" {
		return nil, NewError(ErrInvalidRequest, "missing bearer token")
	}

	result, err := s.Tokens.IntrospectAccessToken(ctx, token)
	if err != nil {
		return nil, NewError(ErrServerError, err.Error())
	}
	if !result.Active {
		return nil, NewError(ErrInvalidRequest, "token is not active")
	}

	sub, _ := result.Claims["sub"].(string)
	if sub == "" {
		return nil, NewError(ErrInvalidRequest, "token has no subject")
	}

	out := map[string]any{"sub": sub}
	for _, claim := range []string{"name", "email", "email_verified", "tenant_id", "amr", "acr"} {
		if v, ok := result.Claims[claim]; ok {
			out[claim] = v
		}
	}
	return out, nil
}
