package oidc

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
)

// DiscoveryDocument is the `/.well-known/openid-configuration` body (spec
// §6). Paths are filled in by the caller from pkg/config, since this
// package has no opinion on path configuration.
type DiscoveryDocument struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	UserinfoEndpoint                  string   `json:"userinfo_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	EndSessionEndpoint                string   `json:"end_session_endpoint"`
	DeviceAuthorizationEndpoint       string   `json:"device_authorization_endpoint"`
	PushedAuthorizationRequestEndpoint string  `json:"pushed_authorization_request_endpoint"`
	BackchannelAuthenticationEndpoint string   `json:"backchannel_authentication_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	SubjectTypesSupported             []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported  []string `json:"id_token_signing_alg_values_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	ClaimsSupported                   []string `json:"claims_supported"`
}

// EndpointPaths supplies the configurable path segment of every endpoint
// (spec §6 "All paths are configurable"); callers derive these from
// pkg/config and prefix them with the resolved issuer.
type EndpointPaths struct {
	Authorization             string
	Token                     string
	Userinfo                  string
	JWKS                      string
	Revocation                string
	Introspection             string
	EndSession                string
	DeviceAuthorization       string
	PushedAuthorizationRequest string
	BackchannelAuthentication string
	Registration              string
}

// Discovery builds the discovery document for tenantID, rooted at issuer.
func (s *Service) Discovery(issuer string, paths EndpointPaths) *DiscoveryDocument {
	return &DiscoveryDocument{
		Issuer:                             issuer,
		AuthorizationEndpoint:              issuer + paths.Authorization,
		TokenEndpoint:                      issuer + paths.Token,
		UserinfoEndpoint:                   issuer + paths.Userinfo,
		JWKSURI:                            issuer + paths.JWKS,
		RevocationEndpoint:                 issuer + paths.Revocation,
		IntrospectionEndpoint:              issuer + paths.Introspection,
		EndSessionEndpoint:                 issuer + paths.EndSession,
		DeviceAuthorizationEndpoint:        issuer + paths.DeviceAuthorization,
		PushedAuthorizationRequestEndpoint: issuer + paths.PushedAuthorizationRequest,
		BackchannelAuthenticationEndpoint:  issuer + paths.BackchannelAuthentication,
		RegistrationEndpoint:               issuer + paths.Registration,
		ScopesSupported:                    []string{"openid", "profile", "email", "offline_access"},
		ResponseTypesSupported:             []string{"code", "id_token", "token", "code id_token"},
		GrantTypesSupported: []string{
			GrantTypeAuthorizationCode, GrantTypeRefreshToken, GrantTypeClientCredentials,
			GrantTypeCIBA, GrantTypeDeviceCode,
		},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256", "ES256", "PS256"},
		CodeChallengeMethodsSupported:    []string{"S256"},
		ClaimsSupported:                  []string{"sub", "name", "email", "email_verified", "tenant_id", "amr", "acr"},
	}
}

// JWKS builds the `/.well-known/jwks` document for tenantID from currently
// stored signing keys (spec §4.4 JWKS publication, delegated to
// pkg/signing).
func (s *Service) JWKS(ctx context.Context, tenantID string) (jwk.Set, error) {
	keys, err := s.Tokens.Credentials.Keys.ListSigningKeys(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("oidc: listing signing keys: %w", err)
	}
	set, err := signing.PublishJWKS(keys, s.now())
	if err != nil {
		return nil, fmt.Errorf("oidc: building jwks: %w", err)
	}
	return set, nil
}
