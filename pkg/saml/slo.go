package saml

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// ParseLogoutRequest decodes a LogoutRequest from either binding, the same
// way ParseAuthnRequest does for AuthnRequest.
func (s *Service) ParseLogoutRequest(ctx context.Context, tenantID, binding, encoded string) (*LogoutRequest, *store.SAMLServiceProvider, error) {
	var raw []byte
	var err error
	switch binding {
	case HTTPRedirectBinding:
		raw, err = DecodeRedirectBinding(encoded)
	case HTTPPostBinding:
		raw, err = DecodePostBinding(encoded)
	default:
		return nil, nil, fmt.Errorf("saml: unsupported binding %q", binding)
	}
	if err != nil {
		return nil, nil, err
	}

	var req LogoutRequest
	if err := xml.Unmarshal(raw, &req); err != nil {
		return nil, nil, fmt.Errorf("saml: parsing LogoutRequest: %w", err)
	}
	if req.Issuer == nil || req.Issuer.Value == "" {
		return nil, nil, fmt.Errorf("saml: LogoutRequest is missing Issuer")
	}
	sp, err := s.ServiceProviders.GetSAMLServiceProvider(ctx, tenantID, req.Issuer.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("saml: unknown SP entityID %q: %w", req.Issuer.Value, err)
	}
	return &req, sp, nil
}

// SingleLogout deletes the named session (if any) and builds the
// auto-posting LogoutResponse targeting the SP's SLO URL.
func (s *Service) SingleLogout(ctx context.Context, req *LogoutRequest, sp *store.SAMLServiceProvider) (string, error) {
	if req.SessionIndex != "" {
		if err := s.Sessions.DeleteSession(ctx, req.SessionIndex); err != nil && err != store.ErrNotFound {
			return "", fmt.Errorf("saml: deleting session %s: %w", req.SessionIndex, err)
		}
	}

	resp := &LogoutResponse{
		ID:           newSAMLID(),
		Version:      "2.0",
		IssueInstant: s.now(),
		Destination:  sp.SLOURL,
		InResponseTo: req.ID,
		Issuer:       &Issuer{Value: s.IssuerEntityID},
		Status:       Status{StatusCode: StatusCode{Value: StatusSuccess}},
	}

	out, err := xml.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("saml: marshaling LogoutResponse: %w", err)
	}

	return BuildPostForm(sp.SLOURL, "SAMLResponse", out, "")
}
