package saml

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/dchest/uniuri"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/signing"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// Service implements the IdP role of §4.6: parse AuthnRequests, drive the
// journey orchestrator through ProtocolState exactly as pkg/oidc's
// authorize endpoint does, and build the signed Response on completion.
type Service struct {
	ServiceProviders store.SAMLServiceProviderStore
	ProtocolStates   store.ProtocolStateStore
	Sessions         store.SessionStore
	Journeys         *journey.Orchestrator
	Credentials      *signing.SigningCredentialStore

	// IssuerEntityID is this IdP's own entity id, named as Issuer in every
	// Response/Assertion this service builds.
	IssuerEntityID string
	// SSOURL/SLOURL are this IdP's own published endpoints, used both for
	// AuthnRequest Destination validation and metadata publication.
	SSOURL string
	SLOURL string

	// AssertionLifetime bounds Conditions' NotBefore/NotOnOrAfter window
	// (spec §4.6 "Conditions (NotBefore, NotOnOrAfter, AudienceRestriction)").
	AssertionLifetime time.Duration

	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) assertionLifetime() time.Duration {
	if s.AssertionLifetime <= 0 {
		return 5 * time.Minute
	}
	return s.AssertionLifetime
}

// ParseAuthnRequest decodes an AuthnRequest from either binding (spec §4.6:
// "Redirect binding: base64-url-decoded, DEFLATE-inflated; POST binding:
// base64-decoded") and validates it against the named SP's registration.
func (s *Service) ParseAuthnRequest(ctx context.Context, tenantID, binding, encoded, relayState string) (*AuthnRequest, *store.SAMLServiceProvider, error) {
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

	var req AuthnRequest
	if err := xml.Unmarshal(raw, &req); err != nil {
		return nil, nil, fmt.Errorf("saml: parsing AuthnRequest: %w", err)
	}
	req.RelayState = relayState

	if req.Issuer == nil || req.Issuer.Value == "" {
		return nil, nil, fmt.Errorf("saml: AuthnRequest is missing Issuer")
	}
	sp, err := s.ServiceProviders.GetSAMLServiceProvider(ctx, tenantID, req.Issuer.Value)
	if err != nil {
		return nil, nil, fmt.Errorf("saml: unknown SP entityID %q: %w", req.Issuer.Value, err)
	}

	if req.Destination != "" && req.Destination != s.SSOURL {
		return nil, sp, fmt.Errorf("saml: AuthnRequest Destination %q does not match this IdP's SSO URL", req.Destination)
	}

	acsURL := req.AssertionConsumerServiceURL
	if acsURL == "" {
		acsURL = sp.AssertionConsumerURL
	}
	if acsURL != sp.AssertionConsumerURL {
		return nil, sp, fmt.Errorf("saml: AssertionConsumerServiceURL does not match the registered SP")
	}

	return &req, sp, nil
}

// SSOStart stashes the parsed AuthnRequest and starts the SignIn journey,
// mirroring pkg/oidc.Service.AuthorizeStart's stash-then-start shape.
func (s *Service) SSOStart(ctx context.Context, tenantID string, req *AuthnRequest, sp *store.SAMLServiceProvider) (*journey.JourneyResult, error) {
	nameIDFormat := sp.NameIDFormat
	if req.NameIDPolicy != nil && req.NameIDPolicy.Format != "" {
		nameIDFormat = req.NameIDPolicy.Format
	}
	if nameIDFormat == "" {
		nameIDFormat = NameIDFormatUnspecified
	}

	var acrValues []string
	if req.RequestedAuthnContext != nil {
		acrValues = req.RequestedAuthnContext.AuthnContextClassRef
	}

	correlationID, err := stashSSORequest(ctx, s.ProtocolStates, tenantID, pendingSSORequest{
		RequestID:                   req.ID,
		SPEntityID:                  sp.EntityID,
		AssertionConsumerServiceURL: sp.AssertionConsumerURL,
		NameIDFormat:                nameIDFormat,
		RelayState:                  req.RelayState,
		ACRValues:                   acrValues,
	}, s.now())
	if err != nil {
		return nil, err
	}

	return s.Journeys.Start(ctx, journey.JourneyContext{
		TenantID:      tenantID,
		ClientID:      sp.EntityID,
		Type:          journey.PolicySignIn,
		ACRValues:     acrValues,
		CorrelationID: correlationID,
	})
}

// SSOComplete builds the signed Response once the SignIn journey has
// finished, returning the auto-posting HTML body targeting the SP's ACS URL
// (spec §4.6's closing sentence).
func (s *Service) SSOComplete(ctx context.Context, tenantID, correlationID string, result *journey.JourneyResult) (string, error) {
	pending, _, err := resumeSSORequest(ctx, s.ProtocolStates, correlationID, s.now())
	if err != nil {
		return "", err
	}

	if result.State.Status != journey.StatusCompleted {
		return "", fmt.Errorf("saml: journey ended in status %s", result.State.Status)
	}

	subject, _ := result.OutputClaims["sub"].(string)
	if subject == "" {
		return "", fmt.Errorf("saml: journey completed without a subject")
	}
	sessionID, _ := result.OutputClaims["sid"].(string)

	responseXML, err := s.buildSignedResponse(ctx, tenantID, pending, subject, sessionID, result.OutputClaims)
	if err != nil {
		return "", err
	}

	return BuildPostForm(pending.AssertionConsumerServiceURL, "SAMLResponse", responseXML, pending.RelayState)
}

// buildSignedResponse assembles the Response/Assertion per spec §4.6 and
// signs the Assertion with the tenant's active signing key.
func (s *Service) buildSignedResponse(ctx context.Context, tenantID string, pending *pendingSSORequest, subject, sessionID string, claims map[string]any) ([]byte, error) {
	now := s.now()
	assertionID := newSAMLID()
	responseID := newSAMLID()

	resp := &Response{
		ID:           responseID,
		Version:      "2.0",
		IssueInstant: now,
		Destination:  pending.AssertionConsumerServiceURL,
		InResponseTo: pending.RequestID,
		Issuer:       &Issuer{Value: s.IssuerEntityID},
		Status:       Status{StatusCode: StatusCode{Value: StatusSuccess}},
		Assertion: &Assertion{
			ID:           assertionID,
			Version:      "2.0",
			IssueInstant: now,
			Issuer:       &Issuer{Value: s.IssuerEntityID},
			Subject: &Subject{
				NameID: &NameID{Format: pending.NameIDFormat, Value: subject},
				SubjectConfirmation: &SubjectConfirmation{
					Method: "urn:oasis:names:tc:SAML:2.0:cm:bearer",
					SubjectConfirmationData: &SubjectConfirmationData{
						NotOnOrAfter: now.Add(s.assertionLifetime()),
						Recipient:    pending.AssertionConsumerServiceURL,
						InResponseTo: pending.RequestID,
					},
				},
			},
			Conditions: &Conditions{
				NotBefore:    now,
				NotOnOrAfter: now.Add(s.assertionLifetime()),
				AudienceRestrictions: []AudienceRestriction{
					{Audiences: []Audience{{Value: pending.SPEntityID}}},
				},
			},
			AuthnStatement: &AuthnStatement{
				AuthnInstant: now,
				SessionIndex: sessionID,
				AuthnContext: &AuthnContext{
					AuthnContextClassRef: &AuthnContextClassRef{Value: AuthnContextPassword},
				},
			},
			AttributeStatement: buildAttributeStatement(claims),
		},
	}

	marshaled, err := xml.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("saml: marshaling Response: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(marshaled); err != nil {
		return nil, fmt.Errorf("saml: re-parsing Response for signing: %w", err)
	}

	keyStore, _, err := resolveSigningKeyStore(ctx, s.Credentials, tenantID)
	if err != nil {
		return nil, err
	}
	signingCtx := newSigningContext(keyStore)

	assertionEl := doc.Root().FindElement("./Assertion")
	if assertionEl == nil {
		return nil, fmt.Errorf("saml: Response is missing its Assertion element")
	}
	signedAssertion, err := signingCtx.SignEnveloped(assertionEl)
	if err != nil {
		return nil, fmt.Errorf("saml: signing Assertion: %w", err)
	}
	doc.Root().RemoveChild(assertionEl)
	doc.Root().AddChild(signedAssertion)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("saml: serializing signed Response: %w", err)
	}
	return out, nil
}

// buildAttributeStatement maps output claims onto AttributeStatement
// entries, skipping the subject/session-index claims already carried
// elsewhere in the Assertion.
func buildAttributeStatement(claims map[string]any) *AttributeStatement {
	stmt := &AttributeStatement{}
	for name, value := range claims {
		if name == "sub" || name == "sid" {
			continue
		}
		str := fmt.Sprintf("%v", value)
		stmt.Attributes = append(stmt.Attributes, Attribute{
			Name: name,
			AttributeValues: []AttributeValue{
				{Type: "xs:string", Value: str},
			},
		})
	}
	if len(stmt.Attributes) == 0 {
		return nil
	}
	return stmt
}

// newSAMLID generates a SAMLCore 2.0 §1.3.4 xsd:ID-valid identifier: must
// not start with a digit, hence the leading underscore. Grounded on
// insaplace-saml's own reliance on dchest/uniuri for this exact purpose.
func newSAMLID() string {
	return "_" + uniuri.NewLen(32)
}
