package saml

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/beevik/etree"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// SPService implements the relying-party (SP) role of §4.6: validating an
// inbound Response at a per-tenant ACS endpoint, used for upstream SAML IdP
// delegation (the SAML counterpart to pkg/oidc's upstream OIDC delegation).
type SPService struct {
	UpstreamIdPs store.SAMLUpstreamIdentityProviderStore
	// EntityID is this server's own SP entity id, checked against the
	// Response's Assertion AudienceRestriction.
	EntityID string
	Now      func() time.Time
}

func (s *SPService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ValidatedAssertion is what a caller needs after ACS validation succeeds:
// the subject and the attributes carried in the AttributeStatement.
type ValidatedAssertion struct {
	NameID     string
	Attributes map[string]string
}

// ConsumeResponse decodes, signature-verifies, and validates a
// SAMLResponse posted to a per-tenant ACS endpoint (spec §4.6 "SP-side ACS
// per-tenant").
func (s *SPService) ConsumeResponse(ctx context.Context, tenantID, encodedResponse string) (*ValidatedAssertion, error) {
	raw, err := DecodePostBinding(encodedResponse)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("saml: parsing Response: %w", err)
	}
	if resp.Status.StatusCode.Value != StatusSuccess {
		return nil, fmt.Errorf("saml: IdP returned non-success status %q", resp.Status.StatusCode.Value)
	}
	if resp.Issuer == nil || resp.Issuer.Value == "" {
		return nil, fmt.Errorf("saml: Response is missing Issuer")
	}
	if resp.Assertion == nil {
		return nil, fmt.Errorf("saml: Response carries no Assertion")
	}

	idp, err := s.UpstreamIdPs.GetSAMLUpstreamIdentityProvider(ctx, tenantID, resp.Issuer.Value)
	if err != nil {
		return nil, fmt.Errorf("saml: unknown upstream IdP %q: %w", resp.Issuer.Value, err)
	}

	if err := s.verifySignature(raw, idp.Certificate); err != nil {
		return nil, err
	}

	if err := s.validateConditions(resp.Assertion.Conditions); err != nil {
		return nil, err
	}

	nameID := ""
	if resp.Assertion.Subject != nil && resp.Assertion.Subject.NameID != nil {
		nameID = resp.Assertion.Subject.NameID.Value
	}
	if nameID == "" {
		return nil, fmt.Errorf("saml: Assertion Subject is missing NameID")
	}

	attrs := map[string]string{}
	if resp.Assertion.AttributeStatement != nil {
		for _, a := range resp.Assertion.AttributeStatement.Attributes {
			if len(a.AttributeValues) > 0 {
				attrs[a.Name] = a.AttributeValues[0].Value
			}
		}
	}

	return &ValidatedAssertion{NameID: nameID, Attributes: attrs}, nil
}

func (s *SPService) verifySignature(raw []byte, certDER []byte) error {
	vc, err := validationContextForCert(certDER)
	if err != nil {
		return err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return fmt.Errorf("saml: re-parsing Response for signature verification: %w", err)
	}
	assertionEl := doc.Root().FindElement("./Assertion")
	if assertionEl == nil {
		return fmt.Errorf("saml: Response is missing its Assertion element")
	}
	if _, err := vc.Validate(assertionEl); err != nil {
		return fmt.Errorf("saml: Assertion signature verification failed: %w", err)
	}
	return nil
}

func (s *SPService) validateConditions(c *Conditions) error {
	if c == nil {
		return fmt.Errorf("saml: Assertion is missing Conditions")
	}
	now := s.now()
	if now.Before(c.NotBefore) || !now.Before(c.NotOnOrAfter) {
		return fmt.Errorf("saml: Assertion is outside its validity window")
	}

	matched := false
	for _, ar := range c.AudienceRestrictions {
		for _, aud := range ar.Audiences {
			if aud.Value == s.EntityID {
				matched = true
			}
		}
	}
	if !matched {
		return fmt.Errorf("saml: Assertion AudienceRestriction does not name this SP")
	}
	return nil
}
