package saml

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"time"
)

// MetadataValidDuration is how long a published EntityDescriptor claims to
// be valid for, mirroring insaplace-saml's DefaultValidDuration knob
// (service_multiple_provider.go's Metadata method).
const MetadataValidDuration = 7 * 24 * time.Hour

// Metadata builds this IdP's published EntityDescriptor (spec §4.6's
// "IdP metadata" endpoint), keyed to the tenant's active signing
// certificate so each tenant can publish (and rotate) its own trust anchor.
func (s *Service) Metadata(ctx context.Context, tenantID string) ([]byte, error) {
	_, rec, err := resolveSigningKeyStore(ctx, s.Credentials, tenantID)
	if err != nil {
		return nil, err
	}

	wantSigned := true
	desc := &EntityDescriptor{
		EntityID:   s.IssuerEntityID,
		ValidUntil: s.now().Add(MetadataValidDuration),
		IDPSSODescriptors: []IDPSSODescriptor{
			{
				ProtocolSupportEnumeration: "urn:oasis:names:tc:SAML:2.0:protocol",
				WantAuthnRequestsSigned:    &wantSigned,
				KeyDescriptors: []KeyDescriptor{
					{
						Use: "signing",
						KeyInfo: KeyInfo{
							X509Data: X509Data{
								X509Certificates: []X509Certificate{
									{Data: base64.StdEncoding.EncodeToString(rec.CertificateDER)},
								},
							},
						},
					},
				},
				SingleLogoutServices: []Endpoint{
					{Binding: HTTPPostBinding, Location: s.SLOURL},
					{Binding: HTTPRedirectBinding, Location: s.SLOURL},
				},
				NameIDFormats: []string{
					NameIDFormatEmail, NameIDFormatPersistent, NameIDFormatTransient, NameIDFormatUnspecified,
				},
				SingleSignOnServices: []Endpoint{
					{Binding: HTTPPostBinding, Location: s.SSOURL},
					{Binding: HTTPRedirectBinding, Location: s.SSOURL},
				},
			},
		},
	}

	out, err := xml.MarshalIndent(desc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("saml: marshaling EntityDescriptor: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
