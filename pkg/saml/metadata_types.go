package saml

import (
	"encoding/xml"
	"time"
)

// The metadata types below are named directly after insaplace-saml's
// EntityDescriptor/KeyDescriptor/Endpoint family
// (service_multiple_provider.go), trimmed to the IDPSSODescriptor shape this
// IdP actually publishes.

// X509Certificate wraps a base64-encoded DER certificate.
type X509Certificate struct {
	XMLName xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# X509Certificate"`
	Data    string   `xml:",chardata"`
}

// X509Data wraps one or more certificates in a KeyInfo.
type X509Data struct {
	XMLName          xml.Name          `xml:"http://www.w3.org/2000/09/xmldsig# X509Data"`
	X509Certificates []X509Certificate `xml:"X509Certificate"`
}

// KeyInfo is the ds:KeyInfo element identifying the signing/encryption key.
type KeyInfo struct {
	XMLName  xml.Name `xml:"http://www.w3.org/2000/09/xmldsig# KeyInfo"`
	X509Data X509Data `xml:"X509Data"`
}

// KeyDescriptor publishes one signing or encryption key.
type KeyDescriptor struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:metadata KeyDescriptor"`
	Use     string   `xml:"use,attr,omitempty"`
	KeyInfo KeyInfo  `xml:"KeyInfo"`
}

// Endpoint is a plain (non-indexed) SSO/SLO endpoint.
type Endpoint struct {
	Binding          string `xml:"Binding,attr"`
	Location         string `xml:"Location,attr"`
	ResponseLocation string `xml:"ResponseLocation,attr,omitempty"`
}

// IndexedEndpoint is an ACS-style endpoint with an index and default flag.
type IndexedEndpoint struct {
	Binding   string `xml:"Binding,attr"`
	Location  string `xml:"Location,attr"`
	Index     int    `xml:"index,attr"`
	IsDefault *bool  `xml:"isDefault,attr,omitempty"`
}

// IDPSSODescriptor describes this IdP's SSO/SLO capabilities.
type IDPSSODescriptor struct {
	XMLName                    xml.Name        `xml:"urn:oasis:names:tc:SAML:2.0:metadata IDPSSODescriptor"`
	ProtocolSupportEnumeration string          `xml:"protocolSupportEnumeration,attr"`
	WantAuthnRequestsSigned    *bool           `xml:"WantAuthnRequestsSigned,attr,omitempty"`
	KeyDescriptors             []KeyDescriptor `xml:"KeyDescriptor"`
	SingleLogoutServices       []Endpoint      `xml:"SingleLogoutService"`
	NameIDFormats              []string        `xml:"NameIDFormat"`
	SingleSignOnServices       []Endpoint      `xml:"SingleSignOnService"`
}

// EntityDescriptor is the top-level metadata document this IdP publishes.
type EntityDescriptor struct {
	XMLName          xml.Name           `xml:"urn:oasis:names:tc:SAML:2.0:metadata EntityDescriptor"`
	EntityID         string             `xml:"entityID,attr"`
	ValidUntil       time.Time          `xml:"validUntil,attr,omitempty"`
	IDPSSODescriptors []IDPSSODescriptor `xml:"IDPSSODescriptor"`
}
