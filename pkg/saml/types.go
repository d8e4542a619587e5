// Package saml implements the IdP and SP sides of the SAML 2.0 Web Browser
// SSO profile (§4.6): parsing AuthnRequests, building signed assertions, and
// auto-posting the result to an Assertion Consumer Service.
//
// The XML shapes below are grounded on insaplace-saml's EntityDescriptor /
// SPSSODescriptor / KeyDescriptor family (service_multiple_provider.go); the
// request/response/assertion types are the standard SAMLCore 2.0 schema,
// named to match that family's conventions.
package saml

import (
	"encoding/xml"
	"time"
)

// NameID format URIs (SAMLCore 2.0 §8.3).
const (
	NameIDFormatUnspecified = "urn:oasis:names:tc:SAML:1.1:nameid-format:unspecified"
	NameIDFormatEmail       = "urn:oasis:names:tc:SAML:1.1:nameid-format:emailAddress"
	NameIDFormatPersistent  = "urn:oasis:names:tc:SAML:2.0:nameid-format:persistent"
	NameIDFormatTransient   = "urn:oasis:names:tc:SAML:2.0:nameid-format:transient"
)

// Binding URIs (SAMLBind 2.0 §3).
const (
	HTTPRedirectBinding = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect"
	HTTPPostBinding     = "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST"
)

const (
	StatusSuccess        = "urn:oasis:names:tc:SAML:2.0:status:Success"
	StatusRequester      = "urn:oasis:names:tc:SAML:2.0:status:Requester"
	StatusResponder      = "urn:oasis:names:tc:SAML:2.0:status:Responder"
	AuthnContextPassword = "urn:oasis:names:tc:SAML:2.0:ac:classes:PasswordProtectedTransport"
)

// Issuer is the <saml:Issuer> element carried by every request/response.
type Issuer struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Issuer"`
	Value   string   `xml:",chardata"`
}

// NameIDPolicy is the requesting SP's preferred NameID shape
// (<samlp:NameIDPolicy>).
type NameIDPolicy struct {
	XMLName     xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol NameIDPolicy"`
	Format      string   `xml:"Format,attr,omitempty"`
	AllowCreate *bool    `xml:"AllowCreate,attr,omitempty"`
}

// RequestedAuthnContext lists the acr values the SP is asking for.
type RequestedAuthnContext struct {
	XMLName              xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol RequestedAuthnContext"`
	Comparison           string   `xml:"Comparison,attr,omitempty"`
	AuthnContextClassRef []string `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnContextClassRef"`
}

// AuthnRequest is the SP-to-IdP <samlp:AuthnRequest> (SAMLCore 2.0 §3.4.1).
type AuthnRequest struct {
	XMLName                       xml.Name                `xml:"urn:oasis:names:tc:SAML:2.0:protocol AuthnRequest"`
	ID                            string                   `xml:"ID,attr"`
	Version                       string                   `xml:"Version,attr"`
	IssueInstant                  time.Time                `xml:"IssueInstant,attr"`
	Destination                   string                   `xml:"Destination,attr,omitempty"`
	ProtocolBinding               string                   `xml:"ProtocolBinding,attr,omitempty"`
	AssertionConsumerServiceURL   string                   `xml:"AssertionConsumerServiceURL,attr,omitempty"`
	AssertionConsumerServiceIndex *int                     `xml:"AssertionConsumerServiceIndex,attr,omitempty"`
	ForceAuthn                    bool                     `xml:"ForceAuthn,attr,omitempty"`
	IsPassive                     bool                     `xml:"IsPassive,attr,omitempty"`
	Issuer                        *Issuer                  `xml:"Issuer"`
	NameIDPolicy                  *NameIDPolicy            `xml:"NameIDPolicy"`
	RequestedAuthnContext         *RequestedAuthnContext   `xml:"RequestedAuthnContext"`

	// RelayState is not part of the AuthnRequest XML itself (it travels
	// alongside it in the binding), but is carried here once parsed so
	// callers don't have to thread it separately.
	RelayState string `xml:"-"`
}

// NameID is the <saml:NameID> subject identifier.
type NameID struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion NameID"`
	Format  string   `xml:"Format,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

// SubjectConfirmationData carries the bearer confirmation's recipient and
// expiry (SAMLCore 2.0 §2.4.1.2).
type SubjectConfirmationData struct {
	XMLName      xml.Name  `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmationData"`
	NotOnOrAfter time.Time `xml:"NotOnOrAfter,attr"`
	Recipient    string    `xml:"Recipient,attr"`
	InResponseTo string    `xml:"InResponseTo,attr,omitempty"`
}

// SubjectConfirmation is always method:bearer for this profile.
type SubjectConfirmation struct {
	XMLName                 xml.Name                 `xml:"urn:oasis:names:tc:SAML:2.0:assertion SubjectConfirmation"`
	Method                  string                   `xml:"Method,attr"`
	SubjectConfirmationData *SubjectConfirmationData `xml:"SubjectConfirmationData"`
}

// Subject wraps the NameID and its bearer confirmation.
type Subject struct {
	XMLName              xml.Name              `xml:"urn:oasis:names:tc:SAML:2.0:assertion Subject"`
	NameID               *NameID               `xml:"NameID"`
	SubjectConfirmation  *SubjectConfirmation  `xml:"SubjectConfirmation"`
}

// Audience names a single entity in an AudienceRestriction.
type Audience struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion Audience"`
	Value   string   `xml:",chardata"`
}

// AudienceRestriction restricts Assertion use to the named SP(s).
type AudienceRestriction struct {
	XMLName   xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:assertion AudienceRestriction"`
	Audiences []Audience `xml:"Audience"`
}

// Conditions bounds the assertion's validity window and audience.
type Conditions struct {
	XMLName              xml.Name               `xml:"urn:oasis:names:tc:SAML:2.0:assertion Conditions"`
	NotBefore            time.Time              `xml:"NotBefore,attr"`
	NotOnOrAfter         time.Time              `xml:"NotOnOrAfter,attr"`
	AudienceRestrictions []AudienceRestriction  `xml:"AudienceRestriction"`
}

// AuthnContextClassRef names the authentication method used.
type AuthnContextClassRef struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnContextClassRef"`
	Value   string   `xml:",chardata"`
}

// AuthnContext wraps the class ref.
type AuthnContext struct {
	XMLName              xml.Name              `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnContext"`
	AuthnContextClassRef *AuthnContextClassRef `xml:"AuthnContextClassRef"`
}

// AuthnStatement records when and how the subject authenticated.
type AuthnStatement struct {
	XMLName      xml.Name      `xml:"urn:oasis:names:tc:SAML:2.0:assertion AuthnStatement"`
	AuthnInstant time.Time     `xml:"AuthnInstant,attr"`
	SessionIndex string        `xml:"SessionIndex,attr,omitempty"`
	AuthnContext *AuthnContext `xml:"AuthnContext"`
}

// AttributeValue is a single value of an Attribute, typed xsi:string.
type AttributeValue struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:assertion AttributeValue"`
	Type    string   `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	Value   string   `xml:",chardata"`
}

// Attribute is one name/value(s) pair of the AttributeStatement.
type Attribute struct {
	XMLName      xml.Name         `xml:"urn:oasis:names:tc:SAML:2.0:assertion Attribute"`
	Name         string           `xml:"Name,attr"`
	NameFormat   string           `xml:"NameFormat,attr,omitempty"`
	AttributeValues []AttributeValue `xml:"AttributeValue"`
}

// AttributeStatement carries the claim-mapped output attributes.
type AttributeStatement struct {
	XMLName    xml.Name    `xml:"urn:oasis:names:tc:SAML:2.0:assertion AttributeStatement"`
	Attributes []Attribute `xml:"Attribute"`
}

// Assertion is the <saml:Assertion> issued for a successful SSO (SAMLCore
// 2.0 §2.3.3). Signature is left as raw bytes: it is spliced in by the
// signing step operating on the serialized etree document, not populated by
// the XML marshaler.
type Assertion struct {
	XMLName            xml.Name             `xml:"urn:oasis:names:tc:SAML:2.0:assertion Assertion"`
	ID                 string               `xml:"ID,attr"`
	Version            string               `xml:"Version,attr"`
	IssueInstant       time.Time            `xml:"IssueInstant,attr"`
	Issuer             *Issuer              `xml:"Issuer"`
	Subject            *Subject             `xml:"Subject"`
	Conditions         *Conditions          `xml:"Conditions"`
	AuthnStatement     *AuthnStatement      `xml:"AuthnStatement"`
	AttributeStatement *AttributeStatement  `xml:"AttributeStatement,omitempty"`
}

// StatusCode is the nested status code value.
type StatusCode struct {
	XMLName xml.Name `xml:"urn:oasis:names:tc:SAML:2.0:protocol StatusCode"`
	Value   string   `xml:"Value,attr"`
}

// Status wraps the top-level StatusCode.
type Status struct {
	XMLName    xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:protocol Status"`
	StatusCode StatusCode `xml:"StatusCode"`
}

// Response is the IdP-to-SP <samlp:Response> (SAMLCore 2.0 §3.3.3).
type Response struct {
	XMLName      xml.Name   `xml:"urn:oasis:names:tc:SAML:2.0:protocol Response"`
	ID           string     `xml:"ID,attr"`
	Version      string     `xml:"Version,attr"`
	IssueInstant time.Time  `xml:"IssueInstant,attr"`
	Destination  string     `xml:"Destination,attr,omitempty"`
	InResponseTo string     `xml:"InResponseTo,attr,omitempty"`
	Issuer       *Issuer    `xml:"Issuer"`
	Status       Status     `xml:"Status"`
	Assertion    *Assertion `xml:"Assertion"`
}

// LogoutRequest is the SLO request (SAMLCore 2.0 §3.7.1), sent by either
// party to end the other's session.
type LogoutRequest struct {
	XMLName      xml.Name  `xml:"urn:oasis:names:tc:SAML:2.0:protocol LogoutRequest"`
	ID           string    `xml:"ID,attr"`
	Version      string    `xml:"Version,attr"`
	IssueInstant time.Time `xml:"IssueInstant,attr"`
	Destination  string    `xml:"Destination,attr,omitempty"`
	Issuer       *Issuer   `xml:"Issuer"`
	NameID       *NameID   `xml:"NameID"`
	SessionIndex string    `xml:"SessionIndex,omitempty"`
}

// LogoutResponse answers a LogoutRequest.
type LogoutResponse struct {
	XMLName      xml.Name  `xml:"urn:oasis:names:tc:SAML:2.0:protocol LogoutResponse"`
	ID           string    `xml:"ID,attr"`
	Version      string    `xml:"Version,attr"`
	IssueInstant time.Time `xml:"IssueInstant,attr"`
	Destination  string    `xml:"Destination,attr,omitempty"`
	InResponseTo string    `xml:"InResponseTo,attr,omitempty"`
	Issuer       *Issuer   `xml:"Issuer"`
	Status       Status    `xml:"Status"`
}
