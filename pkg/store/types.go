// Package store defines the pluggable persistence contracts used by the
// authentication core (spec §3, §9 "Pluggable stores"). Each store is
// expressed as a narrow capability interface; pkg/store/memory provides an
// in-memory implementation for tests and small deployments, and
// pkg/store/rediskv provides a Redis-backed implementation for the
// short-lived, high-churn stores (grants, protocol state), grounded on
// toolhive's pkg/authserver/storage Redis implementation.
package store

import "time"

// GrantType enumerates the kinds of opaque-keyed PersistedGrant rows (§3).
type GrantType string

// Grant type constants, per spec §3.
const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
	GrantReferenceToken    GrantType = "reference_token"
	GrantDeviceCode        GrantType = "device_code"
	GrantUserCode          GrantType = "user_code"
	GrantConsent           GrantType = "consent"
	GrantCIBARequest       GrantType = "ciba_request"
)

// PersistedGrant is the generic opaque-keyed grant record described in §3
// and §6. SerializedPayload holds the protocol-specific envelope (fosite
// session/request bytes, claim sets for reference tokens, etc).
type PersistedGrant struct {
	GrantKey          string
	Type              GrantType
	SubjectID         string // empty for client-credentials grants
	ClientID          string
	SessionID         string
	TenantID          string
	Scopes            []string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	SerializedPayload []byte
	ConsumedAt        *time.Time
}

// IsConsumed reports whether the grant has already been redeemed.
func (g *PersistedGrant) IsConsumed() bool { return g.ConsumedAt != nil }

// IsExpired reports whether the grant's expiry has passed as of now.
func (g *PersistedGrant) IsExpired(now time.Time) bool { return now.After(g.ExpiresAt) }

// Consent is a subject x client x tenant grant of a scope set (§3).
type Consent struct {
	SubjectID string
	ClientID  string
	TenantID  string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = never
}

// IsExpired reports whether the consent has expired as of now. A nil
// ExpiresAt never expires.
func (c *Consent) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Session is an authenticated-user session (§3).
type Session struct {
	SessionID    string
	SubjectID    string
	TenantID     string
	AuthTime     time.Time
	AMR          []string
	ACR          string
	IdleDeadline time.Time
	AbsDeadline  time.Time
	SSOMode      string
}

// Client is a registered OAuth/OIDC relying party (§3).
type Client struct {
	ClientID               string
	Secrets                []string
	Public                 bool
	AllowedGrantTypes       []string
	RedirectURIs            []string
	PostLogoutRedirectURIs  []string
	CORSOrigins             []string
	AllowedScopes           []string
	AccessTokenLifetime     time.Duration
	IDTokenLifetime         time.Duration
	RefreshTokenLifetime    time.Duration
	RequireConsent          bool
	AllowRememberConsent    bool
	ConsentLifetime         *time.Duration
	CIBAEnabled             bool
	TenantID                string // empty = platform-global client
}

// BoundTenantID implements tenant.ClientBinding.
func (c *Client) BoundTenantID() (string, bool) {
	if c.TenantID == "" {
		return "", false
	}
	return c.TenantID, true
}

// SAMLServiceProvider is a registered SAML relying party: the SP-side
// counterpart to Client for the SAML front-end (§4.6). Unlike Client it has
// no secret/grant-type vocabulary; trust is rooted in AssertionConsumerURL
// matching and, optionally, the SP's own signing certificate for
// AuthnRequest verification.
type SAMLServiceProvider struct {
	EntityID               string
	TenantID                string // empty = platform-global SP
	AssertionConsumerURL    string
	SLOURL                  string
	NameIDFormat            string // default NameID format when the AuthnRequest does not request one
	AttributeMapping        map[string]string // AttributeStatement name -> output-claim source
	SignAssertions          bool
	SignResponses           bool
	EncryptAssertions       bool
	Certificate             []byte // SP's own signing cert DER, for AuthnRequest signature verification; optional
	WantAssertionsSigned    bool
}

// SAMLUpstreamIdentityProvider is a configured upstream SAML IdP this
// server trusts when acting in the SP role (§4.6 "SP-side ACS per-tenant").
// The counterpart to Client/SAMLServiceProvider but for the opposite
// direction: this server is the relying party, the named IdP issues the
// assertions this server's ACS endpoint consumes.
type SAMLUpstreamIdentityProvider struct {
	EntityID  string
	TenantID  string // empty = platform-global
	SSOURL    string
	Certificate []byte // IdP's signing cert DER, used to verify inbound Assertions
}

// ScimUser is a provisioned directory user exposed over the SCIM v2 surface
// (§6 "SCIM v2 ... /Users"). Attributes is the free-form SCIM resource
// attribute bag (everything beyond the handful of fields SCIM's own User
// schema and our journey/LDAP handlers care about directly); keeping it as
// a map avoids re-deriving the entire core User schema as Go struct fields.
type ScimUser struct {
	ID         string
	TenantID   string
	ExternalID string
	UserName   string
	Active     bool
	Attributes map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ScimGroup is a provisioned directory group exposed over the SCIM v2
// surface (§6 "SCIM v2 ... /Groups").
type ScimGroup struct {
	ID          string
	TenantID    string
	DisplayName string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WebAuthnCredential is a registered FIDO2/WebAuthn authenticator (§4.2
// WebAuthn step: "counter advances monotonically unless the authenticator
// reports zero"). PublicKeyCOSE is the raw COSE_Key CBOR extracted from the
// attested credential data at registration time.
type WebAuthnCredential struct {
	CredentialID  string // base64url, no padding
	TenantID      string
	UserID        string
	PublicKeyCOSE []byte
	SignCount     uint32
	CreatedAt     time.Time
}

// RoleClaim is one claim granted to every user assigned a Role.
type RoleClaim struct {
	Type  string
	Value string
}

// Role is an administrator-defined bundle of claims grantable to users
// (spec §8 scenario 6's reserved-role/reserved-claim guard acts on this
// entity before it's ever persisted).
type Role struct {
	ID        string
	TenantID  string
	Name      string
	Claims    []RoleClaim
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResourceKind distinguishes identity resources from API scopes (§3).
type ResourceKind string

const (
	ResourceIdentity ResourceKind = "identity_resource"
	ResourceAPIScope ResourceKind = "api_scope"
)

// Resource models either an IdentityResource or an ApiScope (§3).
type Resource struct {
	Kind        ResourceKind
	Name        string
	DisplayName string
	Description string
	Required    bool
	Emphasize   bool
	UserClaims  []string // claim types included when this resource's scope is granted
}

// ProtocolState is the short-lived correlation record described in §3 and
// §4.1-§4.6: a protocol endpoint stashes the original wire request here
// before handing control to the journey orchestrator, and consumes it
// exactly once when the journey finishes.
type ProtocolState struct {
	CorrelationID    string
	ProtocolName     string // "oidc" | "saml"
	EndpointType     string // "authorize" | "par" | "ciba" | "device" | "saml_sso"
	ClientID         string
	TenantID         string
	SerializedRequest []byte
	Properties       map[string]string
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// IsExpired reports whether the protocol state has expired as of now.
func (p *ProtocolState) IsExpired(now time.Time) bool { return now.After(p.ExpiresAt) }

// SigningKeyUse distinguishes signing keys from encryption keys (§3).
type SigningKeyUse string

const (
	KeyUseSigning    SigningKeyUse = "signing"
	KeyUseEncryption SigningKeyUse = "encryption"
)

// SigningKeyType is the underlying key algorithm family (§3).
type SigningKeyType string

const (
	KeyTypeRSA       SigningKeyType = "RSA"
	KeyTypeEC        SigningKeyType = "EC"
	KeyTypeSymmetric SigningKeyType = "Symmetric"
)

// SigningKeyRecord is the persisted representation of a SigningKey (§3).
// Private key material is always opaque ciphertext or a vault reference;
// pkg/signing is responsible for decrypting/dereferencing it through a
// KeyMaterialProvider.
type SigningKeyRecord struct {
	KeyID                    string
	TenantID                 string // empty = platform-global key
	Use                      SigningKeyUse
	KeyType                  SigningKeyType
	Algorithm                string
	ProviderType             string // discriminator routing to the owning KeyMaterialProvider
	PublicKeyData            []byte // DER/SPKI, base64 not required at this layer
	EncryptedPrivateKeyData  []byte // opaque ciphertext from the local provider, or nil
	KeyVaultURI              string // set instead of EncryptedPrivateKeyData for vault-backed keys
	NotBefore                time.Time
	NotAfter                 time.Time
	Active                   bool
	CertificateDER           []byte // self-signed X.509, nil for JWK-only keys
	X5tSHA1                  string
	X5tSHA256                string
}

// IsUsableAt reports whether the key is valid (by its not-before/not-after
// window) at the given instant, independent of the Active flag — used for
// JWKS publication of the grace-window-retained inactive keys (§4.4).
func (k *SigningKeyRecord) IsUsableAt(now time.Time) bool {
	return !now.Before(k.NotBefore) && now.Before(k.NotAfter)
}
