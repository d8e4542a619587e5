package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every store when a lookup key does not exist.
// Concrete implementations that wrap a third-party store with its own
// not-found sentinel (e.g. fosite.ErrNotFound) should wrap both so that
// errors.Is matches either one — grounded on toolhive's
// pkg/authserver/storage Redis/memory stores, which return an error
// satisfying both storage.ErrNotFound and fosite.ErrNotFound.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyConsumed is returned by CompareAndConsumeGrant when the grant
// was already redeemed by a previous caller (spec invariant 1 / §5).
var ErrAlreadyConsumed = errors.New("store: grant already consumed")

// ClientStore resolves registered OAuth/OIDC clients.
type ClientStore interface {
	GetClient(ctx context.Context, tenantID, clientID string) (*Client, error)
	ListClients(ctx context.Context, tenantID string) ([]*Client, error)
	// ListAllClientsAnyTenant supports the CORS-origin cache, which
	// intentionally queries across all tenants because CORS preflight runs
	// before tenant resolution (spec §9 open question, preserved as-is).
	ListAllClientsAnyTenant(ctx context.Context) ([]*Client, error)
	PutClient(ctx context.Context, c *Client) error
	DeleteClient(ctx context.Context, tenantID, clientID string) error
}

// SAMLServiceProviderStore resolves registered SAML relying parties.
type SAMLServiceProviderStore interface {
	GetSAMLServiceProvider(ctx context.Context, tenantID, entityID string) (*SAMLServiceProvider, error)
	ListSAMLServiceProviders(ctx context.Context, tenantID string) ([]*SAMLServiceProvider, error)
	PutSAMLServiceProvider(ctx context.Context, sp *SAMLServiceProvider) error
	DeleteSAMLServiceProvider(ctx context.Context, tenantID, entityID string) error
}

// SAMLUpstreamIdentityProviderStore resolves configured upstream SAML IdPs
// this server trusts in the SP role.
type SAMLUpstreamIdentityProviderStore interface {
	GetSAMLUpstreamIdentityProvider(ctx context.Context, tenantID, entityID string) (*SAMLUpstreamIdentityProvider, error)
	PutSAMLUpstreamIdentityProvider(ctx context.Context, idp *SAMLUpstreamIdentityProvider) error
}

// ScimUserStore backs the SCIM /Users surface (§6).
type ScimUserStore interface {
	GetScimUser(ctx context.Context, tenantID, id string) (*ScimUser, error)
	FindScimUserByUserName(ctx context.Context, tenantID, userName string) (*ScimUser, error)
	ListScimUsers(ctx context.Context, tenantID string, startIndex, count int) ([]*ScimUser, int, error)
	PutScimUser(ctx context.Context, u *ScimUser) error
	DeleteScimUser(ctx context.Context, tenantID, id string) error
}

// ScimGroupStore backs the SCIM /Groups surface (§6).
type ScimGroupStore interface {
	GetScimGroup(ctx context.Context, tenantID, id string) (*ScimGroup, error)
	ListScimGroups(ctx context.Context, tenantID string, startIndex, count int) ([]*ScimGroup, int, error)
	PutScimGroup(ctx context.Context, g *ScimGroup) error
	DeleteScimGroup(ctx context.Context, tenantID, id string) error
}

// WebAuthnCredentialStore resolves registered authenticators (§4.2 WebAuthn
// step).
type WebAuthnCredentialStore interface {
	GetWebAuthnCredential(ctx context.Context, tenantID, credentialID string) (*WebAuthnCredential, error)
	ListWebAuthnCredentials(ctx context.Context, tenantID, userID string) ([]*WebAuthnCredential, error)
	PutWebAuthnCredential(ctx context.Context, c *WebAuthnCredential) error
	UpdateSignCount(ctx context.Context, tenantID, credentialID string, newCount uint32) error
}

// RoleStore resolves administrator-defined roles (§8 scenario 6).
type RoleStore interface {
	GetRole(ctx context.Context, tenantID, id string) (*Role, error)
	FindRoleByName(ctx context.Context, tenantID, name string) (*Role, error)
	ListRoles(ctx context.Context, tenantID string) ([]*Role, error)
	PutRole(ctx context.Context, r *Role) error
	DeleteRole(ctx context.Context, tenantID, id string) error
}

// ResourceStore resolves IdentityResources and ApiScopes.
type ResourceStore interface {
	GetResource(ctx context.Context, tenantID, name string) (*Resource, error)
	ListResources(ctx context.Context, tenantID string, kind ResourceKind) ([]*Resource, error)
}

// GrantStore persists PersistedGrant rows and provides the atomic
// mark-consumed-if-not-consumed primitive required by spec §5 and
// Invariant 1.
type GrantStore interface {
	CreateGrant(ctx context.Context, g *PersistedGrant) error
	GetGrant(ctx context.Context, grantKey string) (*PersistedGrant, error)
	// CompareAndConsumeGrant atomically marks the grant consumed if and
	// only if it was not already consumed, returning the grant as it stood
	// immediately before this call. Exactly one concurrent caller for the
	// same grantKey observes success; every other caller gets
	// ErrAlreadyConsumed (never a torn/partial state).
	CompareAndConsumeGrant(ctx context.Context, grantKey string) (*PersistedGrant, error)
	// RevokeGrant marks a grant consumed regardless of its current state,
	// used for explicit revocation and refresh-token-family cascades.
	RevokeGrant(ctx context.Context, grantKey string) error
	// RevokeGrantsBySession revokes every grant tied to a session, used to
	// cascade refresh-token-family revocation.
	RevokeGrantsBySession(ctx context.Context, sessionID string) error
	// UpdateGrantPayload overwrites a grant's SerializedPayload in place,
	// without affecting ConsumedAt. Used by the device-code/CIBA polling
	// grants to record an out-of-band approval decision before the grant
	// is ever redeemed.
	UpdateGrantPayload(ctx context.Context, grantKey string, payload []byte) error
}

// ConsentStore persists granted-scope consent records.
type ConsentStore interface {
	GetConsent(ctx context.Context, tenantID, subjectID, clientID string) (*Consent, error)
	PutConsent(ctx context.Context, c *Consent) error
	DeleteConsent(ctx context.Context, tenantID, subjectID, clientID string) error
}

// SessionStore persists authenticated-user sessions.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	PutSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// ProtocolStateStore persists short-lived protocol correlation records
// (§3 ProtocolState). Exclusively owned and written by protocol services.
type ProtocolStateStore interface {
	CreateProtocolState(ctx context.Context, s *ProtocolState) error
	GetProtocolState(ctx context.Context, correlationID string) (*ProtocolState, error)
	// ConsumeProtocolState retrieves and deletes the state in one
	// operation, matching the "consumed exactly once" lifecycle in §3.
	ConsumeProtocolState(ctx context.Context, correlationID string) (*ProtocolState, error)
}

// SigningKeyStore is the raw persistence contract for signing key rows.
// Selection/caching of the active key per tenant+algorithm is layered on
// top by pkg/signing; this interface only knows how to store and list rows.
type SigningKeyStore interface {
	PutSigningKey(ctx context.Context, k *SigningKeyRecord) error
	GetSigningKey(ctx context.Context, keyID string) (*SigningKeyRecord, error)
	// ListSigningKeys returns every key for a tenant (including
	// platform-global keys when tenantID is empty), used both for active-key
	// selection and JWKS publication of the grace-window-retained keys.
	ListSigningKeys(ctx context.Context, tenantID string) ([]*SigningKeyRecord, error)
	DeleteSigningKey(ctx context.Context, keyID string) error
}

// PluginStore persists WASM plugin metadata. Out of scope per spec §1; kept
// as a narrow contract so the journey Webhook/Transform handlers have a
// documented extension point without this repo implementing a WASM host.
type PluginStore interface {
	GetPluginConfig(ctx context.Context, tenantID, pluginName string) ([]byte, error)
}
