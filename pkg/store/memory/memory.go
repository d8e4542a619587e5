// Package memory provides in-memory implementations of every pkg/store
// contract, suitable for tests and single-instance deployments. The
// locking/compare-and-swap shape is grounded on toolhive's
// pkg/authserver/storage in-memory store (storage_memory_test.go exercises
// the same contract-level semantics against it), generalized to the
// PersistedGrant/ProtocolState/Client/Consent/Session/SigningKeyRecord
// model instead of fosite's Requester/Session types directly.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// Store is an in-memory implementation of every pkg/store contract.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	clients   map[clientKey]*store.Client
	samlSPs   map[samlSPKey]*store.SAMLServiceProvider
	samlIdPs  map[samlSPKey]*store.SAMLUpstreamIdentityProvider
	resources map[resourceKey]*store.Resource
	grants    map[string]*store.PersistedGrant
	consents  map[consentKey]*store.Consent
	sessions  map[string]*store.Session
	protocol  map[string]*store.ProtocolState
	keys      map[string]*store.SigningKeyRecord
	plugins   map[pluginKey][]byte
	scimUsers  map[scimKey]*store.ScimUser
	scimGroups map[scimKey]*store.ScimGroup
	webauthnCreds map[scimKey]*store.WebAuthnCredential
	roles      map[scimKey]*store.Role
	journeys   map[string]*journey.JourneyState

	now func() time.Time
}

type clientKey struct{ tenantID, clientID string }
type samlSPKey struct{ tenantID, entityID string }
type resourceKey struct{ tenantID, name string }
type consentKey struct{ tenantID, subjectID, clientID string }
type pluginKey struct{ tenantID, name string }
type scimKey struct{ tenantID, id string }

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		clients:   make(map[clientKey]*store.Client),
		samlSPs:   make(map[samlSPKey]*store.SAMLServiceProvider),
		samlIdPs:  make(map[samlSPKey]*store.SAMLUpstreamIdentityProvider),
		resources: make(map[resourceKey]*store.Resource),
		grants:    make(map[string]*store.PersistedGrant),
		consents:  make(map[consentKey]*store.Consent),
		sessions:  make(map[string]*store.Session),
		protocol:  make(map[string]*store.ProtocolState),
		keys:      make(map[string]*store.SigningKeyRecord),
		plugins:   make(map[pluginKey][]byte),
		scimUsers:  make(map[scimKey]*store.ScimUser),
		scimGroups: make(map[scimKey]*store.ScimGroup),
		webauthnCreds: make(map[scimKey]*store.WebAuthnCredential),
		roles:     make(map[scimKey]*store.Role),
		journeys:  make(map[string]*journey.JourneyState),
		now:       time.Now,
	}
}

// --- ClientStore ---

func (s *Store) GetClient(_ context.Context, tenantID, clientID string) (*store.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientKey{tenantID, clientID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListClients(_ context.Context, tenantID string) ([]*store.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Client
	for k, c := range s.clients {
		if k.tenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListAllClientsAnyTenant(_ context.Context) ([]*store.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Client, 0, len(s.clients))
	for _, c := range s.clients {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) PutClient(_ context.Context, c *store.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[clientKey{c.TenantID, c.ClientID}] = &cp
	return nil
}

func (s *Store) DeleteClient(_ context.Context, tenantID, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientKey{tenantID, clientID})
	return nil
}

// --- SAMLServiceProviderStore ---

func (s *Store) GetSAMLServiceProvider(_ context.Context, tenantID, entityID string) (*store.SAMLServiceProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.samlSPs[samlSPKey{tenantID, entityID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (s *Store) ListSAMLServiceProviders(_ context.Context, tenantID string) ([]*store.SAMLServiceProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.SAMLServiceProvider
	for k, sp := range s.samlSPs {
		if k.tenantID == tenantID {
			cp := *sp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) PutSAMLServiceProvider(_ context.Context, sp *store.SAMLServiceProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sp
	s.samlSPs[samlSPKey{sp.TenantID, sp.EntityID}] = &cp
	return nil
}

func (s *Store) DeleteSAMLServiceProvider(_ context.Context, tenantID, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.samlSPs, samlSPKey{tenantID, entityID})
	return nil
}

// --- SAMLUpstreamIdentityProviderStore ---

func (s *Store) GetSAMLUpstreamIdentityProvider(_ context.Context, tenantID, entityID string) (*store.SAMLUpstreamIdentityProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idp, ok := s.samlIdPs[samlSPKey{tenantID, entityID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *idp
	return &cp, nil
}

func (s *Store) PutSAMLUpstreamIdentityProvider(_ context.Context, idp *store.SAMLUpstreamIdentityProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *idp
	s.samlIdPs[samlSPKey{idp.TenantID, idp.EntityID}] = &cp
	return nil
}

// --- ResourceStore ---

func (s *Store) GetResource(_ context.Context, tenantID, name string) (*store.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[resourceKey{tenantID, name}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListResources(_ context.Context, tenantID string, kind store.ResourceKind) ([]*store.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Resource
	for k, r := range s.resources {
		if k.tenantID == tenantID && r.Kind == kind {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// PutResource is a test/seeding helper; the contract doesn't require
// mutation beyond what administrative REST APIs (out of scope) would do.
func (s *Store) PutResource(r *store.Resource, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.resources[resourceKey{tenantID, r.Name}] = &cp
}

// --- GrantStore ---

func (s *Store) CreateGrant(_ context.Context, g *store.PersistedGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.grants[g.GrantKey] = &cp
	return nil
}

func (s *Store) GetGrant(_ context.Context, grantKey string) (*store.PersistedGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantKey]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) CompareAndConsumeGrant(_ context.Context, grantKey string) (*store.PersistedGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[grantKey]
	if !ok {
		return nil, store.ErrNotFound
	}

	before := *g
	if g.ConsumedAt != nil {
		return &before, store.ErrAlreadyConsumed
	}

	consumedAt := s.now()
	g.ConsumedAt = &consumedAt
	return &before, nil
}

func (s *Store) RevokeGrant(_ context.Context, grantKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey]
	if !ok {
		return store.ErrNotFound
	}
	if g.ConsumedAt == nil {
		consumedAt := s.now()
		g.ConsumedAt = &consumedAt
	}
	return nil
}

func (s *Store) UpdateGrantPayload(_ context.Context, grantKey string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[grantKey]
	if !ok {
		return store.ErrNotFound
	}
	g.SerializedPayload = payload
	return nil
}

func (s *Store) RevokeGrantsBySession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, g := range s.grants {
		if g.SessionID == sessionID && g.ConsumedAt == nil {
			g.ConsumedAt = &now
		}
	}
	return nil
}

// --- ConsentStore ---

func (s *Store) GetConsent(_ context.Context, tenantID, subjectID, clientID string) (*store.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[consentKey{tenantID, subjectID, clientID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) PutConsent(_ context.Context, c *store.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.consents[consentKey{c.TenantID, c.SubjectID, c.ClientID}] = &cp
	return nil
}

func (s *Store) DeleteConsent(_ context.Context, tenantID, subjectID, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.consents, consentKey{tenantID, subjectID, clientID})
	return nil
}

// --- SessionStore ---

func (s *Store) GetSession(_ context.Context, sessionID string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) PutSession(_ context.Context, sess *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.SessionID] = &cp
	return nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// --- ProtocolStateStore ---

func (s *Store) CreateProtocolState(_ context.Context, ps *store.ProtocolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ps
	s.protocol[ps.CorrelationID] = &cp
	return nil
}

func (s *Store) GetProtocolState(_ context.Context, correlationID string) (*store.ProtocolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.protocol[correlationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *ps
	return &cp, nil
}

func (s *Store) ConsumeProtocolState(_ context.Context, correlationID string) (*store.ProtocolState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.protocol[correlationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.protocol, correlationID)
	cp := *ps
	return &cp, nil
}

// --- SigningKeyStore ---

func (s *Store) PutSigningKey(_ context.Context, k *store.SigningKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *k
	s.keys[k.KeyID] = &cp
	return nil
}

func (s *Store) GetSigningKey(_ context.Context, keyID string) (*store.SigningKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[keyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (s *Store) ListSigningKeys(_ context.Context, tenantID string) ([]*store.SigningKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.SigningKeyRecord
	for _, k := range s.keys {
		if k.TenantID == tenantID {
			cp := *k
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) DeleteSigningKey(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, keyID)
	return nil
}

// --- PluginStore ---

func (s *Store) GetPluginConfig(_ context.Context, tenantID, pluginName string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.plugins[pluginKey{tenantID, pluginName}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cfg, nil
}

func (s *Store) PutPluginConfig(tenantID, pluginName string, cfg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plugins[pluginKey{tenantID, pluginName}] = cfg
}

// Compile-time interface compliance checks.
var (
	_ store.ClientStore         = (*Store)(nil)
	_ store.ResourceStore       = (*Store)(nil)
	_ store.GrantStore          = (*Store)(nil)
	_ store.ConsentStore        = (*Store)(nil)
	_ store.SessionStore        = (*Store)(nil)
	_ store.ProtocolStateStore  = (*Store)(nil)
	_ store.SigningKeyStore     = (*Store)(nil)
	_ store.PluginStore         = (*Store)(nil)
)
