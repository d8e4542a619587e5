package memory

import (
	"context"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// --- WebAuthnCredentialStore ---

func (s *Store) GetWebAuthnCredential(_ context.Context, tenantID, credentialID string) (*store.WebAuthnCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.webauthnCreds[scimKey{tenantID, credentialID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListWebAuthnCredentials(_ context.Context, tenantID, userID string) ([]*store.WebAuthnCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.WebAuthnCredential
	for k, c := range s.webauthnCreds {
		if k.tenantID == tenantID && c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) PutWebAuthnCredential(_ context.Context, c *store.WebAuthnCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.webauthnCreds[scimKey{c.TenantID, c.CredentialID}] = &cp
	return nil
}

func (s *Store) UpdateSignCount(_ context.Context, tenantID, credentialID string, newCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.webauthnCreds[scimKey{tenantID, credentialID}]
	if !ok {
		return store.ErrNotFound
	}
	c.SignCount = newCount
	return nil
}
