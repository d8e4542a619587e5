package memory

import (
	"context"
	"strings"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// --- RoleStore ---

func (s *Store) GetRole(_ context.Context, tenantID, id string) (*store.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[scimKey{tenantID, id}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) FindRoleByName(_ context.Context, tenantID, name string) (*store.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, r := range s.roles {
		if k.tenantID == tenantID && strings.EqualFold(r.Name, name) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListRoles(_ context.Context, tenantID string) ([]*store.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Role
	for k, r := range s.roles {
		if k.tenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) PutRole(_ context.Context, r *store.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.roles[scimKey{r.TenantID, r.ID}] = &cp
	return nil
}

func (s *Store) DeleteRole(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, scimKey{tenantID, id})
	return nil
}
