package memory

import (
	"context"
	"sort"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// --- ScimUserStore ---

func (s *Store) GetScimUser(_ context.Context, tenantID, id string) (*store.ScimUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.scimUsers[scimKey{tenantID, id}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindScimUserByUserName(_ context.Context, tenantID, userName string) (*store.ScimUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, u := range s.scimUsers {
		if k.tenantID == tenantID && u.UserName == userName {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListScimUsers(_ context.Context, tenantID string, startIndex, count int) ([]*store.ScimUser, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*store.ScimUser
	for k, u := range s.scimUsers {
		if k.tenantID == tenantID {
			cp := *u
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, startIndex, count), len(all), nil
}

func (s *Store) PutScimUser(_ context.Context, u *store.ScimUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.scimUsers[scimKey{u.TenantID, u.ID}] = &cp
	return nil
}

func (s *Store) DeleteScimUser(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scimUsers, scimKey{tenantID, id})
	return nil
}

// --- ScimGroupStore ---

func (s *Store) GetScimGroup(_ context.Context, tenantID, id string) (*store.ScimGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.scimGroups[scimKey{tenantID, id}]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) ListScimGroups(_ context.Context, tenantID string, startIndex, count int) ([]*store.ScimGroup, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*store.ScimGroup
	for k, g := range s.scimGroups {
		if k.tenantID == tenantID {
			cp := *g
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, startIndex, count), len(all), nil
}

func (s *Store) PutScimGroup(_ context.Context, g *store.ScimGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.scimGroups[scimKey{g.TenantID, g.ID}] = &cp
	return nil
}

func (s *Store) DeleteScimGroup(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scimGroups, scimKey{tenantID, id})
	return nil
}

// paginate applies SCIM's 1-indexed startIndex/count pagination (RFC 7644
// §3.4.2.4) over an already-sorted slice.
func paginate[T any](all []T, startIndex, count int) []T {
	if startIndex < 1 {
		startIndex = 1
	}
	start := startIndex - 1
	if start >= len(all) {
		return nil
	}
	end := len(all)
	if count > 0 && start+count < end {
		end = start + count
	}
	return all[start:end]
}
