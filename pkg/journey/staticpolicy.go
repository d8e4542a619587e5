package journey

import "context"

// StaticPolicyStore serves a fixed, in-memory set of JourneyPolicy rows —
// the production PolicyStore for a single-process deployment where
// policies are loaded once at startup (from configuration or an embedded
// default) rather than edited at runtime. Grounded on the same
// id-indexed-map-plus-linear-scan shape as this package's own test fakes
// (memstore_test.go's memPolicyStore), promoted here as the real
// implementation cmd/oluso wires rather than duplicating it behind a
// package boundary.
type StaticPolicyStore struct {
	byID map[string]*JourneyPolicy
}

// NewStaticPolicyStore indexes policies by ID for GetPolicy lookups.
func NewStaticPolicyStore(policies ...*JourneyPolicy) *StaticPolicyStore {
	s := &StaticPolicyStore{byID: make(map[string]*JourneyPolicy, len(policies))}
	for _, p := range policies {
		s.byID[p.ID] = p
	}
	return s
}

// GetPolicy implements PolicyStore.
func (s *StaticPolicyStore) GetPolicy(_ context.Context, _ string, policyID string) (*JourneyPolicy, error) {
	p, ok := s.byID[policyID]
	if !ok {
		return nil, ErrNoPolicy
	}
	return p, nil
}

// ListCandidates implements PolicyStore: every enabled policy matching
// (tenantID, type), highest Priority first.
func (s *StaticPolicyStore) ListCandidates(_ context.Context, tenantID string, policyType PolicyType) ([]*JourneyPolicy, error) {
	var out []*JourneyPolicy
	for _, p := range s.byID {
		if !p.Enabled || p.Type != policyType || p.TenantID != tenantID {
			continue
		}
		out = append(out, p)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Priority > out[i].Priority {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}
