package journey_test

import (
	"context"
	"sync"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// memPolicyStore is a minimal in-memory PolicyStore for tests.
type memPolicyStore struct {
	policies map[string]*journey.JourneyPolicy
}

func newMemPolicyStore(policies ...*journey.JourneyPolicy) *memPolicyStore {
	m := &memPolicyStore{policies: map[string]*journey.JourneyPolicy{}}
	for _, p := range policies {
		m.policies[p.ID] = p
	}
	return m
}

func (m *memPolicyStore) GetPolicy(_ context.Context, _ string, policyID string) (*journey.JourneyPolicy, error) {
	p, ok := m.policies[policyID]
	if !ok {
		return nil, journey.ErrNoPolicy
	}
	return p, nil
}

func (m *memPolicyStore) ListCandidates(_ context.Context, tenantID string, policyType journey.PolicyType) ([]*journey.JourneyPolicy, error) {
	var out []*journey.JourneyPolicy
	for _, p := range m.policies {
		if p.TenantID == tenantID && p.Type == policyType {
			out = append(out, p)
		}
	}
	// higher priority first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Priority > out[i].Priority {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// memStateStore is a minimal in-memory JourneyStateStore for tests.
type memStateStore struct {
	mu     sync.Mutex
	states map[string]*journey.JourneyState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: map[string]*journey.JourneyState{}}
}

func (m *memStateStore) GetState(_ context.Context, journeyID string) (*journey.JourneyState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[journeyID]
	if !ok {
		return nil, journey.ErrJourneyNotFound
	}
	return s.Clone(), nil
}

func (m *memStateStore) CreateState(_ context.Context, state *journey.JourneyState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.ID] = state.Clone()
	return nil
}

func (m *memStateStore) SaveState(_ context.Context, state *journey.JourneyState, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.states[state.ID]
	if !ok {
		return journey.ErrJourneyNotFound
	}
	if current.Version != expectedVersion {
		return journey.ErrVersionConflict
	}
	state.Version = expectedVersion + 1
	m.states[state.ID] = state.Clone()
	return nil
}
