package memory

import (
	"context"
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// GetState implements journey.JourneyStateStore.
func (s *Store) GetState(_ context.Context, journeyID string) (*journey.JourneyState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.journeys[journeyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return st.Clone(), nil
}

// CreateState implements journey.JourneyStateStore.
func (s *Store) CreateState(_ context.Context, state *journey.JourneyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.journeys[state.ID]; exists {
		return fmt.Errorf("journey: state %s already exists", state.ID)
	}
	s.journeys[state.ID] = state.Clone()
	return nil
}

// SaveState implements journey.JourneyStateStore's compare-and-swap
// contract: the in-memory row's Version must equal expectedVersion, the
// same check rediskv's grant store makes against its own payloads via a
// Lua script, done here under the package mutex instead since there is no
// separate round trip to race against.
func (s *Store) SaveState(_ context.Context, state *journey.JourneyState, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.journeys[state.ID]
	if ok && existing.Version != expectedVersion {
		return journey.ErrVersionConflict
	}
	state.Version = expectedVersion + 1
	s.journeys[state.ID] = state.Clone()
	return nil
}
