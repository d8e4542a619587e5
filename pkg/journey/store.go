package journey

import (
	"context"
	"errors"
)

// PolicyStore resolves JourneyPolicy rows. FindMatching implements the
// "highest-priority enabled match wins" rule of spec §3/§4.1: candidates
// are pre-filtered by (tenant_id, type) and then each candidate's
// MatchConditions are evaluated by the caller (Orchestrator), since the CEL
// context construction is orchestrator-owned, not store-owned.
type PolicyStore interface {
	GetPolicy(ctx context.Context, tenantID, policyID string) (*JourneyPolicy, error)
	// ListCandidates returns every enabled policy for (tenantID, type),
	// ordered by descending priority, for the Orchestrator to filter by
	// match-conditions.
	ListCandidates(ctx context.Context, tenantID string, policyType PolicyType) ([]*JourneyPolicy, error)
}

// JourneyStateStore persists JourneyState rows. SaveState is the
// authoritative serialization point for multi-instance deployments (spec
// §5): it must fail with ErrVersionConflict when expectedVersion doesn't
// match the row's current version, so a caller that lost a race retries
// rather than clobbering a concurrent handler's write.
type JourneyStateStore interface {
	GetState(ctx context.Context, journeyID string) (*JourneyState, error)
	// CreateState persists a brand-new journey; fails if the id already
	// exists.
	CreateState(ctx context.Context, state *JourneyState) error
	// SaveState persists state only if the stored row's Version equals
	// expectedVersion, then increments it. Returns ErrVersionConflict
	// otherwise.
	SaveState(ctx context.Context, state *JourneyState, expectedVersion int) error
}

// ErrVersionConflict is returned by JourneyStateStore.SaveState when the
// expected version doesn't match, signaling a concurrent writer won the
// race for this journey id.
var ErrVersionConflict = errors.New("journey: version conflict on journey state save")
