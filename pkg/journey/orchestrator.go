package journey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
	"github.com/SyndewTech/Oluso-sub010/pkg/logger"
)

// Orchestrator advances journeys from their starting step to a terminal
// state, dispatching to registered StepHandlers (spec §4.1). Per-journey
// serialization is enforced two ways: an in-memory striped mutex keyed by
// journey id guards a single process against concurrent Continue calls for
// the same journey, and JourneyStateStore.SaveState's compare-and-swap is
// the authoritative serialization point across instances — a process that
// loses the race gets ErrVersionConflict and must reload and retry rather
// than overwrite a concurrent handler's result.
type Orchestrator struct {
	policies  PolicyStore
	states    JourneyStateStore
	registry  *Registry
	evaluator *condition.Engine
	caps      Capabilities

	stripes [256]sync.Mutex
	now     func() time.Time
}

// New constructs an Orchestrator. caps is threaded into every ExecContext
// unmodified; callers configure it once at server startup with the
// concrete stores/messaging/event-bus implementations step handlers need.
func New(policies PolicyStore, states JourneyStateStore, registry *Registry, evaluator *condition.Engine, caps Capabilities) *Orchestrator {
	return &Orchestrator{
		policies:  policies,
		states:    states,
		registry:  registry,
		evaluator: evaluator,
		caps:      caps,
		now:       time.Now,
	}
}

func (o *Orchestrator) stripe(journeyID string) *sync.Mutex {
	h := fnv32(journeyID)
	return &o.stripes[h%uint32(len(o.stripes))]
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Start selects the highest-priority enabled policy matching jc and begins
// a fresh journey (spec §4.1 start(JourneyContext)).
func (o *Orchestrator) Start(ctx context.Context, jc JourneyContext) (*JourneyResult, error) {
	candidates, err := o.policies.ListCandidates(ctx, jc.TenantID, jc.Type)
	if err != nil {
		return nil, fmt.Errorf("journey: list candidate policies: %w", err)
	}

	matchCtx := map[string]any{
		"tenant_id":             jc.TenantID,
		"client_id":             jc.ClientID,
		"type":                  string(jc.Type),
		"scopes":                jc.Scopes,
		"acr_values":            jc.ACRValues,
		"additional_parameters": jc.AdditionalParameters,
	}

	var chosen *JourneyPolicy
	for _, p := range candidates {
		if !p.Enabled {
			continue
		}
		ok, err := o.evaluator.EvaluateAll(p.MatchConditions, matchCtx)
		if err != nil {
			logger.Warnf("journey: policy %s match condition evaluation error: %v", p.ID, err)
			continue
		}
		if ok {
			chosen = p
			break
		}
	}
	if chosen == nil {
		return nil, ErrNoPolicy
	}

	return o.startWithPolicy(ctx, chosen, StartContext{
		TenantID:      jc.TenantID,
		ClientID:      jc.ClientID,
		CorrelationID: jc.CorrelationID,
	})
}

// StartWithPolicy begins a journey against an already-resolved policy,
// skipping match-condition evaluation (spec §4.1 start(Policy,
// StartContext)).
func (o *Orchestrator) StartWithPolicy(ctx context.Context, policy *JourneyPolicy, sc StartContext) (*JourneyResult, error) {
	return o.startWithPolicy(ctx, policy, sc)
}

func (o *Orchestrator) startWithPolicy(ctx context.Context, policy *JourneyPolicy, sc StartContext) (*JourneyResult, error) {
	first, ok := policy.FirstStep()
	if !ok {
		return nil, ErrInvalidPolicy
	}

	now := o.now()
	state := &JourneyState{
		ID:             uuid.NewString(),
		PolicyID:       policy.ID,
		TenantID:       sc.TenantID,
		ClientID:       sc.ClientID,
		CorrelationID:  sc.CorrelationID,
		CurrentStepID:  first.ID,
		Status:         StatusInProgress,
		JourneyData:    map[string]any{},
		UserInput:      map[string]any{},
		CompletedSteps: map[string]bool{},
		RetryCounts:    map[string]int{},
		StartedAt:      now,
		ExpiresAt:      now.Add(policy.MaxJourneyDuration),
		LastActivityAt: now,
	}

	if err := o.states.CreateState(ctx, state); err != nil {
		return nil, fmt.Errorf("journey: create state: %w", err)
	}

	return o.run(ctx, policy, state, nil)
}

// Continue resumes an in-progress journey with the latest user input (spec
// §4.1 continue(journey_id, JourneyStepInput)).
func (o *Orchestrator) Continue(ctx context.Context, journeyID string, input JourneyStepInput) (*JourneyResult, error) {
	mu := o.stripe(journeyID)
	mu.Lock()
	defer mu.Unlock()

	state, err := o.states.GetState(ctx, journeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJourneyNotFound, err)
	}

	if state.Status.IsTerminal() {
		return nil, ErrTerminalState
	}

	now := o.now()
	if state.IsExpired(now) {
		expiredVersion := state.Version
		state.Status = StatusExpired
		state.LastActivityAt = now
		if err := o.states.SaveState(ctx, state, expiredVersion); err != nil {
			logger.Warnf("journey: failed to persist Expired status for %s: %v", journeyID, err)
		}
		return nil, ErrJourneyExpired
	}

	if input.StepID != state.CurrentStepID {
		return nil, fmt.Errorf("%w: expected %q, got %q", ErrStepMismatch, state.CurrentStepID, input.StepID)
	}

	policy, err := o.policies.GetPolicy(ctx, state.TenantID, state.PolicyID)
	if err != nil {
		return nil, fmt.Errorf("journey: load policy %s: %w", state.PolicyID, err)
	}

	state.UserInput = input.Input
	state.LastActivityAt = now

	return o.run(ctx, policy, state, input.Input)
}

// Cancel marks a journey Cancelled; idempotent on already-terminal states.
func (o *Orchestrator) Cancel(ctx context.Context, journeyID, reason string) error {
	mu := o.stripe(journeyID)
	mu.Lock()
	defer mu.Unlock()

	state, err := o.states.GetState(ctx, journeyID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJourneyNotFound, err)
	}
	if state.Status.IsTerminal() {
		return nil
	}

	version := state.Version
	state.Status = StatusCancelled
	state.ErrorCode = "cancelled"
	state.ErrorDesc = reason
	state.LastActivityAt = o.now()
	return o.states.SaveState(ctx, state, version)
}

// run drives the execution loop (spec §4.1) starting from state's current
// step, persisting after every handler invocation, until the journey
// reaches AwaitingInput or a terminal status.
func (o *Orchestrator) run(ctx context.Context, policy *JourneyPolicy, state *JourneyState, userInput map[string]any) (*JourneyResult, error) {
	for {
		step, ok := policy.StepByID(state.CurrentStepID)
		if !ok {
			return o.persistFailure(ctx, state, "step_config_error", fmt.Sprintf("unknown step id %q", state.CurrentStepID))
		}

		if step.SkipIfCompleted && state.CompletedSteps[step.ID] {
			if advanced, result, err := o.advanceOrComplete(ctx, policy, state, nil); advanced {
				continue
			} else {
				return result, err
			}
		}

		if len(step.Conditions) > 0 {
			matched, err := o.evaluator.EvaluateAll(step.Conditions, state.JourneyData)
			if err != nil {
				return o.persistFailure(ctx, state, "step_config_error", err.Error())
			}
			if !matched {
				if advanced, result, err := o.advanceOrComplete(ctx, policy, state, nil); advanced {
					continue
				} else {
					return result, err
				}
			}
		}

		handler, err := o.registry.Resolve(step.Type)
		if err != nil {
			return o.persistFailure(ctx, state, "step_config_error", err.Error())
		}

		outcome, err := o.executeWithTimeout(ctx, handler, step, policy, state, userInput)
		if err != nil {
			state.RetryCounts[step.ID]++
			if state.RetryCounts[step.ID] > step.MaxRetries {
				return o.persistFailure(ctx, state, "step_failed", err.Error())
			}
			// Retry budget remains: persist the incremented count and
			// surface as AwaitingInput so the caller can retry the same
			// step (spec §7 retry policy: user-facing steps surface
			// errors and let the user retry within max_retries).
			return o.persistAwaitingRetry(ctx, state, step, err)
		}

		switch outcome.Kind {
		case OutcomeFail:
			if step.OnFailure != "" {
				state.CurrentStepID = step.OnFailure
				version := state.Version
				if err := o.states.SaveState(ctx, state, version); err != nil {
					return nil, fmt.Errorf("journey: save state after on_failure route: %w", err)
				}
				continue
			}
			return o.persistFailure(ctx, state, outcome.ErrorCode, outcome.ErrorDesc)

		case OutcomeRequireInput:
			version := state.Version
			state.Status = StatusAwaitingInput
			if err := o.states.SaveState(ctx, state, version); err != nil {
				return nil, fmt.Errorf("journey: save state on require_input: %w", err)
			}
			return &JourneyResult{State: state, ViewName: outcome.ViewName, ViewModel: outcome.ViewModel}, nil

		case OutcomeComplete:
			mergeOutputs(state.JourneyData, outcome.Outputs)
			return o.persistCompleted(ctx, policy, state)

		case OutcomeSuccess, OutcomeSkip, OutcomeBranch:
			state.CompletedSteps[step.ID] = true
			mergeOutputs(state.JourneyData, outcome.Outputs)
			delete(state.RetryCounts, step.ID)

			advanced, result, err := o.advanceOrComplete(ctx, policy, state, &outcome)
			if advanced {
				continue
			}
			return result, err

		default:
			return o.persistFailure(ctx, state, "step_config_error", fmt.Sprintf("unhandled outcome kind %q", outcome.Kind))
		}
	}
}

// advanceOrComplete applies the routing rule of spec §4.1 rule 2: explicit
// on_success, else a branch target from the outcome, else the
// lowest-ordered unvisited step, else Completed. It returns advanced=true
// when the caller should loop back into run's dispatch with the new
// CurrentStepID already persisted.
func (o *Orchestrator) advanceOrComplete(ctx context.Context, policy *JourneyPolicy, state *JourneyState, outcome *Outcome) (bool, *JourneyResult, error) {
	step, _ := policy.StepByID(state.CurrentStepID)

	var next string
	switch {
	case step.OnSuccess != "":
		next = step.OnSuccess
	case outcome != nil && outcome.Kind == OutcomeBranch:
		if target, ok := step.Branches[outcome.BranchStepID]; ok {
			next = target
		} else {
			next = outcome.BranchStepID
		}
	default:
		if target, ok := policy.NextUnvisited(state.CompletedSteps); ok {
			next = target.ID
		}
	}

	if next == "" {
		result, err := o.persistCompleted(ctx, policy, state)
		return false, result, err
	}

	state.CurrentStepID = next
	version := state.Version
	if err := o.states.SaveState(ctx, state, version); err != nil {
		return false, nil, fmt.Errorf("journey: save state after advance: %w", err)
	}
	return true, nil, nil
}

func (o *Orchestrator) executeWithTimeout(ctx context.Context, handler StepHandler, step PolicyStep, policy *JourneyPolicy, state *JourneyState, userInput map[string]any) (Outcome, error) {
	timeout := stepTimeout(step, policy.DefaultStepTimeout)
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		outcome Outcome
		err     error
	}
	ch := make(chan result, 1)

	ec := &ExecContext{
		Context:      execCtx,
		TenantID:     state.TenantID,
		ClientID:     state.ClientID,
		Step:         step,
		JourneyData:  state.JourneyData,
		UserInput:    userInput,
		Capabilities: o.caps,
	}

	go func() {
		outcome, err := handler.Execute(ec)
		ch <- result{outcome, err}
	}()

	select {
	case r := <-ch:
		return r.outcome, r.err
	case <-execCtx.Done():
		return Outcome{}, fmt.Errorf("%w: step %q", ErrStepTimeout, step.ID)
	}
}

func (o *Orchestrator) persistFailure(ctx context.Context, state *JourneyState, code, desc string) (*JourneyResult, error) {
	version := state.Version
	state.Status = StatusFailed
	state.ErrorCode = code
	state.ErrorDesc = desc
	state.LastActivityAt = o.now()
	if err := o.states.SaveState(ctx, state, version); err != nil {
		return nil, fmt.Errorf("journey: save failed state: %w", err)
	}
	return &JourneyResult{State: state}, nil
}

func (o *Orchestrator) persistAwaitingRetry(ctx context.Context, state *JourneyState, step PolicyStep, handlerErr error) (*JourneyResult, error) {
	version := state.Version
	state.Status = StatusAwaitingInput
	state.ErrorCode = "step_error"
	state.ErrorDesc = handlerErr.Error()
	if err := o.states.SaveState(ctx, state, version); err != nil {
		return nil, fmt.Errorf("journey: save state after handler error: %w", err)
	}
	return &JourneyResult{State: state, ViewName: step.ID}, nil
}

func (o *Orchestrator) persistCompleted(ctx context.Context, policy *JourneyPolicy, state *JourneyState) (*JourneyResult, error) {
	version := state.Version
	state.Status = StatusCompleted
	state.LastActivityAt = o.now()
	if err := o.states.SaveState(ctx, state, version); err != nil {
		return nil, fmt.Errorf("journey: save completed state: %w", err)
	}

	outputClaims := applyOutputClaims(policy.OutputClaims, state.JourneyData)
	return &JourneyResult{State: state, OutputClaims: outputClaims}, nil
}

func mergeOutputs(journeyData map[string]any, outputs map[string]any) {
	for k, v := range outputs {
		journeyData[k] = v
	}
}

// applyOutputClaims implements spec §4.2's output-claim mapping: each
// declared claim resolves its Source against journeyData, falling back to
// DefaultValue or omission when unresolved.
func applyOutputClaims(claims []OutputClaim, journeyData map[string]any) map[string]any {
	out := make(map[string]any, len(claims))
	for _, c := range claims {
		v, ok := journeyData[c.Source]
		if !ok || v == nil {
			if c.DefaultValue != "" {
				out[c.ClaimType] = c.DefaultValue
			} else if !c.OmitIfEmpty {
				out[c.ClaimType] = ""
			}
			continue
		}
		out[c.ClaimType] = v
	}
	return out
}
