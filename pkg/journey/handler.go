package journey

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// OutcomeKind is the discriminator for a StepHandler's return value (spec
// §4.1 execution loop / §4.2).
type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeFail         OutcomeKind = "fail"
	OutcomeRequireInput OutcomeKind = "require_input"
	OutcomeSkip         OutcomeKind = "skip"
	OutcomeBranch       OutcomeKind = "branch"
	OutcomeComplete     OutcomeKind = "complete"
)

// Outcome is the result of a single StepHandler.Execute call.
type Outcome struct {
	Kind OutcomeKind

	// Success
	Outputs map[string]any

	// Fail
	ErrorCode string
	ErrorDesc string

	// RequireInput
	ViewName  string
	ViewModel map[string]any

	// Branch
	BranchStepID string
}

func Success(outputs map[string]any) Outcome { return Outcome{Kind: OutcomeSuccess, Outputs: outputs} }
func Fail(code, desc string) Outcome         { return Outcome{Kind: OutcomeFail, ErrorCode: code, ErrorDesc: desc} }
func RequireInput(view string, model map[string]any) Outcome {
	return Outcome{Kind: OutcomeRequireInput, ViewName: view, ViewModel: model}
}
func Skip() Outcome                      { return Outcome{Kind: OutcomeSkip} }
func Branch(stepID string) Outcome       { return Outcome{Kind: OutcomeBranch, BranchStepID: stepID} }
func Complete(outputs map[string]any) Outcome { return Outcome{Kind: OutcomeComplete, Outputs: outputs} }

// Capabilities bundles the side-effecting collaborators a step handler may
// need (stores, messaging, events, HTTP callouts), so handlers never reach
// for package-level globals. Concrete fields are *any to keep pkg/journey
// free of import-time dependencies on pkg/store, pkg/events, etc; the
// handlers package type-asserts the concrete types it expects.
type Capabilities struct {
	Stores   any
	Events   any
	Messaging any
	HTTPClient any
}

// ExecContext is what a StepHandler.Execute call receives (spec §4.2).
type ExecContext struct {
	Context      context.Context
	TenantID     string
	ClientID     string
	Step         PolicyStep
	JourneyData  map[string]any // read/write
	UserInput    map[string]any // read-only, last-received input
	Capabilities Capabilities
}

// StepHandler is the contract every journey step type implements (spec
// §4.2). Handlers must be side-effect-ordered: any externally observable
// effect happens before Execute returns Success/Complete.
type StepHandler interface {
	Execute(ec *ExecContext) (Outcome, error)
}

// Registry resolves a PolicyStep.Type to its StepHandler. Grounded on
// toolhive's pattern of a name-keyed provider registry (pkg/auth/token.go's
// TokenIntrospector Registry), generalized from introspection providers to
// journey step handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]StepHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]StepHandler)}
}

// Register binds a step type to its handler. Re-registering a type
// overwrites the previous binding, matching toolhive's introspector
// Registry.Register behavior (last writer wins, used by tests to swap in
// fakes).
func (r *Registry) Register(stepType string, h StepHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[stepType] = h
}

// Resolve looks up the handler bound to a step type.
func (r *Registry) Resolve(stepType string) (StepHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}
	return h, nil
}

// stepTimeout resolves the effective timeout for a step: its own override,
// else the policy default, else a hard fallback (spec §4.1 "Timeouts").
func stepTimeout(step PolicyStep, policyDefault time.Duration) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	if policyDefault > 0 {
		return policyDefault
	}
	return 30 * time.Second
}
