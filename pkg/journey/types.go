// Package journey implements the policy-driven, resumable journey
// orchestrator (spec §4.1): it advances a principal through a sequence of
// configurable steps (authentication, consent, MFA, provisioning, data
// collection), persisting state after every step so the journey can be
// resumed across requests.
//
// The orchestration shape — a serial state machine with a handler registry
// dispatched by a string type key, state persisted after each transition —
// is grounded on toolhive's pkg/authserver request-handling flow
// (authserver.go's HandlerResult / staged processing), generalized from a
// single-pass OAuth2 request handler into a multi-step resumable machine.
package journey

import (
	"time"

	"github.com/SyndewTech/Oluso-sub010/pkg/condition"
)

// PolicyType enumerates the kinds of journey a policy can drive.
type PolicyType string

const (
	PolicySignIn        PolicyType = "SignIn"
	PolicySignUp        PolicyType = "SignUp"
	PolicyPasswordReset PolicyType = "PasswordReset"
	PolicyProfileEdit   PolicyType = "ProfileEdit"
	PolicyWaitlist      PolicyType = "Waitlist"
	PolicyContactForm   PolicyType = "ContactForm"
	PolicySurvey        PolicyType = "Survey"
	PolicyFeedback      PolicyType = "Feedback"
	PolicyCustom        PolicyType = "Custom"
)

// Status is a JourneyState lifecycle state (spec §4.1 state machine).
type Status string

const (
	StatusInProgress    Status = "InProgress"
	StatusAwaitingInput Status = "AwaitingInput"
	StatusCompleted     Status = "Completed"
	StatusFailed        Status = "Failed"
	StatusExpired       Status = "Expired"
	StatusCancelled     Status = "Cancelled"
)

// IsTerminal reports whether no further transitions are permitted from this
// status (Completed, Failed, Expired, Cancelled).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	default:
		return false
	}
}

// OutputClaim maps a journey_data/claims source into a final output claim,
// with a fallback when the source is unresolved.
type OutputClaim struct {
	ClaimType    string
	Source       string // dotted path into journey_data or collected claims
	DefaultValue string
	OmitIfEmpty  bool
}

// SessionSettings configures the session created once a SignIn journey
// authenticates a subject.
type SessionSettings struct {
	IdleTimeout     time.Duration
	AbsoluteTimeout time.Duration
	SSOMode         string
}

// DataCollectionSettings configures optional persistence of raw
// journey_data submissions (Waitlist/ContactForm/Survey/Feedback policies).
type DataCollectionSettings struct {
	PersistSubmissions  bool
	DuplicateCheckFields []string
}

// JourneyPolicy is the declarative definition of a journey (spec §3, §4.1).
type JourneyPolicy struct {
	ID                      string
	TenantID                string
	Type                    PolicyType
	Enabled                 bool
	Priority                int
	Steps                   []PolicyStep
	MatchConditions         []condition.MatchCondition
	OutputClaims            []OutputClaim
	Session                 SessionSettings
	UIConfig                map[string]string
	DefaultStepTimeout      time.Duration
	MaxJourneyDuration      time.Duration
	RequiresAuthentication  bool
	DataCollection          DataCollectionSettings
}

// FirstStep returns the step with the lowest Order, or false if the policy
// has no steps (the invalid_policy case in §4.1's start operation).
func (p *JourneyPolicy) FirstStep() (PolicyStep, bool) {
	if len(p.Steps) == 0 {
		return PolicyStep{}, false
	}
	first := p.Steps[0]
	for _, st := range p.Steps[1:] {
		if st.Order < first.Order {
			first = st
		}
	}
	return first, true
}

// StepByID looks up a step by its id.
func (p *JourneyPolicy) StepByID(id string) (PolicyStep, bool) {
	for _, st := range p.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return PolicyStep{}, false
}

// NextUnvisited returns the lowest-ordered step whose id is not present in
// completed, used as the fallback "advance" target in §4.1 rule 2.
func (p *JourneyPolicy) NextUnvisited(completed map[string]bool) (PolicyStep, bool) {
	var best *PolicyStep
	for i := range p.Steps {
		st := &p.Steps[i]
		if completed[st.ID] {
			continue
		}
		if best == nil || st.Order < best.Order {
			best = st
		}
	}
	if best == nil {
		return PolicyStep{}, false
	}
	return *best, true
}

// PolicyStep is a single node in a journey policy (spec §3, §4.2).
type PolicyStep struct {
	ID               string
	Type             string // registry key, dispatched via handlers.Registry
	Order            int
	DisplayName      string
	Config           map[string]any
	Conditions       []condition.MatchCondition
	OnSuccess        string // explicit next step id, empty = use default routing
	OnFailure        string // explicit failure target step id, empty = terminate Failed
	Branches         map[string]string
	Timeout          time.Duration // zero = use policy default
	MaxRetries       int
	SkipIfCompleted  bool
	RequiredClaims   []string
	OutputClaims     []string
}

// JourneyState is the orchestrator's exclusively-owned resumable record
// (spec §3, §4.1).
type JourneyState struct {
	ID             string
	PolicyID       string
	TenantID       string
	ClientID       string
	CorrelationID  string
	CurrentStepID  string
	Status         Status
	UserID         string
	JourneyData    map[string]any
	UserInput      map[string]any
	CompletedSteps map[string]bool
	RetryCounts    map[string]int
	StartedAt      time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
	ErrorCode      string
	ErrorDesc      string
	// Version supports the store's compare-and-swap persistence, the
	// authoritative serialization point for multi-instance deployments
	// (spec §5; see Orchestrator doc comment).
	Version int
}

// IsExpired reports whether the journey has passed its deadline as of now.
func (j *JourneyState) IsExpired(now time.Time) bool { return now.After(j.ExpiresAt) }

// Clone returns a deep-enough copy for safe handoff across goroutines/store
// boundaries (map fields are copied, not shared).
func (j *JourneyState) Clone() *JourneyState {
	cp := *j
	cp.JourneyData = cloneAnyMap(j.JourneyData)
	cp.UserInput = cloneAnyMap(j.UserInput)
	cp.CompletedSteps = make(map[string]bool, len(j.CompletedSteps))
	for k, v := range j.CompletedSteps {
		cp.CompletedSteps[k] = v
	}
	cp.RetryCounts = make(map[string]int, len(j.RetryCounts))
	for k, v := range j.RetryCounts {
		cp.RetryCounts[k] = v
	}
	return &cp
}

func cloneAnyMap(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// JourneyContext is the input to Orchestrator.Start: the attributes a
// protocol front-end supplies to select a matching policy (spec §4.1).
type JourneyContext struct {
	TenantID              string
	ClientID              string
	Type                  PolicyType
	Scopes                []string
	ACRValues             []string
	AdditionalParameters  map[string]string
	CorrelationID         string
}

// StartContext is the input to Orchestrator.StartWithPolicy, the
// lower-level variant that skips policy matching.
type StartContext struct {
	TenantID      string
	ClientID      string
	CorrelationID string
}

// JourneyStepInput resumes a journey via Orchestrator.Continue.
type JourneyStepInput struct {
	StepID string // must match the journey's current step, else rejected
	Input  map[string]any
}

// JourneyResult is returned by Start/Continue: either the journey is still
// running (possibly awaiting input) or it has reached a terminal state.
type JourneyResult struct {
	State       *JourneyState
	ViewName    string         // set when Status == AwaitingInput
	ViewModel   map[string]any // set when Status == AwaitingInput
	OutputClaims map[string]any // set when Status == Completed
}
