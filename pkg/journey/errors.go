package journey

import "errors"

// Sentinel errors, grounded on toolhive's pkg/auth/awssts/errors.go
// convention of one var per failure mode rather than a single generic
// error, so callers can errors.Is against the exact condition.
var (
	ErrNoPolicy        = errors.New("journey: no matching policy")
	ErrInvalidPolicy   = errors.New("journey: policy has no steps")
	ErrJourneyNotFound = errors.New("journey: journey not found")
	ErrJourneyExpired  = errors.New("journey: journey expired")
	ErrStepMismatch    = errors.New("journey: input step_id does not match current step")
	ErrStepTimeout     = errors.New("journey: step handler timed out")
	ErrStepConfigError = errors.New("journey: step configuration error")
	ErrUnknownStepType = errors.New("journey: no handler registered for step type")
	ErrTerminalState   = errors.New("journey: journey is in a terminal state")
)
