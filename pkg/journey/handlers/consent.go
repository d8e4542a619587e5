package handlers

import (
	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// Consent implements spec §4.2's Consent step: resolves requested scopes
// to resources, checks persisted consent, and on explicit allow/deny from
// the user emits the corresponding domain event.
type Consent struct {
	Consents  ConsentRecorder
	Resources ResourceResolver
	Events    EventPublisher
}

const consentView = "_Consent"

func (h *Consent) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	scopes := stepConfigStringSlice(ec.Step.Config, "scopes")
	requireConsent := stepConfigBool(ec.Step.Config, "require_consent", true)
	allowRememberConsent := stepConfigBool(ec.Step.Config, "allow_remember_consent", true)

	userID, _ := ec.JourneyData["user_id"].(string)
	clientID := ec.ClientID

	if !requireConsent {
		return journey.Success(map[string]any{"consented_scopes": scopes}), nil
	}

	if remembered, found, err := h.Consents.GetConsent(ec.Context, ec.TenantID, userID, clientID); err == nil && found {
		if scopeSubset(scopes, remembered) {
			return journey.Success(map[string]any{"consented_scopes": scopes}), nil
		}
	}

	decision, hasDecision := userInputString(ec, "decision")
	if !hasDecision {
		resolved, err := h.Resources.ResolveScopes(ec.Context, ec.TenantID, scopes)
		if err != nil {
			return journey.Outcome{}, err
		}
		return journey.RequireInput(consentView, map[string]any{"resources": resolved}), nil
	}

	if decision != "allow" {
		h.Events.Publish(ec.Context, "ConsentDenied", map[string]any{
			"user_id": userID, "client_id": clientID, "tenant_id": ec.TenantID, "scopes": scopes,
		})
		return journey.Fail("access_denied", "user denied consent"), nil
	}

	remember, _ := ec.UserInput["remember_consent"].(bool)
	if remember && allowRememberConsent {
		if err := h.Consents.PutConsent(ec.Context, ec.TenantID, userID, clientID, scopes); err != nil {
			return journey.Outcome{}, err
		}
	}

	h.Events.Publish(ec.Context, "ConsentGranted", map[string]any{
		"user_id": userID, "client_id": clientID, "tenant_id": ec.TenantID, "scopes": scopes,
	})

	return journey.Success(map[string]any{"consented_scopes": scopes}), nil
}

func scopeSubset(requested, granted []string) bool {
	grantedSet := make(map[string]bool, len(granted))
	for _, g := range granted {
		grantedSet[g] = true
	}
	for _, r := range requested {
		if !grantedSet[r] {
			return false
		}
	}
	return true
}

var _ journey.StepHandler = (*Consent)(nil)
