package handlers

import (
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// LocalLogin implements spec §4.2's LocalLogin step: validates a
// username/password pair and records auth_time/AMR on success. An empty
// user_input (first visit to the step) returns RequireInput so the
// protocol front-end can render a login form.
type LocalLogin struct {
	Auth UserAuthenticator
}

const localLoginView = "_LocalLogin"

func (h *LocalLogin) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	username, hasUser := userInputString(ec, "username")
	password, hasPass := userInputString(ec, "password")

	if !hasUser || !hasPass || username == "" {
		return journey.RequireInput(localLoginView, map[string]any{}), nil
	}

	result, err := h.Auth.Authenticate(ec.Context, ec.TenantID, username, password)
	if err != nil {
		return journey.Outcome{}, fmt.Errorf("local_login: authenticate: %w", err)
	}

	return journey.Success(map[string]any{
		"user_id":     result.UserID,
		"mfa_enabled": result.MFAEnabled,
		"amr":         appendAMR(ec.JourneyData, "pwd"),
	}), nil
}

// appendAMR reads the current amr list out of journey data (if any) and
// appends method, deduplicating.
func appendAMR(journeyData map[string]any, method string) []string {
	existing, _ := journeyData["amr"].([]string)
	for _, m := range existing {
		if m == method {
			return existing
		}
	}
	return append(append([]string{}, existing...), method)
}

var _ journey.StepHandler = (*LocalLogin)(nil)
