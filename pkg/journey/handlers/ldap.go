package handlers

import (
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
)

// Ldap implements spec §4.2's Ldap step: authenticates via directory bind,
// maps returned groups to roles, and auto-provisions a local user when
// step.Config["auto_provision"] is true and none exists yet.
type Ldap struct {
	Binder      LDAPBinder
	Provisioner UserProvisioner
	Events      EventPublisher
}

const ldapView = "_Ldap"

func (h *Ldap) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	username, hasUser := userInputString(ec, "username")
	password, hasPass := userInputString(ec, "password")
	if !hasUser || !hasPass || username == "" {
		return journey.RequireInput(ldapView, map[string]any{}), nil
	}

	result, err := h.Binder.Bind(ec.Context, ec.TenantID, username, password)
	if err != nil {
		return journey.Fail("ldap_bind_failed", err.Error()), nil
	}

	userID := result.UserID
	if stepConfigBool(ec.Step.Config, "auto_provision", false) {
		provisioned, err := h.Provisioner.EnsureUser(ec.Context, ec.TenantID, result.UserID, map[string]any{
			"groups": result.Groups,
		})
		if err != nil {
			return journey.Outcome{}, fmt.Errorf("ldap: auto-provision: %w", err)
		}
		userID = provisioned
	}

	roleMap := stepConfigStringMap(ec.Step.Config, "role_mapping")
	roles := mapGroupsToRoles(result.Groups, roleMap)

	h.Events.Publish(ec.Context, "LdapAuthenticated", map[string]any{
		"user_id": userID, "tenant_id": ec.TenantID, "groups": result.Groups,
	})

	return journey.Success(map[string]any{
		"user_id": userID,
		"groups":  result.Groups,
		"roles":   roles,
		"amr":     appendAMR(ec.JourneyData, "ldap"),
	}), nil
}

func stepConfigStringMap(cfg map[string]any, key string) map[string]string {
	v, ok := cfg[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func mapGroupsToRoles(groups []string, roleMap map[string]string) []string {
	if roleMap == nil {
		return nil
	}
	var roles []string
	for _, g := range groups {
		if role, ok := roleMap[g]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}

var _ journey.StepHandler = (*Ldap)(nil)
