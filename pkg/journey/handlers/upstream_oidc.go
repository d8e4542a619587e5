package handlers

import (
	"fmt"

	"github.com/SyndewTech/Oluso-sub010/pkg/journey"
	"github.com/SyndewTech/Oluso-sub010/pkg/upstreamidp"
)

// UpstreamOIDC implements spec §10's "Upstream IdP delegation": instead of
// checking a local password, this step redirects to a configured external
// OIDC/OAuth2 provider (step config key "provider", a name registered in
// Providers) and resumes once the provider calls back with a code.
//
// Step config:
//   - provider: name of a upstreamidp.Provider registered in Providers
type UpstreamOIDC struct {
	Providers   *upstreamidp.Registry
	Provisioner UserProvisioner
}

func (h *UpstreamOIDC) Execute(ec *journey.ExecContext) (journey.Outcome, error) {
	providerName, ok := stepConfigString(ec.Step.Config, "provider")
	if !ok || providerName == "" {
		return journey.Outcome{}, fmt.Errorf("upstream_oidc: step config missing %q", "provider")
	}
	provider, ok := h.Providers.Get(providerName)
	if !ok {
		return journey.Outcome{}, fmt.Errorf("upstream_oidc: unknown provider %q", providerName)
	}

	if code, ok := ec.UserInput["code"].(string); ok && code != "" {
		return h.complete(ec, provider, code)
	}

	state := ec.Step.ID
	return journey.RequireInput("upstream_redirect", map[string]any{
		"provider":     provider.Name,
		"redirect_url": provider.AuthorizationURL(state),
	}), nil
}

func (h *UpstreamOIDC) complete(ec *journey.ExecContext, provider *upstreamidp.Provider, code string) (journey.Outcome, error) {
	claims, err := provider.ExchangeCode(ec.Context, code)
	if err != nil {
		return journey.Fail("upstream_auth_failed", err.Error()), nil
	}

	externalID, _ := claims["sub"].(string)
	if externalID == "" {
		return journey.Fail("upstream_auth_failed", "upstream provider returned no subject"), nil
	}

	attrs := map[string]any{"upstream_provider": provider.Name}
	if email, ok := claims["email"].(string); ok {
		attrs["email"] = email
	}

	userID, err := h.Provisioner.EnsureUser(ec.Context, ec.TenantID, externalID, attrs)
	if err != nil {
		return journey.Outcome{}, fmt.Errorf("upstream_oidc: provisioning user: %w", err)
	}

	return journey.Success(map[string]any{
		"user_id":          userID,
		"upstream_subject": externalID,
		"amr":              "upstream:" + provider.Name,
	}), nil
}

var _ journey.StepHandler = (*UpstreamOIDC)(nil)
