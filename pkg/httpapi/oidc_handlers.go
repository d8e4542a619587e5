package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/SyndewTech/Oluso-sub010/pkg/oidc"
	"github.com/SyndewTech/Oluso-sub010/pkg/tenant"
)

func (rt *Router) discovery(w http.ResponseWriter, r *http.Request) error {
	issuer := rt.Issuer(r, tenantIDOrEmpty(r))
	return writeJSON(w, http.StatusOK, rt.OIDC.Discovery(issuer, rt.Paths))
}

func (rt *Router) jwks(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	set, err := rt.OIDC.JWKS(r.Context(), tenantID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, set)
}

func (rt *Router) authorize(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed query")
	}

	req := oidc.AuthorizeRequest{
		ResponseType:        r.Form.Get("response_type"),
		ClientID:            r.Form.Get("client_id"),
		RedirectURI:         r.Form.Get("redirect_uri"),
		Scope:                r.Form.Get("scope"),
		State:                r.Form.Get("state"),
		Nonce:                r.Form.Get("nonce"),
		CodeChallenge:        r.Form.Get("code_challenge"),
		CodeChallengeMethod:  r.Form.Get("code_challenge_method"),
		Policy:               r.Form.Get("policy"),
		UIMode:               r.Form.Get("ui_mode"),
	}

	result, _, err := rt.OIDC.AuthorizeStart(r.Context(), tenantID, req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}

	if result.ViewName != "" {
		return writeJSON(w, http.StatusOK, map[string]any{
			"view":       result.ViewName,
			"view_model": result.ViewModel,
			"journey_id": result.State.ID,
		})
	}

	redirectURI, err := rt.OIDC.AuthorizeComplete(r.Context(), result.State.CorrelationID, result)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	http.Redirect(w, r, redirectURI, http.StatusFound)
	return nil
}

func (rt *Router) token(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed form body")
	}

	req := oidc.TokenRequest{
		GrantType:    r.Form.Get("grant_type"),
		Code:         r.Form.Get("code"),
		RedirectURI:  r.Form.Get("redirect_uri"),
		CodeVerifier: r.Form.Get("code_verifier"),
		RefreshToken: r.Form.Get("refresh_token"),
		Scope:        r.Form.Get("scope"),
		ClientID:     r.Form.Get("client_id"),
		ClientSecret: r.Form.Get("client_secret"),
		DeviceCode:   r.Form.Get("device_code"),
		AuthReqID:    r.Form.Get("auth_req_id"),
	}
	if req.ClientID == "" {
		if id, secret, ok := r.BasicAuth(); ok {
			req.ClientID, req.ClientSecret = id, secret
		}
	}

	resp, err := rt.OIDC.Token(r.Context(), tenantID, req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	return writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) userinfo(w http.ResponseWriter, r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		return newStatusError(http.StatusUnauthorized, "missing bearer token")
	}
	claims, err := rt.OIDC.UserInfo(r.Context(), token)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, claims)
}

func (rt *Router) revoke(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed form body")
	}
	// RFC 7009 §2.2: revocation always answers 200, even for an unknown token.
	_ = rt.OIDC.Revoke(r.Context(), r.Form.Get("token"))
	w.WriteHeader(http.StatusOK)
	return nil
}

func (rt *Router) introspect(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed form body")
	}
	resp, err := rt.OIDC.Introspect(r.Context(), r.Form.Get("token"))
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) endSession(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed query")
	}
	req := oidc.EndSessionRequest{
		IDTokenHint:           r.Form.Get("id_token_hint"),
		PostLogoutRedirectURI: r.Form.Get("post_logout_redirect_uri"),
		State:                 r.Form.Get("state"),
		ClientID:              r.Form.Get("client_id"),
	}
	redirectURI, err := rt.OIDC.EndSession(r.Context(), tenantID, req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	if redirectURI == "" {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	http.Redirect(w, r, redirectURI, http.StatusFound)
	return nil
}

func (rt *Router) deviceAuthorization(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed form body")
	}
	req := oidc.DeviceAuthorizationRequest{
		ClientID: r.Form.Get("client_id"),
		Scope:    r.Form.Get("scope"),
	}
	resp, err := rt.OIDC.DeviceAuthorization(r.Context(), tenantID, rt.Issuer(r, tenantID)+"/device", req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) backchannelAuthentication(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed form body")
	}
	req := oidc.BackchannelAuthenticationRequest{
		ClientID:       r.Form.Get("client_id"),
		Scope:          r.Form.Get("scope"),
		LoginHint:      r.Form.Get("login_hint"),
		BindingMessage: r.Form.Get("binding_message"),
	}
	resp, err := rt.OIDC.BackchannelAuthentication(r.Context(), tenantID, req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) registerClient(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	var req oidc.ClientRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed JSON body")
	}
	resp, err := rt.OIDC.Register(r.Context(), tenantID, req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, resp)
}

func (rt *Router) pushAuthorizationRequest(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed form body")
	}
	req := oidc.AuthorizeRequest{
		ResponseType:        r.Form.Get("response_type"),
		ClientID:            r.Form.Get("client_id"),
		RedirectURI:         r.Form.Get("redirect_uri"),
		Scope:               r.Form.Get("scope"),
		State:               r.Form.Get("state"),
		Nonce:               r.Form.Get("nonce"),
		CodeChallenge:       r.Form.Get("code_challenge"),
		CodeChallengeMethod: r.Form.Get("code_challenge_method"),
	}
	requestURI, expiresIn, err := rt.OIDC.PushAuthorizationRequest(r.Context(), tenantID, req)
	if oerr, ok := err.(*oidc.Error); ok {
		return oidcError(oerr)
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{
		"request_uri": requestURI,
		"expires_in":  expiresIn,
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func tenantIDOrEmpty(r *http.Request) string {
	id, _ := tenant.FromContext(r.Context())
	return id
}
