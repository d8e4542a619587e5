package httpapi

import (
	"net/http"

	"github.com/SyndewTech/Oluso-sub010/pkg/saml"
)

func (rt *Router) samlMetadata(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	doc, err := rt.SAMLIdP.Metadata(r.Context(), tenantID)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	w.WriteHeader(http.StatusOK)
	_, werr := w.Write(doc)
	return werr
}

func (rt *Router) samlSSO(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed request")
	}

	binding := saml.HTTPRedirectBinding
	encoded := r.Form.Get("SAMLRequest")
	if r.Method == http.MethodPost {
		binding = saml.HTTPPostBinding
	}
	relayState := r.Form.Get("RelayState")

	authnReq, sp, err := rt.SAMLIdP.ParseAuthnRequest(r.Context(), tenantID, binding, encoded, relayState)
	if err != nil {
		return newStatusError(http.StatusBadRequest, err.Error())
	}

	result, err := rt.SAMLIdP.SSOStart(r.Context(), tenantID, authnReq, sp)
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

	form, err := rt.SAMLIdP.SSOComplete(r.Context(), tenantID, result.State.CorrelationID, result)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, werr := w.Write([]byte(form))
	return werr
}

func (rt *Router) samlSLO(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed request")
	}

	binding := saml.HTTPRedirectBinding
	encoded := r.Form.Get("SAMLRequest")
	if r.Method == http.MethodPost {
		binding = saml.HTTPPostBinding
	}

	logoutReq, sp, err := rt.SAMLIdP.ParseLogoutRequest(r.Context(), tenantID, binding, encoded)
	if err != nil {
		return newStatusError(http.StatusBadRequest, err.Error())
	}

	form, err := rt.SAMLIdP.SingleLogout(r.Context(), logoutReq, sp)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, werr := w.Write([]byte(form))
	return werr
}

func (rt *Router) samlACS(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	if err := r.ParseForm(); err != nil {
		return newStatusError(http.StatusBadRequest, "malformed request")
	}

	assertion, err := rt.SAMLSP.ConsumeResponse(r.Context(), tenantID, r.Form.Get("SAMLResponse"))
	if err != nil {
		return newStatusError(http.StatusBadRequest, err.Error())
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"name_id":    assertion.NameID,
		"attributes": assertion.Attributes,
	})
}
