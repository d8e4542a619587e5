// Package httpapi assembles the platform's single HTTP entrypoint: the
// protocol front-ends (pkg/oidc, pkg/saml, pkg/scim), the platform-admin
// surface (pkg/admin), tenant resolution (pkg/tenant), and CORS — mirroring
// the shape of agentoven-agentoven's internal/api.NewRouter (global
// middleware, then cors.Handler, then a chi.Route tree per concern) with
// stacklok-toolhive's return-an-error handler decorator used at each
// mounting site instead of agentoven's pointer-receiver handler struct.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"

	"github.com/SyndewTech/Oluso-sub010/pkg/oidc"
	"github.com/SyndewTech/Oluso-sub010/pkg/saml"
	"github.com/SyndewTech/Oluso-sub010/pkg/store"
	"github.com/SyndewTech/Oluso-sub010/pkg/tenant"
)

// Router wires every protocol front-end onto one chi mux. It holds no
// per-tenant state itself — every field is either a stateless service (the
// OIDC/SAML Service structs already close over their stores) or a
// process-wide registry (the tenant resolver, the client store consulted
// for CORS allow-listing).
type Router struct {
	OIDC    *oidc.Service
	SAMLIdP *saml.Service
	SAMLSP  *saml.SPService

	Clients   store.ClientStore
	Roles     store.RoleStore
	ScimUsers store.ScimUserStore
	ScimGroups store.ScimGroupStore

	TenantResolver *tenant.Resolver

	// Paths supplies the configurable endpoint path segment (spec §6 "all
	// paths are configurable"), echoed into discovery documents.
	Paths oidc.EndpointPaths

	// Issuer resolves the issuer to advertise for an inbound request,
	// implementing §4.7's issuer resolution order. The caller (cmd/oluso)
	// builds this from pkg/config and pkg/tenant.ResolveIssuer.
	Issuer func(r *http.Request, tenantID string) string

	// Tracer is the span source for tracingMiddleware. Nil uses the
	// globally registered otel.Tracer, so a deployment that never calls
	// otel.SetTracerProvider still gets a harmless no-op tracer.
	Tracer trace.Tracer
}

// NewRouter builds the assembled http.Handler.
func NewRouter(rt *Router) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(rt.tracingMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: rt.allowOrigin,
		AllowedMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Tenant-Id"},
		MaxAge:          300,
	}))

	r.Use(rt.tenantMiddleware)

	r.Get("/.well-known/openid-configuration", errorHandler(rt.discovery))
	r.Get(rt.Paths.JWKS, errorHandler(rt.jwks))
	r.Get(rt.Paths.Authorization, errorHandler(rt.authorize))
	r.Post(rt.Paths.Token, errorHandler(rt.token))
	r.Get(rt.Paths.Userinfo, errorHandler(rt.userinfo))
	r.Post(rt.Paths.Revocation, errorHandler(rt.revoke))
	r.Post(rt.Paths.Introspection, errorHandler(rt.introspect))
	r.Get(rt.Paths.EndSession, errorHandler(rt.endSession))
	r.Post(rt.Paths.EndSession, errorHandler(rt.endSession))
	r.Post(rt.Paths.DeviceAuthorization, errorHandler(rt.deviceAuthorization))
	r.Post(rt.Paths.BackchannelAuthentication, errorHandler(rt.backchannelAuthentication))
	r.Post(rt.Paths.Registration, errorHandler(rt.registerClient))
	r.Post(rt.Paths.PushedAuthorizationRequest, errorHandler(rt.pushAuthorizationRequest))

	r.Route("/saml/idp", func(r chi.Router) {
		r.Get("/metadata", errorHandler(rt.samlMetadata))
		r.Get("/sso", errorHandler(rt.samlSSO))
		r.Post("/sso", errorHandler(rt.samlSSO))
		r.Get("/slo", errorHandler(rt.samlSLO))
		r.Post("/slo", errorHandler(rt.samlSLO))
	})
	r.Post("/saml/sp/acs", errorHandler(rt.samlACS))

	r.Mount("/scim/v2", errorHandler(rt.scim))
	r.Mount("/admin/roles", errorHandler(rt.adminRoles))

	return r
}

func (rt *Router) allowOrigin(r *http.Request, origin string) bool {
	provider := oidc.NewOidcCorsPolicyProvider(rt.Clients)
	allowed, err := provider.IsAllowedOrigin(r.Context(), origin)
	if err != nil {
		return false
	}
	return allowed
}

// tenantMiddleware resolves the tenant for every inbound request per spec
// §4.7's order and stashes it in the request context. Endpoints that are
// inherently cross-tenant (discovery before a tenant is known, CORS
// preflight) simply see ok=false and proceed; tenant-scoped handlers check
// tenant.RequireTenant themselves.
func (rt *Router) tenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.TenantResolver != nil {
			if id, ok := rt.TenantResolver.Resolve(r, tenant.ResolveOptions{}); ok {
				r = r.WithContext(tenant.WithTenantID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requireTenant(r *http.Request) (string, error) {
	id, ok := tenant.RequireTenant(r.Context())
	if !ok {
		return "", newStatusError(http.StatusBadRequest, "unable to resolve tenant for this request")
	}
	return id, nil
}
