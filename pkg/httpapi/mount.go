package httpapi

import (
	"net/http"

	"github.com/SyndewTech/Oluso-sub010/pkg/admin"
	"github.com/SyndewTech/Oluso-sub010/pkg/scim"
)

// scim and adminRoles build a fresh per-tenant sub-handler on every
// request rather than once at startup: both pkg/scim.NewServer and
// pkg/admin.RolesRouter close over a single tenantID, and the platform
// serves many tenants from one process. Construction is cheap (it wraps
// already-shared stores, it does not open new connections), so rebuilding
// it per request costs far less than the request itself.

func (rt *Router) scim(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	server := scim.NewServer(tenantID, rt.ScimUsers, rt.ScimGroups)
	http.StripPrefix("/scim/v2", server).ServeHTTP(w, r)
	return nil
}

func (rt *Router) adminRoles(w http.ResponseWriter, r *http.Request) error {
	tenantID, err := requireTenant(r)
	if err != nil {
		return err
	}
	router := admin.RolesRouter(tenantID, rt.Roles)
	http.StripPrefix("/admin/roles", router).ServeHTTP(w, r)
	return nil
}
