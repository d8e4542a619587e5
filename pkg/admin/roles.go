package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SyndewTech/Oluso-sub010/pkg/store"
)

// RolesRoutes serves the administrative role-management API (spec §8
// scenario 6).
type RolesRoutes struct {
	tenantID string
	roles    store.RoleStore
	now      func() time.Time
}

// RolesRouter mounts the role-management routes under the tenant-scoped
// mount point (the caller, pkg/httpapi, resolves tenantID from the
// request before dispatching here — same split of responsibility used
// between pkg/oidc.Service and its tenant-resolution caller).
func RolesRouter(tenantID string, roles store.RoleStore) http.Handler {
	routes := &RolesRoutes{tenantID: tenantID, roles: roles, now: time.Now}

	r := chi.NewRouter()
	r.Get("/", errorHandler(routes.listRoles))
	r.Post("/", errorHandler(routes.createRole))
	r.Get("/{id}", errorHandler(routes.getRole))
	r.Delete("/{id}", errorHandler(routes.deleteRole))
	return r
}

type roleClaimRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type createRoleRequest struct {
	Name   string              `json:"name"`
	Claims []roleClaimRequest `json:"claims"`
}

type roleResponse struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Claims []roleClaimRequest `json:"claims"`
}

func toRoleResponse(r *store.Role) roleResponse {
	claims := make([]roleClaimRequest, 0, len(r.Claims))
	for _, c := range r.Claims {
		claims = append(claims, roleClaimRequest{Type: c.Type, Value: c.Value})
	}
	return roleResponse{ID: r.ID, Name: r.Name, Claims: claims}
}

func (rt *RolesRoutes) listRoles(w http.ResponseWriter, r *http.Request) error {
	roles, err := rt.roles.ListRoles(r.Context(), rt.tenantID)
	if err != nil {
		return err
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(out)
}

// createRole enforces the reserved-role and reserved-claim guard: a
// request naming a reserved role, or granting a reserved claim under any
// name, is rejected with 400 and no role is persisted (spec §8 scenario
// 6's two example requests).
func (rt *RolesRoutes) createRole(w http.ResponseWriter, r *http.Request) error {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return newStatusError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Name == "" {
		return newStatusError(http.StatusBadRequest, "name is required")
	}
	if isReservedRoleName(req.Name) {
		return newStatusError(http.StatusBadRequest, "role name \""+req.Name+"\" is reserved")
	}
	for _, c := range req.Claims {
		if isReservedClaimType(c.Type) {
			return newStatusError(http.StatusBadRequest, "claim type \""+c.Type+"\" is reserved")
		}
	}

	if existing, err := rt.roles.FindRoleByName(r.Context(), rt.tenantID, req.Name); err == nil && existing != nil {
		return newStatusError(http.StatusConflict, "role \""+req.Name+"\" already exists")
	}

	claims := make([]store.RoleClaim, 0, len(req.Claims))
	for _, c := range req.Claims {
		claims = append(claims, store.RoleClaim{Type: c.Type, Value: c.Value})
	}
	role := &store.Role{
		ID:        uuid.NewString(),
		TenantID:  rt.tenantID,
		Name:      req.Name,
		Claims:    claims,
		CreatedAt: rt.now(),
		UpdatedAt: rt.now(),
	}
	if err := rt.roles.PutRole(r.Context(), role); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(toRoleResponse(role))
}

func (rt *RolesRoutes) getRole(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	role, err := rt.roles.GetRole(r.Context(), rt.tenantID, id)
	if err == store.ErrNotFound {
		return newStatusError(http.StatusNotFound, "role not found")
	} else if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(toRoleResponse(role))
}

func (rt *RolesRoutes) deleteRole(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if _, err := rt.roles.GetRole(r.Context(), rt.tenantID, id); err == store.ErrNotFound {
		return newStatusError(http.StatusNotFound, "role not found")
	} else if err != nil {
		return err
	}
	if err := rt.roles.DeleteRole(r.Context(), rt.tenantID, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
