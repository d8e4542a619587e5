package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SyndewTech/Oluso-sub010/pkg/store/memory"
)

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoleRejectsReservedName(t *testing.T) {
	st := memory.New()
	h := RolesRouter("tenant-a", st)

	rec := doRequest(t, h, http.MethodPost, "/", createRoleRequest{Name: "SuperAdmin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	roles, err := st.ListRoles(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected no role persisted, got %d", len(roles))
	}
}

func TestCreateRoleRejectsReservedClaim(t *testing.T) {
	st := memory.New()
	h := RolesRouter("tenant-a", st)

	rec := doRequest(t, h, http.MethodPost, "/", createRoleRequest{
		Name:   "support",
		Claims: []roleClaimRequest{{Type: "super_admin", Value: "true"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	roles, err := st.ListRoles(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected no role persisted, got %d", len(roles))
	}
}

func TestCreateRoleSucceedsWithOrdinaryClaims(t *testing.T) {
	st := memory.New()
	h := RolesRouter("tenant-a", st)

	rec := doRequest(t, h, http.MethodPost, "/", createRoleRequest{
		Name:   "support",
		Claims: []roleClaimRequest{{Type: "department", Value: "support"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp roleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Name != "support" {
		t.Fatalf("expected name support, got %q", resp.Name)
	}

	rec2 := doRequest(t, h, http.MethodGet, "/"+resp.ID, nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", rec2.Code)
	}
}

func TestCreateRoleDuplicateNameConflict(t *testing.T) {
	st := memory.New()
	h := RolesRouter("tenant-a", st)

	doRequest(t, h, http.MethodPost, "/", createRoleRequest{Name: "support"})
	rec := doRequest(t, h, http.MethodPost, "/", createRoleRequest{Name: "support"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate name, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteRoleNotFound(t *testing.T) {
	st := memory.New()
	h := RolesRouter("tenant-a", st)

	rec := doRequest(t, h, http.MethodDelete, "/missing-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
