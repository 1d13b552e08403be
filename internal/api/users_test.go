package api

import (
	"net/http"
	"testing"
)

// ─── Account Administration Tests ──────────────────────────────────

func TestListUsers(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()

	admin := seedUser(t, srv, "admin@example.com", true, true)
	seedUser(t, srv, "member@example.com", true, false)
	token := userToken(t, srv, admin.ID)

	code, resp := doRequest(t, router, http.MethodGet, "/api/v1/users", token, "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", code, http.StatusOK)
	}

	if got := dataField(t, resp, "count"); got != float64(2) {
		t.Errorf("count = %v, want 2", got)
	}
	users, ok := dataField(t, resp, "users").([]any)
	if !ok || len(users) != 2 {
		t.Fatalf("users = %v, want 2 entries", dataField(t, resp, "users"))
	}
	if containsKey(users, "password_hash") {
		t.Error("password_hash must not serialise in user listings")
	}
}

// containsKey reports whether any object in the slice carries the key.
func containsKey(objects []any, key string) bool {
	for _, o := range objects {
		if m, ok := o.(map[string]any); ok {
			if _, found := m[key]; found {
				return true
			}
		}
	}
	return false
}

func TestUsers_RequireSuper(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()

	member := seedUser(t, srv, "plain@example.com", true, false)
	token := userToken(t, srv, member.ID)

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/users", ""},
		{http.MethodPatch, "/api/v1/users/usr-x", `{"is_verified":true}`},
		{http.MethodDelete, "/api/v1/users/usr-x", ""},
	}
	for _, req := range requests {
		code, _ := doRequest(t, router, req.method, req.path, token, req.body)
		if code != http.StatusForbidden {
			t.Errorf("%s %s status = %d, want %d", req.method, req.path, code, http.StatusForbidden)
		}
	}
}

func TestUpdateUser_VerifiesAccount(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()

	admin := seedUser(t, srv, "admin@example.com", true, true)
	member := seedUser(t, srv, "pending@example.com", false, false)
	adminToken := userToken(t, srv, admin.ID)
	memberToken := userToken(t, srv, member.ID)

	// Unverified accounts cannot reach tag routes.
	code, _ := doRequest(t, router, http.MethodGet, "/api/v1/tags", memberToken, "")
	if code != http.StatusForbidden {
		t.Fatalf("pre-update tags status = %d, want %d", code, http.StatusForbidden)
	}

	code, resp := doRequest(t, router, http.MethodPatch,
		"/api/v1/users/"+member.ID, adminToken, `{"is_verified":true}`)
	if code != http.StatusOK {
		t.Fatalf("update status = %d, want %d: %v", code, http.StatusOK, resp)
	}
	if got := dataField(t, resp, "is_verified"); got != true {
		t.Errorf("is_verified = %v, want true", got)
	}

	// Cached authorization is dropped, so the flag applies immediately.
	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/tags", memberToken, "")
	if code != http.StatusOK {
		t.Errorf("post-update tags status = %d, want %d", code, http.StatusOK)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()

	admin := seedUser(t, srv, "admin@example.com", true, true)
	token := userToken(t, srv, admin.ID)

	code, _ := doRequest(t, router, http.MethodPatch,
		"/api/v1/users/usr-missing", token, `{"is_super":true}`)
	if code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestDeleteUser(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()

	admin := seedUser(t, srv, "admin@example.com", true, true)
	member := seedUser(t, srv, "leaving@example.com", true, false)
	token := userToken(t, srv, admin.ID)

	code, _ := doRequest(t, router, http.MethodDelete, "/api/v1/users/"+member.ID, token, "")
	if code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", code, http.StatusOK)
	}

	// The deleted account can no longer log in.
	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"leaving@example.com","password":"`+testPassword+`"}`)
	if code != http.StatusUnauthorized {
		t.Errorf("login after delete status = %d, want %d", code, http.StatusUnauthorized)
	}

	code, _ = doRequest(t, router, http.MethodDelete, "/api/v1/users/"+member.ID, token, "")
	if code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestDeleteUser_OwnAccount(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()

	admin := seedUser(t, srv, "admin@example.com", true, true)
	token := userToken(t, srv, admin.ID)

	code, _ := doRequest(t, router, http.MethodDelete, "/api/v1/users/"+admin.ID, token, "")
	if code != http.StatusBadRequest {
		t.Errorf("self-delete status = %d, want %d", code, http.StatusBadRequest)
	}
}
