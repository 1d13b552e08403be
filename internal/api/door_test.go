package api

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
)

// fakeController runs an httptest server standing in for the door hardware
// and returns its host and port.
func fakeController(t *testing.T, handler http.HandlerFunc) (string, int) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parsing controller URL: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("splitting controller host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing controller port: %v", err)
	}
	return host, port
}

func TestHeartbeat_RequiresDeviceKey(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()
	user := seedUser(t, srv, "hb@example.com", true, true)
	token := userToken(t, srv, user.ID)

	code, _ := doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", token,
		`{"address":"10.0.0.9"}`)
	if code != http.StatusForbidden {
		t.Errorf("user token heartbeat status = %d, want %d", code, http.StatusForbidden)
	}

	code, _ = doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"10.0.0.9"}`)
	if code != http.StatusOK {
		t.Errorf("device key heartbeat status = %d, want %d", code, http.StatusOK)
	}
}

func TestOpenDoor_NoControllerYet(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()
	user := seedUser(t, srv, "early@example.com", true, false)
	token := userToken(t, srv, user.ID)

	code, _ := doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusNotFound {
		t.Errorf("open without heartbeat status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestOpenDoor_EndToEnd(t *testing.T) {
	var calls atomic.Int32
	host, port := fakeController(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open-door" {
			if r.Header.Get("Authorization") != "Bearer "+testDeviceKey {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			calls.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := testServer(t, port)
	router := srv.buildRouter()
	user := seedUser(t, srv, "opener@example.com", true, false)
	token := userToken(t, srv, user.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"`+host+`"}`)

	code, resp := doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusOK {
		t.Fatalf("open status = %d: %v", code, resp)
	}
	if calls.Load() != 1 {
		t.Errorf("controller open calls = %d, want 1", calls.Load())
	}
}

func TestOpenDoor_RequiresVerified(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()
	user := seedUser(t, srv, "unver@example.com", false, false)
	token := userToken(t, srv, user.ID)

	code, _ := doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusForbidden {
		t.Errorf("unverified open status = %d, want %d", code, http.StatusForbidden)
	}
}

func TestOpenDoor_ControllerRejects(t *testing.T) {
	host, port := fakeController(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	srv := testServer(t, port)
	router := srv.buildRouter()
	user := seedUser(t, srv, "rejected@example.com", true, false)
	token := userToken(t, srv, user.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"`+host+`"}`)

	code, _ := doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusBadRequest {
		t.Errorf("rejected open status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestOpenDoor_ControllerUnreachable(t *testing.T) {
	// Point the dispatcher at a port nothing listens on.
	srv := testServer(t, 1)
	router := srv.buildRouter()
	user := seedUser(t, srv, "unreach@example.com", true, false)
	token := userToken(t, srv, user.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"127.0.0.1"}`)

	code, _ := doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusBadGateway {
		t.Errorf("unreachable open status = %d, want %d", code, http.StatusBadGateway)
	}
}

func TestMode_GetAndToggle(t *testing.T) {
	var toggles atomic.Int32
	host, port := fakeController(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/toggle-mode" {
			toggles.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := testServer(t, port)
	router := srv.buildRouter()
	super := seedUser(t, srv, "super@example.com", true, true)
	superToken := userToken(t, srv, super.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"`+host+`"}`)

	code, resp := doRequest(t, router, http.MethodGet, "/api/v1/door/mode", superToken, "")
	if code != http.StatusOK {
		t.Fatalf("get mode status = %d: %v", code, resp)
	}
	if dataField(t, resp, "mode") != "normal" {
		t.Errorf("initial mode = %v, want normal", dataField(t, resp, "mode"))
	}

	// Toggling to the current mode touches no hardware.
	code, resp = doRequest(t, router, http.MethodPost, "/api/v1/door/mode", superToken,
		`{"mode":"normal"}`)
	if code != http.StatusOK {
		t.Fatalf("noop toggle status = %d: %v", code, resp)
	}
	if dataField(t, resp, "applied") != false {
		t.Error("toggling to the current mode should not apply")
	}
	if toggles.Load() != 0 {
		t.Errorf("controller toggle calls = %d, want 0", toggles.Load())
	}

	code, resp = doRequest(t, router, http.MethodPost, "/api/v1/door/mode", superToken,
		`{"mode":"open"}`)
	if code != http.StatusOK {
		t.Fatalf("toggle status = %d: %v", code, resp)
	}
	if dataField(t, resp, "applied") != true {
		t.Error("mode change should apply")
	}
	if toggles.Load() != 1 {
		t.Errorf("controller toggle calls = %d, want 1", toggles.Load())
	}

	code, resp = doRequest(t, router, http.MethodGet, "/api/v1/door/mode", superToken, "")
	if code != http.StatusOK {
		t.Fatalf("get mode status = %d: %v", code, resp)
	}
	if dataField(t, resp, "mode") != "open" {
		t.Errorf("mode after toggle = %v, want open", dataField(t, resp, "mode"))
	}
}

func TestSetMode_RequiresSuper(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()
	user := seedUser(t, srv, "plain@example.com", true, false)
	token := userToken(t, srv, user.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"10.0.0.9"}`)

	code, _ := doRequest(t, router, http.MethodPost, "/api/v1/door/mode", token,
		`{"mode":"open"}`)
	if code != http.StatusForbidden {
		t.Errorf("non-super toggle status = %d, want %d", code, http.StatusForbidden)
	}

	// Querying the mode needs no super flag.
	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/door/mode", token, "")
	if code != http.StatusOK {
		t.Errorf("mode query status = %d, want %d", code, http.StatusOK)
	}
}

func TestSetMode_InvalidMode(t *testing.T) {
	srv := testServer(t, 19003)
	router := srv.buildRouter()
	super := seedUser(t, srv, "super2@example.com", true, true)
	token := userToken(t, srv, super.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"10.0.0.9"}`)

	code, _ := doRequest(t, router, http.MethodPost, "/api/v1/door/mode", token,
		`{"mode":"party"}`)
	if code != http.StatusBadRequest {
		t.Errorf("invalid mode status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestDoorCache(t *testing.T) {
	host, port := fakeController(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cache" {
			w.Header().Set("Content-Type", "application/json")
			//nolint:errcheck // test handler
			w.Write([]byte(`{"entries":3}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := testServer(t, port)
	router := srv.buildRouter()
	user := seedUser(t, srv, "cache@example.com", true, false)
	token := userToken(t, srv, user.ID)

	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"`+host+`"}`)

	code, resp := doRequest(t, router, http.MethodGet, "/api/v1/door/cache", token, "")
	if code != http.StatusOK {
		t.Fatalf("cache status = %d: %v", code, resp)
	}
	cache, ok := dataField(t, resp, "cache").(map[string]any)
	if !ok {
		t.Fatalf("cache payload = %v", dataField(t, resp, "cache"))
	}
	if cache["entries"] != float64(3) {
		t.Errorf("cache entries = %v, want 3", cache["entries"])
	}
}

// A heartbeat with a new address must invalidate cached resolutions.
func TestHeartbeat_InvalidatesLocatorCache(t *testing.T) {
	var opens atomic.Int32
	host, port := fakeController(t, func(_ http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open-door" {
			opens.Add(1)
		}
	})

	srv := testServer(t, port)
	router := srv.buildRouter()
	user := seedUser(t, srv, "mover@example.com", true, false)
	token := userToken(t, srv, user.ID)

	// First heartbeat points at a dead address; open fails and the address
	// is now cached for this caller.
	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"192.0.2.1"}`)
	code, _ := doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusBadGateway {
		t.Fatalf("dead address open status = %d, want %d", code, http.StatusBadGateway)
	}

	// New heartbeat with the live address; the stale cache entry must go.
	doRequest(t, router, http.MethodPost, "/api/v1/health/heartbeat", testDeviceKey,
		`{"address":"`+host+`"}`)
	code, _ = doRequest(t, router, http.MethodGet, "/api/v1/door/open", token, "")
	if code != http.StatusOK {
		t.Fatalf("post-heartbeat open status = %d, want %d", code, http.StatusOK)
	}
	if opens.Load() != 1 {
		t.Errorf("controller open calls = %d, want 1", opens.Load())
	}
}
