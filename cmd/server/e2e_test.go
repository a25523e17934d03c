package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/handler"
	"github.com/wadjakorntonsri/onepanel-web/pkg/app"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
)

// fakeBackend is a minimal OnePanel REST API with one user, alice/pw.
type fakeBackend struct {
	mu       sync.Mutex
	reorders []string
}

func (f *fakeBackend) handler(self func() string) http.Handler {
	groups := func(public bool) string {
		pub := fmt.Sprintf(`{"id":1,"name":"Public","order":0,"links":[{"id":10,"title":"Go","url":"%s/ping","group_id":1,"order":0}]}`, self())
		if public {
			return "[" + pub + "]"
		}
		work := fmt.Sprintf(`{"id":2,"name":"Work","order":1,"links":[{"id":20,"title":"Mail","url":"%s/ping","group_id":2,"order":0},{"id":21,"title":"Docs","url":"%s/ping","group_id":2,"order":1}]}`, self(), self())
		return "[" + pub + "," + work + "]"
	}
	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer tok-alice"
	}
	writeJSON := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/system/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"is_initialized":true,"status":"ok"}`)
	})
	mux.HandleFunc("GET /api/system/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"site_title":"Test Panel","registration_open":"true"}`)
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("grant_type") != "password" || r.FormValue("username") != "alice" || r.FormValue("password") != "pw" {
			writeJSON(w, http.StatusBadRequest, `{"detail":"Incorrect username or password"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"tok-alice","token_type":"bearer"}`)
	})
	mux.HandleFunc("GET /api/user/me", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Not authenticated"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":7,"username":"alice","is_admin":false,"is_active":true,"custom_bg":null,"hidden_groups":""}`)
	})
	mux.HandleFunc("GET /api/groups/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Not authenticated"}`)
			return
		}
		writeJSON(w, http.StatusOK, groups(false))
	})
	mux.HandleFunc("GET /api/groups/public", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, groups(true))
	})
	mux.HandleFunc("PUT /api/links/reorder", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"Not authenticated"}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.reorders = append(f.reorders, string(body))
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, `{"msg":"ok"}`)
	})
	return mux
}

func TestIntegration(t *testing.T) {
	// 1. Fake backend
	backend := &fakeBackend{}
	var backendURL string
	api := httptest.NewServer(backend.handler(func() string { return backendURL }))
	defer api.Close()
	backendURL = api.URL

	// 2. BFF on an in-memory store
	cfg := &config.Config{
		APIBaseURL:    api.URL + "/api",
		StorageURL:    "file:e2e?mode=memory&cache=shared",
		AppEnv:        "test",
		BaseURL:       "http://localhost",
		JWTSecret:     "e2e-secret",
		FaviconAPI:    config.DefaultFaviconAPI,
		HealthTimeout: time.Second,
		ToastDuration: 1500 * time.Millisecond,
		HTTPTimeout:   5 * time.Second,
	}
	srv, err := app.NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to build server: %v", err)
	}
	defer srv.Close()

	server := httptest.NewServer(srv.Handler)
	defer server.Close()

	jar, _ := cookiejar.New(nil)
	client := server.Client()
	client.Jar = jar

	// TEST 1: Guest dashboard shows only the public group
	body := getBody(t, client, server.URL+"/")
	if !strings.Contains(body, "<title>Test Panel</title>") {
		t.Error("site title from the backend config is missing")
	}
	if !strings.Contains(body, `id="group-1"`) || strings.Contains(body, `id="group-2"`) {
		t.Error("guest should see exactly the public group")
	}
	if !strings.Contains(body, `href="/register"`) {
		t.Error("open registration should offer the register link")
	}

	// TEST 2: Bad credentials stay on the login page
	resp, err := client.PostForm(server.URL+"/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	if err != nil {
		t.Fatal(err)
	}
	bad, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || !strings.Contains(string(bad), handler.MessageBadCredentials) {
		t.Errorf("expected 401 with the bad credentials message, got %d", resp.StatusCode)
	}

	// TEST 3: Login, then the redirect shows the private groups
	resp, err = client.PostForm(server.URL+"/login", url.Values{"username": {"alice"}, "password": {"pw"}})
	if err != nil {
		t.Fatal(err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Request.URL.Path != "/" {
		t.Fatalf("expected to land on the dashboard, got %d %s", resp.StatusCode, resp.Request.URL.Path)
	}
	if !strings.Contains(string(page), `id="group-2"`) || !strings.Contains(string(page), "alice") {
		t.Error("signed-in dashboard should show the user's groups and name")
	}
	if !strings.Contains(string(page), `data-sortable="true"`) {
		t.Error("signed-in dashboard should be sortable")
	}

	// TEST 4: Reorder within a group settles with one write
	drop := `{"link_id":21,"from_group_id":2,"to_group_id":2,"from_order":[21,20],"to_order":[21,20],"previous_from":[20,21],"previous_to":[20,21]}`
	resp, err = client.Post(server.URL+"/ui/links/reorder", "application/json", bytes.NewBufferString(drop))
	if err != nil {
		t.Fatal(err)
	}
	var result struct {
		State string `json:"state"`
		Error bool   `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if result.State != "settled" || result.Error {
		t.Errorf("expected settled, got %+v", result)
	}
	backend.mu.Lock()
	reorders := append([]string(nil), backend.reorders...)
	backend.mu.Unlock()
	if len(reorders) != 1 || !strings.Contains(reorders[0], `"link_ids":[21,20]`) || !strings.Contains(reorders[0], `"group_id":2`) {
		t.Errorf("unexpected reorder calls %v", reorders)
	}

	// TEST 5: Heartbeat
	resp, err = client.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Heartbeat expected 200, got %d", resp.StatusCode)
	}

	// TEST 6: Logout drops back to the guest view
	body = getBody(t, client, server.URL+"/logout")
	if strings.Contains(body, `id="group-2"`) || !strings.Contains(body, `href="/login"`) {
		t.Error("after logout the dashboard should be the guest view")
	}
}

func getBody(t *testing.T, client *http.Client, target string) string {
	t.Helper()
	resp, err := client.Get(target)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", target, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}
