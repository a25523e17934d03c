package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// memStorage outlives the root command's close so state carries over between
// runs.
type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStorage) Get(ctx context.Context, ns, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[ns+"/"+key]
	return v, ok, nil
}

func (m *memStorage) Set(ctx context.Context, ns, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ns+"/"+key] = value
	return nil
}

func (m *memStorage) Delete(ctx context.Context, ns, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, ns+"/"+key)
	return nil
}

func (m *memStorage) Close() error { return nil }

// fakeBackend is a small stateful OnePanel API with one user, alice/pw.
type fakeBackend struct {
	mu       sync.Mutex
	groups   []domain.Group
	nextID   int64
	reorders []domain.LinkOrder
	deleted  []int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		nextID: 100,
		groups: []domain.Group{
			{ID: 1, Name: "Public", Links: []domain.Link{{ID: 10, Title: "Go", URL: "https://go.dev", GroupID: 1}}},
			{ID: 2, Name: "Work", Links: []domain.Link{
				{ID: 20, Title: "Mail", URL: "https://mail.example", GroupID: 2},
				{ID: 21, Title: "Docs", URL: "https://docs.example", GroupID: 2},
			}},
		},
	}
}

func (f *fakeBackend) handler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	authed := func(w http.ResponseWriter, r *http.Request, token string) bool {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "alice" || r.FormValue("password") != "pw" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-alice", "token_type": "bearer"})
	})
	mux.HandleFunc("GET /api/system/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"site_title": "Test Panel"})
	})
	mux.HandleFunc("GET /api/user/me", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r, "tok-alice") {
			writeJSON(w, http.StatusOK, domain.User{ID: 7, Username: "alice", IsActive: true})
		}
	})
	mux.HandleFunc("GET /api/groups/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r, "tok-alice") {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.groups)
	})
	mux.HandleFunc("GET /api/groups/public", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, http.StatusOK, f.groups[:1])
	})
	mux.HandleFunc("POST /api/groups/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r, "tok-alice") {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		g := domain.Group{ID: f.nextID, Name: r.URL.Query().Get("name")}
		f.groups = append(f.groups, g)
		writeJSON(w, http.StatusOK, g)
	})
	mux.HandleFunc("DELETE /api/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r, "tok-alice") {
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		f.deleted = append(f.deleted, id)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"msg": "ok"})
	})
	mux.HandleFunc("POST /api/links/", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r, "tok-alice") {
			return
		}
		var in domain.NewLink
		json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		link := domain.Link{ID: f.nextID, Title: in.Title, URL: in.URL, GroupID: in.GroupID}
		for i := range f.groups {
			if f.groups[i].ID == in.GroupID {
				f.groups[i].Links = append(f.groups[i].Links, link)
			}
		}
		writeJSON(w, http.StatusOK, link)
	})
	mux.HandleFunc("PUT /api/links/reorder", func(w http.ResponseWriter, r *http.Request) {
		if !authed(w, r, "tok-alice") {
			return
		}
		var order domain.LinkOrder
		json.NewDecoder(r.Body).Decode(&order)
		f.mu.Lock()
		f.reorders = append(f.reorders, order)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"msg": "ok"})
	})
	mux.HandleFunc("GET /api/admin/users", func(w http.ResponseWriter, r *http.Request) {
		if authed(w, r, "admin-tok") {
			writeJSON(w, http.StatusOK, domain.UserPage{Items: []domain.User{{ID: 7, Username: "alice", IsActive: true}}, Total: 1, Page: 1, Size: 10})
		}
	})
	return mux
}

type cliEnv struct {
	app     *App
	out     *bytes.Buffer
	backend *fakeBackend
	storage *memStorage
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	backend := newFakeBackend()
	api := httptest.NewServer(backend.handler())
	t.Cleanup(api.Close)

	cfg := &config.Config{
		APIBaseURL:    api.URL + "/api",
		FaviconAPI:    config.DefaultFaviconAPI,
		HealthTimeout: time.Second,
		HTTPTimeout:   5 * time.Second,
	}
	out := &bytes.Buffer{}
	storage := &memStorage{data: map[string]string{}}
	app := newApp(cfg, strings.NewReader(""), out)
	app.openStorage = func(context.Context) (ports.Storage, error) { return storage, nil }
	return &cliEnv{app: app, out: out, backend: backend, storage: storage}
}

func (e *cliEnv) run(args ...string) (string, error) {
	e.out.Reset()
	cmd := newRootCmd(e.app)
	cmd.SetArgs(args)
	cmd.SetOut(e.out)
	cmd.SetErr(e.out)
	err := cmd.ExecuteContext(context.Background())
	return e.out.String(), err
}

func (e *cliEnv) login(t *testing.T) {
	t.Helper()
	if _, err := e.run("login", "-u", "alice", "-p", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func TestLoginStoresToken(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("login", "-u", "alice", "-p", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Signed in as alice") {
		t.Errorf("unexpected output %q", out)
	}
	if got := env.storage.data["cli:default/"+services.TokenKey]; got != "tok-alice" {
		t.Errorf("expected token in the default profile, got %q", got)
	}

	if _, err := env.run("login", "-u", "alice", "-p", "nope"); err == nil {
		t.Error("expected bad credentials to fail")
	}

	if _, err := env.run("logout"); err != nil {
		t.Fatal(err)
	}
	if _, ok := env.storage.data["cli:default/"+services.TokenKey]; ok {
		t.Error("logout should drop the token")
	}
}

func TestProfilesAreSeparate(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run("--profile", "work", "login", "-u", "alice", "-p", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, ok := env.storage.data["cli:default/"+services.TokenKey]; ok {
		t.Error("default profile should stay signed out")
	}
	if env.storage.data["cli:work/"+services.TokenKey] != "tok-alice" {
		t.Error("work profile should hold the token")
	}
}

func TestDashboardRaw(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("dashboard", "--raw")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "_Signed in as guest_") || strings.Contains(out, "Work") {
		t.Errorf("guest should see only the public group:\n%s", out)
	}

	env.login(t)
	out, err = env.run("dashboard", "--raw")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## Public `#1` · public · read-only", "## Work `#2`", "[Docs](https://docs.example) `#21`"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestPlanMove(t *testing.T) {
	groups := newFakeBackend().groups

	tests := []struct {
		name     string
		link, to int64
		position int
		want     services.LinkDrop
		wantErr  bool
	}{
		{
			name: "within group to top", link: 21, to: 0, position: 0,
			want: services.LinkDrop{LinkID: 21, FromGroupID: 2, ToGroupID: 2,
				FromOrder: []int64{21, 20}, ToOrder: []int64{21, 20},
				PreviousFrom: []int64{20, 21}, PreviousTo: []int64{20, 21}},
		},
		{
			name: "across groups appended", link: 10, to: 2, position: -1,
			want: services.LinkDrop{LinkID: 10, FromGroupID: 1, ToGroupID: 2,
				FromOrder: []int64{}, ToOrder: []int64{20, 21, 10},
				PreviousFrom: []int64{10}, PreviousTo: []int64{20, 21}},
		},
		{
			name: "position past the end appends", link: 20, to: 2, position: 9,
			want: services.LinkDrop{LinkID: 20, FromGroupID: 2, ToGroupID: 2,
				FromOrder: []int64{21, 20}, ToOrder: []int64{21, 20},
				PreviousFrom: []int64{20, 21}, PreviousTo: []int64{20, 21}},
		},
		{name: "unknown link", link: 99, wantErr: true},
		{name: "unknown group", link: 20, to: 9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planMove(groups, tt.link, tt.to, tt.position)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestLinksMove(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	if _, err := env.run("links", "move", "21", "--position", "0"); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	want := []domain.LinkOrder{{LinkIDs: []int64{21, 20}, GroupID: 2}}
	if !reflect.DeepEqual(env.backend.reorders, want) {
		t.Errorf("got reorders %+v", env.backend.reorders)
	}

	// non-admins cannot drop into the public group; nothing is written
	env.backend.reorders = nil
	_, err := env.run("links", "move", "20", "--to", "1")
	if err == nil {
		t.Fatal("expected moving into the public group to fail")
	}
	if len(env.backend.reorders) != 0 {
		t.Errorf("expected no writes, got %+v", env.backend.reorders)
	}
}

func TestLinksReorderCompletesOrder(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	if _, err := env.run("links", "reorder", "2", "21"); err != nil {
		t.Fatal(err)
	}
	want := []domain.LinkOrder{{LinkIDs: []int64{21, 20}, GroupID: 2}}
	if !reflect.DeepEqual(env.backend.reorders, want) {
		t.Errorf("got reorders %+v", env.backend.reorders)
	}

	if _, err := env.run("links", "reorder", "2", "10"); err == nil {
		t.Error("expected a link from another group to be rejected")
	}
}

func TestGroupsDeleteWithYes(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	if _, err := env.run("groups", "delete", "2", "--yes"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(env.backend.deleted, []int64{2}) {
		t.Errorf("got deleted %v", env.backend.deleted)
	}
	if _, err := env.run("groups", "delete", "x", "--yes"); err == nil {
		t.Error("expected invalid id to fail")
	}
}

func TestExportImport(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	path := filepath.Join(t.TempDir(), "links.yaml")
	if _, err := env.run("export", "-o", path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "name: Work") || !strings.Contains(string(data), "url: https://docs.example") {
		t.Errorf("unexpected export:\n%s", data)
	}

	backup := `{"groups":[{"name":"Work","links":[{"title":"Docs","url":"https://docs.example"},{"title":"Wiki","url":"https://wiki.example"}]},{"name":"Fun","links":[{"title":"Games","url":"https://games.example"}]}]}`
	in := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(in, []byte(backup), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := env.run("import", in, "--yes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Imported 2 links, skipped 1") {
		t.Errorf("unexpected output %q", out)
	}
	groups := env.backend.groups
	if len(groups) != 3 || groups[2].Name != "Fun" || len(groups[1].Links) != 3 {
		t.Errorf("unexpected groups after import: %+v", groups)
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		format, path, want string
		wantErr            bool
	}{
		{path: "a.yml", want: "yaml"},
		{path: "a.YAML", want: "yaml"},
		{path: "", want: "json"},
		{format: "json", path: "a.yaml", want: "json"},
		{format: "toml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := formatFor(tt.format, tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("formatFor(%q, %q) = %q, %v", tt.format, tt.path, got, err)
		}
	}
}

func TestAdminUsesOwnSession(t *testing.T) {
	env := newCLIEnv(t)
	env.login(t)

	_, err := env.run("admin", "users")
	if err == nil || err.Error() != services.MessageSessionExpired {
		t.Fatalf("dashboard token should not grant admin, got %v", err)
	}

	env.storage.data["cli:default/"+services.AdminTokenKey] = "admin-tok"
	out, err := env.run("admin", "users")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "alice") || !strings.Contains(out, "page 1 of 1, 1 total") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRegisterChecksPassword(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("register", "-u", "bob", "-p", "Secret123!", "--confirm", "Secret123?")
	if err == nil || err.Error() != "Passwords do not match" {
		t.Errorf("expected mismatch error, got %v", err)
	}
}
