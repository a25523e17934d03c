package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/onepanel"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
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

// MockBackend answers the calls the handlers make; anything else panics
// through the nil embedded interfaces.
type MockBackend struct {
	ports.OnePanelAPI
	ports.AdminAPI

	mu          sync.Mutex
	status      domain.SystemStatus
	config      domain.SiteConfig
	user        *domain.User
	groups      []domain.Group
	loginErr    error
	registerErr error
	groupErr    error
	reorderErr  error
	failLinkAt  int
	adminErr    error
	users       []domain.User
	calls       []string
	linkOrders  []domain.LinkOrder
}

func (m *MockBackend) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *MockBackend) called(call string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (m *MockBackend) SystemStatus(ctx context.Context) (*domain.SystemStatus, error) {
	s := m.status
	return &s, nil
}

func (m *MockBackend) SiteConfig(ctx context.Context) (*domain.SiteConfig, error) {
	c := m.config
	return &c, nil
}

func (m *MockBackend) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	m.record("login")
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &domain.Token{AccessToken: "token-" + username, TokenType: "bearer"}, nil
}

func (m *MockBackend) AdminLogin(ctx context.Context, username, password string) (*domain.Token, error) {
	m.record("admin-login")
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &domain.Token{AccessToken: "admin-" + username, TokenType: "bearer"}, nil
}

func (m *MockBackend) Register(ctx context.Context, username, password string) error {
	m.record("register")
	return m.registerErr
}

func (m *MockBackend) InitSystem(ctx context.Context, username, password string) error {
	m.record("init")
	return nil
}

func (m *MockBackend) Me(ctx context.Context) (*domain.User, error) {
	if m.user == nil {
		return nil, ports.ErrUnauthorized
	}
	u := *m.user
	return &u, nil
}

func (m *MockBackend) UpdateMe(ctx context.Context, update domain.UserUpdate) (*domain.User, error) {
	m.record("update-me")
	u := *m.user
	if update.HiddenGroups != nil {
		u.HiddenGroups = *update.HiddenGroups
	}
	m.user = &u
	return &u, nil
}

func (m *MockBackend) Groups(ctx context.Context) ([]domain.Group, error) {
	return m.groups, nil
}

func (m *MockBackend) PublicGroups(ctx context.Context) ([]domain.Group, error) {
	return m.groups[:1], nil
}

func (m *MockBackend) SelectableGroups(ctx context.Context) ([]domain.Group, error) {
	return m.groups, m.groupErr
}

func (m *MockBackend) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	m.record("create-group:" + name)
	if m.groupErr != nil {
		return nil, m.groupErr
	}
	return &domain.Group{ID: 9, Name: name}, nil
}

func (m *MockBackend) RenameGroup(ctx context.Context, id int64, name string) error {
	m.record("rename-group:" + name)
	return m.groupErr
}

func (m *MockBackend) DeleteGroup(ctx context.Context, id int64) error {
	m.record("delete-group")
	return m.groupErr
}

func (m *MockBackend) ReorderGroups(ctx context.Context, groupIDs []int64) error {
	m.record("reorder-groups")
	return m.reorderErr
}

func (m *MockBackend) ReorderLinks(ctx context.Context, order domain.LinkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkOrders = append(m.linkOrders, order)
	// failLinkAt is 1-based; zero never fails.
	if m.reorderErr != nil && len(m.linkOrders) == m.failLinkAt {
		return m.reorderErr
	}
	return nil
}

func (m *MockBackend) CreateLink(ctx context.Context, link domain.NewLink) (*domain.Link, error) {
	m.record("create-link")
	return &domain.Link{ID: 77, Title: link.Title, URL: link.URL, GroupID: link.GroupID}, nil
}

func (m *MockBackend) DeleteLink(ctx context.Context, id int64) error {
	m.record("delete-link")
	return nil
}

func (m *MockBackend) AdminConfig(ctx context.Context) (*domain.SiteConfig, error) {
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	c := m.config
	return &c, nil
}

func (m *MockBackend) RiskKeywords(ctx context.Context) (string, error) {
	return "casino", nil
}

func (m *MockBackend) ListUsers(ctx context.Context, page, size int, query string) (*domain.UserPage, error) {
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	return &domain.UserPage{Items: m.users, Total: len(m.users), Page: page, Size: size}, nil
}

func (m *MockBackend) UserAction(ctx context.Context, userID int64, action domain.UserAction) (string, error) {
	m.record("user-action:" + string(action))
	return "", m.adminErr
}

func (m *MockBackend) ResetPassword(ctx context.Context, userID int64, password string) error {
	m.record("reset-password")
	return m.adminErr
}

func (m *MockBackend) SetRegistration(ctx context.Context, open bool) error {
	m.record("set-registration")
	return m.adminErr
}

type renderedTemplate struct {
	name string
	data any
}

// templateRecorder stands in for the parsed templates.
type templateRecorder struct {
	mu   sync.Mutex
	last renderedTemplate
}

func (t *templateRecorder) execute(wr io.Writer, name string, data any) error {
	t.mu.Lock()
	t.last = renderedTemplate{name: name, data: data}
	t.mu.Unlock()
	_, err := wr.Write([]byte("rendered: " + name))
	return err
}

type stubProber struct{}

func (stubProber) Probe(ctx context.Context, url string) error { return nil }

type testEnv struct {
	cfg     *config.Config
	backend *MockBackend
	storage *memStorage
	tmpl    *templateRecorder
	board   *services.HealthBoard
	router  http.Handler
	cookie  *http.Cookie
}

const testNamespace = "browser-1"

func newTestEnv(t *testing.T, backend *MockBackend) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		BaseURL:       "http://localhost:8080",
		FaviconAPI:    config.DefaultFaviconAPI,
		ToastDuration: 1500 * time.Millisecond,
	}
	if backend.groups == nil {
		backend.groups = []domain.Group{
			{ID: 1, Name: "Public", Links: []domain.Link{{ID: 10, Title: "Go", URL: "https://go.dev"}}},
			{ID: 2, Name: "Work", Links: []domain.Link{{ID: 20, Title: "Mail", URL: "https://mail.example.com"}}},
		}
	}

	env := &testEnv{
		cfg:     cfg,
		backend: backend,
		storage: newMemStorage(),
		tmpl:    &templateRecorder{},
		board:   services.NewHealthBoard(),
		cookie:  &http.Cookie{Name: SessionCookie, Value: generateTestToken(t, cfg.JWTSecret, testNamespace, time.Now().Add(time.Hour))},
	}
	env.router = NewRouter(cfg, Deps{
		Storage:   env.storage,
		Backend:   func(ports.SessionStore) Backend { return backend },
		Templates: env.tmpl.execute,
		Renderer:  services.NewRenderer(nil, nil),
		OrderSync: services.NewOrderSync(),
		Health:    services.NewHealthChecker(stubProber{}, env.board, time.Second),
	})
	return env
}

func (e *testEnv) signIn(t *testing.T, key string) {
	t.Helper()
	if err := e.storage.Set(context.Background(), testNamespace, key, "opaque-token"); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.AddCookie(e.cookie)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func forbidden(detail string) error {
	return &onepanel.APIError{StatusCode: http.StatusForbidden, Detail: detail}
}
