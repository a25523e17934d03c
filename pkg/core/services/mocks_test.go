package services

import (
	"context"
	"errors"
	"sync"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
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

type toast struct {
	message string
	isError bool
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []toast
}

func (n *recordingNotifier) Toast(ctx context.Context, message string, isError bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast{message: message, isError: isError})
}

func (n *recordingNotifier) last() toast {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.toasts) == 0 {
		return toast{}
	}
	return n.toasts[len(n.toasts)-1]
}

type detailErr struct{ detail string }

func (e *detailErr) Error() string { return "backend: " + e.detail }
func (e *detailErr) UserMessage() string { return e.detail }

// MockAPI is an in-memory backend. Reorder calls are recorded; a group id in
// failReorder makes reorders of that group fail.
type MockAPI struct {
	mu sync.Mutex

	user        *domain.User
	meErr       error
	groups      []domain.Group
	groupsErr   error
	public      []domain.Group
	publicErr   error
	siteConfig  *domain.SiteConfig
	updateErr   error
	groupErr    error
	failReorder map[int64]int

	linkOrders  []domain.LinkOrder
	groupOrders [][]int64
	updates     []domain.UserUpdate

	users []domain.User
	links []domain.AdminLink
	pages []int
}

func (m *MockAPI) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	return &domain.Token{AccessToken: "tok", TokenType: "bearer"}, nil
}

func (m *MockAPI) AdminLogin(ctx context.Context, username, password string) (*domain.Token, error) {
	return &domain.Token{AccessToken: "admin", TokenType: "bearer"}, nil
}

func (m *MockAPI) Register(ctx context.Context, username, password string) error { return nil }

func (m *MockAPI) SystemStatus(ctx context.Context) (*domain.SystemStatus, error) {
	return &domain.SystemStatus{IsInitialized: true}, nil
}

func (m *MockAPI) InitSystem(ctx context.Context, username, password string) error { return nil }

func (m *MockAPI) SiteConfig(ctx context.Context) (*domain.SiteConfig, error) {
	if m.siteConfig == nil {
		return nil, errors.New("no config")
	}
	cfg := *m.siteConfig
	return &cfg, nil
}

func (m *MockAPI) Me(ctx context.Context) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meErr != nil {
		return nil, m.meErr
	}
	if m.user == nil {
		return nil, ports.ErrUnauthorized
	}
	u := *m.user
	return &u, nil
}

func (m *MockAPI) UpdateMe(ctx context.Context, update domain.UserUpdate) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updates = append(m.updates, update)
	if update.HiddenGroups != nil {
		m.user.HiddenGroups = *update.HiddenGroups
	}
	if update.CustomBG != nil {
		m.user.CustomBG = update.CustomBG
	}
	u := *m.user
	return &u, nil
}

func (m *MockAPI) UploadBackground(ctx context.Context, file ports.Upload) (string, error) {
	return "/static/user_uploads/bg.png", nil
}

func (m *MockAPI) Groups(ctx context.Context) ([]domain.Group, error) {
	return m.groups, m.groupsErr
}

func (m *MockAPI) PublicGroups(ctx context.Context) ([]domain.Group, error) {
	return m.public, m.publicErr
}

func (m *MockAPI) SelectableGroups(ctx context.Context) ([]domain.Group, error) {
	return m.groups, m.groupsErr
}

func (m *MockAPI) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	return &domain.Group{ID: 99, Name: name}, m.groupErr
}

func (m *MockAPI) RenameGroup(ctx context.Context, id int64, name string) error { return m.groupErr }
func (m *MockAPI) DeleteGroup(ctx context.Context, id int64) error { return m.groupErr }

func (m *MockAPI) ReorderGroups(ctx context.Context, groupIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupOrders = append(m.groupOrders, append([]int64(nil), groupIDs...))
	return m.groupErr
}

func (m *MockAPI) CreateLink(ctx context.Context, link domain.NewLink) (*domain.Link, error) {
	return &domain.Link{ID: 42, Title: link.Title, URL: link.URL, GroupID: link.GroupID}, nil
}

func (m *MockAPI) DeleteLink(ctx context.Context, id int64) error { return nil }

func (m *MockAPI) ReorderLinks(ctx context.Context, order domain.LinkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkOrders = append(m.linkOrders, domain.LinkOrder{LinkIDs: append([]int64(nil), order.LinkIDs...), GroupID: order.GroupID})
	if n := m.failReorder[order.GroupID]; n > 0 {
		m.failReorder[order.GroupID] = n - 1
		return &detailErr{detail: "no permission for this group"}
	}
	return nil
}

func (m *MockAPI) UploadIcon(ctx context.Context, file ports.Upload, linkID int64) (string, error) {
	return "/static/icons/a.png", nil
}

func (m *MockAPI) DownloadIcon(ctx context.Context, iconURL string, linkID int64) (string, error) {
	return "/static/icons/b.png", nil
}

func (m *MockAPI) AdminConfig(ctx context.Context) (*domain.SiteConfig, error) {
	return m.SiteConfig(ctx)
}

func (m *MockAPI) SetRegistration(ctx context.Context, open bool) error { return nil }
func (m *MockAPI) UpdateSiteInfo(ctx context.Context, info domain.SiteInfo) error { return nil }
func (m *MockAPI) ResetPassword(ctx context.Context, userID int64, pw string) error { return nil }
func (m *MockAPI) DeleteUser(ctx context.Context, userID int64) error { return nil }

func (m *MockAPI) ListUsers(ctx context.Context, page, size int, query string) (*domain.UserPage, error) {
	m.pages = append(m.pages, page, size)
	return &domain.UserPage{Items: m.users, Total: len(m.users), Page: page, Size: size}, nil
}

func (m *MockAPI) UserAction(ctx context.Context, userID int64, action domain.UserAction) (string, error) {
	return "ok", nil
}

func (m *MockAPI) ListLinks(ctx context.Context, page, size int, query string) (*domain.LinkPage, error) {
	m.pages = append(m.pages, page, size)
	return &domain.LinkPage{Items: m.links, Total: len(m.links), Page: page, Size: size}, nil
}

func (m *MockAPI) RiskKeywords(ctx context.Context) (string, error) { return "", nil }
func (m *MockAPI) SetRiskKeywords(ctx context.Context, keywords string) error { return nil }
func (m *MockAPI) UnusedIcons(ctx context.Context) ([]domain.UnusedIcon, error) { return nil, nil }
func (m *MockAPI) CustomCode(ctx context.Context) (*domain.CustomCode, error) { return &domain.CustomCode{}, nil }
func (m *MockAPI) SaveCustomCode(ctx context.Context, code domain.CustomCode) error { return nil }

func (m *MockAPI) DeleteUnusedIcons(ctx context.Context, filenames []string) (string, error) {
	return "deleted", nil
}

type stubProber struct {
	mu   sync.Mutex
	down map[string]bool
	seen []string
}

func (p *stubProber) Probe(ctx context.Context, url string) error {
	p.mu.Lock()
	p.seen = append(p.seen, url)
	down := p.down[url]
	p.mu.Unlock()
	if down {
		return errors.New("connection refused")
	}
	return nil
}

var (
	_ ports.OnePanelAPI = (*MockAPI)(nil)
	_ ports.AdminAPI    = (*MockAPI)(nil)
	_ ports.Storage     = (*memStorage)(nil)
)
