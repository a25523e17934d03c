package ports

import (
	"context"
	"io"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
)

// Storage is a persisted, namespaced key/value store (the local storage of one
// browser or of the CLI).
type Storage interface {
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Purger is storage that can drop every namespace untouched since before.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// SessionStore holds the bearer token and the last-known user of one viewer
type SessionStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	CachedUser(ctx context.Context) (*domain.User, error)
	SetCachedUser(ctx context.Context, user *domain.User) error
}

// Upload is a file sent as multipart form data
type Upload struct {
	Filename string
	Body     io.Reader
}

// OnePanelAPI is the REST backend as seen from the front end
type OnePanelAPI interface {
	// Auth & system
	Login(ctx context.Context, username, password string) (*domain.Token, error)
	AdminLogin(ctx context.Context, username, password string) (*domain.Token, error)
	Register(ctx context.Context, username, password string) error
	SystemStatus(ctx context.Context) (*domain.SystemStatus, error)
	InitSystem(ctx context.Context, username, password string) error
	SiteConfig(ctx context.Context) (*domain.SiteConfig, error)

	// Current user
	Me(ctx context.Context) (*domain.User, error)
	UpdateMe(ctx context.Context, update domain.UserUpdate) (*domain.User, error)
	UploadBackground(ctx context.Context, file Upload) (string, error)

	// Groups
	Groups(ctx context.Context) ([]domain.Group, error)
	PublicGroups(ctx context.Context) ([]domain.Group, error)
	SelectableGroups(ctx context.Context) ([]domain.Group, error)
	CreateGroup(ctx context.Context, name string) (*domain.Group, error)
	RenameGroup(ctx context.Context, id int64, name string) error
	DeleteGroup(ctx context.Context, id int64) error
	ReorderGroups(ctx context.Context, groupIDs []int64) error

	// Links
	CreateLink(ctx context.Context, link domain.NewLink) (*domain.Link, error)
	DeleteLink(ctx context.Context, id int64) error
	ReorderLinks(ctx context.Context, order domain.LinkOrder) error
	UploadIcon(ctx context.Context, file Upload, linkID int64) (string, error)
	DownloadIcon(ctx context.Context, iconURL string, linkID int64) (string, error)
}

// AdminAPI is the admin console part of the backend
type AdminAPI interface {
	AdminConfig(ctx context.Context) (*domain.SiteConfig, error)
	SetRegistration(ctx context.Context, open bool) error
	UpdateSiteInfo(ctx context.Context, info domain.SiteInfo) error
	ListUsers(ctx context.Context, page, size int, query string) (*domain.UserPage, error)
	UserAction(ctx context.Context, userID int64, action domain.UserAction) (string, error)
	ResetPassword(ctx context.Context, userID int64, password string) error
	DeleteUser(ctx context.Context, userID int64) error
	ListLinks(ctx context.Context, page, size int, query string) (*domain.LinkPage, error)
	RiskKeywords(ctx context.Context) (string, error)
	SetRiskKeywords(ctx context.Context, keywords string) error
	UnusedIcons(ctx context.Context) ([]domain.UnusedIcon, error)
	DeleteUnusedIcons(ctx context.Context, filenames []string) (string, error)
	CustomCode(ctx context.Context) (*domain.CustomCode, error)
	SaveCustomCode(ctx context.Context, code domain.CustomCode) error
}

// Notifier shows transient notifications
type Notifier interface {
	Toast(ctx context.Context, message string, isError bool)
}

// Dialog asks the user for a decision. Prompt reports ok=false on cancel.
type Dialog interface {
	Confirm(ctx context.Context, title, message string, danger bool) (bool, error)
	Prompt(ctx context.Context, title, defaultValue string) (string, bool, error)
}

// Prober checks whether a URL answers at all
type Prober interface {
	Probe(ctx context.Context, url string) error
}
