package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/onepanel"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// base carries what every handler needs to act on behalf of one browser.
type base struct {
	storage      ports.Storage
	backend      BackendFunc
	tmplFunc     ExecuteTemplateFunc
	siteConfig   *services.SiteConfigCache
	toastTimeout time.Duration
	isProduction bool
}

func newBase(cfg *config.Config, deps Deps) *base {
	siteConfig := deps.SiteConfig
	if siteConfig == nil {
		siteConfig = services.NewSiteConfigCache(time.Minute, domain.SiteConfig{FaviconAPI: cfg.FaviconAPI})
	}
	return &base{
		storage:      deps.Storage,
		backend:      deps.Backend,
		tmplFunc:     deps.Templates,
		siteConfig:   siteConfig,
		toastTimeout: cfg.ToastDuration,
		isProduction: cfg.IsProduction(),
	}
}

func (b *base) session(r *http.Request) *services.Session {
	return services.NewSession(b.storage, Namespace(r.Context()))
}

func (b *base) adminSession(r *http.Request) *services.Session {
	return services.NewAdminSession(b.storage, Namespace(r.Context()))
}

// api returns the backend bound to the browser's dashboard session.
func (b *base) api(r *http.Request) (Backend, *services.Session) {
	s := b.session(r)
	return b.backend(s), s
}

func (b *base) adminAPI(r *http.Request) (Backend, *services.Session) {
	s := b.adminSession(r)
	return b.backend(s), s
}

func (b *base) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := b.tmplFunc(w, name, data); err != nil {
		slog.Error("Failed to render template", "template", name, "error", err)
	}
}

func (b *base) renderError(w http.ResponseWriter, status int, message string) {
	b.render(w, status, "error.html", map[string]any{"Status": status, "Message": message})
}

// ActionResult is the JSON answer of every UI action. The browser script
// shows Toast for DismissMS, then applies at most one of the reconciliation
// fields.
type ActionResult struct {
	Toast         string            `json:"toast,omitempty"`
	Error         bool              `json:"error"`
	DismissMS     int64             `json:"dismiss_ms"`
	State         string            `json:"state,omitempty"`
	Reload        bool              `json:"reload,omitempty"`
	Restore       map[int64][]int64 `json:"restore,omitempty"`
	RestoreGroups []int64           `json:"restore_groups,omitempty"`
	RemoveNode    string            `json:"remove_node,omitempty"`
	Redirect      string            `json:"redirect,omitempty"`
	Data          any               `json:"data,omitempty"`
}

// toastCollector is the Notifier of one UI action; the last toast wins.
type toastCollector struct {
	mu      sync.Mutex
	message string
	isError bool
}

func (c *toastCollector) Toast(ctx context.Context, message string, isError bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = message
	c.isError = isError
}

func (c *toastCollector) result() ActionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ActionResult{Toast: c.message, Error: c.isError}
}

func (b *base) writeAction(w http.ResponseWriter, status int, res ActionResult) {
	if res.Toast != "" {
		res.DismissMS = b.toastTimeout.Milliseconds()
	}
	writeJSON(w, status, res)
}

// writeFailure reports err as an error toast with the status it maps to.
func (b *base) writeFailure(w http.ResponseWriter, err error, fallback string) {
	res := ActionResult{Toast: services.Describe(err, fallback), Error: true}
	if errors.Is(err, ports.ErrUnauthorized) {
		res.Reload = true
	}
	b.writeAction(w, statusFor(err), res)
}

func (b *base) writeInvalid(w http.ResponseWriter, message string) {
	b.writeAction(w, http.StatusBadRequest, ActionResult{Toast: message, Error: true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	var apiErr *onepanel.APIError
	switch {
	case errors.Is(err, ports.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}
