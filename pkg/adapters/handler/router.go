package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

type ExecuteTemplateFunc func(wr io.Writer, name string, data any) error

// Backend is the OnePanel API as one viewer sees it.
type Backend interface {
	ports.OnePanelAPI
	ports.AdminAPI
}

// BackendFunc binds the backend to a viewer's session store.
type BackendFunc func(session ports.SessionStore) Backend

// Deps is everything the router needs from main.
type Deps struct {
	Storage    ports.Storage
	Backend    BackendFunc
	Templates  ExecuteTemplateFunc
	Assets     http.FileSystem
	Renderer   *services.Renderer
	OrderSync  *services.OrderSync
	Health     *services.HealthChecker
	SiteConfig *services.SiteConfigCache
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	base := newBase(cfg, deps)

	mw := NewMiddleware(cfg)
	dash := NewDashboardHandler(base, deps.Renderer, deps.OrderSync)
	auth := NewAuthHandler(base)
	admin := NewAdminHandler(base)
	var board *services.HealthBoard
	if deps.Health != nil {
		board = deps.Health.Board()
	}
	events := NewEventsHandler(board, cfg.BaseURL)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	if deps.Assets != nil {
		r.Mount("/static", http.StripPrefix("/static", http.FileServer(deps.Assets)))
	}

	r.Group(func(r chi.Router) {
		r.Use(mw.Session)

		// The websocket must not sit behind the timeout middleware.
		r.Get("/ui/events", events.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/", dash.Index)
			r.Get("/search", dash.Search)

			r.Get("/login", auth.LoginPage)
			r.Get("/register", auth.RegisterPage)
			r.Get("/logout", auth.Logout)
			r.Get("/init", auth.InitPage)
			r.Post("/init", auth.Init)
			r.Get("/admin/login", admin.LoginPage)
			r.Get("/admin/logout", admin.Logout)

			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(20, time.Minute))
				r.Post("/login", auth.Login)
				r.Post("/register", auth.Register)
				r.Post("/admin/login", admin.Login)
			})

			r.Route("/ui", func(r chi.Router) {
				r.Get("/links", dash.Fragment)
				r.Get("/groups/selectable", dash.SelectableGroups)
				r.Post("/groups", dash.CreateGroup)
				r.Post("/groups/reorder", dash.ReorderGroups)
				r.Put("/groups/{id}", dash.RenameGroup)
				r.Delete("/groups/{id}", dash.DeleteGroup)
				r.Post("/groups/{id}/visibility", dash.ToggleVisibility)
				r.Post("/links", dash.CreateLink)
				r.Post("/links/reorder", dash.ReorderLinks)
				r.Post("/links/upload-icon", dash.UploadIcon)
				r.Post("/links/download-icon", dash.DownloadIcon)
				r.Delete("/links/{id}", dash.DeleteLink)
				r.Post("/background", dash.UploadBackground)
			})

			r.Group(func(r chi.Router) {
				r.Use(admin.RequireAdmin)
				r.Get("/admin", admin.Console)
				r.Post("/admin/config/registration", admin.SetRegistration)
				r.Post("/admin/config/site-info", admin.UpdateSiteInfo)
				r.Post("/admin/config/risk-keywords", admin.SetRiskKeywords)
				r.Post("/admin/config/custom-code", admin.SaveCustomCode)
				r.Post("/admin/users/{id}/action", admin.UserAction)
				r.Post("/admin/users/{id}/reset-password", admin.ResetPassword)
				r.Delete("/admin/users/{id}", admin.DeleteUser)
				r.Delete("/admin/icons", admin.DeleteIcons)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return r
}
