package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const (
	MessageRegistrationOpened = "Registration opened"
	MessageRegistrationClosed = "Registration closed"
	MessageNothingToUpdate    = "Enter at least one value to change"
	MessageSiteInfoSaved      = "Site settings saved"
	MessageUnknownAction      = "Unknown user action"
	MessageActionDone         = "Done"
	MessagePasswordReset      = "Password reset"
	MessageUserDeleted        = "User deleted"
	MessageKeywordsSaved      = "Risk keywords saved"
	MessageCustomCodeSaved    = "Custom code saved"
	MessageIconsDeleted       = "Unused icons deleted"
	MessageNoIconsSelected    = "Select at least one icon"
	MessageAdminLoadFailed    = "Failed to load data"
)

const adminLoginPath = "/admin/login"

// AdminTabs in display order; the first one is the default.
var AdminTabs = []string{"settings", "users", "links", "icons", "custom"}

type AdminHandler struct {
	*base
}

func NewAdminHandler(b *base) *AdminHandler {
	return &AdminHandler{base: b}
}

// RequireAdmin sends browsers without an admin token to the admin login.
// Whether the token still holds is up to the backend; a 401 from it later
// leads to the same place.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := h.adminSession(r).Token(r.Context())
		if err != nil {
			slog.Error("Failed to read admin session", "error", err)
		}
		if token == "" {
			h.toLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AdminHandler) toLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		http.Redirect(w, r, adminLoginPath, http.StatusSeeOther)
		return
	}
	h.writeAction(w, http.StatusUnauthorized, ActionResult{
		Toast:    services.MessageSessionExpired,
		Error:    true,
		Redirect: adminLoginPath,
	})
}

// fail answers a failed admin action; an expired admin token goes back to
// the login page.
func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, ports.ErrUnauthorized) {
		h.toLogin(w, r)
		return
	}
	h.writeFailure(w, err, fallback)
}

func (h *AdminHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	api, session := h.adminAPI(r)
	if token, _ := session.Token(r.Context()); token != "" {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "admin_login.html", authPage{Config: h.siteConfig.Get(r.Context(), api)})
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	api, session := h.adminAPI(r)
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	page := authPage{Config: h.siteConfig.Get(r.Context(), api), Username: username}
	if username == "" || password == "" {
		page.Error = MessageFieldsRequired
		h.render(w, http.StatusBadRequest, "admin_login.html", page)
		return
	}

	if err := signIn(r.Context(), api.AdminLogin, session, username, password); err != nil {
		slog.Info("Admin login rejected", "username", username, "error", err)
		page.Error = services.Describe(err, loginMessage(err))
		h.render(w, http.StatusUnauthorized, "admin_login.html", page)
		return
	}

	slog.Info("Admin login successful", "username", username)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.adminSession(r).Clear(r.Context()); err != nil {
		slog.Error("Failed to clear admin session", "error", err)
	}
	http.Redirect(w, r, adminLoginPath, http.StatusSeeOther)
}

type adminPage struct {
	Tab        string
	Tabs       []string
	Query      string
	Config     domain.SiteConfig
	Keywords   string
	Users      []domain.User
	Links      []domain.AdminLink
	Pagination domain.Pagination
	Icons      []domain.UnusedIcon
	Custom     domain.CustomCode
	Error      string
	ToastMS    int64
}

// Console renders one tab of the admin console. Only the data of the
// selected tab is fetched.
func (h *AdminHandler) Console(w http.ResponseWriter, r *http.Request) {
	api, _ := h.adminAPI(r)
	ctx := r.Context()

	page := adminPage{
		Tab:     AdminTabs[0],
		Tabs:    AdminTabs,
		Query:   strings.TrimSpace(r.URL.Query().Get("q")),
		ToastMS: h.toastTimeout.Milliseconds(),
	}
	for _, t := range AdminTabs {
		if r.URL.Query().Get("tab") == t {
			page.Tab = t
		}
	}
	pageNum, _ := strconv.Atoi(r.URL.Query().Get("page"))

	var err error
	switch page.Tab {
	case "settings":
		var cfg *domain.SiteConfig
		if cfg, err = api.AdminConfig(ctx); err == nil {
			page.Config = *cfg
			page.Keywords, err = api.RiskKeywords(ctx)
		}
	case "users":
		page.Users, page.Pagination, err = services.NewPager(api).Users(ctx, pageNum, page.Query)
	case "links":
		page.Links, page.Pagination, err = services.NewPager(api).Links(ctx, pageNum, page.Query)
	case "icons":
		page.Icons, err = api.UnusedIcons(ctx)
	case "custom":
		var code *domain.CustomCode
		if code, err = api.CustomCode(ctx); err == nil {
			page.Custom = *code
		}
	}

	if errors.Is(err, ports.ErrUnauthorized) {
		http.Redirect(w, r, adminLoginPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		slog.Error("Failed to load admin tab", "tab", page.Tab, "error", err)
		page.Error = services.Describe(err, MessageAdminLoadFailed)
	}
	h.render(w, http.StatusOK, "admin.html", page)
}

type registrationRequest struct {
	Open bool `json:"open"`
}

func (h *AdminHandler) SetRegistration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.adminAPI(r)
	if err := api.SetRegistration(r.Context(), req.Open); err != nil {
		slog.Error("Failed to set registration", "open", req.Open, "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	h.siteConfig.Invalidate()

	message := MessageRegistrationClosed
	if req.Open {
		message = MessageRegistrationOpened
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: message})
}

type siteInfoRequest struct {
	SiteTitle  string `json:"site_title"`
	FaviconAPI string `json:"favicon_api"`
}

func (h *AdminHandler) UpdateSiteInfo(w http.ResponseWriter, r *http.Request) {
	var req siteInfoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	info := domain.SiteInfo{
		SiteTitle:  strings.TrimSpace(req.SiteTitle),
		FaviconAPI: strings.TrimSpace(req.FaviconAPI),
	}
	if info.Empty() {
		h.writeInvalid(w, MessageNothingToUpdate)
		return
	}

	api, _ := h.adminAPI(r)
	if err := api.UpdateSiteInfo(r.Context(), info); err != nil {
		slog.Error("Failed to update site info", "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	h.siteConfig.Invalidate()
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageSiteInfoSaved})
}

type userActionRequest struct {
	Action domain.UserAction `json:"action"`
}

func (h *AdminHandler) UserAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	var req userActionRequest
	if err := decodeJSON(w, r, &req); err != nil || !req.Action.Valid() {
		h.writeInvalid(w, MessageUnknownAction)
		return
	}

	api, _ := h.adminAPI(r)
	msg, err := api.UserAction(r.Context(), id, req.Action)
	if err != nil {
		slog.Error("Failed to apply user action", "user", id, "action", req.Action, "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	if msg == "" {
		msg = MessageActionDone
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: msg, Reload: true})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// ResetPassword only enforces the length rule; the backend accepts any
// password of that length from an admin.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	if check := services.CheckPassword(req.Password, req.Password); !check.Length {
		h.writeInvalid(w, fmt.Sprintf("Password must be at least %d characters", services.MinPasswordLength))
		return
	}

	api, _ := h.adminAPI(r)
	if err := api.ResetPassword(r.Context(), id, req.Password); err != nil {
		slog.Error("Failed to reset password", "user", id, "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessagePasswordReset})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.adminAPI(r)
	if err := api.DeleteUser(r.Context(), id); err != nil {
		slog.Error("Failed to delete user", "user", id, "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageUserDeleted, RemoveNode: fmt.Sprintf("user-%d", id)})
}

type keywordsRequest struct {
	Keywords string `json:"keywords"`
}

func (h *AdminHandler) SetRiskKeywords(w http.ResponseWriter, r *http.Request) {
	var req keywordsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.adminAPI(r)
	if err := api.SetRiskKeywords(r.Context(), req.Keywords); err != nil {
		slog.Error("Failed to save risk keywords", "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageKeywordsSaved})
}

func (h *AdminHandler) SaveCustomCode(w http.ResponseWriter, r *http.Request) {
	var code domain.CustomCode
	if err := decodeJSON(w, r, &code); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.adminAPI(r)
	if err := api.SaveCustomCode(r.Context(), code); err != nil {
		slog.Error("Failed to save custom code", "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	h.siteConfig.Invalidate()
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageCustomCodeSaved})
}

type deleteIconsRequest struct {
	Filenames []string `json:"filenames"`
}

func (h *AdminHandler) DeleteIcons(w http.ResponseWriter, r *http.Request) {
	var req deleteIconsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	if len(req.Filenames) == 0 {
		h.writeInvalid(w, MessageNoIconsSelected)
		return
	}

	api, _ := h.adminAPI(r)
	msg, err := api.DeleteUnusedIcons(r.Context(), req.Filenames)
	if err != nil {
		slog.Error("Failed to delete unused icons", "count", len(req.Filenames), "error", err)
		h.fail(w, r, err, MessageActionFailed)
		return
	}
	if msg == "" {
		msg = MessageIconsDeleted
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: msg, Reload: true})
}
