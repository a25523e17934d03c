package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/onepanel"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const (
	MessageBadCredentials  = "Invalid username or password"
	MessageAccountBanned   = "This account is disabled, contact an administrator"
	MessageUnreachable     = "Cannot reach the server, try again later"
	MessageRegisterClosed  = "Registration is currently closed"
	MessageRegisterFailed  = "Registration failed, try again later"
	MessageAutoLoginFailed = "Account created, please log in"
	MessageInitFailed      = "Initialization failed"
	MessageFieldsRequired  = "Username and password are required"
)

type AuthHandler struct {
	*base
}

func NewAuthHandler(b *base) *AuthHandler {
	return &AuthHandler{base: b}
}

type authPage struct {
	Config   domain.SiteConfig
	Username string
	Error    string
	Notice   string
	Check    *services.PasswordCheck
}

func (h *AuthHandler) page(r *http.Request, api ports.OnePanelAPI) authPage {
	return authPage{Config: h.siteConfig.Get(r.Context(), api), Notice: r.URL.Query().Get("notice")}
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	api, session := h.api(r)
	if token, _ := session.Token(r.Context()); token != "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login.html", h.page(r, api))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	api, session := h.api(r)
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	page := h.page(r, api)
	page.Username = username
	if username == "" || password == "" {
		page.Error = MessageFieldsRequired
		h.render(w, http.StatusBadRequest, "login.html", page)
		return
	}

	if err := signIn(r.Context(), api.Login, session, username, password); err != nil {
		slog.Info("Login rejected", "username", username, "error", err)
		page.Error = loginMessage(err)
		h.render(w, http.StatusUnauthorized, "login.html", page)
		return
	}

	slog.Info("Login successful", "username", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	api, _ := h.api(r)
	page := h.page(r, api)
	if !page.Config.RegistrationOpen {
		page.Error = MessageRegisterClosed
	}
	h.render(w, http.StatusOK, "register.html", page)
}

// Register creates the account and signs straight in, as the dashboard
// would otherwise greet a new user with a login form.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	api, session := h.api(r)
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	page := h.page(r, api)
	page.Username = username
	if username == "" {
		page.Error = MessageFieldsRequired
		h.render(w, http.StatusBadRequest, "register.html", page)
		return
	}
	check := services.CheckPassword(password, r.FormValue("confirm"))
	if !check.OK() {
		page.Error = check.Problem()
		page.Check = &check
		h.render(w, http.StatusBadRequest, "register.html", page)
		return
	}

	if err := api.Register(r.Context(), username, password); err != nil {
		slog.Info("Registration rejected", "username", username, "error", err)
		page.Error = registerMessage(err)
		h.render(w, statusFor(err), "register.html", page)
		return
	}

	if err := signIn(r.Context(), api.Login, session, username, password); err != nil {
		slog.Warn("Auto login after registration failed", "username", username, "error", err)
		http.Redirect(w, r, "/login?notice="+url.QueryEscape(MessageAutoLoginFailed), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).Clear(r.Context()); err != nil {
		slog.Error("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) InitPage(w http.ResponseWriter, r *http.Request) {
	api, _ := h.api(r)
	if status, err := api.SystemStatus(r.Context()); err == nil && status.IsInitialized {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "init.html", h.page(r, api))
}

// Init creates the first admin, then signs in as that admin.
func (h *AuthHandler) Init(w http.ResponseWriter, r *http.Request) {
	api, session := h.api(r)
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	page := h.page(r, api)
	page.Username = username
	if username == "" || password == "" {
		page.Error = MessageFieldsRequired
		h.render(w, http.StatusBadRequest, "init.html", page)
		return
	}

	if err := api.InitSystem(r.Context(), username, password); err != nil {
		slog.Error("Failed to initialize system", "error", err)
		page.Error = services.Describe(err, MessageInitFailed)
		h.render(w, statusFor(err), "init.html", page)
		return
	}

	if err := signIn(r.Context(), api.Login, session, username, password); err != nil {
		slog.Warn("Auto login after init failed", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type loginFunc func(ctx context.Context, username, password string) (*domain.Token, error)

// signIn replaces whatever token the session held with a fresh one.
func signIn(ctx context.Context, login loginFunc, session ports.SessionStore, username, password string) error {
	token, err := login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := session.Clear(ctx); err != nil {
		return err
	}
	return session.SetToken(ctx, token.AccessToken)
}

func loginMessage(err error) string {
	var apiErr *onepanel.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Forbidden():
		return MessageAccountBanned
	case errors.As(err, &apiErr):
		return MessageBadCredentials
	default:
		return MessageUnreachable
	}
}

func registerMessage(err error) string {
	var apiErr *onepanel.APIError
	if errors.As(err, &apiErr) && apiErr.Forbidden() {
		return MessageRegisterClosed
	}
	return services.Describe(err, MessageRegisterFailed)
}
