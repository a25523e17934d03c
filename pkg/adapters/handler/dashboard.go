package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/view"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const (
	MessageNameRequired    = "Name cannot be empty"
	MessageLinkRequired    = "Title and URL are required"
	MessageGroupRequired   = "Choose a group"
	MessageFileRequired    = "Choose a file"
	MessageGroupCreated    = "Group created"
	MessageGroupRenamed    = "Group renamed"
	MessageGroupDeleted    = "Group deleted"
	MessageLinkAdded       = "Link added"
	MessageLinkDeleted     = "Link deleted"
	MessageIconSaved       = "Icon saved"
	MessageBackgroundSaved = "Background saved"
	MessageActionFailed    = "Request failed"
	MessageBadRequest      = "Invalid request"
)

const maxUploadSize = 10 << 20

type DashboardHandler struct {
	*base
	renderer  *services.Renderer
	orderSync *services.OrderSync
}

func NewDashboardHandler(b *base, renderer *services.Renderer, orderSync *services.OrderSync) *DashboardHandler {
	return &DashboardHandler{base: b, renderer: renderer, orderSync: orderSync}
}

type dashboardPage struct {
	Config    domain.SiteConfig
	Dashboard view.Dashboard
	Engines   []services.SearchEngine
	ToastMS   int64
}

// Index renders the dashboard, or sends the browser to setup while the
// backend has no admin yet.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	api, session := h.api(r)

	status, err := api.SystemStatus(r.Context())
	if err != nil {
		slog.Error("Failed to load system status", "error", err)
	} else if !status.IsInitialized {
		http.Redirect(w, r, "/init", http.StatusSeeOther)
		return
	}

	page := dashboardPage{
		Config:    h.siteConfig.Get(r.Context(), api),
		Dashboard: h.renderer.Render(r.Context(), api, session, session.Namespace()),
		Engines:   services.SearchEngines,
		ToastMS:   h.toastTimeout.Milliseconds(),
	}
	h.render(w, http.StatusOK, "index.html", page)
}

// Fragment re-renders only the groups, for the script's reload path.
func (h *DashboardHandler) Fragment(w http.ResponseWriter, r *http.Request) {
	api, session := h.api(r)
	dash := h.renderer.Render(r.Context(), api, session, session.Namespace())
	h.render(w, http.StatusOK, "links.html", dash)
}

func (h *DashboardHandler) Search(w http.ResponseWriter, r *http.Request) {
	target, err := services.SearchURL(r.URL.Query().Get("engine"), r.URL.Query().Get("q"))
	if err != nil {
		h.renderError(w, http.StatusBadRequest, err.Error())
		return
	}
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type groupOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h *DashboardHandler) SelectableGroups(w http.ResponseWriter, r *http.Request) {
	api, _ := h.api(r)
	groups, err := api.SelectableGroups(r.Context())
	if err != nil {
		slog.Error("Failed to load selectable groups", "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}

	options := make([]groupOption, 0, len(groups))
	for _, g := range groups {
		options = append(options, groupOption{ID: g.ID, Name: g.Name})
	}
	h.writeAction(w, http.StatusOK, ActionResult{Data: options})
}

type groupNameRequest struct {
	Name string `json:"name"`
}

func (h *DashboardHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.writeInvalid(w, MessageNameRequired)
		return
	}

	api, _ := h.api(r)
	group, err := api.CreateGroup(r.Context(), name)
	if err != nil {
		slog.Error("Failed to create group", "name", name, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusCreated, ActionResult{Toast: MessageGroupCreated, Reload: true, Data: group})
}

func (h *DashboardHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	var req groupNameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.writeInvalid(w, MessageNameRequired)
		return
	}

	api, _ := h.api(r)
	if err := api.RenameGroup(r.Context(), id, name); err != nil {
		slog.Error("Failed to rename group", "group", id, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageGroupRenamed, Data: groupOption{ID: id, Name: name}})
}

func (h *DashboardHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.api(r)
	if err := api.DeleteGroup(r.Context(), id); err != nil {
		slog.Error("Failed to delete group", "group", id, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageGroupDeleted, RemoveNode: view.GroupNodeID(id)})
}

type groupOrderRequest struct {
	Order    []int64 `json:"order"`
	Previous []int64 `json:"previous"`
}

func (h *DashboardHandler) ReorderGroups(w http.ResponseWriter, r *http.Request) {
	var req groupOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, session := h.api(r)
	notifier := &toastCollector{}
	actor := services.ResolveActor(r.Context(), api, session)
	out := h.orderSync.DropGroups(r.Context(), api, notifier, actor, req.Order, req.Previous)
	h.writeAction(w, http.StatusOK, syncResult(notifier, out))
}

func (h *DashboardHandler) ReorderLinks(w http.ResponseWriter, r *http.Request) {
	var drop services.LinkDrop
	if err := decodeJSON(w, r, &drop); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, session := h.api(r)
	notifier := &toastCollector{}
	actor := services.ResolveActor(r.Context(), api, session)
	out := h.orderSync.DropLinks(r.Context(), api, notifier, actor, drop)
	h.writeAction(w, http.StatusOK, syncResult(notifier, out))
}

func syncResult(notifier *toastCollector, out services.SyncOutcome) ActionResult {
	res := notifier.result()
	res.State = out.State.String()
	res.Reload = out.Reload
	res.Restore = out.Restore
	res.RestoreGroups = out.RestoreGroups
	return res
}

func (h *DashboardHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, session := h.api(r)
	notifier := &toastCollector{}
	out := services.ToggleVisibility(r.Context(), api, session, notifier, id)

	res := notifier.result()
	res.RemoveNode = out.RemoveNode
	res.Reload = out.Reload || errors.Is(out.Err, ports.ErrUnauthorized)
	status := http.StatusOK
	if out.Err != nil {
		status = statusFor(out.Err)
	}
	h.writeAction(w, status, res)
}

type createLinkRequest struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	GroupID int64  `json:"group_id"`
	Icon    string `json:"icon"`
}

func (h *DashboardHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeInvalid(w, MessageBadRequest)
		return
	}
	link := domain.NewLink{
		Title:   strings.TrimSpace(req.Title),
		URL:     strings.TrimSpace(req.URL),
		GroupID: req.GroupID,
		Icon:    strings.TrimSpace(req.Icon),
	}
	if link.Title == "" || link.URL == "" {
		h.writeInvalid(w, MessageLinkRequired)
		return
	}
	if link.GroupID <= 0 {
		h.writeInvalid(w, MessageGroupRequired)
		return
	}

	api, _ := h.api(r)
	created, err := api.CreateLink(r.Context(), link)
	if err != nil {
		slog.Error("Failed to create link", "group", link.GroupID, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusCreated, ActionResult{Toast: MessageLinkAdded, Reload: true, Data: created})
}

func (h *DashboardHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.api(r)
	if err := api.DeleteLink(r.Context(), id); err != nil {
		slog.Error("Failed to delete link", "link", id, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageLinkDeleted, RemoveNode: view.LinkNodeID(id)})
}

type iconResult struct {
	IconURL string `json:"icon_url"`
}

func (h *DashboardHandler) UploadIcon(w http.ResponseWriter, r *http.Request) {
	upload, closeFn, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer closeFn()
	linkID, _ := strconv.ParseInt(r.FormValue("link_id"), 10, 64)

	api, _ := h.api(r)
	iconURL, err := api.UploadIcon(r.Context(), upload, linkID)
	if err != nil {
		slog.Error("Failed to upload icon", "link", linkID, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageIconSaved, Data: iconResult{IconURL: iconURL}})
}

type downloadIconRequest struct {
	URL    string `json:"url"`
	LinkID int64  `json:"link_id"`
}

func (h *DashboardHandler) DownloadIcon(w http.ResponseWriter, r *http.Request) {
	var req downloadIconRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		h.writeInvalid(w, MessageBadRequest)
		return
	}

	api, _ := h.api(r)
	iconURL, err := api.DownloadIcon(r.Context(), strings.TrimSpace(req.URL), req.LinkID)
	if err != nil {
		slog.Error("Failed to download icon", "link", req.LinkID, "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageIconSaved, Data: iconResult{IconURL: iconURL}})
}

type backgroundResult struct {
	URL string `json:"url"`
}

func (h *DashboardHandler) UploadBackground(w http.ResponseWriter, r *http.Request) {
	upload, closeFn, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer closeFn()

	api, session := h.api(r)
	bgURL, err := api.UploadBackground(r.Context(), upload)
	if err != nil {
		slog.Error("Failed to upload background", "error", err)
		h.writeFailure(w, err, MessageActionFailed)
		return
	}
	if user, err := session.CachedUser(r.Context()); err == nil && user != nil {
		user.CustomBG = &bgURL
		if err := session.SetCachedUser(r.Context(), user); err != nil {
			slog.Warn("Failed to cache user", "error", err)
		}
	}
	h.writeAction(w, http.StatusOK, ActionResult{Toast: MessageBackgroundSaved, Data: backgroundResult{URL: bgURL}})
}

// formFile reads the multipart "file" field. On failure it has already
// answered the request.
func (h *DashboardHandler) formFile(w http.ResponseWriter, r *http.Request) (ports.Upload, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeInvalid(w, MessageFileRequired)
		return ports.Upload{}, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeInvalid(w, MessageFileRequired)
		return ports.Upload{}, nil, false
	}
	return ports.Upload{Filename: header.Filename, Body: file}, func() { file.Close() }, true
}
