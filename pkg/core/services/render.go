package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/view"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const (
	MessageEmpty     = "Nothing here yet"
	MessageLoadError = "Failed to load data"
)

// Renderer turns the viewer's groups into a dashboard view model.
type Renderer struct {
	siteConfig *SiteConfigCache
	health     *HealthChecker
}

// NewRenderer builds a renderer; health may be nil to skip link checks.
func NewRenderer(siteConfig *SiteConfigCache, health *HealthChecker) *Renderer {
	return &Renderer{siteConfig: siteConfig, health: health}
}

// Render never fails: fetch errors and malformed payloads become the error
// state. Health checks for every rendered link are started but not awaited.
func (r *Renderer) Render(ctx context.Context, api ports.OnePanelAPI, session ports.SessionStore, scope string) view.Dashboard {
	viewer, user := r.viewer(ctx, api, session)
	dash := view.Dashboard{Viewer: viewer, Sortable: viewer.Authenticated}

	var (
		groups []domain.Group
		err    error
	)
	if viewer.Authenticated {
		groups, err = api.Groups(ctx)
		if errors.Is(err, ports.ErrUnauthorized) {
			// token died between the two calls
			viewer = guestViewer()
			dash = view.Dashboard{Viewer: viewer}
			user = nil
			groups, err = api.PublicGroups(ctx)
		}
	} else {
		groups, err = api.PublicGroups(ctx)
	}
	if err != nil {
		slog.Error("Failed to render links", "scope", scope, "error", err)
		dash.State = view.StateError
		dash.Message = MessageLoadError
		r.register(scope, nil)
		return dash
	}

	if user != nil && !user.IsAdmin {
		hidden := user.Hidden()
		visible := groups[:0:0]
		for _, g := range groups {
			if !hidden.Contains(g.ID) {
				visible = append(visible, g)
			}
		}
		groups = visible
	}

	if len(groups) == 0 {
		dash.State = view.StateEmpty
		dash.Message = MessageEmpty
		r.register(scope, nil)
		return dash
	}

	favicons := NewFaviconResolver(r.faviconTemplate(ctx, api))
	dash.State = view.StateGroups
	dash.Groups = make([]view.Group, 0, len(groups))
	for _, g := range groups {
		dash.Groups = append(dash.Groups, buildGroup(g, viewer, favicons))
	}

	r.register(scope, &dash)
	return dash
}

func (r *Renderer) viewer(ctx context.Context, api ports.OnePanelAPI, session ports.SessionStore) (view.Viewer, *domain.User) {
	token, err := session.Token(ctx)
	if err != nil {
		slog.Warn("Failed to read session token", "error", err)
	}
	if token == "" {
		return guestViewer(), nil
	}

	user, err := api.Me(ctx)
	if errors.Is(err, ports.ErrUnauthorized) {
		slog.Info("Token expired, continuing as guest")
		return guestViewer(), nil
	}
	if err != nil {
		slog.Error("Failed to fetch current user", "error", err)
		return view.Viewer{Authenticated: true, Background: config.DefaultBackground}, nil
	}
	if err := session.SetCachedUser(ctx, user); err != nil {
		slog.Warn("Failed to cache user", "error", err)
	}

	return view.Viewer{
		Authenticated: true,
		IsAdmin:       user.IsAdmin,
		UserID:        user.ID,
		Username:      user.Username,
		Background:    user.Background(config.DefaultBackground),
		PublicHidden:  user.Hidden().Contains(domain.PublicGroupID),
	}, user
}

func guestViewer() view.Viewer {
	return view.Viewer{Background: config.DefaultBackground}
}

func buildGroup(g domain.Group, viewer view.Viewer, favicons FaviconResolver) view.Group {
	isPublic := g.IsPublic()
	readonly := isPublic && !viewer.IsAdmin
	editable := viewer.Authenticated && !readonly

	out := view.Group{
		ID:          g.ID,
		NodeID:      view.GroupNodeID(g.ID),
		Name:        g.Name,
		IsPublic:    isPublic,
		Readonly:    readonly,
		CanHide:     isPublic && viewer.Authenticated && !viewer.IsAdmin,
		CanDelete:   editable && !isPublic,
		CanDrag:     editable,
		CanRename:   editable,
		ShowAddHint: editable && len(g.Links) == 0,
		Links:       make([]view.Link, 0, len(g.Links)),
	}
	for _, l := range g.Links {
		out.Links = append(out.Links, view.Link{
			ID:           l.ID,
			NodeID:       view.LinkNodeID(l.ID),
			GroupID:      g.ID,
			Title:        l.Title,
			URL:          l.URL,
			Icon:         favicons.Icon(l),
			FallbackIcon: config.DefaultLinkIcon,
			Deletable:    editable,
		})
	}
	return out
}

func (r *Renderer) faviconTemplate(ctx context.Context, api ports.OnePanelAPI) string {
	if r.siteConfig == nil {
		return config.DefaultFaviconAPI
	}
	return r.siteConfig.Get(ctx, api).FaviconAPI
}

// register tells the health board which nodes the scope now shows and kicks
// off their checks.
func (r *Renderer) register(scope string, dash *view.Dashboard) {
	if r.health == nil {
		return
	}
	var (
		ids   []string
		links []view.Link
	)
	if dash != nil {
		for _, g := range dash.Groups {
			for _, l := range g.Links {
				ids = append(ids, l.NodeID)
				links = append(links, l)
			}
		}
	}
	if board := r.health.Board(); board != nil {
		board.Register(scope, ids)
	}
	if len(links) > 0 {
		r.health.Start(context.Background(), scope, links)
	}
}
