package services

import (
	"context"
	"log/slog"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/view"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

const (
	MessageGroupHidden  = "Group hidden"
	MessageGroupShown   = "Group visible again"
	MessageToggleFailed = "Failed to change visibility"
)

// VisibilityOutcome tells the surface what to do after a toggle. Hiding
// removes the group's node in place; showing needs a reload since the
// group's links were never fetched.
type VisibilityOutcome struct {
	Hidden     bool
	RemoveNode string
	Reload     bool
	User       *domain.User
	Err        error
}

// ToggleVisibility flips groupID in the current user's hidden groups.
// Failures are reported through notifier and in the outcome, never returned.
func ToggleVisibility(ctx context.Context, api ports.OnePanelAPI, session ports.SessionStore, notifier ports.Notifier, groupID int64) VisibilityOutcome {
	user, err := api.Me(ctx)
	if err != nil {
		slog.Error("Failed to load user for visibility toggle", "group", groupID, "error", err)
		notifier.Toast(ctx, Describe(err, MessageToggleFailed), true)
		return VisibilityOutcome{Err: err}
	}

	hidden := user.Hidden()
	nowHidden := hidden.Toggle(groupID)
	value := hidden.String()

	updated, err := api.UpdateMe(ctx, domain.UserUpdate{HiddenGroups: &value})
	if err != nil {
		slog.Error("Failed to save hidden groups", "group", groupID, "error", err)
		notifier.Toast(ctx, Describe(err, MessageToggleFailed), true)
		return VisibilityOutcome{Err: err}
	}
	if updated == nil {
		u := *user
		u.HiddenGroups = value
		updated = &u
	}
	if err := session.SetCachedUser(ctx, updated); err != nil {
		slog.Warn("Failed to cache user", "error", err)
	}

	if nowHidden {
		notifier.Toast(ctx, MessageGroupHidden, false)
		return VisibilityOutcome{Hidden: true, RemoveNode: view.GroupNodeID(groupID), User: updated}
	}
	notifier.Toast(ctx, MessageGroupShown, false)
	return VisibilityOutcome{Reload: true, User: updated}
}
