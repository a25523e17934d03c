package services

import (
	"context"
	"errors"
	"testing"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
)

func TestToggleVisibility(t *testing.T) {
	ctx := context.Background()
	api := &MockAPI{user: &domain.User{ID: 2, HiddenGroups: "4"}}
	session := NewSession(newMemStorage(), "viewer")
	n := &recordingNotifier{}

	out := ToggleVisibility(ctx, api, session, n, domain.PublicGroupID)
	if !out.Hidden || out.RemoveNode != "group-1" || out.Reload {
		t.Fatalf("hide should remove the node in place, got %+v", out)
	}
	if got := *api.updates[0].HiddenGroups; got != "4,1" {
		t.Errorf("persisted hidden groups: got %q", got)
	}
	if api.updates[0].CustomBG != nil {
		t.Error("partial update must only carry hidden_groups")
	}
	cached, _ := session.CachedUser(ctx)
	if cached == nil || cached.HiddenGroups != "4,1" {
		t.Errorf("cached user not refreshed: %+v", cached)
	}
	if got := n.last(); got.message != MessageGroupHidden || got.isError {
		t.Errorf("unexpected toast %+v", got)
	}

	out = ToggleVisibility(ctx, api, session, n, domain.PublicGroupID)
	if out.Hidden || out.RemoveNode != "" || !out.Reload {
		t.Fatalf("unhide should ask for a reload, got %+v", out)
	}
	if api.user.HiddenGroups != "4" {
		t.Errorf("unexpected hidden groups after unhide: %q", api.user.HiddenGroups)
	}
}

func TestToggleVisibilityFailures(t *testing.T) {
	tests := []struct {
		name string
		api  *MockAPI
	}{
		{name: "me fails", api: &MockAPI{meErr: errors.New("timeout")}},
		{name: "update fails", api: &MockAPI{user: &domain.User{ID: 2}, updateErr: &detailErr{detail: "user disabled"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			out := ToggleVisibility(context.Background(), tt.api, NewSession(newMemStorage(), "v"), n, 1)
			if out.Err == nil || out.Reload || out.RemoveNode != "" {
				t.Errorf("failure must leave the surface alone, got %+v", out)
			}
			if !n.last().isError {
				t.Error("failure must be notified")
			}
		})
	}
}
