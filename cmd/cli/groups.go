package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/terminal"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
)

// errReported ends a command whose failure the notifier already printed.
var errReported = errors.New("reported")

func (a *App) groups(ctx context.Context) ([]domain.Group, error) {
	groups, err := a.api().Groups(ctx)
	if err != nil {
		return nil, userError(err)
	}
	return groups, nil
}

func findGroup(groups []domain.Group, id int64) (domain.Group, bool) {
	for _, g := range groups {
		if g.ID == id {
			return g, true
		}
	}
	return domain.Group{}, false
}

func syncResult(out services.SyncOutcome) error {
	if out.State != services.SyncRolledBack {
		return nil
	}
	if out.Reload {
		return fmt.Errorf("order not saved, run `dashboard` to see the current state")
	}
	return errReported
}

func newGroupsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"group"},
		Short:   "Manage link groups",
	}
	cmd.AddCommand(newGroupsListCmd(app))
	cmd.AddCommand(newGroupsCreateCmd(app))
	cmd.AddCommand(newGroupsRenameCmd(app))
	cmd.AddCommand(newGroupsDeleteCmd(app))
	cmd.AddCommand(newGroupsReorderCmd(app))
	cmd.AddCommand(newGroupsToggleCmd(app))
	return cmd
}

func newGroupsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your groups, hidden ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			groups, err := app.groups(ctx)
			if err != nil {
				return err
			}
			var hidden domain.HiddenGroups
			if user, err := app.api().Me(ctx); err == nil {
				hidden = user.Hidden()
			}

			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				state := "visible"
				if hidden.Contains(g.ID) {
					state = "hidden"
				}
				name := g.Name
				if g.IsPublic() {
					name += " (public)"
				}
				rows = append(rows, []string{strconv.FormatInt(g.ID, 10), name, strconv.Itoa(len(g.Links)), state})
			}
			fmt.Fprintln(app.out, terminal.Table([]string{"ID", "Name", "Links", "State"}, rows, func(row int) bool {
				return hidden.Contains(groups[row].ID)
			}))
			return nil
		},
	}
}

func newGroupsCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := strings.TrimSpace(args[0])
			if name == "" {
				return errors.New("name cannot be empty")
			}
			group, err := app.api().CreateGroup(ctx, name)
			if err != nil {
				return userError(err)
			}
			msg := "Group created"
			if group != nil {
				msg = fmt.Sprintf("Group created (#%d)", group.ID)
			}
			app.notifier.Toast(ctx, msg, false)
			return nil
		},
	}
}

func newGroupsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID [NAME]",
		Short: "Rename a group; prompts for the name when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "group")
			if err != nil {
				return err
			}

			var name string
			if len(args) == 2 {
				name = strings.TrimSpace(args[1])
			} else {
				groups, err := app.groups(ctx)
				if err != nil {
					return err
				}
				current, ok := findGroup(groups, id)
				if !ok {
					return fmt.Errorf("no group #%d", id)
				}
				v, ok, err := app.dialog.Prompt(ctx, "New name", current.Name)
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
				name = v
			}
			if name == "" {
				return errors.New("name cannot be empty")
			}

			if err := app.api().RenameGroup(ctx, id, name); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, "Group renamed", false)
			return nil
		},
	}
}

func newGroupsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a group and all of its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			if err := app.confirm(ctx, fmt.Sprintf("Delete group #%d?", id), "All links in this group will be deleted too."); err != nil {
				return err
			}
			if err := app.api().DeleteGroup(ctx, id); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, "Group deleted", false)
			return nil
		},
	}
}

func newGroupsReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder ID...",
		Short: "Set the group order; groups left out keep their place after the listed ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			order, err := parseIDs(args, "group")
			if err != nil {
				return err
			}
			groups, err := app.groups(ctx)
			if err != nil {
				return err
			}

			previous := make([]int64, 0, len(groups))
			for _, g := range groups {
				previous = append(previous, g.ID)
			}
			for _, id := range order {
				if _, ok := findGroup(groups, id); !ok {
					return fmt.Errorf("no group #%d", id)
				}
			}

			out := app.sync.DropGroups(ctx, app.api(), app.notifier, app.actor(ctx), completeOrder(order, previous), previous)
			return syncResult(out)
		},
	}
}

// completeOrder appends the ids of rest missing from order, keeping their
// relative order. Duplicates in order are kept so they can be rejected.
func completeOrder(order, rest []int64) []int64 {
	seen := make(map[int64]bool, len(order))
	full := append([]int64(nil), order...)
	for _, id := range order {
		seen[id] = true
	}
	for _, id := range rest {
		if !seen[id] {
			full = append(full, id)
		}
	}
	return full
}

func newGroupsToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Hide or show a group on your dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			out := services.ToggleVisibility(ctx, app.api(), app.session, app.notifier, id)
			if out.Err != nil {
				return errReported
			}
			return nil
		},
	}
}
