package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

func newLinksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "links",
		Aliases: []string{"link"},
		Short:   "Manage links",
	}
	cmd.AddCommand(newLinksAddCmd(app))
	cmd.AddCommand(newLinksDeleteCmd(app))
	cmd.AddCommand(newLinksMoveCmd(app))
	cmd.AddCommand(newLinksReorderCmd(app))
	return cmd
}

func newLinksAddCmd(app *App) *cobra.Command {
	var (
		groupID  int64
		iconURL  string
		iconFile string
	)
	cmd := &cobra.Command{
		Use:   "add TITLE URL",
		Short: "Add a link to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			title, target := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
			if title == "" || target == "" {
				return errors.New("title and URL are required")
			}

			if groupID == 0 {
				groups, err := app.api().SelectableGroups(ctx)
				if err != nil {
					return userError(err)
				}
				if len(groups) == 0 {
					return errors.New("create a group first")
				}
				groupID = groups[0].ID
			}

			link, err := app.api().CreateLink(ctx, domain.NewLink{Title: title, URL: target, GroupID: groupID})
			if err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, fmt.Sprintf("Link added to group #%d", groupID), false)
			if link == nil {
				return nil
			}

			switch {
			case iconFile != "":
				f, err := os.Open(iconFile)
				if err != nil {
					return err
				}
				defer f.Close()
				if _, err := app.api().UploadIcon(ctx, ports.Upload{Filename: filepath.Base(iconFile), Body: f}, link.ID); err != nil {
					return userError(err)
				}
				app.notifier.Toast(ctx, "Icon saved", false)
			case iconURL != "":
				if _, err := app.api().DownloadIcon(ctx, iconURL, link.ID); err != nil {
					return userError(err)
				}
				app.notifier.Toast(ctx, "Icon saved", false)
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&groupID, "group", "g", 0, "Group id (defaults to your first group)")
	cmd.Flags().StringVar(&iconURL, "icon-url", "", "Fetch the link icon from this URL")
	cmd.Flags().StringVar(&iconFile, "icon-file", "", "Upload this image as the link icon")
	cmd.MarkFlagsMutuallyExclusive("icon-url", "icon-file")
	return cmd
}

func newLinksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "link")
			if err != nil {
				return err
			}
			if err := app.confirm(ctx, fmt.Sprintf("Delete link #%d?", id), ""); err != nil {
				return err
			}
			if err := app.api().DeleteLink(ctx, id); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, "Link deleted", false)
			return nil
		},
	}
}

// planMove builds the drop that moves linkID to position in group to, as if
// it had been dragged there. A negative or too large position appends.
func planMove(groups []domain.Group, linkID, to int64, position int) (services.LinkDrop, error) {
	var from domain.Group
	found := false
	for _, g := range groups {
		for _, l := range g.Links {
			if l.ID == linkID {
				from, found = g, true
			}
		}
	}
	if !found {
		return services.LinkDrop{}, fmt.Errorf("no link #%d", linkID)
	}
	if to == 0 {
		to = from.ID
	}
	dest, ok := findGroup(groups, to)
	if !ok {
		return services.LinkDrop{}, fmt.Errorf("no group #%d", to)
	}

	fromOrder := without(from.LinkIDs(), linkID)
	base := fromOrder
	if dest.ID != from.ID {
		base = dest.LinkIDs()
	}
	if position < 0 || position > len(base) {
		position = len(base)
	}
	toOrder := make([]int64, 0, len(base)+1)
	toOrder = append(toOrder, base[:position]...)
	toOrder = append(toOrder, linkID)
	toOrder = append(toOrder, base[position:]...)

	drop := services.LinkDrop{
		LinkID:       linkID,
		FromGroupID:  from.ID,
		ToGroupID:    dest.ID,
		ToOrder:      toOrder,
		PreviousFrom: from.LinkIDs(),
		PreviousTo:   dest.LinkIDs(),
	}
	if drop.CrossGroup() {
		drop.FromOrder = fromOrder
	} else {
		drop.FromOrder = toOrder
	}
	return drop, nil
}

func without(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func newLinksMoveCmd(app *App) *cobra.Command {
	var (
		to       int64
		position int
	)
	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Move a link within its group or into another group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "link")
			if err != nil {
				return err
			}
			groups, err := app.groups(ctx)
			if err != nil {
				return err
			}
			drop, err := planMove(groups, id, to, position)
			if err != nil {
				return err
			}
			out := app.sync.DropLinks(ctx, app.api(), app.notifier, app.actor(ctx), drop)
			if err := syncResult(out); err != nil {
				return err
			}
			app.notifier.Toast(ctx, fmt.Sprintf("Link #%d moved", id), false)
			return nil
		},
	}
	cmd.Flags().Int64Var(&to, "to", 0, "Target group id (defaults to the link's group)")
	cmd.Flags().IntVar(&position, "position", -1, "0-based position in the target group (defaults to last)")
	return cmd
}

func newLinksReorderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder GROUP ID...",
		Short: "Set the link order of a group; links left out keep their place after the listed ones",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			groupID, err := parseID(args[0], "group")
			if err != nil {
				return err
			}
			order, err := parseIDs(args[1:], "link")
			if err != nil {
				return err
			}
			groups, err := app.groups(ctx)
			if err != nil {
				return err
			}
			group, ok := findGroup(groups, groupID)
			if !ok {
				return fmt.Errorf("no group #%d", groupID)
			}
			current := group.LinkIDs()
			for _, id := range order {
				if !contains(current, id) {
					return fmt.Errorf("link #%d is not in group #%d", id, groupID)
				}
			}

			full := completeOrder(order, current)
			drop := services.LinkDrop{
				LinkID:       full[0],
				FromGroupID:  groupID,
				ToGroupID:    groupID,
				FromOrder:    full,
				ToOrder:      full,
				PreviousFrom: current,
				PreviousTo:   current,
			}
			out := app.sync.DropLinks(ctx, app.api(), app.notifier, app.actor(ctx), drop)
			if err := syncResult(out); err != nil {
				return err
			}
			app.notifier.Toast(ctx, "Link order saved", false)
			return nil
		},
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
