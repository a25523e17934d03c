package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/terminal"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
)

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the OnePanel instance",
		Long:  "Admin commands use their own session; sign in with `admin login` first.",
	}
	cmd.AddCommand(newAdminLoginCmd(app))
	cmd.AddCommand(newAdminLogoutCmd(app))
	cmd.AddCommand(newAdminUsersCmd(app))
	cmd.AddCommand(newAdminUserActionCmd(app))
	cmd.AddCommand(newAdminResetPasswordCmd(app))
	cmd.AddCommand(newAdminDeleteUserCmd(app))
	cmd.AddCommand(newAdminLinksCmd(app))
	cmd.AddCommand(newAdminConfigCmd(app))
	cmd.AddCommand(newAdminCustomCodeCmd(app))
	cmd.AddCommand(newAdminIconsCmd(app))
	return cmd
}

func newAdminLoginCmd(app *App) *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.ask(ctx, app); err != nil {
				return err
			}
			if err := signIn(ctx, app.adminAPI().AdminLogin, app.admin, c); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, fmt.Sprintf("Signed in to the admin console as %s", c.username), false)
			return nil
		},
	}
	c.bind(cmd)
	return cmd
}

func newAdminLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.admin.Clear(cmd.Context()); err != nil {
				return err
			}
			app.notifier.Toast(cmd.Context(), "Signed out of the admin console", false)
			return nil
		},
	}
}

func pageFooter(p domain.Pagination) string {
	pages := p.Pages()
	if pages == 0 {
		return "no results"
	}
	return fmt.Sprintf("page %d of %d, %d total", p.Page, pages, p.Total)
}

type listing struct {
	page  int
	query string
}

func (l *listing) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&l.page, "page", 1, "Page number")
	cmd.Flags().StringVarP(&l.query, "query", "q", "", "Search")
}

func newAdminUsersCmd(app *App) *cobra.Command {
	var l listing
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, p, err := services.NewPager(app.adminAPI()).Users(cmd.Context(), l.page, l.query)
			if err != nil {
				return userError(err)
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				role, status := "user", "active"
				if u.IsAdmin {
					role = "admin"
				}
				if !u.IsActive {
					status = "disabled"
				}
				rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, role, status})
			}
			fmt.Fprintln(app.out, terminal.Table([]string{"ID", "Username", "Role", "Status"}, rows, func(row int) bool {
				return !users[row].IsActive
			}))
			fmt.Fprintln(app.out, pageFooter(p))
			return nil
		},
	}
	l.bind(cmd)
	return cmd
}

func newAdminUserActionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "user-action ID ACTION",
		Short:     "Disable, enable, promote or demote a user",
		ValidArgs: []string{string(domain.ActionDisable), string(domain.ActionEnable), string(domain.ActionSetAdmin), string(domain.ActionUnsetAdmin)},
		Args:      cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			action := domain.UserAction(args[1])
			if !action.Valid() {
				return fmt.Errorf("unknown action %q", args[1])
			}
			msg, err := app.adminAPI().UserAction(ctx, id, action)
			if err != nil {
				return userError(err)
			}
			if msg == "" {
				msg = "Done"
			}
			app.notifier.Toast(ctx, msg, false)
			return nil
		},
	}
}

func newAdminResetPasswordCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-password ID",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			if password == "" {
				v, ok, err := app.dialog.Secret(ctx, fmt.Sprintf("New password for user #%d", id))
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
				password = v
			}
			if !services.CheckPassword(password, password).Length {
				return fmt.Errorf("password must be at least %d characters", services.MinPasswordLength)
			}
			if err := app.adminAPI().ResetPassword(ctx, id, password); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, "Password reset", false)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "New password (prompted when omitted)")
	return cmd
}

func newAdminDeleteUserCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user ID",
		Short: "Delete a user and everything they own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			if err := app.confirm(ctx, fmt.Sprintf("Delete user #%d?", id), "Their groups and links are deleted too."); err != nil {
				return err
			}
			if err := app.adminAPI().DeleteUser(ctx, id); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, "User deleted", false)
			return nil
		},
	}
}

func newAdminLinksCmd(app *App) *cobra.Command {
	var l listing
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List every link with its owner and risk rating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			links, p, err := services.NewPager(app.adminAPI()).Links(cmd.Context(), l.page, l.query)
			if err != nil {
				return userError(err)
			}
			rows := make([][]string, 0, len(links))
			for _, link := range links {
				rows = append(rows, []string{strconv.FormatInt(link.ID, 10), link.Title, link.URL, link.Owner, link.RiskScore})
			}
			fmt.Fprintln(app.out, terminal.Table([]string{"ID", "Title", "URL", "Owner", "Risk"}, rows, func(row int) bool {
				return links[row].HighRisk()
			}))
			fmt.Fprintln(app.out, pageFooter(p))
			return nil
		},
	}
	l.bind(cmd)
	return cmd
}

func newAdminConfigCmd(app *App) *cobra.Command {
	var (
		registration string
		title        string
		favicon      string
		keywords     string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change site settings",
		Long:  "Without flags the current settings are shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := app.adminAPI()
			flags := cmd.Flags()

			if !flags.Changed("registration") && !flags.Changed("title") && !flags.Changed("favicon-api") && !flags.Changed("risk-keywords") {
				cfg, err := api.AdminConfig(ctx)
				if err != nil {
					return userError(err)
				}
				kw, err := api.RiskKeywords(ctx)
				if err != nil {
					kw = cfg.RiskKeywords
				}
				reg := "closed"
				if cfg.RegistrationOpen {
					reg = "open"
				}
				fmt.Fprintf(app.out, "title:         %s\nfavicon api:   %s\nregistration:  %s\nrisk keywords: %s\n", cfg.SiteTitle, cfg.FaviconAPI, reg, kw)
				return nil
			}

			if flags.Changed("registration") {
				var open bool
				switch registration {
				case "open":
					open = true
				case "closed":
				default:
					return fmt.Errorf("registration must be open or closed, got %q", registration)
				}
				if err := api.SetRegistration(ctx, open); err != nil {
					return userError(err)
				}
				app.notifier.Toast(ctx, "Registration "+registration, false)
			}
			info := domain.SiteInfo{SiteTitle: strings.TrimSpace(title), FaviconAPI: strings.TrimSpace(favicon)}
			if !info.Empty() {
				if err := api.UpdateSiteInfo(ctx, info); err != nil {
					return userError(err)
				}
				app.notifier.Toast(ctx, "Site settings saved", false)
			}
			if flags.Changed("risk-keywords") {
				if err := api.SetRiskKeywords(ctx, keywords); err != nil {
					return userError(err)
				}
				app.notifier.Toast(ctx, "Risk keywords saved", false)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&registration, "registration", "", "open or closed")
	cmd.Flags().StringVar(&title, "title", "", "Site title")
	cmd.Flags().StringVar(&favicon, "favicon-api", "", "Favicon URL template, {domain} is replaced")
	cmd.Flags().StringVar(&keywords, "risk-keywords", "", "Comma-separated keywords that mark a link as risky")
	return cmd
}

func newAdminCustomCodeCmd(app *App) *cobra.Command {
	var stylesFile, scriptsFile string
	cmd := &cobra.Command{
		Use:   "custom-code",
		Short: "Show or replace the CSS and JS injected into every dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := app.adminAPI()
			code, err := api.CustomCode(ctx)
			if err != nil {
				return userError(err)
			}
			if stylesFile == "" && scriptsFile == "" {
				fmt.Fprintf(app.out, "/* styles */\n%s\n\n// scripts\n%s\n", code.CustomStyles, code.CustomScripts)
				return nil
			}

			next := *code
			if stylesFile != "" {
				b, err := os.ReadFile(stylesFile)
				if err != nil {
					return err
				}
				next.CustomStyles = string(b)
			}
			if scriptsFile != "" {
				b, err := os.ReadFile(scriptsFile)
				if err != nil {
					return err
				}
				next.CustomScripts = string(b)
			}
			if err := api.SaveCustomCode(ctx, next); err != nil {
				return userError(err)
			}
			app.notifier.Toast(ctx, "Custom code saved", false)
			return nil
		},
	}
	cmd.Flags().StringVar(&stylesFile, "styles-file", "", "Replace the custom CSS with this file")
	cmd.Flags().StringVar(&scriptsFile, "scripts-file", "", "Replace the custom JS with this file")
	return cmd
}

func newAdminIconsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "icons",
		Short: "List or delete icon files no link uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			icons, err := app.adminAPI().UnusedIcons(cmd.Context())
			if err != nil {
				return userError(err)
			}
			if len(icons) == 0 {
				fmt.Fprintln(app.out, "no unused icons")
				return nil
			}
			rows := make([][]string, 0, len(icons))
			for _, icon := range icons {
				rows = append(rows, []string{icon.Filename, icon.Size})
			}
			fmt.Fprintln(app.out, terminal.Table([]string{"File", "Size"}, rows, nil))
			return nil
		},
	}
	cmd.AddCommand(newAdminIconsDeleteCmd(app))
	return cmd
}

func newAdminIconsDeleteCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [FILE...]",
		Short: "Delete unused icon files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := app.adminAPI()
			files := args
			if all {
				icons, err := api.UnusedIcons(ctx)
				if err != nil {
					return userError(err)
				}
				files = files[:0:0]
				for _, icon := range icons {
					files = append(files, icon.Filename)
				}
			}
			if len(files) == 0 {
				return errors.New("select at least one icon")
			}
			if err := app.confirm(ctx, fmt.Sprintf("Delete %d icon files?", len(files)), strings.Join(files, "\n")); err != nil {
				return err
			}
			msg, err := api.DeleteUnusedIcons(ctx, files)
			if err != nil {
				return userError(err)
			}
			if msg == "" {
				msg = "Unused icons deleted"
			}
			app.notifier.Toast(ctx, msg, false)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every unused icon")
	return cmd
}
