package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
)

func main() {
	app := newApp(config.Load(), os.Stdin, os.Stdout)
	err := newRootCmd(app).Execute()
	// a failed command skips the post-run hook
	_ = app.close()
	if err != nil {
		if !errors.Is(err, errCancelled) && !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "onepanel",
		Short:         "OnePanel link dashboard from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in and show the dashboard
  onepanel login --username alice
  onepanel dashboard

  # Move link 12 to the top of group 3
  onepanel links move 12 --to 3 --position 0

  # Back up all groups as YAML
  onepanel export --format yaml -o links.yaml
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.open(cmd.Context())
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.Profile, "profile", app.Profile, "Session profile; each profile keeps its own login")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", app.APIURL, "OnePanel API base URL")
	cmd.PersistentFlags().BoolVarP(&app.Yes, "yes", "y", false, "Do not ask for confirmation")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newCheckCmd(app))
	cmd.AddCommand(newGroupsCmd(app))
	cmd.AddCommand(newLinksCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newAdminCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}
