package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the local configuration",
		// no storage needed
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *app.Config
			shown.APIBaseURL = app.APIURL
			if shown.JWTSecret != "" {
				shown.JWTSecret = "********"
			}
			data, err := yaml.Marshal(&shown)
			if err != nil {
				return err
			}
			if shown.ConfigPath != "" {
				fmt.Fprintf(app.out, "# overlay: %s\n", shown.ConfigPath)
			}
			fmt.Fprint(app.out, string(data))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save PATH",
		Short: "Write the effective configuration to a YAML file for ONEPANEL_CONFIG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *app.Config
			cfg.APIBaseURL = app.APIURL
			if err := cfg.Save(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "saved %s\n", args[0])
			return nil
		},
	})
	return cmd
}
