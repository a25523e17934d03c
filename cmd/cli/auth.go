package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
)

type credentials struct {
	username string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "Password (prompted when omitted)")
}

// ask fills in whatever was not given on the command line.
func (c *credentials) ask(ctx context.Context, app *App) error {
	if strings.TrimSpace(c.username) == "" {
		v, ok, err := app.dialog.Prompt(ctx, "Username", "")
		if err != nil {
			return err
		}
		if !ok {
			return errCancelled
		}
		c.username = v
	}
	c.username = strings.TrimSpace(c.username)
	if c.password == "" {
		v, ok, err := app.dialog.Secret(ctx, "Password")
		if err != nil {
			return err
		}
		if !ok {
			return errCancelled
		}
		c.password = v
	}
	return nil
}

type loginFunc func(ctx context.Context, username, password string) (*domain.Token, error)

func signIn(ctx context.Context, login loginFunc, session *services.Session, c credentials) error {
	token, err := login(ctx, c.username, c.password)
	if err != nil {
		return err
	}
	if token == nil || token.AccessToken == "" {
		return errors.New("login returned no token")
	}
	if err := session.Clear(ctx); err != nil {
		return err
	}
	return session.SetToken(ctx, token.AccessToken)
}

func newLoginCmd(app *App) *cobra.Command {
	var c credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.ask(ctx, app); err != nil {
				return err
			}
			if err := signIn(ctx, app.api().Login, app.session, c); err != nil {
				return userError(err)
			}
			if user, err := app.api().Me(ctx); err == nil {
				_ = app.session.SetCachedUser(ctx, user)
			}
			app.notifier.Toast(ctx, fmt.Sprintf("Signed in as %s", c.username), false)
			return nil
		},
	}
	c.bind(cmd)
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.session.Clear(ctx); err != nil {
				return err
			}
			app.notifier.Toast(ctx, "Signed out", false)
			return nil
		},
	}
}

func newRegisterCmd(app *App) *cobra.Command {
	var (
		c       credentials
		confirm string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.ask(ctx, app); err != nil {
				return err
			}
			if confirm == "" && !app.Yes {
				v, ok, err := app.dialog.Secret(ctx, "Confirm password")
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
				confirm = v
			}
			if check := services.CheckPassword(c.password, confirm); !check.OK() {
				return errors.New(check.Problem())
			}

			if err := app.api().Register(ctx, c.username, c.password); err != nil {
				return userError(err)
			}
			if err := signIn(ctx, app.api().Login, app.session, c); err != nil {
				app.notifier.Toast(ctx, "Account created, please log in", false)
				return nil
			}
			app.notifier.Toast(ctx, fmt.Sprintf("Welcome, %s", c.username), false)
			return nil
		},
	}
	c.bind(cmd)
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation")
	return cmd
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := app.api().Me(ctx)
			if err != nil {
				return userError(err)
			}
			_ = app.session.SetCachedUser(ctx, user)

			role := "user"
			if user.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(app.out, "%s (#%d, %s)\n", user.Username, user.ID, role)
			if n := user.Hidden().Len(); n > 0 {
				fmt.Fprintf(app.out, "hidden groups: %s\n", user.Hidden().String())
			}
			return nil
		},
	}
}
