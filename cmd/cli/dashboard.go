package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/terminal"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/view"
)

func (a *App) render(ctx context.Context) view.Dashboard {
	cache := services.NewSiteConfigCache(time.Minute, domain.SiteConfig{FaviconAPI: a.Config.FaviconAPI})
	return services.NewRenderer(cache, nil).Render(ctx, a.api(), a.session, a.namespace())
}

// checkLinks probes every link of dash and waits for all of them.
func (a *App) checkLinks(ctx context.Context, dash view.Dashboard) []services.HealthResult {
	var links []view.Link
	for _, g := range dash.Groups {
		links = append(links, g.Links...)
	}
	// Probes run from the user's own machine, where intranet links are the
	// point of the check, so private addresses are allowed here.
	prober := services.HTTPProber{Client: &http.Client{Timeout: a.Config.HealthTimeout}}
	return services.NewHealthChecker(prober, nil, a.Config.HealthTimeout).CheckAll(ctx, a.namespace(), links)
}

func newDashboardCmd(app *App) *cobra.Command {
	var (
		width int
		raw   bool
		check bool
	)
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ls"},
		Short:   "Show the dashboard",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dash := app.render(ctx)

			health := map[string]services.HealthResult{}
			if check {
				for _, res := range app.checkLinks(ctx, dash) {
					health[res.NodeID] = res
				}
			}

			md := terminal.DashboardMarkdown(dash, health)
			if raw {
				fmt.Fprint(app.out, md)
				return nil
			}
			rendered, err := terminal.RenderMarkdown(md, width)
			if err != nil {
				return err
			}
			fmt.Fprint(app.out, rendered)
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "width", "w", 80, "Wrap width")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering")
	cmd.Flags().BoolVar(&check, "check", false, "Check every link before showing")
	return cmd
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether every link answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dash := app.render(ctx)
			if dash.State == view.StateError {
				return fmt.Errorf("%s", dash.Message)
			}

			titles := map[string]view.Link{}
			for _, g := range dash.Groups {
				for _, l := range g.Links {
					titles[l.NodeID] = l
				}
			}

			down := 0
			for _, res := range app.checkLinks(ctx, dash) {
				l := titles[res.NodeID]
				if res.Reachable {
					fmt.Fprintf(app.out, "%s %s  %s\n", terminal.MarkOK, l.Title, l.URL)
					continue
				}
				down++
				fmt.Fprintf(app.out, "%s %s  %s\n", terminal.MarkDown, l.Title, l.URL)
			}
			if down > 0 {
				return fmt.Errorf("%d of %d links unreachable", down, len(titles))
			}
			return nil
		},
	}
}
