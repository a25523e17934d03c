package terminal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/view"
)

const markdownStyle = "dark"

var (
	rendererMu sync.Mutex
	// Keyed by wrap width. WithAutoStyle is avoided as it queries the
	// terminal and can block.
	renderers = map[int]*glamour.TermRenderer{}
)

// DashboardMarkdown writes the dashboard as markdown: one section per group,
// one list item per link. health marks links by node id; links without a
// result are shown as unchecked.
func DashboardMarkdown(dash view.Dashboard, health map[string]services.HealthResult) string {
	var b strings.Builder

	who := "guest"
	if dash.Viewer.Authenticated {
		who = dash.Viewer.Username
		if dash.Viewer.IsAdmin {
			who += " (admin)"
		}
	}
	fmt.Fprintf(&b, "# Dashboard\n\n_Signed in as %s_\n\n", escape(who))

	if dash.State != view.StateGroups {
		fmt.Fprintf(&b, "> %s\n", dash.Message)
		return b.String()
	}

	for _, g := range dash.Groups {
		fmt.Fprintf(&b, "## %s `#%d`", escape(g.Name), g.ID)
		if g.IsPublic {
			b.WriteString(" · public")
		}
		if g.Readonly {
			b.WriteString(" · read-only")
		}
		b.WriteString("\n\n")

		if g.Empty() {
			if g.ShowAddHint {
				b.WriteString("_No links yet, add one with `links add`._\n\n")
			} else {
				b.WriteString("_No links._\n\n")
			}
			continue
		}
		for _, l := range g.Links {
			fmt.Fprintf(&b, "- %s [%s](%s) `#%d`\n", healthMark(health, l.NodeID), escape(l.Title), l.URL, l.ID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func healthMark(health map[string]services.HealthResult, nodeID string) string {
	res, ok := health[nodeID]
	switch {
	case !ok:
		return "○"
	case res.Reachable:
		return "●"
	default:
		return "✗"
	}
}

var markdownEscaper = strings.NewReplacer(`*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// RenderMarkdown renders md for a terminal of the given width. On renderer
// errors the raw markdown is returned along with the error.
func RenderMarkdown(md string, width int) (string, error) {
	if width < 20 {
		width = 20
	}

	rendererMu.Lock()
	r := renderers[width]
	if r == nil {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(markdownStyle),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			rendererMu.Unlock()
			return md, err
		}
		renderers[width] = r
	}
	rendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md, err
	}
	return out, nil
}
