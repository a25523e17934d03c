package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"gopkg.in/yaml.v3"
)

// backup is the export file: groups in dashboard order, links by group. Ids
// are left out, the importing backend assigns its own.
type backup struct {
	ExportedAt time.Time     `json:"exported_at" yaml:"exported_at"`
	Groups     []backupGroup `json:"groups" yaml:"groups"`
}

type backupGroup struct {
	Name  string       `json:"name" yaml:"name"`
	Links []backupLink `json:"links" yaml:"links"`
}

type backupLink struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

func newBackup(groups []domain.Group, now time.Time) backup {
	b := backup{ExportedAt: now.UTC(), Groups: make([]backupGroup, 0, len(groups))}
	for _, g := range groups {
		bg := backupGroup{Name: g.Name, Links: make([]backupLink, 0, len(g.Links))}
		for _, l := range g.Links {
			bg.Links = append(bg.Links, backupLink{Title: l.Title, URL: l.URL})
		}
		b.Groups = append(b.Groups, bg)
	}
	return b
}

// formatFor picks the format from the flag, then from the file extension.
func formatFor(format, path string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	switch format {
	case "json", "yaml":
		return format, nil
	}
	return "", fmt.Errorf("unknown format %q, use json or yaml", format)
}

func encodeBackup(w io.Writer, format string, b backup) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

func decodeBackup(r io.Reader, format string) (backup, error) {
	var b backup
	var err error
	if format == "yaml" {
		err = yaml.NewDecoder(r).Decode(&b)
	} else {
		err = json.NewDecoder(r).Decode(&b)
	}
	if err != nil {
		return backup{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return b, nil
}

func newExportCmd(app *App) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all your groups and links to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := formatFor(format, output)
			if err != nil {
				return err
			}
			groups, err := app.groups(cmd.Context())
			if err != nil {
				return err
			}

			w := app.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := encodeBackup(w, kind, newBackup(groups, time.Now())); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if w != app.out {
				app.notifier.Toast(cmd.Context(), fmt.Sprintf("Exported %d groups to %s", len(groups), output), false)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout when omitted)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (from the file extension when omitted)")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add the groups and links of an export file",
		Long: "Groups are matched by name and created when missing. Links whose URL " +
			"is already in the target group are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, err := formatFor(format, args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			b, err := decodeBackup(f, kind)
			if err != nil {
				return err
			}

			total := 0
			for _, g := range b.Groups {
				total += len(g.Links)
			}
			if err := app.confirm(ctx, "Import backup?", fmt.Sprintf("%d groups, %d links", len(b.Groups), total)); err != nil {
				return err
			}

			groups, err := app.groups(ctx)
			if err != nil {
				return err
			}
			byName := make(map[string]domain.Group, len(groups))
			for _, g := range groups {
				byName[g.Name] = g
			}

			added, skipped := 0, 0
			for _, bg := range b.Groups {
				group, ok := byName[bg.Name]
				if !ok {
					created, err := app.api().CreateGroup(ctx, bg.Name)
					if err != nil {
						return userError(err)
					}
					if created == nil {
						return fmt.Errorf("group %q was not returned by the server", bg.Name)
					}
					group = *created
					byName[bg.Name] = group
				}

				existing := make(map[string]bool, len(group.Links))
				for _, l := range group.Links {
					existing[l.URL] = true
				}
				for _, l := range bg.Links {
					if existing[l.URL] {
						skipped++
						continue
					}
					if _, err := app.api().CreateLink(ctx, domain.NewLink{Title: l.Title, URL: l.URL, GroupID: group.ID}); err != nil {
						slog.Warn("Failed to import link", "url", l.URL, "error", err)
						skipped++
						continue
					}
					existing[l.URL] = true
					added++
				}
			}

			app.notifier.Toast(ctx, fmt.Sprintf("Imported %d links, skipped %d", added, skipped), false)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (from the file extension when omitted)")
	return cmd
}
