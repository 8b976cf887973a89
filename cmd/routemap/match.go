package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/routemap/pkg/router"
)

func matchCmd(opts *globalOptions) *cobra.Command {
	var (
		manifestPath string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "match <path>...",
		Short: "Show which route each path dispatches to",
		Long: `Match paths against the manifest without loading any module.

Examples:
  routemap match /liste/details/42
  routemap match --json /admin/login /users/stats`,
		Args: argsCheck(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				manifestPath = cfg.ManifestPath()
			}

			table, err := loadTable(manifestPath)
			if err != nil {
				return err
			}
			r, err := router.NewRouter(table)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			missed := 0
			for _, path := range args {
				m, err := r.Find(path)
				if asJSON {
					if err != nil {
						enc.Encode(map[string]string{"path": path, "error": err.Error()})
					} else {
						enc.Encode(m)
					}
				} else if err != nil {
					errorMsg("%s: %v", path, err)
				} else {
					fmt.Fprintln(out, describeMatch(path, m))
				}
				if err != nil {
					missed++
				}
			}

			if missed > 0 {
				return errSilent
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (default from routemap.json)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per path")

	return cmd
}

func describeMatch(path string, m *router.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s\n", path, m.Pattern)
	fmt.Fprintf(&b, "  page:    %d", m.Page)
	if m.ServerData {
		b.WriteString(" (server data)")
	}
	fmt.Fprintf(&b, "\n  layouts: %v\n  errors:  %v", m.Layouts, m.Errors)
	if len(m.Params) > 0 {
		names := make([]string, 0, len(m.Params))
		for name := range m.Params {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\n  params: ")
		for _, name := range names {
			fmt.Fprintf(&b, " %s=%q", name, m.Params[name])
		}
	}
	return b.String()
}
