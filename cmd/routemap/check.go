package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/manifest"
	"github.com/vango-dev/routemap/pkg/router"
)

func checkCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Validate a route manifest",
		Long: `Validate a manifest and build its router.

Reports duplicate and ambiguous routes, malformed patterns, node
references outside the node list and unknown parameter matchers.
Exits with status 1 when any problem is found.`,
		Args: argsCheck(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				path = cfg.ManifestPath()
			}

			table, err := loadTable(path)
			if err != nil {
				var multi *manifest.MultiValidationError
				if !errors.As(err, &multi) {
					return err
				}
				for _, re := range diagnostics(path, multi) {
					errorMsg("%s", re.FormatCompact())
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "\n%d problem(s) in %s\n", len(multi.Errors), path)
				return errSilent
			}

			r, err := router.NewRouter(table)
			if err != nil {
				return err
			}

			success("%s: %d routes, %d nodes", path, len(r.Routes()), table.NodeCount())
			return nil
		},
	}

	return cmd
}

// diagnostics converts validation errors to coded route errors located
// at the manifest file.
func diagnostics(path string, multi *manifest.MultiValidationError) []*rerrors.RouteError {
	out := make([]*rerrors.RouteError, len(multi.Errors))
	for i, ve := range multi.Errors {
		detail := ve.Details
		if detail == "" {
			detail = ve.Message
		}
		out[i] = rerrors.New(ve.Type.Code()).WithDetail(detail).WithLocation(path, 0, 0)
	}
	return out
}
