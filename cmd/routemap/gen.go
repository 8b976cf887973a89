package main

import (
	"github.com/spf13/cobra"
	"github.com/vango-dev/routemap/pkg/manifest"
)

func genCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		hash   bool
		nodeID string
	)

	cmd := &cobra.Command{
		Use:   "gen [routes-dir]",
		Short: "Generate manifest.json from a routes directory",
		Long: `Scan a routes directory and write the route manifest.

Conventions:
  +page.*          a route; +page.server.* marks server data
  +layout.*        a layout for the directory and below
  +error.*         an error page for the directory and below
  (group)          elided from the URL
  [id] [id=int]    parameters, optionally with a matcher
  [[lang]]         optional parameter
  [...rest]        rest parameter

Node 0 is always the root layout and node 1 the root error page.
The output is deterministic for a given tree.

Examples:
  routemap gen
  routemap gen src/routes -o build/manifest.json
  routemap gen --node-id "_app/immutable/nodes/%d.js"`,
		Args: argsCheck(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			routesDir := cfg.RoutesPath()
			if len(args) == 1 {
				routesDir = args[0]
			}
			if output == "" {
				output = cfg.ManifestPath()
			}

			info("Scanning %s...", routesDir)

			var scanOpts []manifest.ScannerOption
			if nodeID != "" {
				scanOpts = append(scanOpts, manifest.WithNodeID(nodeID))
			}
			m, err := manifest.NewScanner(routesDir, scanOpts...).Scan()
			if err != nil {
				return err
			}
			m.Hash = hash || cfg.Hash

			if err := m.WriteFile(output); err != nil {
				return err
			}

			info("Found %d routes and %d nodes", len(m.Dictionary), len(m.Nodes))
			success("Generated %s", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: manifest from routemap.json)")
	cmd.Flags().BoolVar(&hash, "hash", false, "Use hash-based routing")
	cmd.Flags().StringVar(&nodeID, "node-id", "", `Node id format (default "`+manifest.DefaultNodeID+`")`)

	return cmd
}
