package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/routemap/internal/config"
	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/manifest"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errSilent is returned by commands that already printed their diagnostics.
var errSilent = errors.New("")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err != errSilent {
			rerrors.PrintError(err)
		}
		os.Exit(1)
	}
}

type globalOptions struct {
	configPath string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "routemap",
		Short: "Generate, check and serve client route manifests",
		Long: `routemap manages the route manifest of a file-routed web client.

The manifest lists every lazily loaded view module ("node") and maps
URL patterns to a page node plus its layout and error chains.

  gen      Scan a routes directory and write manifest.json
  check    Validate a manifest
  match    Show which route a path dispatches to
  serve    Run the inspector HTTP API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				rerrors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to routemap.json (default: search upward from the working directory)")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		genCmd(opts),
		checkCmd(opts),
		matchCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)

	return rootCmd
}

// loadConfig loads routemap.json from --config or the project root. A
// missing file yields the defaults, with paths relative to the working
// directory.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}

	cfg, err := config.LoadFromWorkingDir()
	var re *rerrors.RouteError
	if errors.As(err, &re) && re.Code == "R141" {
		return config.New(), nil
	}
	return cfg, err
}

// argsCheck reports positional argument errors as R150.
func argsCheck(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return rerrors.New("R150").
				WithDetail(err.Error()).
				WithSuggestion("Usage: " + cmd.UseLine())
		}
		return nil
	}
}

// loadTable reads the manifest at path and builds its route table.
func loadTable(path string) (*manifest.Table, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, rerrors.New("R015").
			WithDetail(path).
			WithSuggestion("Run 'routemap gen' to generate the manifest").
			Wrap(err)
	}
	return manifest.NewTable(m)
}

// newLogger builds the process logger from the log section of cfg.
func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.LogLevel()
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	return slog.New(handler)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
