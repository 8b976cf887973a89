package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/routemap/internal/config"
	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/assets"
	"github.com/vango-dev/routemap/pkg/dispatch"
	"github.com/vango-dev/routemap/pkg/loader"
	"github.com/vango-dev/routemap/pkg/middleware"
	"github.com/vango-dev/routemap/pkg/router"
	"github.com/vango-dev/routemap/pkg/server"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var (
		host string
		port int
		warm bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inspector HTTP API",
		Long: `Serve the route table over HTTP.

Endpoints:
  GET  /routes              all routes, most specific first
  GET  /match?path=         route for a path
  GET  /resolve?path=       route plus loaded page and layout modules
  POST /preload?path=       load a path's modules into the cache
  GET  /nodes, /nodes/{i}   module load state
  GET  /stats               module cache counters
  GET  /metrics             Prometheus metrics
  GET  /healthz

Node modules are read from nodes.dir, or from S3 when nodes.source is
"s3". S3 credentials and region follow the standard AWS chain:
environment, ~/.aws config and credentials files, SSO, web identity
and instance metadata.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, warm)
		},
	}

	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from routemap.json)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from routemap.json)")
	cmd.Flags().BoolVar(&warm, "warm", false, "Load every node before serving")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, warm bool) error {
	logger := newLogger(cfg)

	table, err := loadTable(cfg.ManifestPath())
	if err != nil {
		return err
	}
	r, err := router.NewRouter(table)
	if err != nil {
		return err
	}

	src, err := nodeSource(ctx, cfg)
	if err != nil {
		return err
	}
	cache := loader.NewFromSource(src, table.Nodes(), loader.WithLogger(logger))

	reg := prometheus.NewRegistry()
	var mw []dispatch.Middleware
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			middleware.LoaderCollector(cache, middleware.WithNamespace(cfg.Metrics.Namespace)),
		)
		mw = append(mw, middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		))
	}
	if cfg.Tracing {
		mw = append(mw, middleware.OpenTelemetry())
	}

	d := dispatch.New(r, cache,
		dispatch.WithLogger(logger),
		dispatch.WithMiddleware(mw...),
	)
	if err := d.Init(ctx); err != nil {
		return err
	}

	if warm {
		if err := warmCache(ctx, cache, table.NodeCount()); err != nil {
			return err
		}
		logger.Info("cache warmed", "nodes", table.NodeCount())
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.ServerAddress()
	srvCfg.Logger = logger
	if cfg.Metrics.Enabled {
		srvCfg.Gatherer = reg
	}

	logger.Info("route table loaded",
		"manifest", cfg.ManifestPath(),
		"routes", table.Len(),
		"nodes", table.NodeCount(),
		"source", cfg.Nodes.Source,
	)
	return server.New(d, srvCfg).Run(ctx)
}

// nodeSource returns the module source selected by cfg.Nodes, resolving
// ids through the fingerprint map when one is configured.
func nodeSource(ctx context.Context, cfg *config.Config) (loader.Source, error) {
	var src loader.Source
	if cfg.Nodes.Source == config.SourceS3 {
		client, err := newS3Client(ctx, cfg.Nodes)
		if err != nil {
			return nil, err
		}
		src = loader.NewS3Source(client, cfg.Nodes.Bucket, cfg.Nodes.Prefix)
	} else {
		src = loader.NewFileSource(cfg.NodesPath())
	}

	path := cfg.FingerprintsPath()
	if path == "" {
		return src, nil
	}
	fingerprints, err := assets.Load(path)
	if err != nil {
		return nil, rerrors.New("R122").WithDetail("nodes.fingerprints").Wrap(err)
	}
	return assets.Source(src, fingerprints), nil
}

// newS3Client builds a client from the default AWS config chain
// (environment, shared config and credentials files, SSO, web identity,
// instance metadata) with the region, endpoint and addressing in nc.
func newS3Client(ctx context.Context, nc config.NodesConfig) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if nc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(nc.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, rerrors.New("R122").WithDetail("loading AWS config for nodes.source \"s3\"").Wrap(err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = nc.PathStyle
		if nc.Endpoint != "" {
			o.BaseEndpoint = aws.String(nc.Endpoint)
		}
	}), nil
}

// warmCache loads nodes 0..n-1. A failure is reported as R030.
func warmCache(ctx context.Context, cache *loader.Cache, n int) error {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if _, err := cache.LoadAll(ctx, all); err != nil {
		return rerrors.FromError(err, "R030").WithSuggestion("Check nodes.source or start without --warm")
	}
	return nil
}
