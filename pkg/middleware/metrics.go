package middleware

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	rerrors "github.com/vango-dev/routemap/internal/errors"
	"github.com/vango-dev/routemap/pkg/dispatch"
	"github.com/vango-dev/routemap/pkg/hooks"
	"github.com/vango-dev/routemap/pkg/loader"
)

// unmatchedPattern labels navigations that matched no route.
const unmatchedPattern = "unmatched"

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "routemap").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "routemap",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the navigation metrics.
type metrics struct {
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	navigationErrors   *prometheus.CounterVec
	preloadsTotal      *prometheus.CounterVec
}

// Metrics are registered once per registerer; later Prometheus calls with
// the same registerer share them.
var (
	registeredMetrics   = map[prometheus.Registerer]*metrics{}
	registeredMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of resolved navigations",
			ConstLabels: config.ConstLabels,
		}, []string{"pattern", "status"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Navigation resolve duration in seconds, module loads included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"pattern"}),

		navigationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_errors_total",
			Help:        "Total number of failed navigations by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"error_type"}),

		preloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "preloads_total",
			Help:        "Total number of preload requests",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),
	}
}

// Prometheus creates dispatch middleware that records navigation metrics.
//
// Metrics collected:
//   - routemap_navigations_total: Counter of navigations by pattern and status
//   - routemap_navigation_duration_seconds: Histogram of resolve duration by pattern
//   - routemap_navigation_errors_total: Counter of failures by error type
//   - routemap_preloads_total: Counter of preloads by status
func Prometheus(opts ...MetricsOption) dispatch.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	registeredMetricsMu.Lock()
	m, ok := registeredMetrics[config.Registry]
	if !ok {
		m = initMetrics(config)
		registeredMetrics[config.Registry] = m
	}
	registeredMetricsMu.Unlock()

	return dispatch.MiddlewareFunc(func(ctx context.Context, nav *dispatch.Navigation, next func(context.Context) error) error {
		start := time.Now()
		err := next(ctx)
		duration := time.Since(start).Seconds()

		status := strconv.Itoa(nav.Status)
		if nav.Status == 0 {
			status = "error"
		}

		if nav.Preload {
			m.preloadsTotal.WithLabelValues(status).Inc()
			return err
		}

		pattern := nav.Pattern
		if pattern == "" {
			pattern = unmatchedPattern
		}
		m.navigationDuration.WithLabelValues(pattern).Observe(duration)
		m.navigationsTotal.WithLabelValues(pattern, status).Inc()
		if err != nil {
			m.navigationErrors.WithLabelValues(categorizeError(err)).Inc()
		}

		return err
	})
}

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	var le *loader.LoadError
	var de *hooks.DecodeError
	var re *rerrors.RouteError
	switch {
	case errors.Is(err, dispatch.ErrNoMatch):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &le):
		return "load"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &re) && re.Code == "R002":
		return "invalid_path"
	default:
		return "internal"
	}
}

// =============================================================================
// Loader Collector
// =============================================================================

// cacheCollector exports module cache statistics.
type cacheCollector struct {
	cache *loader.Cache

	loads     *prometheus.Desc
	hits      *prometheus.Desc
	coalesced *prometheus.Desc
	failures  *prometheus.Desc
	resolved  *prometheus.Desc
	nodes     *prometheus.Desc
}

// LoaderCollector returns a collector that reads cache.Stats on every scrape.
// Only the namespace, subsystem and constant label options apply.
func LoaderCollector(cache *loader.Cache, opts ...MetricsOption) prometheus.Collector {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(config.Namespace, config.Subsystem, name),
			help, nil, config.ConstLabels,
		)
	}

	return &cacheCollector{
		cache:     cache,
		loads:     desc("module_loads_total", "Total number of module load attempts"),
		hits:      desc("module_cache_hits_total", "Total number of module requests served from cache"),
		coalesced: desc("module_loads_coalesced_total", "Total number of module requests that joined a load in flight"),
		failures:  desc("module_load_failures_total", "Total number of failed module loads"),
		resolved:  desc("modules_resolved", "Number of modules currently cached"),
		nodes:     desc("modules", "Number of modules in the route table"),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.loads
	ch <- c.hits
	ch <- c.coalesced
	ch <- c.failures
	ch <- c.resolved
	ch <- c.nodes
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.cache.Stats()
	ch <- prometheus.MustNewConstMetric(c.loads, prometheus.CounterValue, float64(s.Loads))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.coalesced, prometheus.CounterValue, float64(s.Coalesced))
	ch <- prometheus.MustNewConstMetric(c.failures, prometheus.CounterValue, float64(s.Failures))
	ch <- prometheus.MustNewConstMetric(c.resolved, prometheus.GaugeValue, float64(s.Resolved))
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(s.Nodes))
}
