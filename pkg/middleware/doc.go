// Package middleware provides observability for route dispatch.
//
// This package includes:
//   - Prometheus metrics middleware for navigations
//   - A Prometheus collector for module cache statistics
//   - OpenTelemetry tracing middleware
//
// # Prometheus Metrics
//
//	reg := prometheus.NewRegistry()
//	d := dispatch.New(r, cache,
//	    dispatch.WithMiddleware(
//	        middleware.Prometheus(middleware.WithRegistry(reg)),
//	    ),
//	)
//	reg.MustRegister(middleware.LoaderCollector(cache))
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Patterns, not raw paths, are used as labels so cardinality stays bounded
// by the size of the route table. Unmatched navigations use "unmatched".
//
// # OpenTelemetry Middleware
//
// The tracing middleware starts one span per navigation and passes the
// span context down to module loads:
//
//	dispatch.WithMiddleware(
//	    middleware.OpenTelemetry(
//	        middleware.WithTracerName("crm-frontend"),
//	    ),
//	)
//
// The tracer comes from the global provider unless WithTracerProvider is used.
package middleware
