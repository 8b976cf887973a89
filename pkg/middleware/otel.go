package middleware

import (
	"context"

	"github.com/vango-dev/routemap/pkg/dispatch"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name.
const defaultTracerName = "routemap"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "routemap").
	TracerName string

	// TracerProvider supplies the tracer (default: the global provider).
	TracerProvider trace.TracerProvider

	// IncludeParams records route parameters as span attributes.
	// Parameters may carry identifiers - disabled by default.
	IncludeParams bool

	// Filter determines which navigations to trace.
	// If nil, all navigations are traced.
	Filter func(nav *dispatch.Navigation) bool

	// AttributeExtractor adds custom attributes once the navigation finished.
	AttributeExtractor func(nav *dispatch.Navigation) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeParams enables recording route parameters.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(nav *dispatch.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(nav *dispatch.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates dispatch middleware that traces every navigation.
//
// The middleware:
//   - Creates a span per navigation with the requested path
//   - Passes the span context to module loads
//   - Adds the matched pattern and status once dispatch finished
//   - Records errors and sets span status
func OpenTelemetry(opts ...OTelOption) dispatch.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return dispatch.MiddlewareFunc(func(ctx context.Context, nav *dispatch.Navigation, next func(context.Context) error) error {
		if config.Filter != nil && !config.Filter(nav) {
			return next(ctx)
		}

		spanCtx, span := config.tracer.Start(ctx, formatSpanName(nav),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("routemap.path", nav.Path),
				attribute.Bool("routemap.preload", nav.Preload),
			),
		)
		defer span.End()

		err := next(spanCtx)

		attrs := []attribute.KeyValue{
			attribute.String("routemap.pattern", nav.Pattern),
			attribute.Int("routemap.status", nav.Status),
		}
		if config.IncludeParams {
			for name, value := range nav.Params {
				attrs = append(attrs, attribute.String("routemap.param."+name, value))
			}
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(nav)...)
		}
		span.SetAttributes(attrs...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	})
}

// formatSpanName creates a span name for a navigation.
func formatSpanName(nav *dispatch.Navigation) string {
	if nav.Preload {
		return "routemap.preload"
	}
	return "routemap.resolve"
}
