// Package hooks defines the embedding hooks of a route table: error
// handling, one-time initialization, path rerouting and transport codecs
// for values that cross the server/client boundary.
package hooks

import (
	"context"
	"log/slog"
	"net/http"
)

// ErrorContext describes an unexpected error during navigation.
type ErrorContext struct {
	// Err is the error that occurred.
	Err error

	// Path is the path being navigated to.
	Path string

	// Pattern is the matched route pattern, if any.
	Pattern string

	// Params are the matched route parameters, if any.
	Params map[string]string

	// Status is the HTTP-style status of the failure.
	Status int

	// Message is the default public message for Status.
	Message string
}

// PageError is the public error shown by an error page.
type PageError struct {
	Message string `json:"message"`
}

// HandleErrorFunc reports an unexpected error. It may return the public
// error to show; nil keeps the default message.
type HandleErrorFunc func(ctx context.Context, ec ErrorContext) *PageError

// InitFunc runs once before the first navigation.
type InitFunc func(ctx context.Context) error

// RerouteFunc maps a requested path to the path used for matching.
// Returning "" leaves the path unchanged.
type RerouteFunc func(path string) string

// Codec encodes and decodes one custom value type.
type Codec struct {
	// Encode returns the transportable form of v and true when v is of the
	// codec's type.
	Encode func(v any) (any, bool)

	// Decode rebuilds a value from its transportable form.
	Decode func(v any) (any, error)
}

// Hooks is the set of embedding hooks. Nil fields fall back to defaults.
type Hooks struct {
	HandleError HandleErrorFunc
	Init        InitFunc
	Reroute     RerouteFunc
	Transport   map[string]Codec
}

// Defaults returns h with every nil hook replaced by its default:
// HandleError logs at error level and continues, Reroute is the identity,
// Init does nothing. A nil logger means slog.Default().
func Defaults(h Hooks, logger *slog.Logger) Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	if h.HandleError == nil {
		h.HandleError = LogErrors(logger)
	}
	if h.Init == nil {
		h.Init = func(context.Context) error { return nil }
	}
	if h.Reroute == nil {
		h.Reroute = Identity
	}
	if h.Transport == nil {
		h.Transport = map[string]Codec{}
	}
	return h
}

// LogErrors returns a HandleErrorFunc that logs the error and keeps the
// default public message.
func LogErrors(logger *slog.Logger) HandleErrorFunc {
	return func(ctx context.Context, ec ErrorContext) *PageError {
		logger.ErrorContext(ctx, "navigation failed",
			"error", ec.Err,
			"path", ec.Path,
			"pattern", ec.Pattern,
			"status", ec.Status,
		)
		return nil
	}
}

// Identity is the default reroute hook.
func Identity(path string) string {
	return path
}

// Handle runs the error hook and returns the public error. The message
// defaults to the status text, or "Internal Error" for 500.
func (h Hooks) Handle(ctx context.Context, ec ErrorContext) PageError {
	if ec.Status == 0 {
		ec.Status = http.StatusInternalServerError
	}
	if ec.Message == "" {
		ec.Message = StatusMessage(ec.Status)
	}
	if h.HandleError != nil {
		if pe := h.HandleError(ctx, ec); pe != nil {
			return *pe
		}
	}
	return PageError{Message: ec.Message}
}

// StatusMessage returns the default public message for status.
func StatusMessage(status int) string {
	if status == http.StatusInternalServerError {
		return "Internal Error"
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Error"
}
