package middleware

import (
	"context"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// untracedRoutes are polled by orchestrators and scrapers; tracing them only
// adds noise.
var untracedRoutes = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Tracing starts a server span for each request with the global tracer
// provider, continuing any W3C traceparent sent by the caller. Span names use
// the route template ("POST /v1/rank", "GET /v1/models/{id}") so that model
// ids and unknown paths do not create new span names. Place it after
// RequestID: the request id is recorded on the span.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		tagged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := GetRequestID(r.Context()); id != "" {
				trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("request.id", id))
			}
			next.ServeHTTP(w, r)
		})
		return otelhttp.NewHandler(tagged, serviceName,
			otelhttp.WithSpanNameFormatter(routeSpanName),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !untracedRoutes[r.URL.Path]
			}),
		)
	}
}

func routeSpanName(_ string, r *http.Request) string {
	return r.Method + " " + normalizePath(r.URL.Path)
}

// TraceID returns the active trace id in ctx, or "" outside a sampled or
// remote span.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanID returns the active span id in ctx, or "".
func SpanID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
