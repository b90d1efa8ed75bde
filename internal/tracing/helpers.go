package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProviderKind distinguishes local heuristics from calls to an external service.
type ProviderKind string

const (
	ProviderLocal     ProviderKind = "local"
	ProviderDelegated ProviderKind = "delegated"
)

const (
	scopeService = "oppscore"
	scopeScoring = "oppscore/scoring"
)

// EndFunc ends a span, marking it failed when err is non-nil.
type EndFunc func(err error)

func start(ctx context.Context, scope, name string, opts ...trace.SpanStartOption) (context.Context, EndFunc) {
	ctx, span := otel.Tracer(scope).Start(ctx, name, opts...)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartProviderSpan opens the span for one sub-score provider call, named
// "score <component>". Delegated calls are client spans.
func StartProviderSpan(ctx context.Context, component string, kind ProviderKind) (context.Context, EndFunc) {
	spanKind := trace.SpanKindInternal
	if kind == ProviderDelegated {
		spanKind = trace.SpanKindClient
	}
	return start(ctx, scopeScoring, "score "+component,
		trace.WithSpanKind(spanKind),
		trace.WithAttributes(
			attribute.String("scoring.component", component),
			attribute.String("scoring.provider", string(kind)),
		))
}

// StartSpan opens an internal span such as "rank_similar".
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, EndFunc) {
	return start(ctx, scopeService, name, trace.WithAttributes(attrs...))
}

// AddEvent records an event on the span in ctx, if any.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes annotates the span in ctx, if any.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
