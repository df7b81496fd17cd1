package predictor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracedBackend struct {
	next   Backend
	tracer trace.Tracer
}

// TracingMiddleware opens a span per request on the global tracer
// provider under instrumentation name serviceName.
func TracingMiddleware(serviceName string) Middleware {
	return TracingMiddlewareWithProvider(otel.GetTracerProvider(), serviceName)
}

// TracingMiddlewareWithProvider is TracingMiddleware with an explicit
// provider.
func TracingMiddlewareWithProvider(tp trace.TracerProvider, serviceName string) Middleware {
	tracer := tp.Tracer(serviceName)
	return func(next Backend) Backend {
		return &tracedBackend{next: next, tracer: tracer}
	}
}

func (t *tracedBackend) Generate(ctx context.Context, req Request) (Response, error) {
	ctx, span := t.tracer.Start(ctx, "judge.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("judge.model", t.next.Model()),
			attribute.String("judge.output_format", string(req.Format)),
			attribute.Int("judge.prompt.length", len(req.Prompt)),
		),
	)
	defer span.End()

	resp, err := t.next.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	span.SetAttributes(
		attribute.Int("judge.tokens.input", resp.TokensIn),
		attribute.Int("judge.tokens.output", resp.TokensOut),
	)
	return resp, nil
}

func (t *tracedBackend) Model() string { return t.next.Model() }
