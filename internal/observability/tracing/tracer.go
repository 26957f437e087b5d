package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"casetrack/internal/domain/entity"
)

// TracerName identifies spans emitted by this module.
const TracerName = "casetrack"

// GetTracer returns the tracer from the current global provider.
func GetTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartDelivery starts a producer span for one delivery attempt.
func StartDelivery(ctx context.Context, n *entity.Notification) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "notification.deliver",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("notification.id", n.ID),
			attribute.String("notification.type", n.Type),
			attribute.Int64("case.id", n.CaseID),
			attribute.Int("notification.attempt", n.Attempts+1),
			attribute.Bool("notification.broadcast", n.Targeting.Broadcast),
		),
	)
}

// RecordError marks the span as failed.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Inject writes the trace context of ctx into header-style metadata.
// nats.Header and http.Header share the map[string][]string shape.
func Inject(ctx context.Context, header map[string][]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(header)))
}

// Extract returns ctx enriched with the trace context found in header.
func Extract(ctx context.Context, header map[string][]string) context.Context {
	if len(header) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(http.Header(header)))
}
