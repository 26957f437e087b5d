// Package tracing wires OpenTelemetry spans through the notifier: one server
// span per intake request, one span per delivery attempt, and trace context
// carried in queue message headers.
//
//	ctx, span := tracing.StartDelivery(ctx, n)
//	defer span.End()
//	if err := channel.Send(ctx, n); err != nil {
//	    tracing.RecordError(span, err)
//	}
package tracing
