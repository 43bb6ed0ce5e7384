package saga

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const sagaTracerName = "sagaline.saga"

const (
	// SpanApply names the span around one command application.
	SpanApply = "saga.machine.apply"
	// SpanReplay names the span around an event-log replay.
	SpanReplay = "saga.machine.replay"
)

// Tracer returns the tracer used for saga core spans.
func Tracer() trace.Tracer {
	return otel.Tracer(sagaTracerName)
}
