package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceHeaderRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: "event_id", Value: []byte("e-1")}})
	if HeaderValue(headers, "traceparent") == "" {
		t.Fatal("traceparent header must be appended")
	}
	if HeaderValue(headers, "event_id") != "e-1" {
		t.Fatal("existing headers must be preserved")
	}

	out := ExtractTraceContext(context.Background(), kafka.Message{Headers: headers})
	if got := trace.SpanContextFromContext(out).TraceID(); got != sc.TraceID() {
		t.Fatalf("trace id lost in transit: got %s, want %s", got, sc.TraceID())
	}
}
