package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stacksys/circulation-tracker-go/circstore"
	"github.com/stacksys/circulation-tracker-go/circstore/oteladapters"
)

func Test_TracingCollector_StartSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	// Start a span with attributes
	ctx := context.Background()
	attrs := map[string]string{
		"operation": "query_loans",
		"item_code": "BK-001",
	}

	newCtx, spanCtx := collector.StartSpan(ctx, "circulationstore.read", attrs)

	require.NotNil(t, spanCtx, "Span context should not be nil")
	assert.NotEqual(t, ctx, newCtx, "New context should be different from original")

	// Finish the span so it gets exported
	collector.FinishSpan(spanCtx, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, "circulationstore.read", span.Name, "Span name should match")

	assertSpanHasAttribute(t, span, "operation", "query_loans")
	assertSpanHasAttribute(t, span, "item_code", "BK-001")
}

func Test_TracingCollector_FinishSpan_StatusMapping(t *testing.T) {
	testCases := []struct {
		status          string
		expectedCode    codes.Code
		expectedMessage string
	}{
		{"success", codes.Ok, ""},
		{"ok", codes.Ok, ""},
		{"completed", codes.Ok, ""},
		{"error", codes.Error, "Operation failed"},
		{"failed", codes.Error, "Operation failed"},
		{"failure", codes.Error, "Operation failed"},
		{"cancelled", codes.Error, "Operation cancelled"},
		{"canceled", codes.Error, "Operation cancelled"},
		{"timeout", codes.Error, "Operation timed out"},
		{"conflict", codes.Error, "Concurrency conflict"},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			tracer := provider.Tracer("test")

			collector := oteladapters.NewTracingCollector(tracer)

			_, spanCtx := collector.StartSpan(context.Background(), "test.span", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1, "Expected exactly one span")

			span := spans[0]
			assert.Equal(t, tc.expectedCode, span.Status.Code, "Status code should match")
			assert.Equal(t, tc.expectedMessage, span.Status.Description, "Status message should match")
		})
	}
}

func Test_TracingCollector_FinishSpan_UnknownStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	// Unknown status should be recorded as an attribute, not a status code
	_, spanCtx := collector.StartSpan(context.Background(), "test.span", nil)
	collector.FinishSpan(spanCtx, "something_custom", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, codes.Unset, span.Status.Code, "Unknown status should leave status code unset")
	assertSpanHasAttribute(t, span, "status", "something_custom")
}

func Test_TracingCollector_FinishSpan_WithFinalAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	_, spanCtx := collector.StartSpan(context.Background(), "circulationstore.execute_transition", map[string]string{
		"transition_type": "ItemCheckedOut",
	})

	// Add final attributes when finishing
	finalAttrs := map[string]string{
		"duration_ms":  "42",
		"record_count": "1",
	}
	collector.FinishSpan(spanCtx, "success", finalAttrs)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assertSpanHasAttribute(t, span, "transition_type", "ItemCheckedOut")
	assertSpanHasAttribute(t, span, "duration_ms", "42")
	assertSpanHasAttribute(t, span, "record_count", "1")
}

func Test_TracingCollector_SpanContext_AddAttribute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	_, spanCtx := collector.StartSpan(context.Background(), "test.span", nil)

	// Add attributes via the span context
	spanCtx.AddAttribute("added_later", "some_value")
	spanCtx.AddAttribute("another_key", "another_value")

	collector.FinishSpan(spanCtx, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assertSpanHasAttribute(t, span, "added_later", "some_value")
	assertSpanHasAttribute(t, span, "another_key", "another_value")
}

func Test_TracingCollector_SpanContext_SetStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	_, spanCtx := collector.StartSpan(context.Background(), "test.span", nil)

	// Set status directly on the span context
	spanCtx.SetStatus("error")

	collector.FinishSpan(spanCtx, "", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, codes.Error, span.Status.Code, "Status code should be error")
	assert.Equal(t, "something went wrong", span.Status.Description, "Status message should match")
}

func Test_TracingCollector_ContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	// Start a parent span
	ctx := context.Background()
	parentCtx, parentSpan := collector.StartSpan(ctx, "parent.operation", nil)

	// Start a child span using the parent's context
	_, childSpan := collector.StartSpan(parentCtx, "child.operation", nil)

	collector.FinishSpan(childSpan, "success", nil)
	collector.FinishSpan(parentSpan, "success", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2, "Expected exactly two spans")

	// Spans are exported in finish order: child first, then parent
	child := spans[0]
	parent := spans[1]

	assert.Equal(t, "child.operation", child.Name)
	assert.Equal(t, "parent.operation", parent.Name)

	// The child should reference the parent
	assert.Equal(t, parent.SpanContext.TraceID(), child.SpanContext.TraceID(),
		"Child should share the parent's trace ID")
	assert.Equal(t, parent.SpanContext.SpanID(), child.Parent.SpanID(),
		"Child's parent span ID should match the parent span")
}

func Test_TracingCollector_FinishSpan_WithInvalidSpanContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	// Finishing a span context of the wrong type should not panic
	assert.NotPanics(t, func() {
		collector.FinishSpan(&mockSpanContext{}, "success", nil)
	}, "FinishSpan should not panic on an unexpected span context type")

	assert.NotPanics(t, func() {
		collector.FinishSpan(nil, "success", nil)
	}, "FinishSpan should not panic on a nil span context")

	spans := exporter.GetSpans()
	assert.Empty(t, spans, "No spans should have been exported")
}

// mockSpanContext implements circstore.SpanContext but is not the adapter's own type
type mockSpanContext struct{}

func (m *mockSpanContext) SetStatus(status string)               {}
func (m *mockSpanContext) AddAttribute(key string, value string) {}

var _ circstore.SpanContext = (*mockSpanContext)(nil)

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, value string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.Equal(t, value, attr.Value.AsString(), "Attribute %s should have expected value", key)
			return
		}
	}
	t.Errorf("Span %s is missing attribute %s", span.Name, key)
}
