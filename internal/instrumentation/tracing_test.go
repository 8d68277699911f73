package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithFileName("androidapp.apk").
		WithFileID("file123").
		WithArtifact("/src/build/app-release.apk").
		Build()

	if len(attrs) != 3 {
		t.Fatalf("expected 3 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	if attrMap[SpanAttrFileName] != "androidapp.apk" {
		t.Errorf("expected file name 'androidapp.apk', got %v", attrMap[SpanAttrFileName])
	}
	if attrMap[SpanAttrFileID] != "file123" {
		t.Errorf("expected file id 'file123', got %v", attrMap[SpanAttrFileID])
	}
	if attrMap[SpanAttrArtifact] != "/src/build/app-release.apk" {
		t.Errorf("expected artifact path, got %v", attrMap[SpanAttrArtifact])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithFileName("").
		WithFileID("").
		WithArtifact("").
		Build()

	if len(attrs) != 0 {
		t.Errorf("expected no attributes for empty values, got %d", len(attrs))
	}
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := useRecorder(t)

	ctx, span := StartGoogleAPISpan(context.Background(), ServiceDrive, OperationList)
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace ID inside the span")
	}
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "google.drive.list" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("expected OK status, got %v", ended[0].Status().Code)
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, nil) // nil error should be safe
	SetSpanError(span, errors.New("test error"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", ended[0].Status().Code)
	}
	if ended[0].Status().Description != "test error" {
		t.Errorf("unexpected status description %q", ended[0].Status().Description)
	}
}

func TestAddSpanEvent(t *testing.T) {
	recorder := useRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	AddSpanEvent(span, "artifact.ready", NewSpanAttributeBuilder().WithArtifact("/tmp/app.apk").Build()...)
	span.End()

	events := recorder.Ended()[0].Events()
	if len(events) != 1 || events[0].Name != "artifact.ready" {
		t.Errorf("expected one artifact.ready event, got %v", events)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace ID, got %q", id)
	}
}
