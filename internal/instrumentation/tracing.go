package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for apkship.
const TracerName = "github.com/teemow/apkship"

// Span attribute keys for operations.
const (
	// SpanAttrService is the Google service name attribute.
	SpanAttrService = "google.service"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "google.operation"

	// SpanAttrFileName is the remote file or folder name.
	SpanAttrFileName = "drive.file_name"

	// SpanAttrFileID is the remote file or folder ID.
	SpanAttrFileID = "drive.file_id"

	// SpanAttrArtifact is the local artifact path.
	SpanAttrArtifact = "build.artifact"

	// SpanAttrExitCode is the build subprocess exit code.
	SpanAttrExitCode = "build.exit_code"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 4),
	}
}

// WithFileName adds the remote file name attribute.
func (b *SpanAttributeBuilder) WithFileName(name string) *SpanAttributeBuilder {
	if name != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrFileName, name))
	}
	return b
}

// WithFileID adds the remote file ID attribute.
func (b *SpanAttributeBuilder) WithFileID(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrFileID, id))
	}
	return b
}

// WithArtifact adds the local artifact path attribute.
func (b *SpanAttributeBuilder) WithArtifact(path string) *SpanAttributeBuilder {
	if path != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrArtifact, path))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span for a Google API operation.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
