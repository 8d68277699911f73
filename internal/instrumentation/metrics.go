package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrMode      = "mode"
)

// Upload modes
const (
	UploadModeCreate  = "create"
	UploadModeReplace = "replace"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics and a zero Metrics are both valid no-op recorders.
type Metrics struct {
	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal metric.Int64Counter

	// Build metrics
	buildRunsTotal metric.Int64Counter
	buildDuration  metric.Float64Histogram

	// Upload metrics
	uploadsTotal metric.Int64Counter
	uploadBytes  metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth authorizations by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.buildRunsTotal, err = meter.Int64Counter(
		"build_runs_total",
		metric.WithDescription("Total number of build subprocess runs by result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build_runs_total counter: %w", err)
	}

	m.buildDuration, err = meter.Float64Histogram(
		"build_duration_seconds",
		metric.WithDescription("Build subprocess wall time in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(10, 30, 60, 120, 300, 600, 1200, 3600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build_duration_seconds histogram: %w", err)
	}

	m.uploadsTotal, err = meter.Int64Counter(
		"uploads_total",
		metric.WithDescription("Total number of artifact uploads by status and mode"),
		metric.WithUnit("{upload}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create uploads_total counter: %w", err)
	}

	m.uploadBytes, err = meter.Int64Counter(
		"upload_bytes_total",
		metric.WithDescription("Total number of artifact bytes uploaded"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload_bytes_total counter: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an authorization with its result: "success"
// (consent completed), "cached" (stored record used) or "failure".
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordBuildRun records a finished build subprocess.
func (m *Metrics) RecordBuildRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.buildRunsTotal == nil || m.buildDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))
	m.buildRunsTotal.Add(ctx, 1, attrs)
	m.buildDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUpload records an artifact upload. mode is UploadModeCreate or
// UploadModeReplace; bytes is only counted for successful uploads.
func (m *Metrics) RecordUpload(ctx context.Context, status, mode string, bytes int64) {
	if m == nil || m.uploadsTotal == nil || m.uploadBytes == nil {
		return // Instrumentation not initialized
	}

	m.uploadsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, status),
		attribute.String(attrMode, mode),
	))
	if status == StatusSuccess && bytes > 0 {
		m.uploadBytes.Add(ctx, bytes)
	}
}
