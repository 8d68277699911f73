package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

// sumFor returns the value of an int64 counter data point matching attrs.
func sumFor(t *testing.T, reader *sdkmetric.ManualReader, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if dp.Attributes.Equals(&want) {
					return dp.Value
				}
			}
		}
	}
	return 0
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationList, StatusSuccess, 200*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationList, StatusSuccess, 100*time.Millisecond)
	m.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationCreate, StatusError, 500*time.Millisecond)

	got := sumFor(t, reader, "google_api_operations_total",
		attribute.String(attrService, ServiceDrive),
		attribute.String(attrOperation, OperationList),
		attribute.String(attrStatus, StatusSuccess),
	)
	if got != 2 {
		t.Errorf("expected 2 successful list operations, got %d", got)
	}
}

func TestMetrics_RecordOAuthAuth(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOAuthAuth(ctx, OAuthResultCached)
	m.RecordOAuthAuth(ctx, OAuthResultCached)
	m.RecordOAuthAuth(ctx, OAuthResultFailure)

	if got := sumFor(t, reader, "oauth_auth_total", attribute.String(attrResult, OAuthResultCached)); got != 2 {
		t.Errorf("expected 2 cached authorizations, got %d", got)
	}
	if got := sumFor(t, reader, "oauth_auth_total", attribute.String(attrResult, OAuthResultFailure)); got != 1 {
		t.Errorf("expected 1 failed authorization, got %d", got)
	}
}

func TestMetrics_RecordBuildRun(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordBuildRun(context.Background(), StatusError, 90*time.Second)

	if got := sumFor(t, reader, "build_runs_total", attribute.String(attrStatus, StatusError)); got != 1 {
		t.Errorf("expected 1 failed build, got %d", got)
	}
}

func TestMetrics_RecordUpload(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordUpload(ctx, StatusSuccess, UploadModeReplace, 2048)
	m.RecordUpload(ctx, StatusError, UploadModeCreate, 4096)

	if got := sumFor(t, reader, "uploads_total",
		attribute.String(attrStatus, StatusSuccess),
		attribute.String(attrMode, UploadModeReplace),
	); got != 1 {
		t.Errorf("expected 1 successful replace, got %d", got)
	}
	if got := sumFor(t, reader, "upload_bytes_total"); got != 2048 {
		t.Errorf("expected only successful bytes to be counted, got %d", got)
	}
}

func TestMetrics_NoOp(t *testing.T) {
	ctx := context.Background()

	for name, m := range map[string]*Metrics{"zero": {}, "nil": nil} {
		t.Run(name, func(t *testing.T) {
			// Should not panic
			m.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationList, StatusSuccess, time.Second)
			m.RecordOAuthAuth(ctx, OAuthResultSuccess)
			m.RecordBuildRun(ctx, StatusSuccess, time.Minute)
			m.RecordUpload(ctx, StatusSuccess, UploadModeCreate, 1)
		})
	}
}
